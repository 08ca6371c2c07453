package call

// FieldSpec names one booking slot and the question that collects it.
type FieldSpec struct {
	Name     string
	Question string
}

// Script holds every phrase the bot speaks plus the ordered field list.
// It is built from configuration once at startup and shared read-only by
// all sessions.
type Script struct {
	Greeting    string
	RetryPrefix string
	Apology     string
	Restart     string
	Done        string
	Fields      []FieldSpec
}

// DefaultScript returns the stock English prompts for the four booking
// slots in their canonical order.
func DefaultScript() Script {
	return Script{
		Greeting:    "Hello, welcome to the taxi booking line. I will ask you a few quick questions to book your ride.",
		RetryPrefix: "Sorry, I didn't catch that. ",
		Apology:     "I'm sorry, I'm having trouble understanding. Let me transfer you to an operator.",
		Restart:     "No problem, let's start again.",
		Done:        "Great, your taxi is booked. Goodbye!",
		Fields: []FieldSpec{
			{Name: "pickup", Question: "Where should the taxi pick you up?"},
			{Name: "destination", Question: "Where are you going?"},
			{Name: "passengers", Question: "How many passengers will be travelling?"},
			{Name: "pickup_time", Question: "When do you need the taxi?"},
		},
	}
}
