package booking

// Turn roles, matching what the extraction service expects.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Turn is one utterance in the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered, append-only conversation history for one call.
// It is owned by a single session and never shared, so it carries no lock.
type Transcript struct {
	turns []Turn
}

func (t *Transcript) Append(role, content string) {
	t.turns = append(t.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the history in append order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

// Clear drops the history. Called together with Booking.Reset when the
// caller rejects the confirmation.
func (t *Transcript) Clear() {
	t.turns = t.turns[:0]
}
