package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries every recognized option as a typed, validated field.
type Config struct {
	AppEnv  string
	AppPort string

	// Ops API
	JWTSecret          string
	CORSAllowedOrigins string
	APIRateLimitRPM    int

	RedisURL      string
	DispatchQueue string

	MongoURI string
	DBName   string

	// Telephony (Asterisk ARI)
	ARIBaseURL   string
	ARIUsername  string
	ARIPassword  string
	ARIAppName   string
	ARISoundsDir string

	// Speech services
	OpenAIApiKey    string
	WhisperModel    string
	WhisperLanguage string
	TTSModel        string
	TTSVoice        string
	STTProvider     string
	DeepgramApiKey  string
	DeepgramModel   string
	SpeechTimeoutMs int

	// Slot extraction
	ExtractModel     string
	ExtractMaxTokens int
	ExtractTimeoutMs int

	// Collection loop
	MaxRetries       int
	MaxRecordSeconds int
	MaxSilenceMs     int
	SampleRate       int
	AudioFormat      string
	FieldOrder       []string

	// Optional phrase overrides; empty means the built-in script text.
	GreetingText    string
	RetryPrefixText string
	ApologyText     string
	RestartText     string
	DoneText        string

	LogLevel string

	OTELEndpoint string
	OTELEnabled  bool
}

// Load reads configuration from the environment, optionally seeded from an
// .env file. A missing .env file is not an error so production can run on
// real environment variables alone.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		APIRateLimitRPM:    getEnvInt("API_RATE_LIMIT_RPM", 180),

		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DispatchQueue: getEnv("DISPATCH_QUEUE", "dispatch:bookings"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "taxi_voicebot"),

		ARIBaseURL:   getEnv("ARI_BASE_URL", "http://localhost:8088/ari"),
		ARIUsername:  getEnv("ARI_USERNAME", "asterisk"),
		ARIPassword:  getEnv("ARI_PASSWORD", ""),
		ARIAppName:   getEnv("ARI_APP_NAME", "taxi-voicebot"),
		ARISoundsDir: getEnv("ARI_SOUNDS_DIR", "/var/lib/asterisk/sounds/voicebot"),

		OpenAIApiKey:    getEnv("OPENAI_API_KEY", ""),
		WhisperModel:    getEnv("WHISPER_MODEL", "whisper-1"),
		WhisperLanguage: getEnv("WHISPER_LANGUAGE", ""),
		TTSModel:        getEnv("TTS_MODEL", "tts-1"),
		TTSVoice:        getEnv("TTS_VOICE", "alloy"),
		STTProvider:     getEnv("STT_PROVIDER", "whisper"),
		DeepgramApiKey:  getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramModel:   getEnv("DEEPGRAM_MODEL", "nova-2"),
		SpeechTimeoutMs: getEnvInt("SPEECH_TIMEOUT_MS", 10000),

		ExtractModel:     getEnv("EXTRACT_MODEL", "gpt-4o-mini"),
		ExtractMaxTokens: getEnvInt("EXTRACT_MAX_TOKENS", 300),
		ExtractTimeoutMs: getEnvInt("EXTRACT_TIMEOUT_MS", 8000),

		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		MaxRecordSeconds: getEnvInt("MAX_RECORD_SECONDS", 10),
		MaxSilenceMs:     getEnvInt("MAX_SILENCE_MS", 1500),
		SampleRate:       getEnvInt("SAMPLE_RATE", 16000),
		AudioFormat:      getEnv("AUDIO_FORMAT", "sln16"),
		FieldOrder:       getEnvList("FIELD_ORDER", []string{"pickup", "destination", "passengers", "pickup_time"}),

		GreetingText:    getEnv("GREETING_TEXT", ""),
		RetryPrefixText: getEnv("RETRY_PREFIX_TEXT", ""),
		ApologyText:     getEnv("APOLOGY_TEXT", ""),
		RestartText:     getEnv("RESTART_TEXT", ""),
		DoneText:        getEnv("DONE_TEXT", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var knownFields = map[string]bool{
	"pickup":      true,
	"destination": true,
	"passengers":  true,
	"pickup_time": true,
}

// Validate rejects configurations the call loop cannot run with.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if c.MaxRecordSeconds < 1 {
		return fmt.Errorf("MAX_RECORD_SECONDS must be at least 1, got %d", c.MaxRecordSeconds)
	}
	if c.MaxSilenceMs < 1 {
		return fmt.Errorf("MAX_SILENCE_MS must be at least 1, got %d", c.MaxSilenceMs)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.ARIBaseURL == "" {
		return fmt.Errorf("ARI_BASE_URL is required")
	}
	if len(c.FieldOrder) == 0 {
		return fmt.Errorf("FIELD_ORDER must name at least one field")
	}
	seen := map[string]bool{}
	for _, f := range c.FieldOrder {
		if !knownFields[f] {
			return fmt.Errorf("unknown field %q in FIELD_ORDER", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate field %q in FIELD_ORDER", f)
		}
		seen[f] = true
	}
	switch c.STTProvider {
	case "whisper", "deepgram":
	default:
		return fmt.Errorf("unknown STT_PROVIDER %q", c.STTProvider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvList(key string, defaultValue []string) []string {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
