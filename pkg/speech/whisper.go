package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/pkg/circuitbreaker"
	"github.com/troikatech/taxi-voicebot/pkg/metrics"
)

// WhisperClient transcribes caller audio with OpenAI Whisper.
type WhisperClient struct {
	apiKey   string
	model    string
	language string
	timeout  time.Duration
	logger   *zap.Logger
	baseURL  string
	breaker  *circuitbreaker.CircuitBreaker
}

func NewWhisperClient(apiKey, model, language string, timeout time.Duration, logger *zap.Logger) *WhisperClient {
	return &WhisperClient{
		apiKey:   apiKey,
		model:    model,
		language: language,
		timeout:  timeout,
		logger:   logger,
		baseURL:  "https://api.openai.com/v1",
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

// IsAvailable checks if the client is configured.
func (c *WhisperClient) IsAvailable() bool {
	return c.apiKey != ""
}

// Transcribe uploads the captured PCM (wrapped as WAV) and returns the
// recognized text. Empty text with a nil error means the service heard
// nothing it could transcribe.
func (c *WhisperClient) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if !c.IsAvailable() {
		return "", fmt.Errorf("whisper client not available. Set OPENAI_API_KEY environment variable")
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("audio data cannot be empty")
	}

	model := c.model
	if model == "" {
		model = "whisper-1"
	}

	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavFromPCM(pcm, sampleRate)); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if c.language != "" {
		if err := writer.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("failed to write response_format field: %w", err)
	}
	writer.Close()

	url := fmt.Sprintf("%s/audio/transcriptions", c.baseURL)

	var text string
	start := time.Now()
	err = c.breaker.Execute(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBody.Bytes()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", writer.FormDataContentType())
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		client := &http.Client{Timeout: c.timeout}
		resp, err := client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("OpenAI Whisper API error: %d - %s", resp.StatusCode, string(body))
		}

		var whisperResp struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&whisperResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		text = whisperResp.Text
		return nil
	})
	metrics.RecordServiceCall("stt", err == nil, time.Since(start))
	if err != nil {
		return "", err
	}
	return text, nil
}
