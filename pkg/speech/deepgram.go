package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/pkg/circuitbreaker"
	"github.com/troikatech/taxi-voicebot/pkg/metrics"
)

// DeepgramClient is the alternative transcriber. It takes raw linear PCM
// directly, no container needed.
type DeepgramClient struct {
	apiKey  string
	model   string
	timeout time.Duration
	logger  *zap.Logger
	baseURL string
	breaker *circuitbreaker.CircuitBreaker
}

func NewDeepgramClient(apiKey, model string, timeout time.Duration, logger *zap.Logger) *DeepgramClient {
	return &DeepgramClient{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		logger:  logger,
		baseURL: "https://api.deepgram.com/v1",
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

// IsAvailable checks if the client is configured.
func (c *DeepgramClient) IsAvailable() bool {
	return c.apiKey != ""
}

// Transcribe sends raw PCM16 mono audio and returns the first transcript
// alternative.
func (c *DeepgramClient) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if !c.IsAvailable() {
		return "", fmt.Errorf("deepgram client not available. Set DEEPGRAM_API_KEY environment variable")
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("audio data cannot be empty")
	}

	model := c.model
	if model == "" {
		model = "nova-2"
	}

	query := url.Values{}
	query.Set("model", model)
	query.Set("punctuate", "true")
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate))

	endpoint := fmt.Sprintf("%s/listen?%s", c.baseURL, query.Encode())

	var text string
	start := time.Now()
	err := c.breaker.Execute(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(pcm))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "audio/pcm")
		httpReq.Header.Set("Authorization", "Token "+c.apiKey)

		client := &http.Client{Timeout: c.timeout}
		resp, err := client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("Deepgram API error: %d - %s", resp.StatusCode, string(body))
		}

		var deepgramResp struct {
			Results struct {
				Channels []struct {
					Alternatives []struct {
						Transcript string `json:"transcript"`
					} `json:"alternatives"`
				} `json:"channels"`
			} `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&deepgramResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}

		if len(deepgramResp.Results.Channels) > 0 && len(deepgramResp.Results.Channels[0].Alternatives) > 0 {
			text = deepgramResp.Results.Channels[0].Alternatives[0].Transcript
		}
		return nil
	})
	metrics.RecordServiceCall("stt", err == nil, time.Since(start))
	if err != nil {
		return "", err
	}
	return text, nil
}
