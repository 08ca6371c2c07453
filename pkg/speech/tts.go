package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/pkg/circuitbreaker"
	"github.com/troikatech/taxi-voicebot/pkg/metrics"
)

// TTSClient synthesizes prompts with the OpenAI TTS API and converts the
// result to raw PCM at the telephony sample rate.
type TTSClient struct {
	apiKey     string
	model      string
	sampleRate int
	timeout    time.Duration
	logger     *zap.Logger
	baseURL    string
	breaker    *circuitbreaker.CircuitBreaker
}

func NewTTSClient(apiKey, model string, sampleRate int, timeout time.Duration, logger *zap.Logger) *TTSClient {
	return &TTSClient{
		apiKey:     apiKey,
		model:      model,
		sampleRate: sampleRate,
		timeout:    timeout,
		logger:     logger,
		baseURL:    "https://api.openai.com/v1",
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

// IsAvailable checks if the client is configured.
func (c *TTSClient) IsAvailable() bool {
	return c.apiKey != ""
}

// Synthesize converts text to raw 16-bit mono PCM for the given voice.
func (c *TTSClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("TTS client not available. Set OPENAI_API_KEY environment variable")
	}
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	model := c.model
	if model == "" {
		model = "tts-1"
	}
	if voice == "" {
		voice = "alloy"
	}

	requestBody := map[string]interface{}{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
		"speed":           1.0,
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/audio/speech", c.baseURL)

	var mp3Data []byte
	start := time.Now()
	err = c.breaker.Execute(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		client := &http.Client{Timeout: c.timeout}
		resp, err := client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("OpenAI TTS API error: %d - %s", resp.StatusCode, string(body))
		}

		mp3Data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read audio data: %w", err)
		}
		return nil
	})
	metrics.RecordServiceCall("tts", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(mp3Data) == 0 {
		return nil, fmt.Errorf("no audio data received")
	}

	pcm, err := convertMP3ToPCM(mp3Data, c.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to convert MP3 to PCM: %w", err)
	}
	return pcm, nil
}

// convertMP3ToPCM decodes MP3 to raw 16-bit mono little-endian PCM at the
// requested sample rate using ffmpeg.
func convertMP3ToPCM(mp3Data []byte, sampleRate int) ([]byte, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not available - audio conversion requires ffmpeg")
	}

	cmd := exec.Command("ffmpeg",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-",
	)
	cmd.Stdin = bytes.NewReader(mp3Data)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &bytes.Buffer{}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}
	return out.Bytes(), nil
}
