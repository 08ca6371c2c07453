package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/booking"
	"github.com/troikatech/taxi-voicebot/pkg/circuitbreaker"
	"github.com/troikatech/taxi-voicebot/pkg/metrics"
)

const systemPrompt = `You are a slot-filling assistant for a taxi booking phone line.
Given the conversation so far and the booking collected so far, extract any booking
details the caller has stated. Respond with a JSON object with these keys, using
null for anything the caller has not said:
- "pickup": pickup address or landmark (string)
- "destination": destination address or landmark (string)
- "passengers": number of passengers (integer)
- "pickup_time": requested pickup time in the caller's words (string)

Only extract values the caller actually said. Never invent values and never
overwrite a value already present in the current booking unless the caller
corrected it.`

// OpenAIExtractor fills booking slots from conversation turns via the
// OpenAI chat completions API in JSON mode.
type OpenAIExtractor struct {
	apiKey    string
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
	baseURL   string
	breaker   *circuitbreaker.CircuitBreaker
}

func NewOpenAIExtractor(apiKey, model string, maxTokens int, timeout time.Duration, logger *zap.Logger) *OpenAIExtractor {
	return &OpenAIExtractor{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
		baseURL:   "https://api.openai.com/v1",
		breaker:   circuitbreaker.New(circuitbreaker.DefaultConfig()),
	}
}

// IsAvailable checks if the extractor is configured.
func (e *OpenAIExtractor) IsAvailable() bool {
	return e.apiKey != ""
}

// Extract returns the booking fields mentioned in the conversation, with
// null for anything not yet stated.
func (e *OpenAIExtractor) Extract(ctx context.Context, turns []booking.Turn, current booking.Booking, callerPhone string) (*booking.Booking, error) {
	if !e.IsAvailable() {
		return nil, fmt.Errorf("extractor not available. Set OPENAI_API_KEY environment variable")
	}

	userPayload := map[string]interface{}{
		"conversation":    turns,
		"current_booking": current,
		"caller_phone":    callerPhone,
	}
	userJSON, err := json.Marshal(userPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}

	messages := []map[string]interface{}{
		{"role": "system", "content": systemPrompt},
		{"role": "user", "content": string(userJSON)},
	}

	requestBody := map[string]interface{}{
		"model":           e.model,
		"messages":        messages,
		"max_tokens":      e.maxTokens,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var content string
	start := time.Now()
	err = e.breaker.Execute(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

		client := &http.Client{Timeout: e.timeout}
		resp, err := client.Do(httpReq)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("OpenAI API error: %d - %s", resp.StatusCode, string(body))
		}

		var openAIResp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if len(openAIResp.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}
		content = openAIResp.Choices[0].Message.Content
		return nil
	})
	metrics.RecordServiceCall("extract", err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	extracted, err := parseBooking(content)
	if err != nil {
		return nil, err
	}
	return extracted, nil
}

// parseBooking decodes the model's JSON reply, tolerating a markdown code
// fence around the object.
func parseBooking(content string) (*booking.Booking, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var b booking.Booking
	if err := json.Unmarshal([]byte(content), &b); err != nil {
		return nil, fmt.Errorf("failed to parse extraction result: %w", err)
	}
	return &b, nil
}
