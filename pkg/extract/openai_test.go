package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/booking"
)

func TestOpenAIExtractor_IsAvailable(t *testing.T) {
	logger := zap.NewNop()

	if e := NewOpenAIExtractor("key", "gpt-4o-mini", 300, 5*time.Second, logger); !e.IsAvailable() {
		t.Error("IsAvailable() = false, want true with api key")
	}
	if e := NewOpenAIExtractor("", "gpt-4o-mini", 300, 5*time.Second, logger); e.IsAvailable() {
		t.Error("IsAvailable() = true, want false without api key")
	}
}

func TestOpenAIExtractor_Extract(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{
					"content": `{"pickup":"12 Main St","destination":null,"passengers":2,"pickup_time":null}`,
				}},
			},
		})
	}))
	defer server.Close()

	e := NewOpenAIExtractor("test-key", "gpt-4o-mini", 300, 5*time.Second, zap.NewNop())
	e.baseURL = server.URL

	turns := []booking.Turn{
		{Role: booking.RoleAssistant, Content: "Where should the taxi pick you up?"},
		{Role: booking.RoleUser, Content: "12 Main Street, two of us"},
	}
	got, err := e.Extract(context.Background(), turns, booking.Booking{}, "+14165550123")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got.Pickup == nil || *got.Pickup != "12 Main St" {
		t.Errorf("pickup = %v, want 12 Main St", got.Pickup)
	}
	if got.Passengers == nil || *got.Passengers != 2 {
		t.Errorf("passengers = %v, want 2", got.Passengers)
	}
	if got.Destination != nil || got.PickupTime != nil {
		t.Errorf("null slots should stay nil: %+v", got)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if _, ok := gotBody["response_format"]; !ok {
		t.Error("request should ask for JSON mode")
	}
}

func TestOpenAIExtractor_ExtractAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewOpenAIExtractor("test-key", "gpt-4o-mini", 300, 5*time.Second, zap.NewNop())
	e.baseURL = server.URL

	if _, err := e.Extract(context.Background(), nil, booking.Booking{}, ""); err == nil {
		t.Fatal("Extract() should surface API errors")
	}
}

func TestOpenAIExtractor_NotConfigured(t *testing.T) {
	e := NewOpenAIExtractor("", "gpt-4o-mini", 300, 5*time.Second, zap.NewNop())
	if _, err := e.Extract(context.Background(), nil, booking.Booking{}, ""); err == nil {
		t.Fatal("Extract() should fail without an api key")
	}
}

func TestParseBooking(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*testing.T, *booking.Booking)
	}{
		{
			name:    "plain object",
			content: `{"pickup":"a","destination":"b","passengers":1,"pickup_time":"now"}`,
			check: func(t *testing.T, b *booking.Booking) {
				if !b.Complete() {
					t.Errorf("booking should be complete: %+v", b)
				}
			},
		},
		{
			name:    "code fenced object",
			content: "```json\n{\"pickup\":\"a\"}\n```",
			check: func(t *testing.T, b *booking.Booking) {
				if b.Pickup == nil || *b.Pickup != "a" {
					t.Errorf("pickup = %v", b.Pickup)
				}
			},
		},
		{
			name:    "all nulls",
			content: `{"pickup":null,"destination":null,"passengers":null,"pickup_time":null}`,
			check: func(t *testing.T, b *booking.Booking) {
				if b.Pickup != nil || b.Passengers != nil {
					t.Errorf("slots should be nil: %+v", b)
				}
			},
		},
		{
			name:    "not json",
			content: "sorry, I cannot help with that",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBooking(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseBooking() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseBooking() error = %v", err)
			}
			tt.check(t, got)
		})
	}
}
