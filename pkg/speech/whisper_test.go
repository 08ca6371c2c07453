package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWhisperClient_IsAvailable(t *testing.T) {
	logger := zap.NewNop()

	if c := NewWhisperClient("key", "whisper-1", "", 5*time.Second, logger); !c.IsAvailable() {
		t.Error("IsAvailable() = false, want true with api key")
	}
	if c := NewWhisperClient("", "whisper-1", "", 5*time.Second, logger); c.IsAvailable() {
		t.Error("IsAvailable() = true, want false without api key")
	}
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotModel, gotFormat string
	var gotFileLen int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			buf := make([]byte, 1<<16)
			n, _ := file.Read(buf)
			gotFileLen = n
			file.Close()
		}

		json.NewEncoder(w).Encode(map[string]string{"text": "from the station"})
	}))
	defer server.Close()

	c := NewWhisperClient("test-key", "whisper-1", "", 5*time.Second, zap.NewNop())
	c.baseURL = server.URL

	pcm := make([]byte, 320)
	got, err := c.Transcribe(context.Background(), pcm, 16000)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "from the station" {
		t.Errorf("Transcribe() = %q", got)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model field = %q", gotModel)
	}
	if gotFormat != "json" {
		t.Errorf("response_format field = %q", gotFormat)
	}
	// WAV header plus payload.
	if gotFileLen != 44+len(pcm) {
		t.Errorf("uploaded file length = %d, want %d", gotFileLen, 44+len(pcm))
	}
}

func TestWhisperClient_TranscribeEmptyAudio(t *testing.T) {
	c := NewWhisperClient("test-key", "whisper-1", "", 5*time.Second, zap.NewNop())
	if _, err := c.Transcribe(context.Background(), nil, 16000); err == nil {
		t.Fatal("Transcribe() should reject empty audio")
	}
}

func TestWhisperClient_TranscribeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad audio"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewWhisperClient("test-key", "whisper-1", "", 5*time.Second, zap.NewNop())
	c.baseURL = server.URL

	if _, err := c.Transcribe(context.Background(), []byte{0x01}, 16000); err == nil {
		t.Fatal("Transcribe() should surface API errors")
	}
}
