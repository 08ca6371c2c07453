package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/call"
	"github.com/troikatech/taxi-voicebot/pkg/logger"
)

func newTestRouter(registry *call.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()

	h := NewHandler(nil, nil, nil, registry)

	router := gin.New()
	router.GET("/api/calls", h.ListActiveCalls)
	router.POST("/api/calls/:call_id/stop", h.StopCall)
	router.GET("/metrics", h.GetMetrics)
	return router
}

func newHandlerSession(callID, caller string) *call.Session {
	return call.NewSession(
		callID, caller,
		call.DefaultScript(),
		3,
		"alloy",
		16000,
		nil, nil, nil, nil, nil, nil,
		zap.NewNop(),
	)
}

func TestListActiveCalls(t *testing.T) {
	registry := call.NewRegistry(zap.NewNop())
	registry.Add(newHandlerSession("chan-1", "+14165550123"))
	router := newTestRouter(registry)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/calls", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Count int                  `json:"count"`
		Calls []ActiveCallResponse `json:"calls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Count != 1 || len(resp.Calls) != 1 {
		t.Fatalf("count = %d, calls = %d, want 1", resp.Count, len(resp.Calls))
	}
	if resp.Calls[0].CallID != "chan-1" {
		t.Errorf("call_id = %q", resp.Calls[0].CallID)
	}
	if strings.Contains(resp.Calls[0].Caller, "5550123") {
		t.Errorf("caller number must be masked, got %q", resp.Calls[0].Caller)
	}
	if !resp.Calls[0].Running {
		t.Error("session should report running")
	}
}

func TestStopCall(t *testing.T) {
	registry := call.NewRegistry(zap.NewNop())
	session := newHandlerSession("chan-1", "+14165550123")
	registry.Add(session)
	router := newTestRouter(registry)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calls/chan-1/stop", strings.NewReader(`{"reason":"fraud_review"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if session.Running() {
		t.Error("session should be stopped")
	}
}

func TestStopCall_UnknownCall(t *testing.T) {
	router := newTestRouter(call.NewRegistry(zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/calls/nope/stop", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetMetrics(t *testing.T) {
	router := newTestRouter(call.NewRegistry(zap.NewNop()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("metrics response is not JSON: %v", err)
	}
}
