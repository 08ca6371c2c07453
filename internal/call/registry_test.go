package call

import (
	"testing"

	"go.uber.org/zap"
)

func newRegistrySession(callID string) *Session {
	return NewSession(
		callID, "+14165550123",
		DefaultScript(),
		3,
		"alloy",
		16000,
		&fakeChannel{},
		nil,
		&scriptedTranscriber{},
		&echoSynthesizer{},
		&scriptedExtractor{},
		&fakeDispatcher{},
		zap.NewNop(),
	)
}

func TestRegistry_AddAndGet(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	s := newRegistrySession("chan-1")

	r.Add(s)

	if got := r.Get("chan-1"); got != s {
		t.Error("Get should return the added session")
	}
	if got := r.Get("chan-2"); got != nil {
		t.Error("Get for unknown call should return nil")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_AddDuplicateStopsOld(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	old := newRegistrySession("chan-1")
	replacement := newRegistrySession("chan-1")

	r.Add(old)
	r.Add(replacement)

	if old.Running() {
		t.Error("replaced session should be stopped")
	}
	if !replacement.Running() {
		t.Error("replacement session should be running")
	}
	if r.Get("chan-1") != replacement {
		t.Error("registry should hold the replacement")
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRegistry_Stop(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	s := newRegistrySession("chan-1")
	r.Add(s)

	if !r.Stop("chan-1", "test") {
		t.Error("Stop should report true for a known call")
	}
	if s.Running() {
		t.Error("session should be stopped")
	}
	if r.Stop("chan-9", "test") {
		t.Error("Stop should report false for an unknown call")
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	s := newRegistrySession("chan-1")
	r.Add(s)

	r.Remove("chan-1")
	if r.Get("chan-1") != nil {
		t.Error("removed session should be gone")
	}
	// Removing twice is harmless.
	r.Remove("chan-1")
}

func TestRegistry_StopAll(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := newRegistrySession("chan-1")
	b := newRegistrySession("chan-2")
	r.Add(a)
	r.Add(b)

	r.StopAll("shutdown")

	if a.Running() || b.Running() {
		t.Error("all sessions should be stopped")
	}
	// StopAll does not remove sessions; their Run loops do that on exit.
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestRegistry_Active(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Add(newRegistrySession("chan-1"))
	r.Add(newRegistrySession("chan-2"))

	active := r.Active()
	if len(active) != 2 {
		t.Errorf("Active() returned %d sessions, want 2", len(active))
	}
}
