package call

import (
	"sync"

	"go.uber.org/zap"
)

// Registry tracks the live session per call identifier. It is the only
// state shared across calls; sessions themselves own their booking and
// transcript exclusively.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers a session under its call ID. If a session with the same ID
// is already present it is stopped and replaced.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	old := r.sessions[s.CallID()]
	r.sessions[s.CallID()] = s
	r.mu.Unlock()

	if old != nil {
		r.logger.Warn("Replacing existing session", zap.String("call_id", s.CallID()))
		old.Stop("replaced by new session")
	}
}

// Get returns the session for a call ID, or nil.
func (r *Registry) Get(callID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callID]
}

// Stop signals the matching session to end. It reports whether a session
// was found.
func (r *Registry) Stop(callID, reason string) bool {
	s := r.Get(callID)
	if s == nil {
		return false
	}
	s.Stop(reason)
	return true
}

// Remove drops the session for a call ID without stopping it.
func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	delete(r.sessions, callID)
	r.mu.Unlock()
}

// StopAll signals every tracked session, used on shutdown.
func (r *Registry) StopAll(reason string) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Stop(reason)
	}
}

// Active returns the tracked sessions in no particular order.
func (r *Registry) Active() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of tracked sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
