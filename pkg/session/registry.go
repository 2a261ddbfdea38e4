package session

import "sync"

// Registry is the process-wide map of live sessions, protected by one
// mutex acquired only for insert/remove/lookup and for the settings-update
// scan, per the concurrency model.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	roomRefs map[string]int
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		roomRefs: make(map[string]int),
	}
}

// Register inserts a session and bumps its room's reference count.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	r.roomRefs[s.RoomID]++
}

// Unregister removes a session and reports whether it held the last
// reference to its room, so callers can evict room-scoped cache state.
func (r *Registry) Unregister(sessionID string) (roomID string, wasLastInRoom bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return "", false
	}
	delete(r.sessions, sessionID)
	r.roomRefs[s.RoomID]--
	if r.roomRefs[s.RoomID] <= 0 {
		delete(r.roomRefs, s.RoomID)
		return s.RoomID, true
	}
	return s.RoomID, false
}

// Get looks up a session by id.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// UpdateParticipantSettings mutates a participant's settings under the
// registry lock so concurrent settings updates for the same session cannot
// interleave with registration/unregistration. Calling it twice with the
// same payload is idempotent: the session converges to the same state and
// the same primary strategy both times.
func (r *Registry) UpdateParticipantSettings(sessionID, participantID, targetLang string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	s.UpdateParticipant(participantID, targetLang, enabled)
	return true
}
