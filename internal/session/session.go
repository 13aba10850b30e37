// Package session holds per-conversation mutable state: history, the user
// profile, and the pending-ambition flag.
package session

import (
	"sync"

	"github.com/nexuslab/nexus/internal/llm"
)

// Profile is the user profile attached to a session. Fields are empty until
// the user supplies them, either explicitly in a request or through the
// ambition-collection flow.
type Profile struct {
	Major    string
	Ambition string
}

// Session owns one conversation history, one profile and the
// awaiting-ambition flag for a logical user.
//
// Field access is guarded by an internal RWMutex. Turn-level serialization is
// separate: callers hold Lock/Unlock around a whole turn so that concurrent
// requests for the same session cannot interleave (field locking alone cannot
// express "one turn at a time").
type Session struct {
	turnMu sync.Mutex

	mu       sync.RWMutex
	history  []llm.Message
	profile  Profile
	awaiting bool
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// Lock acquires the turn lock, serializing message handling for this session.
func (s *Session) Lock() { s.turnMu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.turnMu.Unlock() }

// History returns a copy of the conversation history, oldest first.
func (s *Session) History() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryLen returns the number of messages in the history.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// AppendTurn atomically appends one completed turn: the user message and the
// full assistant output together. History is only ever extended in pairs, so
// its length stays even after any completed turn.
func (s *Session) AppendTurn(userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		llm.User(userText),
		llm.Assistant(assistantText),
	)
}

// Profile returns a copy of the user profile.
func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// ApplyProfile merges explicitly supplied profile fields. Nil pointers leave
// the corresponding field untouched.
func (s *Session) ApplyProfile(major, ambition *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if major != nil {
		s.profile.Major = *major
	}
	if ambition != nil {
		s.profile.Ambition = *ambition
		if s.profile.Ambition != "" {
			s.awaiting = false
		}
	}
}

// SetAmbition stores the user's ambition and clears the awaiting flag,
// preserving the invariant that awaiting implies an empty ambition.
func (s *Session) SetAmbition(ambition string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.Ambition = ambition
	s.awaiting = false
}

// AwaitingAmbition reports whether the next message should be captured as
// the profile ambition.
func (s *Session) AwaitingAmbition() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.awaiting
}

// MarkAwaitingAmbition sets the awaiting flag. Only meaningful while the
// ambition is unknown.
func (s *Session) MarkAwaitingAmbition() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile.Ambition == "" {
		s.awaiting = true
	}
}

// Clear resets history, profile and the awaiting flag. Idempotent.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.profile = Profile{}
	s.awaiting = false
}
