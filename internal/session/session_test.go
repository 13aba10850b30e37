package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nexuslab/nexus/internal/llm"
)

func TestAppendTurnKeepsHistoryPaired(t *testing.T) {
	s := New()

	s.AppendTurn("hello", "Hi! How can I help?")
	s.AppendTurn("what is CSE-412?", "A machine learning course.")

	history := s.History()
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if len(history)%2 != 0 {
		t.Error("history length is odd after completed turns")
	}
	for i, want := range []struct{ role, content string }{
		{llm.RoleUser, "hello"},
		{llm.RoleAssistant, "Hi! How can I help?"},
		{llm.RoleUser, "what is CSE-412?"},
		{llm.RoleAssistant, "A machine learning course."},
	} {
		if history[i].Role != want.role || history[i].Content != want.content {
			t.Errorf("history[%d] = %+v, want {%s %s}", i, history[i], want.role, want.content)
		}
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := New()
	s.AppendTurn("a", "b")

	history := s.History()
	history[0].Content = "mutated"

	if s.History()[0].Content != "a" {
		t.Error("mutating the returned slice changed session state")
	}
}

func TestApplyProfile(t *testing.T) {
	s := New()

	major := "Computer Science"
	s.ApplyProfile(&major, nil)
	if got := s.Profile(); got.Major != "Computer Science" || got.Ambition != "" {
		t.Errorf("profile = %+v", got)
	}

	// Nil pointers leave fields untouched.
	ambition := "AI research"
	s.ApplyProfile(nil, &ambition)
	if got := s.Profile(); got.Major != "Computer Science" || got.Ambition != "AI research" {
		t.Errorf("profile = %+v", got)
	}
}

func TestApplyProfileAmbitionClearsAwaiting(t *testing.T) {
	s := New()
	s.MarkAwaitingAmbition()
	if !s.AwaitingAmbition() {
		t.Fatal("awaiting not set")
	}

	ambition := "become a data engineer"
	s.ApplyProfile(nil, &ambition)
	if s.AwaitingAmbition() {
		t.Error("awaiting still set after ambition was supplied")
	}
}

func TestAwaitingImpliesEmptyAmbition(t *testing.T) {
	s := New()

	s.SetAmbition("work in robotics")
	s.MarkAwaitingAmbition()
	if s.AwaitingAmbition() {
		t.Error("awaiting set while ambition is known")
	}

	s.Clear()
	s.MarkAwaitingAmbition()
	if !s.AwaitingAmbition() {
		t.Error("awaiting not set with empty ambition")
	}
}

func TestSetAmbitionClearsAwaiting(t *testing.T) {
	s := New()
	s.MarkAwaitingAmbition()

	s.SetAmbition("cybersecurity")

	if s.AwaitingAmbition() {
		t.Error("awaiting still set after SetAmbition")
	}
	if got := s.Profile().Ambition; got != "cybersecurity" {
		t.Errorf("ambition = %q", got)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := New()
	s.AppendTurn("q", "a")
	major := "Physics"
	s.ApplyProfile(&major, nil)
	s.MarkAwaitingAmbition()

	for i := 0; i < 2; i++ {
		s.Clear()
		if s.HistoryLen() != 0 {
			t.Errorf("clear %d: history length = %d", i, s.HistoryLen())
		}
		if got := s.Profile(); got != (Profile{}) {
			t.Errorf("clear %d: profile = %+v", i, got)
		}
		if s.AwaitingAmbition() {
			t.Errorf("clear %d: awaiting still set", i)
		}
	}
}

func TestConcurrentAppendsStayPaired(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Lock()
			defer s.Unlock()
			s.AppendTurn(fmt.Sprintf("q%d", n), fmt.Sprintf("a%d", n))
		}(i)
	}
	wg.Wait()

	history := s.History()
	if len(history) != 100 {
		t.Fatalf("history length = %d, want 100", len(history))
	}
	for i := 0; i < len(history); i += 2 {
		if history[i].Role != llm.RoleUser || history[i+1].Role != llm.RoleAssistant {
			t.Fatalf("turn at %d not paired: %s then %s", i, history[i].Role, history[i+1].Role)
		}
	}
}

func TestManagerGetCreatesOnce(t *testing.T) {
	m := NewManager()
	id := uuid.New()

	first := m.Get(id)
	second := m.Get(id)

	if first != second {
		t.Error("Get returned different sessions for the same ID")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	other := m.Get(uuid.New())
	if other == first {
		t.Error("distinct IDs share a session")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManagerConcurrentGet(t *testing.T) {
	m := NewManager()
	id := uuid.New()

	sessions := make([]*Session, 20)
	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = m.Get(id)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(sessions); i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("concurrent Get returned different sessions for one ID")
		}
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
