package llm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/nexuslab/nexus/internal/log"
	"github.com/nexuslab/nexus/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProvider is a scripted Provider. Each element of deltas is sent in
// order; preErr, when set, makes Stream fail before producing a channel.
type fakeProvider struct {
	name       string
	configured bool
	preErr     error
	deltas     []Delta

	streamCalls int
	gotMessages []Message
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Stream(ctx context.Context, messages []Message) (<-chan Delta, error) {
	f.streamCalls++
	f.gotMessages = messages
	if f.preErr != nil {
		return nil, f.preErr
	}
	ch := make(chan Delta)
	go func() {
		defer close(ch)
		for _, d := range f.deltas {
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func TestChainStreamHappyPath(t *testing.T) {
	p := &fakeProvider{
		name:       "primary",
		configured: true,
		deltas:     []Delta{{Text: "Hello"}, {Text: ", "}, {Text: "world"}},
	}
	chain := NewChain(log.NewNop(), p)

	got := testutil.Collect(t, chain.Stream(context.Background(), []Message{User("hi")}))

	want := []string{"Hello", ", ", "world"}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d = %q, want %q", i, got[i], want[i])
		}
	}
	if p.streamCalls != 1 {
		t.Errorf("provider called %d times, want 1", p.streamCalls)
	}
}

// A chain whose primary fails before yielding anything must be
// indistinguishable from calling the secondary directly.
func TestChainFallbackMatchesDirectCall(t *testing.T) {
	messages := []Message{System("be brief"), User("what courses?")}

	secondaryDeltas := []Delta{{Text: "Take "}, {Text: "CSE-412."}}

	direct := &fakeProvider{name: "secondary", configured: true, deltas: secondaryDeltas}
	wantFragments := testutil.Collect(t, NewChain(log.NewNop(), direct).Stream(context.Background(), messages))

	primary := &fakeProvider{name: "primary", configured: true, preErr: errors.New("connection refused")}
	secondary := &fakeProvider{name: "secondary", configured: true, deltas: secondaryDeltas}
	chain := NewChain(log.NewNop(), primary, secondary)

	got := testutil.Collect(t, chain.Stream(context.Background(), messages))

	if len(got) != len(wantFragments) {
		t.Fatalf("got %v, want %v", got, wantFragments)
	}
	for i := range wantFragments {
		if got[i] != wantFragments[i] {
			t.Errorf("fragment %d = %q, want %q", i, got[i], wantFragments[i])
		}
	}
	if primary.streamCalls != 1 {
		t.Errorf("primary called %d times, want 1", primary.streamCalls)
	}
	if secondary.streamCalls != 1 {
		t.Errorf("secondary called %d times, want 1", secondary.streamCalls)
	}
	if len(secondary.gotMessages) != len(messages) {
		t.Errorf("secondary received %d messages, want %d", len(secondary.gotMessages), len(messages))
	}
}

func TestChainFallbackOnMidStreamFailureBeforeOutput(t *testing.T) {
	// The primary opens a stream but dies before any fragment; the secondary
	// still gets a chance.
	primary := &fakeProvider{
		name:       "primary",
		configured: true,
		deltas:     []Delta{{Err: errors.New("reset by peer")}},
	}
	secondary := &fakeProvider{name: "secondary", configured: true, deltas: []Delta{{Text: "ok"}}}
	chain := NewChain(log.NewNop(), primary, secondary)

	got := testutil.CollectText(t, chain.Stream(context.Background(), nil))

	if got != "ok" {
		t.Errorf("got %q, want %q", got, "ok")
	}
	if secondary.streamCalls != 1 {
		t.Errorf("secondary called %d times, want 1", secondary.streamCalls)
	}
}

func TestChainTruncatesAfterPartialOutput(t *testing.T) {
	primary := &fakeProvider{
		name:       "primary",
		configured: true,
		deltas:     []Delta{{Text: "partial"}, {Err: errors.New("reset by peer")}},
	}
	secondary := &fakeProvider{name: "secondary", configured: true, deltas: []Delta{{Text: "never"}}}
	chain := NewChain(log.NewNop(), primary, secondary)

	got := testutil.Collect(t, chain.Stream(context.Background(), nil))

	if len(got) != 1 || got[0] != "partial" {
		t.Fatalf("got %v, want [partial]", got)
	}
	if secondary.streamCalls != 0 {
		t.Errorf("secondary called %d times after partial output, want 0", secondary.streamCalls)
	}
}

func TestChainCleanEmptyStreamEndsChain(t *testing.T) {
	// A provider that finishes without text still counts as a successful
	// attempt; no fallback and no error sentinel.
	primary := &fakeProvider{name: "primary", configured: true}
	secondary := &fakeProvider{name: "secondary", configured: true, deltas: []Delta{{Text: "never"}}}
	chain := NewChain(log.NewNop(), primary, secondary)

	got := testutil.Collect(t, chain.Stream(context.Background(), nil))

	if len(got) != 0 {
		t.Fatalf("got %v, want no fragments", got)
	}
	if secondary.streamCalls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.streamCalls)
	}
}

func TestChainSkipsUnconfiguredProviders(t *testing.T) {
	skipped := &fakeProvider{name: "skipped", deltas: []Delta{{Text: "never"}}}
	active := &fakeProvider{name: "active", configured: true, deltas: []Delta{{Text: "yes"}}}
	chain := NewChain(log.NewNop(), skipped, active)

	got := testutil.CollectText(t, chain.Stream(context.Background(), nil))

	if got != "yes" {
		t.Errorf("got %q, want %q", got, "yes")
	}
	if skipped.streamCalls != 0 {
		t.Errorf("unconfigured provider called %d times, want 0", skipped.streamCalls)
	}
}

func TestChainNoProvidersConfigured(t *testing.T) {
	tests := []struct {
		name      string
		providers []Provider
	}{
		{"empty chain", nil},
		{"all unconfigured", []Provider{&fakeProvider{name: "a"}, &fakeProvider{name: "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(log.NewNop(), tt.providers...)

			if chain.Configured() {
				t.Error("Configured() = true, want false")
			}
			got := testutil.Collect(t, chain.Stream(context.Background(), nil))
			if len(got) != 1 || got[0] != NotConfiguredMessage {
				t.Errorf("got %v, want exactly [%q]", got, NotConfiguredMessage)
			}
		})
	}
}

func TestChainAllConfiguredProvidersFail(t *testing.T) {
	a := &fakeProvider{name: "a", configured: true, preErr: errors.New("down")}
	b := &fakeProvider{name: "b", configured: true, deltas: []Delta{{Err: errors.New("also down")}}}
	chain := NewChain(log.NewNop(), a, b)

	got := testutil.Collect(t, chain.Stream(context.Background(), nil))

	if len(got) != 1 || got[0] != ConnectionErrorMessage {
		t.Errorf("got %v, want exactly [%q]", got, ConnectionErrorMessage)
	}
}

func TestChainConfigured(t *testing.T) {
	chain := NewChain(log.NewNop(),
		&fakeProvider{name: "a"},
		&fakeProvider{name: "b", configured: true},
	)
	if !chain.Configured() {
		t.Error("Configured() = false with one configured provider")
	}
}

func TestChainStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &fakeProvider{
		name:       "slow",
		configured: true,
		deltas:     []Delta{{Text: "one"}, {Text: "two"}, {Text: "three"}},
	}
	chain := NewChain(log.NewNop(), p)

	out := chain.Stream(ctx, nil)
	first, ok := <-out
	if !ok || first != "one" {
		t.Fatalf("first fragment = %q (ok=%v), want \"one\"", first, ok)
	}
	cancel()

	// The channel must close; remaining fragments may or may not arrive
	// depending on scheduling, but nothing may block.
	for range out {
	}
}
