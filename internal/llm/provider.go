package llm

import "context"

// Delta is one increment of a streamed completion. A Delta with a non-nil Err
// terminates the stream; the channel is closed immediately after.
type Delta struct {
	Text string
	Err  error
}

// Provider is a single streaming chat-completion backend.
//
// Stream issues one request. A non-nil error return means the request failed
// before producing any output (connect, timeout, non-2xx status) and nothing
// was consumed from the provider. After a nil error return the provider owns
// the response body and delivers increments on the channel until it closes.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Configured reports whether the provider has the credentials it needs.
	// Unconfigured providers are skipped by the chain without an attempt.
	Configured() bool

	// Stream starts a streaming completion for the given messages.
	Stream(ctx context.Context, messages []Message) (<-chan Delta, error)
}

// Diagnostic fragments emitted by the chain when no provider can serve a
// request. These are user-visible text, not errors.
const (
	// NotConfiguredMessage is emitted when no provider in the chain has
	// credentials configured.
	NotConfiguredMessage = "Sorry, this feature is not configured."

	// ConnectionErrorMessage is emitted when every configured provider's
	// request failed before producing output.
	ConnectionErrorMessage = "Sorry, I encountered a connection error."
)
