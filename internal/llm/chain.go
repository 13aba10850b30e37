package llm

import (
	"context"

	"github.com/nexuslab/nexus/internal/log"
)

// Chain tries an ordered list of providers until one delivers a response.
//
// Fallback rules:
//   - unconfigured providers are skipped without an attempt;
//   - a provider that fails before any fragment was forwarded to the caller
//     is abandoned silently and the next provider is tried;
//   - a provider that fails after fragments were already forwarded ends the
//     stream — partial output cannot be retracted, and a second provider
//     would duplicate or contradict it;
//   - a provider whose stream ends cleanly ends the chain, even if it
//     produced no text.
//
// The chain knows nothing about intents or prompts; callers reuse it with
// different message payloads and provider orderings.
type Chain struct {
	providers []Provider
	logger    log.Logger
}

// NewChain creates a chain over the given providers, tried in order.
func NewChain(logger log.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Configured reports whether at least one provider in the chain has
// credentials available.
func (c *Chain) Configured() bool {
	for _, p := range c.providers {
		if p.Configured() {
			return true
		}
	}
	return false
}

// Stream produces a finite, non-restartable sequence of text fragments for
// the given messages. Every failure mode resolves to text: if no provider is
// configured the sequence is exactly [NotConfiguredMessage]; if every
// configured provider fails before producing output it is exactly
// [ConnectionErrorMessage]. The channel is closed when the sequence ends.
//
// Cancelling ctx stops fragment production; state already committed by the
// caller is not rolled back.
func (c *Chain) Stream(ctx context.Context, messages []Message) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		attempted := false
		for _, p := range c.providers {
			if !p.Configured() {
				continue
			}
			attempted = true

			deltas, err := p.Stream(ctx, messages)
			if err != nil {
				c.logger.Warn("provider request failed, trying next",
					"provider", p.Name(), "error", err)
				continue
			}

			emitted := false
			failed := false
			for d := range deltas {
				if d.Err != nil {
					failed = true
					c.logger.Warn("provider stream interrupted",
						"provider", p.Name(), "emitted", emitted, "error", d.Err)
					break
				}
				if d.Text == "" {
					continue
				}
				select {
				case out <- d.Text:
					emitted = true
				case <-ctx.Done():
					// Caller is gone; drain so the provider goroutine exits.
					for range deltas {
					}
					return
				}
			}

			if failed && !emitted {
				// Nothing was surfaced from this attempt; the next provider
				// can still serve the request.
				continue
			}
			// Clean end, or truncation after partial output.
			return
		}

		if !attempted {
			select {
			case out <- NotConfiguredMessage:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- ConnectionErrorMessage:
		case <-ctx.Done():
		}
	}()

	return out
}
