// Package testutil provides shared helpers for tests.
package testutil

import (
	"strings"
	"testing"
	"time"
)

// collectTimeout bounds how long Collect waits for a stream to finish.
const collectTimeout = 5 * time.Second

// Collect drains a fragment stream into a slice, failing the test if the
// channel does not close within the timeout. Guards against a producer
// goroutine that never terminates.
func Collect(t *testing.T, ch <-chan string) []string {
	t.Helper()

	var fragments []string
	deadline := time.After(collectTimeout)
	for {
		select {
		case fragment, ok := <-ch:
			if !ok {
				return fragments
			}
			fragments = append(fragments, fragment)
		case <-deadline:
			t.Fatalf("stream did not close within %v (got %d fragments)", collectTimeout, len(fragments))
			return nil
		}
	}
}

// CollectText drains a fragment stream and returns the concatenated text.
func CollectText(t *testing.T, ch <-chan string) string {
	t.Helper()
	return strings.Join(Collect(t, ch), "")
}
