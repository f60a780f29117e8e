// Package testutil provides small fakes shared by package tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/backend"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
)

// ScriptedBackend is a backend.Backend whose behavior is driven by the test:
// a fixed delay, a reply function, or a canned error. The zero value replies
// "ok" immediately.
type ScriptedBackend struct {
	// Delay is applied before replying; it respects ctx so per-call
	// timeouts can be exercised deterministically.
	Delay time.Duration

	// Reply computes the response from the history. Nil means "ok".
	Reply func(messages []core.Message) (string, error)

	// Err, if set, is returned after Delay (Reply is ignored).
	Err error

	mu    sync.Mutex
	calls int
}

var _ backend.Backend = (*ScriptedBackend)(nil)

// Complete implements backend.Backend.
func (b *ScriptedBackend) Complete(ctx context.Context, messages []core.Message, _ backend.Options) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	if b.Delay > 0 {
		select {
		case <-time.After(b.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.Err != nil {
		return "", b.Err
	}
	if b.Reply != nil {
		return b.Reply(messages)
	}
	return "ok", nil
}

// Calls reports how many times Complete was invoked.
func (b *ScriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}
