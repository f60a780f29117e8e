package backend

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/core"
)

// Options carries per-call completion parameters. Zero values fall back to
// the implementation's defaults.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Backend is the capability contract consumed by conversation actors: one
// call, one outcome. Implementations perform no retry or backoff; that
// policy, if desired, belongs to the caller. Messages are the full ordered
// conversation history.
type Backend interface {
	Complete(ctx context.Context, messages []core.Message, opts Options) (string, error)
}

// MockOptions configure the deterministic mock backend.
type MockOptions struct {
	// MinDelay and MaxDelay bound the simulated per-call latency. The delay
	// exercises concurrency without network variance.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Mock is a deterministic local Backend useful for tests, examples and
// mock-mode conversations. It transforms the last user message into a reply
// after a bounded random delay and cannot fail.
type Mock struct {
	minDelay  time.Duration
	maxDelay  time.Duration
	responses map[string]string
}

// NewMock constructs a Mock with default latency bounds of 10-100ms.
func NewMock(optFns ...func(o *MockOptions)) *Mock {
	opts := MockOptions{
		MinDelay: 10 * time.Millisecond,
		MaxDelay: 100 * time.Millisecond,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Mock{
		minDelay:  opts.MinDelay,
		maxDelay:  opts.MaxDelay,
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for an exact input prompt.
// Not safe for concurrent use with Complete; register before sharing.
func (m *Mock) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Complete implements Backend. It echoes the last user message back in a
// deterministic envelope so callers can assert on content. The bounded
// random delay is applied unconditionally; the mock never fails, ignoring
// ctx so that mock-mode conversations cannot observe backend errors.
func (m *Mock) Complete(_ context.Context, messages []core.Message, _ Options) (string, error) {
	var input string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			input = messages[i].Content
			break
		}
	}
	if d := m.delay(); d > 0 {
		time.Sleep(d)
	}
	if canned, ok := m.responses[input]; ok {
		return canned, nil
	}
	return fmt.Sprintf("Mock response to: %s", input), nil
}

func (m *Mock) delay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	return m.minDelay + time.Duration(rand.Int63n(int64(m.maxDelay-m.minDelay)))
}
