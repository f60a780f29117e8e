package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/GeorgePearse/concurrent-ai-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoBackend() *testutil.ScriptedBackend {
	return &testutil.ScriptedBackend{
		Reply: func(messages []core.Message) (string, error) {
			last := messages[len(messages)-1]
			return "reply to: " + last.Content, nil
		},
	}
}

func startConversation(t *testing.T, b *testutil.ScriptedBackend, optFns ...func(o *Options)) *Handle {
	t.Helper()
	conv := New("conv-1", b, optFns...)
	h := conv.Handle()
	conv.Start()
	t.Cleanup(h.Stop)
	return h
}

func TestConversation_SendAppendsExchange(t *testing.T) {
	h := startConversation(t, echoBackend())

	reply, err := h.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "reply to: Hello", reply)

	history, err := h.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "Hello", history[0].Content)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, "reply to: Hello", history[1].Content)

	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "conv-1", stats.ID)
	assert.Equal(t, 2, stats.MessageCount)
	assert.False(t, stats.LastActive.Before(stats.Created))
}

func TestConversation_ConcurrentSendsAreSerialized(t *testing.T) {
	h := startConversation(t, echoBackend())

	const senders = 16
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.Send(context.Background(), fmt.Sprintf("msg-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := h.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2*senders)

	// Each accepted user message must be immediately followed by its own
	// assistant reply: a single valid serialization, no interleaving.
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, core.RoleUser, history[i].Role)
		assert.Equal(t, core.RoleAssistant, history[i+1].Role)
		assert.Equal(t, "reply to: "+history[i].Content, history[i+1].Content)
	}
}

func TestConversation_BackendErrorKeepsUserMessage(t *testing.T) {
	apiErr := &core.APIError{Status: 500, Body: "boom"}
	h := startConversation(t, &testutil.ScriptedBackend{Err: apiErr})

	before, err := h.Stats(context.Background())
	require.NoError(t, err)

	_, err = h.Send(context.Background(), "ping")
	var got *core.APIError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 500, got.Status)

	history, err := h.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "ping", history[0].Content)

	after, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before.LastActive, after.LastActive)
}

func TestConversation_BackendTimeout(t *testing.T) {
	slow := &testutil.ScriptedBackend{Delay: 200 * time.Millisecond}
	h := startConversation(t, slow, func(o *Options) {
		o.CallTimeout = 20 * time.Millisecond
	})

	_, err := h.Send(context.Background(), "ping")
	assert.ErrorIs(t, err, core.ErrBackendTimeout)

	history, err := h.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ping", history[0].Content)
}

func TestConversation_StopTerminatesActor(t *testing.T) {
	h := startConversation(t, echoBackend())

	h.Stop()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("actor did not terminate after Stop")
	}

	_, err := h.Send(context.Background(), "late")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = h.History(context.Background())
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Stop is idempotent.
	h.Stop()
}

func TestConversation_PanicIsContained(t *testing.T) {
	faulty := &testutil.ScriptedBackend{
		Reply: func([]core.Message) (string, error) { panic("malformed state") },
	}
	h := startConversation(t, faulty)

	_, err := h.Send(context.Background(), "boom")
	assert.ErrorIs(t, err, core.ErrNotFound)

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("actor did not terminate after fault")
	}

	_, err = h.Send(context.Background(), "after fault")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConversation_FaultDoesNotPropagateToSiblings(t *testing.T) {
	faulty := startConversation(t, &testutil.ScriptedBackend{
		Reply: func([]core.Message) (string, error) { panic("boom") },
	})
	healthy := startConversation(t, echoBackend())

	_, err := faulty.Send(context.Background(), "die")
	require.Error(t, err)

	reply, err := healthy.Send(context.Background(), "still here")
	require.NoError(t, err)
	assert.Equal(t, "reply to: still here", reply)
}

func TestConversation_SendContextCancelled(t *testing.T) {
	h := startConversation(t, &testutil.ScriptedBackend{Delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Send(ctx, "impatient")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
