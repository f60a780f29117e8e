package chat

import (
	"context"
	"testing"

	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_EndToEndMockConversation(t *testing.T) {
	hub := New()
	ctx := context.Background()

	id, err := hub.Create(ctx, CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	reply, err := hub.SendMessage(ctx, "c1", "Hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "Hello")

	history, err := hub.GetHistory(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, core.RoleAssistant, history[1].Role)

	stats, err := hub.GetStats(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MessageCount)
	assert.Equal(t, core.BackendModeMock, stats.BackendMode)
}

func TestHub_SendToUnknownConversation(t *testing.T) {
	hub := New()

	_, err := hub.SendMessage(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = hub.GetHistory(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = hub.GetStats(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHub_CreateBatchAndBroadcast(t *testing.T) {
	hub := New()
	ctx := context.Background()

	ids, err := hub.CreateBatch(ctx, 5, CreateOptions{UseMock: true})
	require.NoError(t, err)
	require.Len(t, ids, 5)
	assert.Equal(t, 5, hub.Count())
	assert.ElementsMatch(t, ids, hub.ListIDs())

	res := hub.Broadcast(ctx, ids, "broadcast ping")
	require.Len(t, res, 5)
	for _, id := range ids {
		out := res[id]
		require.NoError(t, out.Err)
		assert.Contains(t, out.Text, "broadcast ping")
	}
}

func TestHub_StopAndShutdown(t *testing.T) {
	hub := New()
	ctx := context.Background()

	_, err := hub.Create(ctx, CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)
	_, err = hub.Create(ctx, CreateOptions{ID: "c2", UseMock: true})
	require.NoError(t, err)

	require.NoError(t, hub.Stop("c1"))
	_, err = hub.SendMessage(ctx, "c1", "hi")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, hub.Count())

	hub.Shutdown()
	assert.Equal(t, 0, hub.Count())
}

func TestHub_DuplicateCreate(t *testing.T) {
	hub := New()
	ctx := context.Background()

	_, err := hub.Create(ctx, CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)

	_, err = hub.Create(ctx, CreateOptions{ID: "c1", UseMock: true})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	assert.Equal(t, 1, hub.Count())
}
