package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/GeorgePearse/concurrent-ai-chat/internal/testutil"
	"github.com/GeorgePearse/concurrent-ai-chat/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSupervisor(optFns ...func(o *Options)) (*Supervisor, *registry.Registry) {
	reg := registry.New()
	return New(reg, optFns...), reg
}

func TestSupervisor_CreateWithExplicitID(t *testing.T) {
	sup, reg := newSupervisor()

	id, err := sup.Create(context.Background(), CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)
	assert.Equal(t, "c1", id)
	assert.Equal(t, 1, reg.Count())

	h, err := reg.Lookup("c1")
	require.NoError(t, err)
	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.BackendModeMock, stats.BackendMode)
}

func TestSupervisor_CreateGeneratesUniqueIDs(t *testing.T) {
	sup, reg := newSupervisor()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := sup.Create(context.Background(), CreateOptions{UseMock: true})
		require.NoError(t, err)
		assert.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
	assert.Equal(t, 20, reg.Count())
}

func TestSupervisor_CreateDuplicateLeavesExistingUntouched(t *testing.T) {
	sup, reg := newSupervisor(func(o *Options) {
		o.MockBackend = &testutil.ScriptedBackend{Reply: func(m []core.Message) (string, error) {
			return "scripted", nil
		}}
	})

	_, err := sup.Create(context.Background(), CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)

	h, err := reg.Lookup("c1")
	require.NoError(t, err)
	_, err = h.Send(context.Background(), "before")
	require.NoError(t, err)

	_, err = sup.Create(context.Background(), CreateOptions{ID: "c1", UseMock: true})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	// The existing conversation's state is unchanged and still addressed by
	// the original handle.
	same, err := reg.Lookup("c1")
	require.NoError(t, err)
	assert.Same(t, h, same)
	history, err := h.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 1, reg.Count())
}

func TestSupervisor_CreateLiveWithoutBackend(t *testing.T) {
	sup, _ := newSupervisor()

	_, err := sup.Create(context.Background(), CreateOptions{UseMock: false})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestSupervisor_StopRemovesAndFreesID(t *testing.T) {
	sup, reg := newSupervisor()

	_, err := sup.Create(context.Background(), CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)

	require.NoError(t, sup.Stop("c1"))
	_, err = reg.Lookup("c1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// The ID is reusable immediately after Stop returns.
	_, err = sup.Create(context.Background(), CreateOptions{ID: "c1", UseMock: true})
	assert.NoError(t, err)
}

func TestSupervisor_StopUnknownID(t *testing.T) {
	sup, _ := newSupervisor()
	assert.ErrorIs(t, sup.Stop("missing"), core.ErrNotFound)
}

func TestSupervisor_FaultedActorIsRemovedNotRestarted(t *testing.T) {
	sup, reg := newSupervisor(func(o *Options) {
		o.MockBackend = &testutil.ScriptedBackend{Reply: func([]core.Message) (string, error) {
			panic("corrupt state")
		}}
	})

	_, err := sup.Create(context.Background(), CreateOptions{ID: "c1", UseMock: true})
	require.NoError(t, err)

	h, err := reg.Lookup("c1")
	require.NoError(t, err)
	_, err = h.Send(context.Background(), "trigger")
	require.Error(t, err)

	// The watcher removes the entry once the actor's done signal fires; no
	// replacement actor appears.
	assert.Eventually(t, func() bool {
		_, err := reg.Lookup("c1")
		return err != nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, reg.Count())
}

func TestSupervisor_CreateHonorsContext(t *testing.T) {
	sup, _ := newSupervisor()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sup.Create(ctx, CreateOptions{UseMock: true})
	assert.ErrorIs(t, err, context.Canceled)
}
