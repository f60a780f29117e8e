// Package chat provides a high-level façade over the conversation substrate:
// an isolated actor per conversation, a name-based registry for lookup, a
// non-restarting lifecycle manager and a bounded fan-out dispatcher for
// batch operations. Most applications interact with this package by:
//  1. Creating a Hub via New() (optionally overriding the live backend,
//     dispatcher config and logger)
//  2. Creating conversations individually (Create) or in bulk (CreateBatch)
//  3. Messaging them (SendMessage, Broadcast) and reading them back
//     (GetHistory, GetStats)
//
// The façade delegates lifecycle to supervisor.Supervisor and fan-out to
// dispatcher.Dispatcher while keeping setup and usage ergonomics concise.
// All defaults are safe for local development: conversations default to the
// deterministic mock backend and logging defaults to NoOp.
package chat

import (
	"context"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/backend"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/GeorgePearse/concurrent-ai-chat/dispatcher"
	"github.com/GeorgePearse/concurrent-ai-chat/logging"
	"github.com/GeorgePearse/concurrent-ai-chat/registry"
	"github.com/GeorgePearse/concurrent-ai-chat/supervisor"
)

// Options configure a Hub.
type Options struct {
	// DefaultModel is used for conversations that do not name a model.
	DefaultModel string

	// CallTimeout bounds each individual backend round trip.
	CallTimeout time.Duration

	// MockBackend serves mock-mode conversations. Defaults to backend.NewMock().
	MockBackend backend.Backend

	// LiveBackend serves live-mode conversations. Optional; without one,
	// creating a live conversation fails with core.ErrInvalidArgument.
	LiveBackend backend.Backend

	// DispatcherConfig tunes batch fan-out (worker cap, aggregate timeouts).
	DispatcherConfig dispatcher.Config

	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// CreateOptions carry per-conversation creation parameters.
type CreateOptions struct {
	// ID is the requested identifier; empty means generate one.
	ID string
	// Model overrides the hub default for this conversation.
	Model string
	// UseMock selects the deterministic mock backend.
	UseMock bool
}

// Hub aggregates the registry, supervisor and dispatcher behind one API.
// All methods are safe for concurrent use.
type Hub struct {
	opts       Options
	registry   *registry.Registry
	supervisor *supervisor.Supervisor
	dispatcher *dispatcher.Dispatcher
}

// New creates a Hub with optional overrides. Any unset service is
// initialized with a safe local default.
func New(optFns ...func(o *Options)) *Hub {
	opts := Options{
		DefaultModel:     "gpt-4o-mini",
		CallTimeout:      30 * time.Second,
		MockBackend:      backend.NewMock(),
		DispatcherConfig: dispatcher.DefaultConfig,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	reg := registry.New()
	sup := supervisor.New(reg, func(o *supervisor.Options) {
		o.DefaultModel = opts.DefaultModel
		o.CallTimeout = opts.CallTimeout
		o.MockBackend = opts.MockBackend
		o.LiveBackend = opts.LiveBackend
		o.Logger = opts.Logger
	})
	disp := dispatcher.New(sup, reg, func(o *dispatcher.Options) {
		o.Config = opts.DispatcherConfig
		o.Logger = opts.Logger
	})

	return &Hub{opts: opts, registry: reg, supervisor: sup, dispatcher: disp}
}

// Create spawns a single conversation and returns its ID. An already
// registered ID yields core.ErrAlreadyExists and leaves the existing
// conversation untouched.
func (h *Hub) Create(ctx context.Context, opts CreateOptions) (string, error) {
	return h.supervisor.Create(ctx, supervisor.CreateOptions{
		ID:      opts.ID,
		Model:   opts.Model,
		UseMock: opts.UseMock,
	})
}

// CreateBatch spawns count conversations concurrently, bounded by the
// dispatcher's worker cap, and returns the IDs created within the aggregate
// deadline. count must be positive.
func (h *Hub) CreateBatch(ctx context.Context, count int, opts CreateOptions) ([]string, error) {
	return h.dispatcher.CreateBatch(ctx, count, supervisor.CreateOptions{
		Model:   opts.Model,
		UseMock: opts.UseMock,
	})
}

// SendMessage delivers text to one conversation and returns the assistant
// reply. The request is serialized behind the conversation's mailbox.
func (h *Hub) SendMessage(ctx context.Context, id, text string) (string, error) {
	handle, err := h.registry.Lookup(id)
	if err != nil {
		return "", err
	}
	return handle.Send(ctx, text)
}

// Broadcast sends text to every listed conversation concurrently. Every
// requested ID appears exactly once in the result.
func (h *Hub) Broadcast(ctx context.Context, ids []string, text string) dispatcher.BatchResult {
	return h.dispatcher.Broadcast(ctx, ids, text)
}

// GetHistory returns an immutable snapshot of one conversation's history.
func (h *Hub) GetHistory(ctx context.Context, id string) ([]core.Message, error) {
	handle, err := h.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	return handle.History(ctx)
}

// GetStats returns one conversation's derived metadata.
func (h *Hub) GetStats(ctx context.Context, id string) (core.Stats, error) {
	handle, err := h.registry.Lookup(id)
	if err != nil {
		return core.Stats{}, err
	}
	return handle.Stats(ctx)
}

// ListIDs returns a point-in-time snapshot of registered conversation IDs.
func (h *Hub) ListIDs() []string { return h.registry.ListIDs() }

// Count returns the number of live conversations.
func (h *Hub) Count() int { return h.registry.Count() }

// Stop terminates one conversation; its ID is reusable once Stop returns.
func (h *Hub) Stop(id string) error { return h.supervisor.Stop(id) }

// Shutdown stops every live conversation. The hub remains usable afterwards.
func (h *Hub) Shutdown() {
	for _, id := range h.registry.ListIDs() {
		_ = h.supervisor.Stop(id)
	}
}
