// Package supervisor manages conversation lifecycles: it creates actors,
// registers them atomically, and removes them from the registry when they
// terminate. The supervision policy is deliberately non-restarting: a
// terminated conversation is never resurrected, its ID simply becomes
// available for reuse once removal completes.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/backend"
	"github.com/GeorgePearse/concurrent-ai-chat/conversation"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/GeorgePearse/concurrent-ai-chat/logging"
	"github.com/GeorgePearse/concurrent-ai-chat/registry"
)

// Options configure a Supervisor.
type Options struct {
	// DefaultModel is used when CreateOptions.Model is empty.
	DefaultModel string

	// CallTimeout bounds each backend round trip of every conversation
	// created by this supervisor.
	CallTimeout time.Duration

	// MockBackend serves conversations created with UseMock. Defaults to
	// backend.NewMock().
	MockBackend backend.Backend

	// LiveBackend serves conversations created without UseMock. Optional;
	// creating a live conversation without one fails with
	// core.ErrInvalidArgument.
	LiveBackend backend.Backend

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// CreateOptions carry per-conversation creation parameters.
type CreateOptions struct {
	// ID is the requested conversation identifier. Empty means generate one
	// guaranteed unique among currently registered IDs.
	ID string

	// Model overrides the supervisor's default model for this conversation.
	Model string

	// UseMock selects the deterministic mock backend instead of the live one.
	UseMock bool
}

// Supervisor creates and tracks conversation actors against a shared
// registry. Safe for concurrent use.
type Supervisor struct {
	registry     *registry.Registry
	defaultModel string
	callTimeout  time.Duration
	mock         backend.Backend
	live         backend.Backend
	logger       logging.Logger
}

// New constructs a Supervisor bound to the given registry.
func New(reg *registry.Registry, optFns ...func(o *Options)) *Supervisor {
	opts := Options{
		DefaultModel: "gpt-4o-mini",
		CallTimeout:  30 * time.Second,
		MockBackend:  backend.NewMock(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Supervisor{
		registry:     reg,
		defaultModel: opts.DefaultModel,
		callTimeout:  opts.CallTimeout,
		mock:         opts.MockBackend,
		live:         opts.LiveBackend,
		logger:       opts.Logger,
	}
}

// Create allocates a conversation actor, registers it, starts it and
// arranges removal on termination. The allocate-register-start sequence is
// logically atomic from the caller's perspective: a conversation that loses
// the registration race is discarded without ever being started or exposed,
// and the caller receives core.ErrAlreadyExists.
func (s *Supervisor) Create(ctx context.Context, opts CreateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b, mode, err := s.pickBackend(opts)
	if err != nil {
		return "", err
	}

	model := opts.Model
	if model == "" {
		model = s.defaultModel
	}

	generated := opts.ID == ""
	id := opts.ID
	if generated {
		id = core.NewID()
	}

	for {
		conv := conversation.New(id, b, func(o *conversation.Options) {
			o.Model = model
			o.BackendMode = mode
			o.CallTimeout = s.callTimeout
			o.Logger = s.logger
		})
		h := conv.Handle()

		if err := s.registry.Register(id, h); err != nil {
			// Generated IDs are regenerated on the (vanishingly rare)
			// collision; caller-supplied IDs surface the conflict.
			if generated {
				id = core.NewID()
				continue
			}
			return "", err
		}

		conv.Start()
		s.watch(id, h)
		s.logger.Info("conversation created",
			"conversation_id", id, "model", model, "backend_mode", string(mode))
		return id, nil
	}
}

// Stop terminates the conversation and removes it from the registry before
// returning, so the ID is reusable as soon as Stop returns.
func (s *Supervisor) Stop(id string) error {
	h, err := s.registry.Lookup(id)
	if err != nil {
		return err
	}
	h.Stop()
	<-h.Done()
	s.registry.UnregisterHandle(id, h)
	return nil
}

// watch removes the registry entry once the actor terminates, whether by
// explicit stop or fault. Removal is guarded by the handle so that an ID
// reused after Stop is never clobbered by a stale watcher. No restart is
// ever attempted.
func (s *Supervisor) watch(id string, h *conversation.Handle) {
	go func() {
		<-h.Done()
		if s.registry.UnregisterHandle(id, h) {
			s.logger.Info("conversation removed", "conversation_id", id)
		}
	}()
}

func (s *Supervisor) pickBackend(opts CreateOptions) (backend.Backend, core.BackendMode, error) {
	if opts.UseMock {
		return s.mock, core.BackendModeMock, nil
	}
	if s.live == nil {
		return nil, "", fmt.Errorf("%w: no live backend configured", core.ErrInvalidArgument)
	}
	return s.live, core.BackendModeLive, nil
}
