package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GeorgePearse/concurrent-ai-chat/backend"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/GeorgePearse/concurrent-ai-chat/logging"
)

// Options configure a Conversation.
type Options struct {
	// Model is passed through to the backend on every completion call.
	Model string

	// BackendMode records whether the injected backend is the mock or a
	// live adapter. Metadata only; the actor is backend-agnostic.
	BackendMode core.BackendMode

	// CallTimeout bounds each individual backend round trip. It is
	// independent of any aggregate batch deadline.
	CallTimeout time.Duration

	// MailboxSize sets the request channel buffer. Requests beyond the
	// buffer block the sender until the actor catches up.
	MailboxSize int

	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

type opKind int

const (
	opSend opKind = iota
	opHistory
	opStats
)

// request is one unit of work delivered through the mailbox. The reply
// channel is buffered (capacity 1) so the actor never blocks delivering a
// response to a caller that gave up.
type request struct {
	op    opKind
	text  string
	reply chan response
}

type response struct {
	text     string
	messages []core.Message
	stats    core.Stats
	err      error
}

// Conversation owns one conversation's mutable state. All fields below the
// mailbox are touched only by the actor goroutine once Start is called.
type Conversation struct {
	id          string
	model       string
	mode        core.BackendMode
	backend     backend.Backend
	callTimeout time.Duration
	logger      logging.Logger

	messages   []core.Message
	created    time.Time
	lastActive time.Time

	mailbox  chan request
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New allocates a Conversation without starting its actor loop. The caller
// (normally the supervisor) registers the handle first and only then calls
// Start, so a conversation that loses a registration race is discarded
// without ever having run.
func New(id string, b backend.Backend, optFns ...func(o *Options)) *Conversation {
	opts := Options{
		BackendMode: core.BackendModeMock,
		CallTimeout: 30 * time.Second,
		MailboxSize: 16,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	now := time.Now().UTC()
	return &Conversation{
		id:          id,
		model:       opts.Model,
		mode:        opts.BackendMode,
		backend:     b,
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger,
		created:     now,
		lastActive:  now,
		mailbox:     make(chan request, opts.MailboxSize),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// ID returns the conversation identifier.
func (c *Conversation) ID() string { return c.id }

// Handle returns the opaque addressing capability for this conversation.
// Handles are safe to copy and share across goroutines.
func (c *Conversation) Handle() *Handle {
	return &Handle{id: c.id, mailbox: c.mailbox, stop: c.signalStop, done: c.done}
}

// Start launches the actor loop. Must be called exactly once.
func (c *Conversation) Start() {
	go c.loop()
}

func (c *Conversation) signalStop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// loop is the actor: it serializes all access to conversation state until
// stopped or faulted. Closing done is the single termination signal
// observed by handles and the supervisor.
func (c *Conversation) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case req := <-c.mailbox:
			if fault := c.handle(req); fault {
				return
			}
		}
	}
}

// handle processes one request, converting a panic during processing into
// actor termination. The faulting request receives an error reply; the
// fault never propagates past this actor.
func (c *Conversation) handle(req request) (fault bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("actor fault: %v", r)
			c.logger.Error("conversation actor terminated on fault",
				"conversation_id", c.id, "panic", fmt.Sprintf("%v", r))
			req.reply <- response{err: errors.Join(core.ErrNotFound, err)}
			fault = true
		}
	}()

	switch req.op {
	case opSend:
		req.reply <- c.processSend(req.text)
	case opHistory:
		req.reply <- response{messages: c.snapshot()}
	case opStats:
		req.reply <- response{stats: c.statsLocked()}
	}
	return false
}

// processSend appends the user message, performs one backend round trip and
// on success appends the assistant reply. The user message is intentionally
// not rolled back when the backend call fails or times out: the orphaned
// entry remains in history as a record of the accepted request, and
// lastActive is left unchanged.
func (c *Conversation) processSend(text string) response {
	c.messages = append(c.messages, core.NewMessage(core.RoleUser, text))

	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout)
	defer cancel()

	start := time.Now()
	reply, err := c.backend.Complete(ctx, c.snapshot(), backend.Options{Model: c.model})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = core.ErrBackendTimeout
		}
		c.logger.Warn("backend call failed",
			"conversation_id", c.id, "model", c.model,
			"duration", time.Since(start), "error", err)
		return response{err: err}
	}

	c.messages = append(c.messages, core.NewMessage(core.RoleAssistant, reply))
	c.lastActive = time.Now().UTC()
	c.logger.Debug("backend call completed",
		"conversation_id", c.id, "model", c.model, "duration", time.Since(start))
	return response{text: reply}
}

// snapshot returns a defensive copy of the history so callers can never
// mutate actor-owned state.
func (c *Conversation) snapshot() []core.Message {
	out := make([]core.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) statsLocked() core.Stats {
	return core.Stats{
		ID:           c.id,
		MessageCount: len(c.messages),
		Created:      c.created,
		LastActive:   c.lastActive,
		Model:        c.model,
		BackendMode:  c.mode,
	}
}
