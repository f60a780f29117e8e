package conversation

import (
	"context"

	"github.com/GeorgePearse/concurrent-ai-chat/core"
)

// Handle is the opaque reference used by the registry and dispatcher to
// address a conversation actor. It carries no business data, only the
// mailbox and the termination signal. Every method resolves to
// core.ErrNotFound once the actor has terminated.
type Handle struct {
	id      string
	mailbox chan<- request
	stop    func()
	done    <-chan struct{}
}

// ID returns the conversation identifier this handle addresses.
func (h *Handle) ID() string { return h.id }

// Done is closed when the actor has terminated (explicit stop or fault).
// The supervisor watches it to remove the registry entry.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop requests termination of the actor. Idempotent. Requests still queued
// in the mailbox when the actor exits fail with core.ErrNotFound.
func (h *Handle) Stop() { h.stop() }

// Send delivers a user message and blocks until the actor replies, the
// actor terminates, or ctx is done. Requests are applied in the order the
// mailbox accepts them.
func (h *Handle) Send(ctx context.Context, text string) (string, error) {
	resp, err := h.roundTrip(ctx, request{op: opSend, text: text, reply: make(chan response, 1)})
	if err != nil {
		return "", err
	}
	return resp.text, resp.err
}

// History returns an immutable snapshot of the message history. It is
// serialized behind the same mailbox as Send, so it never observes a
// half-applied exchange.
func (h *Handle) History(ctx context.Context) ([]core.Message, error) {
	resp, err := h.roundTrip(ctx, request{op: opHistory, reply: make(chan response, 1)})
	if err != nil {
		return nil, err
	}
	return resp.messages, resp.err
}

// Stats returns the conversation's derived metadata.
func (h *Handle) Stats(ctx context.Context) (core.Stats, error) {
	resp, err := h.roundTrip(ctx, request{op: opStats, reply: make(chan response, 1)})
	if err != nil {
		return core.Stats{}, err
	}
	return resp.stats, resp.err
}

// roundTrip enqueues a request and waits for its reply. The second select
// re-checks the reply channel after done fires: the actor may have replied
// in the same instant it terminated, and a delivered reply wins.
func (h *Handle) roundTrip(ctx context.Context, req request) (response, error) {
	select {
	case h.mailbox <- req:
	case <-h.done:
		return response{}, core.ErrNotFound
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-h.done:
		select {
		case resp := <-req.reply:
			return resp, nil
		default:
			return response{}, core.ErrNotFound
		}
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}
