// Package registry provides the concurrent-safe mapping from conversation
// identifier to actor handle. It has no behavior beyond bookkeeping: atomic
// check-and-insert on registration, lookup, idempotent removal and
// point-in-time snapshots.
package registry

import (
	"fmt"
	"sync"

	"github.com/GeorgePearse/concurrent-ai-chat/conversation"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
)

// Registry maps conversation IDs to live handles. Safe for concurrent use.
// At any instant an ID maps to at most one handle; removal makes the ID
// immediately unresolvable even if in-flight requests still hold the handle.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*conversation.Handle
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*conversation.Handle)}
}

// Register inserts the handle under id. Check and insert happen under one
// critical section: when two callers race to register the same ID exactly
// one succeeds and the loser gets core.ErrAlreadyExists with no side
// effects.
func (r *Registry) Register(id string, h *conversation.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handles[id]; exists {
		return fmt.Errorf("%w: %s", core.ErrAlreadyExists, id)
	}
	r.handles[id] = h
	return nil
}

// Lookup resolves id to its live handle.
func (r *Registry) Lookup(id string) (*conversation.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return h, nil
}

// Unregister removes id. Idempotent: removing an absent ID is not an error.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// UnregisterHandle removes id only if it still maps to h. Lifecycle
// watchers use it so a stale watcher can never remove a successor
// conversation that reused the ID. Returns whether an entry was removed.
func (r *Registry) UnregisterHandle(id string, h *conversation.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[id]; ok && cur == h {
		delete(r.handles, id)
		return true
	}
	return false
}

// ListIDs returns a point-in-time snapshot of registered IDs. The snapshot
// may be stale by the time it is consumed.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of currently registered conversations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
