// Package conversation implements the per-conversation actor. Each
// Conversation owns its history exclusively and processes requests one at a
// time through a mailbox channel, so no locks guard conversation state.
// Different conversations run fully independently in parallel.
//
// Callers never touch a Conversation directly after it starts; they address
// it through an opaque Handle obtained before start. A fault (panic) inside
// request processing is contained at the actor boundary: the actor
// terminates, its done signal fires, and pending or subsequent requests
// fail with core.ErrNotFound. Sibling actors are unaffected.
package conversation
