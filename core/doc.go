// Package core defines the shared domain types (messages, stats, backend
// modes) and the error taxonomy used across the conversation substrate.
// It deliberately carries no behavior beyond construction helpers so that
// higher-level packages (conversation, supervisor, dispatcher) can depend
// on it without import cycles.
package core
