package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message within a conversation history.
type Role string

const (
	// RoleUser marks a message supplied by the caller.
	RoleUser Role = "user"
	// RoleAssistant marks a completion produced by the backend.
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation's append-only history. After
// being appended it must be treated as immutable; history accessors hand out
// defensive copies.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// BackendMode selects which backend variant a conversation talks to.
type BackendMode string

const (
	// BackendModeMock routes completions to the deterministic local backend.
	BackendModeMock BackendMode = "mock"
	// BackendModeLive routes completions to a real completion API.
	BackendModeLive BackendMode = "live"
)

// Stats is a derived, read-only view of a conversation's metadata.
type Stats struct {
	ID           string      `json:"id"`
	MessageCount int         `json:"message_count"`
	Created      time.Time   `json:"created"`
	LastActive   time.Time   `json:"last_active"`
	Model        string      `json:"model"`
	BackendMode  BackendMode `json:"backend_mode"`
}

// NewID generates a new unique conversation identifier.
func NewID() string { return uuid.NewString() }
