// Package backend defines the completion capability consumed by
// conversation actors and a deterministic mock implementation. Live
// adapters for specific providers live in subpackages (openai, anthropic)
// so that the core never depends on a vendor SDK directly.
package backend
