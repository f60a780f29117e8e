// Package anthropic provides a backend.Backend implementation using the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GeorgePearse/concurrent-ai-chat/backend"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Options configure the Anthropic backend adapter (model id, temperature,
// max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Backend wraps the Anthropic Messages API behind the generic
// backend.Backend interface.
type Backend struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic backend using the official client.
func New(optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Backend{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic backend from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Complete implements backend.Backend with a single non-streaming call.
func (b *Backend) Complete(ctx context.Context, messages []core.Message, opts backend.Options) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       b.opts.Model,
		Messages:    buildMessages(messages),
		MaxTokens:   b.opts.MaxTokens,
		Temperature: anthropic.Float(b.opts.Temperature),
	}
	if opts.Model != "" {
		params.Model = anthropic.Model(opts.Model)
	}
	if opts.Temperature != 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.MaxTokens != 0 {
		params.MaxTokens = opts.MaxTokens
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", &core.APIError{Body: "no text content returned"}
	}
	return sb.String(), nil
}

// buildMessages converts the conversation history into Anthropic messages.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrBackendTimeout
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &core.APIError{Status: apierr.StatusCode, Body: apierr.RawJSON()}
	}
	return fmt.Errorf("anthropic api error: %w", err)
}
