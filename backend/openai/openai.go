// Package openai provides a backend.Backend implementation using the OpenAI
// Chat Completions API. It adapts the conversation history into the SDK's
// message format and maps SDK failures onto the core error taxonomy.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/GeorgePearse/concurrent-ai-chat/backend"
	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI backend adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Backend wraps the OpenAI Chat Completions API behind the generic
// backend.Backend interface.
type Backend struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI backend using the official client, which reads
// its API key from the environment.
func New(optFns ...func(o *Options)) *Backend {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI backend from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{client: client, opts: opts}
}

// Complete implements backend.Backend with a single non-streaming call.
// A context deadline maps to core.ErrBackendTimeout; API failures map to
// *core.APIError carrying status and raw body.
func (b *Backend) Complete(ctx context.Context, messages []core.Message, opts backend.Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               b.opts.Model,
		Temperature:         openai.Float(b.opts.Temperature),
		MaxCompletionTokens: openai.Int(b.opts.MaxCompletionTokens),
	}
	if opts.Model != "" {
		params.Model = opts.Model
	}
	if opts.Temperature != 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens != 0 {
		params.MaxCompletionTokens = openai.Int(opts.MaxTokens)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &core.APIError{Body: "no choices returned"}
	}
	return resp.Choices[0].Message.Content, nil
}

// buildMessages converts the conversation history into OpenAI chat messages.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrBackendTimeout
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &core.APIError{Status: apierr.StatusCode, Body: apierr.RawJSON()}
	}
	return fmt.Errorf("openai api error: %w", err)
}
