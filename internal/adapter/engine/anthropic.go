package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicOptions configures an AnthropicCompleter.
type AnthropicOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// AnthropicCompleter completes prompts with the Anthropic Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	opts   AnthropicOptions
}

// NewAnthropicCompleter creates a completer using the official client.
func NewAnthropicCompleter(opts AnthropicOptions) *AnthropicCompleter {
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)
	return NewAnthropicCompleterFromClient(&client, opts)
}

// NewAnthropicCompleterFromClient creates a completer from an existing client.
func NewAnthropicCompleterFromClient(client *anthropic.Client, opts AnthropicOptions) *AnthropicCompleter {
	if opts.Model == "" {
		opts.Model = string(anthropic.ModelClaude3_5Sonnet20241022)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &AnthropicCompleter{client: client, opts: opts}
}

// Name returns the provider name.
func (c *AnthropicCompleter) Name() string { return "anthropic" }

// Complete sends the prompt and joins the text blocks of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.opts.Model),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			if text := block.AsText().Text; text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("anthropic api returned no text")
	}
	return strings.Join(parts, "\n"), nil
}
