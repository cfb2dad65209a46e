package engine

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIOptions configures an OpenAICompleter.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// OpenAICompleter completes prompts with the OpenAI Chat Completions API.
type OpenAICompleter struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAICompleter creates a completer using the official client.
func NewOpenAICompleter(opts OpenAIOptions) *OpenAICompleter {
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)
	return NewOpenAICompleterFromClient(&client, opts)
}

// NewOpenAICompleterFromClient creates a completer from an existing client.
func NewOpenAICompleterFromClient(client *openai.Client, opts OpenAIOptions) *OpenAICompleter {
	if opts.Model == "" {
		opts.Model = openai.ChatModelGPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &OpenAICompleter{client: client, opts: opts}
}

// Name returns the provider name.
func (c *OpenAICompleter) Name() string { return "openai" }

// Complete sends the system prompt and user prompt and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
