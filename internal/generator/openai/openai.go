package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"paperqa/internal/domain"
)

// Generator dispatches prompts to an OpenAI-compatible chat completion
// endpoint.
type Generator struct {
	client openai.Client
	model  string
}

// Config configures the chat completion generator.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
}

// NewGenerator creates a generator from the configuration. The API key is
// read from the configured environment variable.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Generator{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

// CountTokens estimates the token cost of text. The exact tokenizer lives
// server-side; the usual ~4 characters per token estimate is close enough
// for budget decisions.
func (g *Generator) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// Generate runs one bounded chat completion for the prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.MaxNewTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxNewTokens))
	}
	if opts.Sample {
		params.Temperature = openai.Float(opts.Temperature)
	} else {
		params.Temperature = openai.Float(0)
	}
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
