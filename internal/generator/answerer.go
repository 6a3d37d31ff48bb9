// Package generator builds grounded prompts, dispatches them to a generative
// model, and post-processes the raw output into a clean answer.
package generator

import (
	"context"
	"fmt"

	"paperqa/internal/domain"
)

// Options bound the prompt and the generation call.
type Options struct {
	MaxInputTokens int
	MaxNewTokens   int
	Temperature    float64
	Sample         bool
	// KeepTail selects which end of an over-long prompt survives
	// truncation. The default keeps the tail, where the question and the
	// answer cue live.
	KeepTail bool
}

// DefaultOptions returns the generation bounds used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxInputTokens: 4096,
		MaxNewTokens:   512,
		Temperature:    0.7,
		Sample:         true,
		KeepTail:       true,
	}
}

// Answerer turns an assembled context and a question into a final answer
// using an injected generative model handle.
type Answerer struct {
	gen  domain.Generator
	opts Options
}

// NewAnswerer creates an answerer around the given model handle.
func NewAnswerer(gen domain.Generator, opts Options) *Answerer {
	if opts.MaxInputTokens <= 0 {
		opts.MaxInputTokens = DefaultOptions().MaxInputTokens
	}
	if opts.MaxNewTokens <= 0 {
		opts.MaxNewTokens = DefaultOptions().MaxNewTokens
	}
	return &Answerer{gen: gen, opts: opts}
}

// Answer builds the grounded prompt, truncates it to the model's input
// limit, generates, and extracts the answer text. Generation errors
// propagate to the caller unretried.
func (a *Answerer) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	prompt := BuildPrompt(contextBlock, question)
	prompt = TruncatePrompt(prompt, a.opts.MaxInputTokens, a.gen.CountTokens, a.opts.KeepTail)
	raw, err := a.gen.Generate(ctx, prompt, domain.GenerateOptions{
		MaxNewTokens: a.opts.MaxNewTokens,
		Temperature:  a.opts.Temperature,
		Sample:       a.opts.Sample,
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return ExtractAnswer(raw).Text, nil
}

// CountTokens exposes the model's token accounting for context budgeting.
func (a *Answerer) CountTokens(text string) int {
	return a.gen.CountTokens(text)
}
