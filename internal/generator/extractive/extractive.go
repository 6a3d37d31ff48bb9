// Package extractive provides an offline generator that answers by quoting
// the most salient sentences of the retrieved context. It keeps the pipeline
// usable without a model endpoint; the quality ceiling is what retrieval
// surfaced.
package extractive

import (
	"context"
	"strings"

	"paperqa/internal/domain"
	"paperqa/internal/summarizer"
)

const defaultMaxSentences = 4

// Generator implements domain.Generator by summarizing the context portion
// of the prompt.
type Generator struct {
	summarizer   *summarizer.FrequencySummarizer
	maxSentences int
}

// NewGenerator creates an extractive generator returning at most
// maxSentences sentences per answer.
func NewGenerator(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}
	return &Generator{summarizer: summarizer.NewFrequencySummarizer(), maxSentences: maxSentences}
}

// CountTokens counts whitespace-delimited words, the natural unit for an
// extractive model.
func (g *Generator) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Generate returns the highest-scoring sentences of the prompt's context
// block. The output never echoes the prompt, so downstream delimiter
// extraction takes its not-found path and passes the text through.
func (g *Generator) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.summarizer.Summarize(contextBlock(prompt), g.maxSentences)
}

// contextBlock isolates the context portion of the standard prompt template.
// When the markers are absent the whole prompt is summarized instead.
func contextBlock(prompt string) string {
	s := prompt
	if i := strings.Index(s, "Context:"); i >= 0 {
		s = s[i+len("Context:"):]
	}
	if i := strings.LastIndex(s, "Question:"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
