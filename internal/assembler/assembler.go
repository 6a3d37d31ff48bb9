// Package assembler selects retrieved chunks into a bounded context block.
// The policy trades raw relevance for citation diversity: one chunk per
// source paper, and assembly stops outright at the first chunk that would
// blow the token budget.
package assembler

import (
	"fmt"
	"strings"

	"paperqa/internal/domain"
)

// TokenCounter reports how many tokens the generative model charges for a
// piece of text.
type TokenCounter func(text string) int

// Context is an assembled context block with its provenance.
type Context struct {
	Text      string
	Tokens    int
	SourceIDs []string
}

// budget accumulates token spend and used sources for one assembly call.
type budget struct {
	maxTokens int
	tokens    int
	used      map[string]struct{}
}

func (b *budget) fits(n int) bool { return b.tokens+n <= b.maxTokens }

func (b *budget) spend(id string, n int) {
	b.tokens += n
	b.used[id] = struct{}{}
}
func (b *budget) seen(id string) bool {
	_, ok := b.used[id]
	return ok
}

// Assemble walks candidates in order (nearest first) and builds the context.
// A candidate is skipped when its source paper already contributed a chunk.
// The first candidate that would exceed maxTokens terminates assembly
// entirely; later, smaller candidates are not considered. The result is
// deterministic given the candidate order and the token counter, and its
// token total never exceeds maxTokens.
func Assemble(candidates []domain.RetrievedChunk, maxTokens int, count TokenCounter) Context {
	b := &budget{maxTokens: maxTokens, used: make(map[string]struct{})}
	var sb strings.Builder
	var sourceIDs []string
	for _, cand := range candidates {
		if b.seen(cand.Chunk.PaperID) {
			continue
		}
		block := formatBlock(cand.Chunk)
		n := count(block)
		if !b.fits(n) {
			break
		}
		sb.WriteString(block)
		b.spend(cand.Chunk.PaperID, n)
		sourceIDs = append(sourceIDs, cand.Chunk.PaperID)
	}
	return Context{Text: sb.String(), Tokens: b.tokens, SourceIDs: sourceIDs}
}

// formatBlock tags a chunk with its source title so the model can cite it.
func formatBlock(c domain.Chunk) string {
	return fmt.Sprintf("[Source: %s]\n%s\n\n", c.Title, c.Text)
}
