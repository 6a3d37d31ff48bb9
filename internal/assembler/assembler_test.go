package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/domain"
)

func candidate(paperID, title, text string) domain.RetrievedChunk {
	return domain.RetrievedChunk{Chunk: domain.Chunk{PaperID: paperID, Title: title, Text: text}}
}

// tokensByMarker builds a counter that charges a fixed cost per chunk,
// identified by a marker substring in the formatted block.
func tokensByMarker(costs map[string]int) TokenCounter {
	return func(text string) int {
		for marker, n := range costs {
			if strings.Contains(text, marker) {
				return n
			}
		}
		return len(strings.Fields(text))
	}
}

func TestAssemble_StopsAtFirstOverflow(t *testing.T) {
	count := tokensByMarker(map[string]int{"first": 60, "second": 50, "third": 5})
	candidates := []domain.RetrievedChunk{
		candidate("p1", "Paper One", "first chunk"),
		candidate("p2", "Paper Two", "second chunk"),
		candidate("p3", "Paper Three", "third chunk"),
	}

	out := Assemble(candidates, 100, count)

	// The second candidate overflows the budget; assembly terminates there
	// even though the third would still fit.
	assert.Equal(t, 60, out.Tokens)
	assert.Equal(t, []string{"p1"}, out.SourceIDs)
	assert.Contains(t, out.Text, "first chunk")
	assert.NotContains(t, out.Text, "second chunk")
	assert.NotContains(t, out.Text, "third chunk")
}

func TestAssemble_OneChunkPerSource(t *testing.T) {
	count := func(string) int { return 10 }
	candidates := []domain.RetrievedChunk{
		candidate("p1", "Paper One", "best from one"),
		candidate("p1", "Paper One", "second best from one"),
		candidate("p2", "Paper Two", "best from two"),
	}

	out := Assemble(candidates, 1000, count)

	assert.Equal(t, []string{"p1", "p2"}, out.SourceIDs)
	assert.Contains(t, out.Text, "best from one")
	assert.NotContains(t, out.Text, "second best from one")
	assert.Contains(t, out.Text, "best from two")
}

func TestAssemble_NeverExceedsBudget(t *testing.T) {
	count := func(text string) int { return len(strings.Fields(text)) }
	var candidates []domain.RetrievedChunk
	for i := 0; i < 20; i++ {
		candidates = append(candidates, candidate(
			strings.Repeat("p", i+1), "Paper", strings.Repeat("word ", 30)))
	}

	for _, budget := range []int{0, 10, 37, 100, 500} {
		out := Assemble(candidates, budget, count)
		assert.LessOrEqual(t, out.Tokens, budget)
	}
}

func TestAssemble_TagsSourceTitle(t *testing.T) {
	count := func(string) int { return 1 }
	out := Assemble([]domain.RetrievedChunk{
		candidate("p1", "Attention Is All You Need", "some text"),
	}, 100, count)

	assert.Contains(t, out.Text, "[Source: Attention Is All You Need]")
}

func TestAssemble_Deterministic(t *testing.T) {
	count := func(text string) int { return len(text) % 17 }
	candidates := []domain.RetrievedChunk{
		candidate("p1", "One", "aaa"),
		candidate("p2", "Two", "bbb"),
		candidate("p3", "Three", "ccc"),
	}

	a := Assemble(candidates, 30, count)
	b := Assemble(candidates, 30, count)
	assert.Equal(t, a, b)
}

func TestAssemble_EmptyCandidates(t *testing.T) {
	out := Assemble(nil, 100, func(string) int { return 1 })
	require.Empty(t, out.Text)
	assert.Zero(t, out.Tokens)
	assert.Empty(t, out.SourceIDs)
}
