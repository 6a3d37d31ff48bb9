package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/domain"
)

func makeParagraph(word string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = word
	}
	return strings.Join(words, " ")
}

func makePaper(paragraphs ...string) *domain.Paper {
	return &domain.Paper{
		Ref:  domain.DocumentRef{ID: "2401.0001", Title: "Test Paper"},
		Text: strings.Join(paragraphs, "\n\n"),
	}
}

func TestChunk_FewerThanTwoParagraphs(t *testing.T) {
	c := NewParagraphChunker(2, 30)

	assert.Empty(t, c.Chunk(makePaper()))
	assert.Empty(t, c.Chunk(makePaper(makeParagraph("word", 100))))
	assert.Empty(t, c.Chunk(&domain.Paper{Text: "   \n\n  "}))
}

func TestChunk_PairsNonOverlapping(t *testing.T) {
	c := NewParagraphChunker(2, 30)
	p0 := makeParagraph("zero", 40)
	p1 := makeParagraph("one", 40)
	p2 := makeParagraph("two", 40)
	p3 := makeParagraph("three", 40)
	p4 := makeParagraph("four", 40)

	chunks := c.Chunk(makePaper(p0, p1, p2, p3, p4))

	require.Len(t, chunks, 3)
	assert.Equal(t, p0+"\n\n"+p1, chunks[0].Text)
	assert.Equal(t, p2+"\n\n"+p3, chunks[1].Text)
	assert.Equal(t, p4, chunks[2].Text)
	for _, ch := range chunks {
		assert.Equal(t, "2401.0001", ch.PaperID)
		assert.Equal(t, "Test Paper", ch.Title)
		assert.Greater(t, ch.WordCount, 30)
	}
}

func TestChunk_ShortTailDropped(t *testing.T) {
	c := NewParagraphChunker(2, 30)
	chunks := c.Chunk(makePaper(
		makeParagraph("zero", 40),
		makeParagraph("one", 40),
		makeParagraph("tail", 10),
	))

	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Text, "tail")
}

func TestChunk_WordThresholdBoundary(t *testing.T) {
	c := NewParagraphChunker(2, 30)

	// 15 + 15 = 30 words: excluded.
	chunks := c.Chunk(makePaper(makeParagraph("a", 15), makeParagraph("b", 15)))
	assert.Empty(t, chunks)

	// 15 + 16 = 31 words: included.
	chunks = c.Chunk(makePaper(makeParagraph("a", 15), makeParagraph("b", 16)))
	require.Len(t, chunks, 1)
	assert.Equal(t, 31, chunks[0].WordCount)
}

func TestChunk_AllBelowThreshold(t *testing.T) {
	c := NewParagraphChunker(2, 30)
	chunks := c.Chunk(makePaper(
		makeParagraph("a", 5),
		makeParagraph("b", 5),
		makeParagraph("c", 5),
		makeParagraph("d", 5),
	))
	assert.Empty(t, chunks)
}

func TestChunk_BlankLineVariants(t *testing.T) {
	c := NewParagraphChunker(2, 30)
	// Blank lines with stray spaces and multiple newlines still split.
	text := makeParagraph("left", 20) + "\n \t\n\n" + makeParagraph("right", 20)
	chunks := c.Chunk(&domain.Paper{Ref: domain.DocumentRef{ID: "x"}, Text: text})

	require.Len(t, chunks, 1)
	assert.Equal(t, 40, chunks[0].WordCount)
}

func TestNewParagraphChunker_Defaults(t *testing.T) {
	c := NewParagraphChunker(0, -1)
	assert.Equal(t, DefaultWindowParagraphs, c.windowParagraphs)
	assert.Equal(t, DefaultMinWords, c.minWords)
}
