package chunker

import (
	"regexp"
	"strings"

	"paperqa/internal/domain"
)

// DefaultMinWords is the word-count threshold below which a window is dropped.
// A window must exceed this count to be kept; exactly DefaultMinWords words is
// still too short.
const DefaultMinWords = 30

// DefaultWindowParagraphs is how many consecutive paragraphs form one chunk.
const DefaultWindowParagraphs = 2

// ParagraphChunker splits paper text on blank-line paragraph boundaries and
// groups consecutive paragraphs into non-overlapping windows. The window
// stride equals the window size, so no paragraph appears in two chunks.
type ParagraphChunker struct {
	windowParagraphs int
	minWords         int
	paragraphSplit   *regexp.Regexp
}

// NewParagraphChunker creates a chunker with the given window size (in
// paragraphs) and minimum word count. Non-positive values fall back to the
// defaults.
func NewParagraphChunker(windowParagraphs, minWords int) *ParagraphChunker {
	if windowParagraphs <= 0 {
		windowParagraphs = DefaultWindowParagraphs
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &ParagraphChunker{
		windowParagraphs: windowParagraphs,
		minWords:         minWords,
		paragraphSplit:   regexp.MustCompile(`\n[ \t]*\n+`),
	}
}

// Chunk splits the paper into paragraph-window chunks. Windows at or below
// the word threshold are discarded silently; a paper whose text yields no
// qualifying window produces zero chunks, which is not an error.
func (c *ParagraphChunker) Chunk(paper *domain.Paper) []domain.Chunk {
	paragraphs := c.paragraphs(paper.Text)
	if len(paragraphs) < c.windowParagraphs {
		return nil
	}
	var chunks []domain.Chunk
	for start := 0; start < len(paragraphs); start += c.windowParagraphs {
		end := start + c.windowParagraphs
		if end > len(paragraphs) {
			end = len(paragraphs)
		}
		text := strings.Join(paragraphs[start:end], "\n\n")
		words := len(strings.Fields(text))
		if words <= c.minWords {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			PaperID:   paper.Ref.ID,
			Title:     paper.Ref.Title,
			Text:      text,
			WordCount: words,
		})
	}
	return chunks
}

func (c *ParagraphChunker) paragraphs(text string) []string {
	parts := c.paragraphSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
