package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/internal/chunker"
	"paperqa/internal/domain"
	"paperqa/internal/generator"
	"paperqa/internal/summarizer"
	"paperqa/internal/vectorindex/flat"
)

// fakeSource serves canned papers and fails fetching the IDs in failing.
type fakeSource struct {
	papers  []*domain.Paper
	failing map[string]bool
}

func (s *fakeSource) Search(ctx context.Context, query string, limit int) ([]domain.DocumentRef, error) {
	refs := make([]domain.DocumentRef, 0, len(s.papers))
	for _, p := range s.papers {
		refs = append(refs, p.Ref)
		if len(refs) == limit {
			break
		}
	}
	return refs, nil
}

func (s *fakeSource) Fetch(ctx context.Context, ref domain.DocumentRef) (*domain.Paper, error) {
	if s.failing[ref.ID] {
		return nil, errors.New("download failed")
	}
	for _, p := range s.papers {
		if p.Ref.ID == ref.ID {
			return p, nil
		}
	}
	return nil, errors.New("not found")
}

// keywordEmbedder embeds text as occurrence counts of three keywords, making
// nearest-neighbor outcomes fully predictable.
type keywordEmbedder struct{}

func (keywordEmbedder) Name() string { return "keyword" }

func (keywordEmbedder) Prepare(corpus []string) error { return nil }

func (keywordEmbedder) Dimension() int { return 3 }

func (keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{
			float32(strings.Count(text, "alpha")),
			float32(strings.Count(text, "beta")),
			float32(strings.Count(text, "gamma")),
		}
	}
	return out, nil
}

type failingEmbedder struct {
	keywordEmbedder
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

// shortBatchEmbedder embeds multi-text corpora normally but returns an empty
// batch for single-text requests, without reporting an error.
type shortBatchEmbedder struct {
	keywordEmbedder
}

func (e shortBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 1 {
		return nil, nil
	}
	return e.keywordEmbedder.EmbedBatch(ctx, texts)
}

// echoGen echoes its prompt so answer extraction exercises the found path.
type echoGen struct {
	err error
}

func (echoGen) CountTokens(text string) int { return len(strings.Fields(text)) }

func (g echoGen) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return prompt + " generated answer", nil
}

func paragraph(word string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = word
	}
	return strings.Join(words, " ")
}

func paper(id, title, word string) *domain.Paper {
	return &domain.Paper{
		Ref:  domain.DocumentRef{ID: id, Title: title},
		Text: paragraph(word, 40) + "\n\n" + paragraph(word, 40),
	}
}

func newTestService(src domain.Source, emb domain.Embedder, gen domain.Generator) *Service {
	answerer := generator.NewAnswerer(gen, generator.Options{MaxInputTokens: 100000, MaxNewTokens: 64})
	return New(
		src,
		chunker.NewParagraphChunker(2, 30),
		emb,
		flat.New(),
		answerer,
		summarizer.NewFrequencySummarizer(),
		4096,
	)
}

func TestIngest_PartialFailure(t *testing.T) {
	src := &fakeSource{
		papers: []*domain.Paper{
			paper("p1", "Alpha Paper", "alpha"),
			paper("p2", "Beta Paper", "beta"),
			paper("p3", "Gamma Paper", "gamma"),
		},
		failing: map[string]bool{"p2": true},
	}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})

	summary, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Searched)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Chunks)

	// Only chunks from the two fetched papers are retrievable.
	results, err := svc.Retrieve(context.Background(), "alpha beta gamma", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "p2", r.Chunk.PaperID)
	}
}

func TestIngest_AllFailed(t *testing.T) {
	src := &fakeSource{
		papers:  []*domain.Paper{paper("p1", "One", "alpha")},
		failing: map[string]bool{"p1": true},
	}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})

	summary, err := svc.Ingest(context.Background(), "anything", 10)
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
}

func TestIngest_EmbedderFailure(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{paper("p1", "One", "alpha")}}
	svc := newTestService(src, failingEmbedder{}, echoGen{})

	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestAsk_BeforeIngest(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})

	_, err := svc.Ask(context.Background(), "anything?", 5)
	assert.ErrorIs(t, err, domain.ErrNotIngested)
}

func TestAsk_AfterFailedIngest(t *testing.T) {
	src := &fakeSource{
		papers:  []*domain.Paper{paper("p1", "One", "alpha")},
		failing: map[string]bool{"p1": true},
	}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})

	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.Error(t, err)

	_, err = svc.Ask(context.Background(), "anything?", 5)
	assert.ErrorIs(t, err, domain.ErrNotIngested)
}

func TestRetrieve_NearestFirst(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{
		paper("p1", "Alpha Paper", "alpha"),
		paper("p2", "Beta Paper", "beta"),
	}}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})
	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)

	results, err := svc.Retrieve(context.Background(), "tell me about beta", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "p2", results[0].Chunk.PaperID)
	assert.Equal(t, "p1", results[1].Chunk.PaperID)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestRetrieve_KLargerThanCorpus(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{paper("p1", "Alpha Paper", "alpha")}}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})
	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)

	results, err := svc.Retrieve(context.Background(), "alpha", 50)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRetrieve_EmptyEmbedderBatchIsError(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{
		paper("p1", "Alpha Paper", "alpha"),
		paper("p2", "Beta Paper", "beta"),
	}}
	svc := newTestService(src, shortBatchEmbedder{}, echoGen{})
	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)

	_, err = svc.Retrieve(context.Background(), "alpha", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 vectors")
}

func TestAsk_ReturnsExtractedAnswer(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{paper("p1", "Alpha Paper", "alpha")}}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})
	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), "what is alpha?", 5)
	require.NoError(t, err)
	assert.Equal(t, "generated answer", answer)
}

func TestAsk_GenerationFailurePropagates(t *testing.T) {
	boom := errors.New("model crashed")
	src := &fakeSource{papers: []*domain.Paper{paper("p1", "Alpha Paper", "alpha")}}
	svc := newTestService(src, keywordEmbedder{}, echoGen{err: boom})
	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), "what is alpha?", 5)
	assert.ErrorIs(t, err, boom)
}

func TestIngest_ReplacesPriorCorpus(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{
		paper("p1", "Alpha Paper", "alpha"),
		paper("p2", "Beta Paper", "beta"),
	}}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})
	_, err := svc.Ingest(context.Background(), "first", 10)
	require.NoError(t, err)

	// Second ingest sees a source where only p2 remains.
	src.papers = src.papers[1:]
	summary, err := svc.Ingest(context.Background(), "second", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Chunks)

	results, err := svc.Retrieve(context.Background(), "alpha beta", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p2", results[0].Chunk.PaperID)
}

func TestOverview_SetAfterIngest(t *testing.T) {
	src := &fakeSource{papers: []*domain.Paper{{
		Ref:  domain.DocumentRef{ID: "p1", Title: "One"},
		Text: "Alpha methods dominate the field. " + paragraph("alpha", 20) + ".\n\nBeta follows closely. " + paragraph("beta", 20) + ".",
	}}}
	svc := newTestService(src, keywordEmbedder{}, echoGen{})
	require.Empty(t, svc.Overview())

	_, err := svc.Ingest(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, svc.Overview())
}
