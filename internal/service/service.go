// Package service orchestrates the question-answering pipeline: ingestion
// (search, fetch, chunk, embed, index) and answering (retrieve, assemble,
// generate). All collaborators are injected; the service owns only the
// corpus snapshot.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"paperqa/internal/assembler"
	"paperqa/internal/domain"
	"paperqa/internal/generator"
	"paperqa/internal/logger"
)

// DefaultTopK is the number of candidate chunks retrieved per question when
// the caller does not specify one.
const DefaultTopK = 5

// overviewSentences is how many sentences the post-ingest corpus overview
// keeps.
const overviewSentences = 5

// Service wires the pipeline together. One ingest produces one corpus
// snapshot; a new ingest replaces it entirely, there is no incremental
// indexing. A built snapshot serves concurrent read-only questions.
type Service struct {
	source     domain.Source
	chunker    domain.Chunker
	embedder   domain.Embedder
	index      domain.VectorIndex
	answerer   *generator.Answerer
	summarizer domain.Summarizer

	maxContextTokens int

	mu       sync.RWMutex
	chunks   []domain.Chunk
	overview string
	ingested bool
}

// New creates the pipeline service around the injected collaborators.
func New(source domain.Source, chunker domain.Chunker, embedder domain.Embedder, index domain.VectorIndex, answerer *generator.Answerer, summarizer domain.Summarizer, maxContextTokens int) *Service {
	return &Service{
		source:           source,
		chunker:          chunker,
		embedder:         embedder,
		index:            index,
		answerer:         answerer,
		summarizer:       summarizer,
		maxContextTokens: maxContextTokens,
	}
}

// resetCorpus discards the previous corpus snapshot. Ingest calls it first,
// making the replace-not-merge behavior an explicit step: questions asked
// between reset and a completed ingest fail rather than answering from a
// half-replaced corpus.
func (s *Service) resetCorpus() {
	s.mu.Lock()
	s.chunks = nil
	s.overview = ""
	s.ingested = false
	s.mu.Unlock()
}

// Ingest searches the source for the topic, fetches and chunks each document,
// embeds the chunk corpus in bulk, and builds the vector index. A document
// that cannot be fetched or extracted is logged and skipped; it fails the
// ingest only if no document yields a usable chunk, which surfaces as
// ErrEmptyCorpus.
func (s *Service) Ingest(ctx context.Context, topic string, maxDocs int) (domain.IngestSummary, error) {
	summary := domain.IngestSummary{Topic: topic}
	s.resetCorpus()

	refs, err := s.source.Search(ctx, topic, maxDocs)
	if err != nil {
		return summary, fmt.Errorf("search %q: %w", topic, err)
	}
	summary.Searched = len(refs)
	logger.Info("search %q returned %d documents", topic, len(refs))

	var chunks []domain.Chunk
	var corpusText strings.Builder
	for _, ref := range refs {
		paper, err := s.source.Fetch(ctx, ref)
		if err != nil {
			logger.Warn("skipping document %s: %v", ref.ID, err)
			summary.Failed++
			continue
		}
		summary.Processed++
		pc := s.chunker.Chunk(paper)
		logger.Debug("document %s: %d chunks", ref.ID, len(pc))
		chunks = append(chunks, pc...)
		corpusText.WriteString(paper.Text)
		corpusText.WriteString("\n")
	}

	if len(chunks) == 0 {
		return summary, domain.ErrEmptyCorpus
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return summary, fmt.Errorf("prepare embedder: %w", err)
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return summary, fmt.Errorf("embed corpus: %w", err)
	}
	if err := s.index.Build(ctx, vectors); err != nil {
		return summary, fmt.Errorf("build index: %w", err)
	}

	overview := ""
	if s.summarizer != nil {
		if overview, err = s.summarizer.Summarize(corpusText.String(), overviewSentences); err != nil {
			logger.Warn("corpus overview unavailable: %v", err)
			overview = ""
		}
	}

	s.mu.Lock()
	s.chunks = chunks
	s.overview = overview
	s.ingested = true
	s.mu.Unlock()

	summary.Chunks = len(chunks)
	logger.Info("ingested %d/%d documents, %d chunks", summary.Processed, summary.Searched, summary.Chunks)
	return summary, nil
}

// Retrieve embeds the question and returns the k nearest chunks, closest
// first. It fails with ErrNotIngested before any successful ingest.
func (s *Service) Retrieve(ctx context.Context, question string, k int) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	chunks, ingested := s.chunks, s.ingested
	s.mu.RUnlock()
	if !ingested {
		return nil, domain.ErrNotIngested
	}
	if k <= 0 {
		k = DefaultTopK
	}
	vectors, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}
	hits, err := s.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	out := make([]domain.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		if h.Ordinal < 0 || h.Ordinal >= len(chunks) {
			return nil, fmt.Errorf("index returned ordinal %d outside corpus of %d chunks", h.Ordinal, len(chunks))
		}
		out = append(out, domain.RetrievedChunk{Chunk: chunks[h.Ordinal], Distance: h.Distance})
	}
	return out, nil
}

// Ask answers a free-text question from the ingested corpus: retrieve the
// topK nearest chunks, assemble a budgeted context, and generate a grounded
// answer. Generation failures propagate unretried.
func (s *Service) Ask(ctx context.Context, question string, topK int) (string, error) {
	candidates, err := s.Retrieve(ctx, question, topK)
	if err != nil {
		return "", err
	}
	assembled := assembler.Assemble(candidates, s.maxContextTokens, s.answerer.CountTokens)
	logger.Debug("assembled context: %d tokens from %d sources", assembled.Tokens, len(assembled.SourceIDs))
	return s.answerer.Answer(ctx, question, assembled.Text)
}

// Overview returns the corpus summary produced by the last ingest.
func (s *Service) Overview() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overview
}
