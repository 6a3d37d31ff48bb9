package domain

import (
	"context"
	"errors"
	"time"
)

// DocumentRef identifies a document returned by a source search.
// Immutable once returned.
type DocumentRef struct {
	ID                string
	Title             string
	FullTextAvailable bool
}

// Paper is a fetched document: a reference plus extracted text and metadata.
// Owned by the ingestion stage; read-only afterward.
type Paper struct {
	Ref       DocumentRef
	Text      string
	Authors   []string
	Published time.Time
	URL       string
}

// Chunk is a contiguous span of text from exactly one paper, used as the
// atomic retrieval unit. Title is carried for citation lookup only.
type Chunk struct {
	PaperID   string
	Title     string
	Text      string
	WordCount int
}

// Hit is a nearest-neighbor result: the ordinal position of a chunk in the
// indexed corpus and its distance to the query vector.
type Hit struct {
	Ordinal  int
	Distance float32
}

// RetrievedChunk pairs a resolved chunk with its query distance.
type RetrievedChunk struct {
	Chunk    Chunk
	Distance float32
}

// IngestSummary reports the outcome of one ingestion run.
type IngestSummary struct {
	Topic     string
	Searched  int
	Processed int
	Failed    int
	Chunks    int
}

var (
	// ErrEmptyCorpus means ingestion produced zero usable chunks.
	ErrEmptyCorpus = errors.New("corpus is empty: no usable chunks were produced")

	// ErrNotIngested means a question was asked before any successful ingest.
	ErrNotIngested = errors.New("no corpus ingested: call ingest before asking")
)

// Source finds and fetches documents for a topic. Any error from Fetch is
// treated as "this document unavailable" by the ingestion stage.
type Source interface {
	Search(ctx context.Context, query string, limit int) ([]DocumentRef, error)
	Fetch(ctx context.Context, ref DocumentRef) (*Paper, error)
}

// Embedder converts text into fixed-dimension numeric vectors.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits papers into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(paper *Paper) []Chunk
}

// VectorIndex owns the embedding matrix and answers nearest-neighbor queries.
// Build replaces the index contents atomically; readers never observe a
// partially built index.
type VectorIndex interface {
	Build(ctx context.Context, vectors [][]float32) error
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len() int
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// GenerateOptions bound a single generation call.
type GenerateOptions struct {
	MaxNewTokens int
	Temperature  float64
	Sample       bool
}

// Generator produces text from a prompt and exposes the model's token
// accounting for budget decisions.
type Generator interface {
	CountTokens(text string) int
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
