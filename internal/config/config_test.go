package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "arxiv", cfg.Source.Type)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "flat", cfg.Index.Type)
	assert.Equal(t, "extractive", cfg.Generator.Type)
	assert.Equal(t, 2, cfg.Chunker.WindowParagraphs)
	assert.Equal(t, 30, cfg.Chunker.MinWords)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 1024, cfg.Retrieval.MaxContextTokens)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
source:
  type: arxiv
  arxiv:
    timeout_secs: 120
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
index:
  type: qdrant
  qdrant:
    host: qdrant.local
generator:
  type: openai
  max_new_tokens: 256
retrieval:
  top_k: 8
  max_context_tokens: 2048
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Source.Arxiv.TimeoutSecs)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, 2048, cfg.Retrieval.MaxContextTokens)
	assert.Equal(t, 256, cfg.Generator.MaxNewTokens)

	// Defaults fill unset nested fields.
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, 32, cfg.Embedder.OpenAI.BatchSize)
	assert.Equal(t, 6334, cfg.Index.Qdrant.Port)
	assert.Equal(t, "paperqa", cfg.Index.Qdrant.Collection)
}

func TestLoad_PartialConfigKeepsGenerationDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
retrieval:
  top_k: 8
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Retrieval.TopK)
	// Fields the file does not name stay at their documented defaults, the
	// zero-valued booleans and floats included.
	assert.True(t, cfg.Generator.KeepTail)
	assert.True(t, cfg.Generator.Sample)
	assert.Equal(t, 0.7, cfg.Generator.Temperature)
	assert.Equal(t, "extractive", cfg.Generator.Type)
	assert.Equal(t, 1024, cfg.Retrieval.MaxContextTokens)
}

func TestLoad_ExplicitFalseOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
generator:
  sample: false
  keep_tail: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Generator.Sample)
	assert.False(t, cfg.Generator.KeepTail)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n -bad"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.Retrieval.TopK = 11

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}
