package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SourceConfig selects and configures the document source.
type SourceConfig struct {
	Type  string       `yaml:"type"`
	Arxiv *ArxivConfig `yaml:"arxiv,omitempty"`
}

// ArxivConfig contains connection details for the arXiv export API.
type ArxivConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how papers are split into chunks.
type ChunkerConfig struct {
	WindowParagraphs int `yaml:"window_paragraphs"`
	MinWords         int `yaml:"min_words"`
}

// IndexConfig selects and configures the vector index implementation.
type IndexConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector index.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// OpenAIGeneratorConfig holds configuration for the chat-completion generator.
type OpenAIGeneratorConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// GeneratorConfig selects and bounds the answer generator.
type GeneratorConfig struct {
	Type           string                 `yaml:"type"`
	OpenAI         *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
	MaxInputTokens int                    `yaml:"max_input_tokens"`
	MaxNewTokens   int                    `yaml:"max_new_tokens"`
	Temperature    float64                `yaml:"temperature"`
	Sample         bool                   `yaml:"sample"`
	KeepTail       bool                   `yaml:"keep_tail"`
	MaxSentences   int                    `yaml:"max_sentences"`
}

// RetrievalConfig bounds retrieval and context assembly.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k"`
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Source    SourceConfig    `yaml:"source"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Index     IndexConfig     `yaml:"index"`
	Generator GeneratorConfig `yaml:"generator"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// The file is unmarshaled over the defaults, so a partial config overrides only
// the fields it names; unset booleans and floats keep their default values.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/paperqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/paperqa/config.yaml and
// returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "paperqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Source:   SourceConfig{Type: "arxiv"},
		Embedder: EmbedderConfig{Type: "tfidf"},
		Chunker:  ChunkerConfig{WindowParagraphs: 2, MinWords: 30},
		Index:    IndexConfig{Type: "flat"},
		Generator: GeneratorConfig{
			Type:           "extractive",
			MaxInputTokens: 4096,
			MaxNewTokens:   512,
			Temperature:    0.7,
			Sample:         true,
			KeepTail:       true,
			MaxSentences:   4,
		},
		Retrieval: RetrievalConfig{TopK: 5, MaxContextTokens: 1024},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.WindowParagraphs == 0 {
		cfg.Chunker.WindowParagraphs = 2
	}
	if cfg.Chunker.MinWords == 0 {
		cfg.Chunker.MinWords = 30
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxContextTokens == 0 {
		cfg.Retrieval.MaxContextTokens = 1024
	}
	if cfg.Generator.MaxInputTokens == 0 {
		cfg.Generator.MaxInputTokens = 4096
	}
	if cfg.Generator.MaxNewTokens == 0 {
		cfg.Generator.MaxNewTokens = 512
	}
	if cfg.Generator.MaxSentences == 0 {
		cfg.Generator.MaxSentences = 4
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Index.Type == "qdrant" && cfg.Index.Qdrant != nil {
		if cfg.Index.Qdrant.Host == "" {
			cfg.Index.Qdrant.Host = "localhost"
		}
		if cfg.Index.Qdrant.Port == 0 {
			cfg.Index.Qdrant.Port = 6334
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "paperqa"
		}
	}
}
