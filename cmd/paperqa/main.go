package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"paperqa/internal/chunker"
	"paperqa/internal/config"
	"paperqa/internal/domain"
	embopenai "paperqa/internal/embedding/openai"
	"paperqa/internal/embedding/tfidf"
	"paperqa/internal/generator"
	"paperqa/internal/generator/extractive"
	genopenai "paperqa/internal/generator/openai"
	"paperqa/internal/logger"
	"paperqa/internal/service"
	"paperqa/internal/source/arxiv"
	"paperqa/internal/summarizer"
	"paperqa/internal/tui"
	"paperqa/internal/vectorindex/flat"
	"paperqa/internal/vectorindex/qdrant"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		verbose bool
		maxDocs int
		topK    int
	)

	rootCmd := &cobra.Command{
		Use:   "paperqa",
		Short: "Retrieval-augmented question answering over scientific papers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetVerbose(verbose)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (defaults to ./config.yaml, then ~/.config/paperqa/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose diagnostics on stderr")

	chatCmd := &cobra.Command{
		Use:   "chat <topic>",
		Short: "Ingest papers on a topic and answer questions interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := buildService(cfgPath)
			if err != nil {
				return err
			}
			summary, err := svc.Ingest(cmd.Context(), args[0], maxDocs)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Ingested %d/%d documents (%d failed), %d chunks\n",
				summary.Processed, summary.Searched, summary.Failed, summary.Chunks)
			k := topK
			if k <= 0 {
				k = cfg.Retrieval.TopK
			}
			m := tui.New(svc, k)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	chatCmd.Flags().IntVar(&maxDocs, "max-docs", 10, "Maximum number of documents to ingest")
	chatCmd.Flags().IntVar(&topK, "top-k", 0, "Chunks retrieved per question (default from config)")

	askCmd := &cobra.Command{
		Use:   "ask <topic> <question>",
		Short: "Ingest papers on a topic and answer a single question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := buildService(cfgPath)
			if err != nil {
				return err
			}
			summary, err := svc.Ingest(cmd.Context(), args[0], maxDocs)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			logger.Info("ingested %d/%d documents, %d chunks", summary.Processed, summary.Searched, summary.Chunks)
			k := topK
			if k <= 0 {
				k = cfg.Retrieval.TopK
			}
			answer, err := svc.Ask(cmd.Context(), args[1], k)
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}
	askCmd.Flags().IntVar(&maxDocs, "max-docs", 10, "Maximum number of documents to ingest")
	askCmd.Flags().IntVar(&topK, "top-k", 0, "Chunks retrieved per question (default from config)")

	rootCmd.AddCommand(chatCmd, askCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildService assembles the pipeline from configuration, one switch per
// pluggable component.
func buildService(cfgPath string) (*service.Service, *config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var src domain.Source
	switch cfg.Source.Type {
	case "arxiv", "":
		acfg := arxiv.Config{}
		if cfg.Source.Arxiv != nil {
			acfg.BaseURL = cfg.Source.Arxiv.BaseURL
			acfg.Timeout = time.Duration(cfg.Source.Arxiv.TimeoutSecs) * time.Second
		}
		src = arxiv.NewClient(acfg)
	default:
		return nil, nil, fmt.Errorf("unknown source: %s", cfg.Source.Type)
	}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder init: %w", err)
		}
		emb = client
	default:
		return nil, nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var idx domain.VectorIndex
	switch cfg.Index.Type {
	case "flat", "":
		idx = flat.New()
	case "qdrant":
		if cfg.Index.Qdrant == nil {
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		qidx, err := qdrant.New(cfg.Index.Qdrant.Host, cfg.Index.Qdrant.Port, cfg.Index.Qdrant.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("qdrant init: %w", err)
		}
		idx = qidx
	default:
		return nil, nil, fmt.Errorf("unknown index: %s", cfg.Index.Type)
	}

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "extractive", "":
		gen = extractive.NewGenerator(cfg.Generator.MaxSentences)
	case "openai":
		gcfg := genopenai.Config{}
		if cfg.Generator.OpenAI != nil {
			gcfg.BaseURL = cfg.Generator.OpenAI.BaseURL
			gcfg.APIKeyEnv = cfg.Generator.OpenAI.APIKeyEnv
			gcfg.Model = cfg.Generator.OpenAI.Model
		}
		g, err := genopenai.NewGenerator(gcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("openai generator init: %w", err)
		}
		gen = g
	default:
		return nil, nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}

	answerer := generator.NewAnswerer(gen, generator.Options{
		MaxInputTokens: cfg.Generator.MaxInputTokens,
		MaxNewTokens:   cfg.Generator.MaxNewTokens,
		Temperature:    cfg.Generator.Temperature,
		Sample:         cfg.Generator.Sample,
		KeepTail:       cfg.Generator.KeepTail,
	})

	ch := chunker.NewParagraphChunker(cfg.Chunker.WindowParagraphs, cfg.Chunker.MinWords)
	sum := summarizer.NewFrequencySummarizer()

	svc := service.New(src, ch, emb, idx, answerer, sum, cfg.Retrieval.MaxContextTokens)
	return svc, cfg, nil
}
