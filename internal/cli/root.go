package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contextrag/config"
	"contextrag/internal/adapter/embedding"
	"contextrag/internal/adapter/llm"
	"contextrag/internal/adapter/store"
	"contextrag/internal/logger"
	"contextrag/internal/port"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contextrag",
	Short: "Contextual RAG pipeline with source attribution",
	Long: `contextrag ingests a directory of text documents as context-aware
sentence segments, retrieves the most relevant segments for a question,
and cites the source files that informed the generated answer.

Example usage:
  contextrag ingest                   # Index the configured documents directory
  contextrag query -q "solar panels"  # Inspect what retrieval returns
  contextrag ask -q "How do I charge the rover?" --stream`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log, err = logger.New(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

// newEmbedder creates the configured embedding provider.
func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAICompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newChatModel creates the configured generation model.
func newChatModel() (port.ChatModel, error) {
	return llm.NewOpenAIChat(cfg.Chat.APIKeyEnv, cfg.Chat.Model, cfg.Chat.BaseURL, log)
}

// openVectorStore opens the vector store under the root directory.
func openVectorStore(dimension int) (*store.BoltVectorStore, error) {
	if err := config.EnsureRAGDir(rootDir); err != nil {
		return nil, fmt.Errorf("failed to create .rag directory: %w", err)
	}
	return store.NewBoltVectorStore(config.VectorDBPath(rootDir), dimension)
}
