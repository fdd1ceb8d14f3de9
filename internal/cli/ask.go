package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"contextrag/config"
	"contextrag/internal/adapter/cache"
	"contextrag/internal/usecase"
)

var (
	askText   string
	askStream bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question grounded in the ingested documents",
	Long: `Retrieve relevant context for the question, generate an answer with
the chat model and append citations for the source files that informed it.

Examples:
  contextrag ask -q "How long does a full charge take?"
  contextrag ask -q "How long does a full charge take?" --stream`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as it is generated")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	dbPath := config.VectorDBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no vector store found. Run 'contextrag ingest' first")
	}

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	chat, err := newChatModel()
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	st, err := openVectorStore(embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer st.Close()

	var compressor = chat
	if !cfg.Retrieve.CompressQuery {
		compressor = nil
	}

	retrieveUC := usecase.NewRetrieveUseCase(
		compressor,
		embedder,
		st,
		cache.NewQueryCache(cfg.Retrieve.CacheSize, 5*time.Minute),
		cfg.Retrieve.MaxResults,
		log,
	)
	attributor := usecase.NewSourceAttributor(embedder, cfg.Attribution.SimilarityThreshold, log)
	pipeline := usecase.NewPipeline(nil, retrieveUC, attributor, chat, "")

	ctx := cmd.Context()

	if askStream {
		stream, err := pipeline.AnswerStream(ctx, askText)
		if err != nil {
			return err
		}
		for chunk := range stream {
			fmt.Print(chunk)
		}
		fmt.Println()
		return nil
	}

	answer, err := pipeline.Answer(ctx, askText)
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
