package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contextrag/config"
	"contextrag/internal/domain"
	"contextrag/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Inspect what retrieval returns for a query",
	Long: `Search the vector store and print the contents that would be handed
to the generation model, with extended contexts substituted in.

Examples:
  contextrag query -q "battery capacity"
  contextrag query -q "battery capacity" --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

// queryResult is a simplified content for CLI output.
type queryResult struct {
	File  string  `json:"file"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	dbPath := config.VectorDBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no vector store found. Run 'contextrag ingest' first")
	}

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	st, err := openVectorStore(embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer st.Close()

	topK := cfg.Retrieve.MaxResults
	if queryTopK > 0 {
		topK = queryTopK
	}

	// No query compression here: this command shows raw retrieval.
	retrieveUC := usecase.NewRetrieveUseCase(nil, embedder, st, nil, topK, log)

	contents, err := retrieveUC.Retrieve(cmd.Context(), queryText)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		results := make([]queryResult, len(contents))
		for i, content := range contents {
			results[i] = queryResult{
				File:  content.Segment.Metadata[domain.FileKey],
				Score: content.Score,
				Text:  content.Text,
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(contents) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, content := range contents {
		fmt.Printf("%d. %s (score %.4f)\n", i+1, content.Segment.Metadata[domain.FileKey], content.Score)
		fmt.Printf("   %s\n\n", content.Text)
	}

	return nil
}
