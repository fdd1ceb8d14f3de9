package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"contextrag/config"
	"contextrag/internal/adapter/fs"
	"contextrag/internal/adapter/segmenter"
	"contextrag/internal/usecase"
)

var ingestPath string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents into the vector store",
	Long: `Read every file directly under the documents directory, split each
into sentence segments with extended context windows, embed the segments
and repopulate the vector store. Prior store contents are replaced.

Examples:
  contextrag ingest
  contextrag ingest --documents ./corpus`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestPath, "documents", "", "documents directory (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := cfg.Ingest.DocumentsPath
	if ingestPath != "" {
		path = ingestPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("documents path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("documents path is not a directory: %s", path)
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

	seg, err := segmenter.NewSentenceSegmenter(cfg.Ingest.MaxSegmentSize, cfg.Ingest.MaxOverlap)
	if err != nil {
		return fmt.Errorf("failed to create segmenter: %w", err)
	}

	reader := fs.NewReader(cfg.Ingest.Includes, cfg.Ingest.Excludes)

	ingestUC := usecase.NewIngestUseCase(
		reader,
		seg,
		embedder,
		st,
		usecase.ContextWindow{
			Before:      cfg.Ingest.ContextBefore,
			After:       cfg.Ingest.ContextAfter,
			PerDocument: cfg.Ingest.PerDocumentContext,
		},
		cfg.Ingest.BatchSize,
		log,
	)

	fmt.Printf("Ingesting %s...\n", path)

	var bar *progressbar.ProgressBar
	progress := func(processed, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(processed)
	}

	result, err := ingestUC.Ingest(cmd.Context(), path, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Documents: %d\n", result.Documents)
	fmt.Printf("  Segments:  %d\n", result.Segments)
	fmt.Printf("\nVector store at: %s\n", config.VectorDBPath(rootDir))

	return nil
}
