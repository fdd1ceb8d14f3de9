package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"contextrag/internal/adapter/fs"
	"contextrag/internal/adapter/segmenter"
	"contextrag/internal/domain"
	"contextrag/internal/port"
)

// ContextWindow configures how many neighbouring segments are joined into
// each segment's extended context.
type ContextWindow struct {
	Before int
	After  int
	// PerDocument clips windows at document boundaries instead of
	// letting them span adjacent documents in the ingestion batch.
	PerDocument bool
}

// IngestUseCase reads documents, splits them into sentence segments,
// computes extended contexts, embeds the segments and repopulates the
// vector store. Prior store contents are destroyed on every run.
type IngestUseCase struct {
	reader    *fs.Reader
	segmenter *segmenter.SentenceSegmenter
	embedder  port.Embedder
	store     port.VectorStore
	window    ContextWindow
	batchSize int
	logger    *zap.Logger
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	reader *fs.Reader,
	seg *segmenter.SentenceSegmenter,
	embedder port.Embedder,
	store port.VectorStore,
	window ContextWindow,
	batchSize int,
	logger *zap.Logger,
) *IngestUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IngestUseCase{
		reader:    reader,
		segmenter: seg,
		embedder:  embedder,
		store:     store,
		window:    window,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IngestResult contains the results of an ingestion run.
type IngestResult struct {
	Documents int
	Segments  int
}

// ProgressFunc reports embedding progress to the caller.
type ProgressFunc func(processed, total int)

// Ingest runs the full pipeline against documentsPath. Any I/O error is
// fatal; the store has already been cleared by then, so the caller must
// not assume a usable store after a failure.
func (u *IngestUseCase) Ingest(ctx context.Context, documentsPath string, progress ProgressFunc) (*IngestResult, error) {
	// Full reindex semantics: the store always starts empty.
	if err := u.store.Clear(); err != nil {
		return nil, fmt.Errorf("failed to clear store: %w", err)
	}

	docs, err := u.reader.ReadDocuments(documentsPath)
	if err != nil {
		return nil, err
	}

	// Flatten all segments from all documents into one batch-scoped
	// sequence; context windows are computed over these indices.
	var segments []domain.TextSegment
	for _, doc := range docs {
		segs, err := u.segmenter.Segment(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to segment %s: %w", doc.Metadata[domain.FileKey], err)
		}
		segments = append(segments, segs...)
	}

	extendContexts(segments, u.window)

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	for i := 0; i < len(texts); i += u.batchSize {
		end := i + u.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := u.embedder.EmbedAll(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}

		if err := u.store.AddAll(embeddings, segments[i:end]); err != nil {
			return nil, fmt.Errorf("failed to store segments: %w", err)
		}

		if progress != nil {
			progress(end, len(texts))
		}
	}

	u.logger.Info("documents ingested",
		zap.Int("documents", len(docs)),
		zap.Int("segments", len(segments)),
	)

	return &IngestResult{
		Documents: len(docs),
		Segments:  len(segments),
	}, nil
}

// extendContexts writes each segment's extended context into its metadata:
// the space-joined texts of the segments at indices [i-before, i+after],
// clipped to the valid range. With PerDocument set, the range is further
// clipped to the contiguous run of segments from the same file.
func extendContexts(segments []domain.TextSegment, window ContextWindow) {
	for i := range segments {
		lo := i - window.Before
		hi := i + window.After
		if lo < 0 {
			lo = 0
		}
		if hi > len(segments)-1 {
			hi = len(segments) - 1
		}

		if window.PerDocument {
			file := segments[i].Metadata[domain.FileKey]
			for lo < i && segments[lo].Metadata[domain.FileKey] != file {
				lo++
			}
			for hi > i && segments[hi].Metadata[domain.FileKey] != file {
				hi--
			}
		}

		texts := make([]string, 0, hi-lo+1)
		for j := lo; j <= hi; j++ {
			texts = append(texts, segments[j].Text)
		}
		segments[i].Metadata[domain.ExtendedContentKey] = strings.Join(texts, " ")
	}
}
