package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"contextrag/internal/domain"
	"contextrag/internal/port"
)

// SourceAttributor appends a citation suffix to generated responses,
// naming the files whose original segment text is semantically close to
// the response. One instance serves both buffered and streamed responses;
// the caller picks the operation matching its execution mode.
type SourceAttributor struct {
	embedder  port.Embedder
	threshold float64 // sources must score strictly above this
	logger    *zap.Logger
}

// NewSourceAttributor creates an attributor with the given similarity
// threshold.
func NewSourceAttributor(embedder port.Embedder, threshold float64, logger *zap.Logger) *SourceAttributor {
	return &SourceAttributor{
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

// AugmentComplete appends the citation suffix to a fully-buffered
// response. An empty retrieval set returns the response unchanged.
func (a *SourceAttributor) AugmentComplete(ctx context.Context, response string, contents []domain.Content) (string, error) {
	if len(contents) == 0 {
		return response, nil
	}

	suffix, err := a.citationSuffix(ctx, response, contents)
	if err != nil {
		return "", err
	}

	return response + suffix, nil
}

// AugmentStream forwards every chunk from in unchanged and without delay,
// then emits the citation suffix as one final chunk computed over the
// fully-assembled response. Cancelling ctx before the upstream completes
// ends the output with no citation chunk. Attribution failures during the
// final computation are logged and suppress the suffix.
func (a *SourceAttributor) AugmentStream(ctx context.Context, in <-chan string, contents []domain.Content) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		var full strings.Builder
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-in:
				if !ok {
					if ctx.Err() != nil {
						return
					}
					suffix, err := a.citationSuffix(ctx, full.String(), contents)
					if err != nil {
						a.logger.Warn("source attribution failed", zap.Error(err))
						return
					}
					if suffix == "" {
						return
					}
					select {
					case out <- suffix:
					case <-ctx.Done():
					}
					return
				}

				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
				full.WriteString(chunk)
			}
		}
	}()

	return out
}

// citationSuffix returns ` (Sources: f1, f2)` for the qualifying sources,
// or "" when none qualify.
func (a *SourceAttributor) citationSuffix(ctx context.Context, response string, contents []domain.Content) (string, error) {
	files, err := a.sources(ctx, response, contents)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}
	return " (Sources: " + strings.Join(files, ", ") + ")", nil
}

// sources returns the file names of contents whose original segment text
// scores strictly above the threshold against the response, de-duplicated
// in first-seen order.
func (a *SourceAttributor) sources(ctx context.Context, response string, contents []domain.Content) ([]string, error) {
	if strings.TrimSpace(response) == "" || len(contents) == 0 {
		return nil, nil
	}

	responseEmbedding, err := a.embedder.Embed(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("failed to embed response: %w", err)
	}

	var files []string
	seen := make(map[string]struct{})

	for _, content := range contents {
		// Score against the original segment text, not the extended
		// context handed to generation.
		sourceEmbedding, err := a.embedder.Embed(ctx, content.Segment.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed source: %w", err)
		}

		similarity, err := domain.CosineSimilarity(responseEmbedding, sourceEmbedding)
		if err != nil {
			return nil, err
		}

		file := content.Segment.Metadata[domain.FileKey]
		if similarity > a.threshold {
			a.logger.Debug("source accepted",
				zap.Float64("similarity", similarity),
				zap.String("file", file),
			)
			if _, ok := seen[file]; !ok {
				seen[file] = struct{}{}
				files = append(files, file)
			}
		} else {
			a.logger.Debug("similarity below threshold",
				zap.Float64("similarity", similarity),
				zap.String("file", file),
			)
		}
	}

	return files, nil
}
