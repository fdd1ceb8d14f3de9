package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"contextrag/internal/adapter/cache"
	"contextrag/internal/domain"
	"contextrag/internal/port"
)

const compressPromptFormat = `Rewrite the following user query as a short, self-contained search query.
Remove filler words and keep only the terms needed to find relevant passages.
Output only the rewritten query, nothing else.

Query: %s`

// RetrieveUseCase finds the segments most relevant to a query and returns
// them with their extended contexts substituted in.
type RetrieveUseCase struct {
	chat       port.ChatModel // nil disables query compression
	embedder   port.Embedder
	store      port.VectorStore
	cache      *cache.QueryCache // nil disables caching
	maxResults int
	logger     *zap.Logger
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(
	chat port.ChatModel,
	embedder port.Embedder,
	store port.VectorStore,
	queryCache *cache.QueryCache,
	maxResults int,
	logger *zap.Logger,
) *RetrieveUseCase {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &RetrieveUseCase{
		chat:       chat,
		embedder:   embedder,
		store:      store,
		cache:      queryCache,
		maxResults: maxResults,
		logger:     logger,
	}
}

// Retrieve returns up to maxResults contents for the query, best match
// first. An empty store yields an empty result, not an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string) ([]domain.Content, error) {
	if u.cache != nil {
		if contents, ok := u.cache.Get(query, u.maxResults); ok {
			return contents, nil
		}
	}

	search := u.compressQuery(ctx, query)

	embedding, err := u.embedder.Embed(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := u.store.Query(embedding, u.maxResults)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	contents := make([]domain.Content, 0, len(matches))
	for _, match := range matches {
		contents = append(contents, substituteExtended(match))
	}

	if u.cache != nil {
		u.cache.Put(query, u.maxResults, contents)
	}

	return contents, nil
}

// InvalidateCache drops cached retrieval results. Called after ingestion.
func (u *RetrieveUseCase) InvalidateCache() {
	if u.cache != nil {
		u.cache.Invalidate()
	}
}

// compressQuery rewrites the raw query into a compact search query via the
// chat model. Any failure falls back to the raw query.
func (u *RetrieveUseCase) compressQuery(ctx context.Context, query string) string {
	if u.chat == nil {
		return query
	}

	rewritten, err := u.chat.Complete(ctx, fmt.Sprintf(compressPromptFormat, query))
	if err != nil {
		u.logger.Warn("query compression failed, using raw query", zap.Error(err))
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}

	u.logger.Debug("query compressed",
		zap.String("query", query),
		zap.String("compressed", rewritten),
	)
	return rewritten
}

// substituteExtended swaps the segment's displayed text for its stored
// extended context and strips the bookkeeping key from the outgoing
// metadata. A missing extended context keeps the original text.
func substituteExtended(match port.Match) domain.Content {
	segment := match.Segment

	metadata := make(map[string]string, len(segment.Metadata))
	for k, v := range segment.Metadata {
		if k != domain.ExtendedContentKey {
			metadata[k] = v
		}
	}

	text := segment.Text
	if extended, ok := segment.Metadata[domain.ExtendedContentKey]; ok && extended != "" {
		text = extended
	}

	return domain.Content{
		Text: text,
		Segment: domain.TextSegment{
			Text:     segment.Text,
			Metadata: metadata,
		},
		Score: match.Score,
	}
}
