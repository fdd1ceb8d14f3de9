package usecase

import (
	"context"
	"fmt"

	"contextrag/internal/domain"
	"contextrag/internal/port"
)

// fakeEmbedder returns preset vectors per text; texts without a preset get
// the fallback vector.
type fakeEmbedder struct {
	vectors   map[string][]float32
	fallback  []float32
	dimension int
	embedded  []string // texts passed to Embed, in call order
	err       error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.embedded = append(e.embedded, text)
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.fallback, nil
}

func (e *fakeEmbedder) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimension() int { return e.dimension }

func (e *fakeEmbedder) ModelName() string { return "fake" }

// fakeStore returns canned matches and counts queries.
type fakeStore struct {
	matches []port.Match
	queries int
}

func (s *fakeStore) Clear() error { return nil }

func (s *fakeStore) AddAll(embeddings [][]float32, segments []domain.TextSegment) error {
	return nil
}

func (s *fakeStore) Query(embedding []float32, limit int) ([]port.Match, error) {
	s.queries++
	if limit > len(s.matches) {
		limit = len(s.matches)
	}
	return s.matches[:limit], nil
}

func (s *fakeStore) Count() (int, error) { return len(s.matches), nil }

// fakeChat replies with a fixed response, or fails.
type fakeChat struct {
	response string
	err      error
}

func (c *fakeChat) Complete(ctx context.Context, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func (c *fakeChat) CompleteStream(ctx context.Context, prompt string) (<-chan string, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(chan string, 1)
	out <- c.response
	close(out)
	return out, nil
}

func (c *fakeChat) ModelName() string { return "fake-chat" }

var errFake = fmt.Errorf("fake failure")
