package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"contextrag/internal/adapter/cache"
	"contextrag/internal/domain"
	"contextrag/internal/port"
)

func match(text, extended, file string, score float64) port.Match {
	metadata := map[string]string{domain.FileKey: file}
	if extended != "" {
		metadata[domain.ExtendedContentKey] = extended
	}
	return port.Match{
		Segment: domain.TextSegment{Text: text, Metadata: metadata},
		Score:   score,
	}
}

func TestRetrieveSubstitutesExtendedContent(t *testing.T) {
	st := &fakeStore{matches: []port.Match{
		match("short segment", "short segment with neighbours", "a.txt", 0.9),
	}}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, nil, 3, zap.NewNop())

	contents, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}

	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	if contents[0].Text != "short segment with neighbours" {
		t.Errorf("expected extended text, got %q", contents[0].Text)
	}
	if contents[0].Segment.Text != "short segment" {
		t.Errorf("original segment text lost: %q", contents[0].Segment.Text)
	}
	if _, ok := contents[0].Segment.Metadata[domain.ExtendedContentKey]; ok {
		t.Error("extended content key leaked into outgoing metadata")
	}
	if contents[0].Segment.Metadata[domain.FileKey] != "a.txt" {
		t.Error("file metadata lost")
	}
}

func TestRetrieveMissingExtendedContentKeepsOriginal(t *testing.T) {
	st := &fakeStore{matches: []port.Match{
		match("no extension here", "", "a.txt", 0.9),
	}}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, nil, 3, zap.NewNop())

	contents, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if contents[0].Text != "no extension here" {
		t.Errorf("expected original text fallback, got %q", contents[0].Text)
	}
}

func TestRetrievePreservesRankOrder(t *testing.T) {
	st := &fakeStore{matches: []port.Match{
		match("first", "first extended", "a.txt", 0.9),
		match("second", "second extended", "b.txt", 0.8),
		match("third", "third extended", "c.txt", 0.7),
	}}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, nil, 3, zap.NewNop())

	contents, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"first extended", "second extended", "third extended"}
	for i, w := range want {
		if contents[i].Text != w {
			t.Errorf("content %d: expected %q, got %q", i, w, contents[i].Text)
		}
	}
}

func TestRetrieveCapsResults(t *testing.T) {
	st := &fakeStore{matches: []port.Match{
		match("first", "", "a.txt", 0.9),
		match("second", "", "b.txt", 0.8),
		match("third", "", "c.txt", 0.7),
		match("fourth", "", "d.txt", 0.6),
	}}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, nil, 2, zap.NewNop())

	contents, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 2 {
		t.Errorf("expected 2 contents, got %d", len(contents))
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	st := &fakeStore{}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, nil, 3, zap.NewNop())

	contents, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 0 {
		t.Errorf("expected no contents from empty store, got %d", len(contents))
	}
}

func TestRetrieveCompressesQuery(t *testing.T) {
	st := &fakeStore{}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	chat := &fakeChat{response: "compressed query"}

	uc := NewRetrieveUseCase(chat, embedder, st, nil, 3, zap.NewNop())

	if _, err := uc.Retrieve(context.Background(), "please could you tell me about the compressed query"); err != nil {
		t.Fatal(err)
	}

	if len(embedder.embedded) != 1 || embedder.embedded[0] != "compressed query" {
		t.Errorf("expected the compressed query to be embedded, got %v", embedder.embedded)
	}
}

func TestRetrieveCompressionFallsBackOnError(t *testing.T) {
	st := &fakeStore{}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	chat := &fakeChat{err: errFake}

	uc := NewRetrieveUseCase(chat, embedder, st, nil, 3, zap.NewNop())

	if _, err := uc.Retrieve(context.Background(), "raw query"); err != nil {
		t.Fatal(err)
	}

	if len(embedder.embedded) != 1 || embedder.embedded[0] != "raw query" {
		t.Errorf("expected raw query fallback, got %v", embedder.embedded)
	}
}

func TestRetrieveCompressionFallsBackOnBlank(t *testing.T) {
	st := &fakeStore{}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	chat := &fakeChat{response: "  \n"}

	uc := NewRetrieveUseCase(chat, embedder, st, nil, 3, zap.NewNop())

	if _, err := uc.Retrieve(context.Background(), "raw query"); err != nil {
		t.Fatal(err)
	}

	if len(embedder.embedded) != 1 || embedder.embedded[0] != "raw query" {
		t.Errorf("expected raw query fallback, got %v", embedder.embedded)
	}
}

func TestRetrieveUsesCache(t *testing.T) {
	st := &fakeStore{matches: []port.Match{
		match("cached", "cached extended", "a.txt", 0.9),
	}}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, cache.NewQueryCache(10, time.Minute), 3, zap.NewNop())

	if _, err := uc.Retrieve(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}
	if _, err := uc.Retrieve(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}
	if st.queries != 1 {
		t.Errorf("expected 1 store query with cache, got %d", st.queries)
	}

	uc.InvalidateCache()
	if _, err := uc.Retrieve(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}
	if st.queries != 2 {
		t.Errorf("expected store re-queried after invalidation, got %d queries", st.queries)
	}
}

func TestRetrieveDeterministicForFixedInputs(t *testing.T) {
	st := &fakeStore{matches: []port.Match{
		match("first", "first extended", "a.txt", 0.9),
		match("second", "second extended", "b.txt", 0.8),
	}}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}

	uc := NewRetrieveUseCase(nil, embedder, st, nil, 3, zap.NewNop())

	a, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}
	b, err := uc.Retrieve(context.Background(), "question")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != len(b) {
		t.Fatalf("result lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text || a[i].Score != b[i].Score {
			t.Errorf("result %d differs between calls", i)
		}
	}
}
