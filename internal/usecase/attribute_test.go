package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"contextrag/internal/domain"
)

func sourceContent(segmentText, file string) domain.Content {
	return domain.Content{
		Text: segmentText,
		Segment: domain.TextSegment{
			Text:     segmentText,
			Metadata: map[string]string{domain.FileKey: file},
		},
	}
}

func TestAugmentCompleteAppendsSources(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"The sky is blue.": {1, 0},
			"sky segment":      {12, 5}, // cos 12/13, above threshold
			"grass segment":    {3, 4},  // cos 0.6, below threshold
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	contents := []domain.Content{
		sourceContent("sky segment", "weather.txt"),
		sourceContent("grass segment", "garden.txt"),
	}

	got, err := a.AugmentComplete(context.Background(), "The sky is blue.", contents)
	if err != nil {
		t.Fatal(err)
	}
	want := "The sky is blue. (Sources: weather.txt)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAugmentCompleteEmptyContentsUnchanged(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	got, err := a.AugmentComplete(context.Background(), "The sky is blue.", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "The sky is blue." {
		t.Errorf("expected unchanged response, got %q", got)
	}
	if len(embedder.embedded) != 0 {
		t.Errorf("expected no embedding calls, got %v", embedder.embedded)
	}
}

func TestAugmentCompleteBlankResponseUnchanged(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	got, err := a.AugmentComplete(context.Background(), "   ", []domain.Content{
		sourceContent("sky segment", "weather.txt"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "   " {
		t.Errorf("expected blank response unchanged, got %q", got)
	}
}

func TestAugmentCompleteThresholdIsStrict(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"response": {1, 0},
			"boundary": {4, 3}, // cos exactly 0.8
			"match":    {1, 0}, // cos exactly 1
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.8, zap.NewNop())

	contents := []domain.Content{
		sourceContent("boundary", "boundary.txt"),
		sourceContent("match", "match.txt"),
	}

	got, err := a.AugmentComplete(context.Background(), "response", contents)
	if err != nil {
		t.Fatal(err)
	}
	want := "response (Sources: match.txt)"
	if got != want {
		t.Errorf("source at exactly the threshold must be excluded: got %q", got)
	}
}

func TestAugmentCompleteNoQualifyingSources(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"response": {1, 0},
			"far":      {3, 4},
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	got, err := a.AugmentComplete(context.Background(), "response", []domain.Content{
		sourceContent("far", "far.txt"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "response" {
		t.Errorf("expected no suffix, got %q", got)
	}
}

func TestAugmentCompleteDeduplicatesFiles(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"response": {1, 0},
			"first":    {1, 0},
			"second":   {12, 5},
			"third":    {1, 0},
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	contents := []domain.Content{
		sourceContent("first", "a.txt"),
		sourceContent("second", "b.txt"),
		sourceContent("third", "a.txt"),
	}

	got, err := a.AugmentComplete(context.Background(), "response", contents)
	if err != nil {
		t.Fatal(err)
	}
	want := "response (Sources: a.txt, b.txt)"
	if got != want {
		t.Errorf("expected first-seen order without duplicates, got %q", got)
	}
}

func TestAugmentCompleteDimensionMismatch(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"response": {1, 0},
			"segment":  {1, 0, 0},
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	if _, err := a.AugmentComplete(context.Background(), "response", []domain.Content{
		sourceContent("segment", "a.txt"),
	}); err == nil {
		t.Fatal("expected error on embedding dimension mismatch")
	}
}

func TestAugmentCompleteIdempotent(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"response": {1, 0},
			"segment":  {1, 0},
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	contents := []domain.Content{sourceContent("segment", "a.txt")}

	first, err := a.AugmentComplete(context.Background(), "response", contents)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.AugmentComplete(context.Background(), "response", contents)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("results differ: %q vs %q", first, second)
	}
}

func collect(ch <-chan string) []string {
	var out []string
	for chunk := range ch {
		out = append(out, chunk)
	}
	return out
}

func TestAugmentStreamAppendsSuffix(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"The sky is blue.": {1, 0},
			"sky segment":      {1, 0},
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	in := make(chan string, 3)
	in <- "The "
	in <- "sky "
	in <- "is blue."
	close(in)

	got := collect(a.AugmentStream(context.Background(), in, []domain.Content{
		sourceContent("sky segment", "weather.txt"),
	}))

	want := []string{"The ", "sky ", "is blue.", " (Sources: weather.txt)"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %v", len(want), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("chunk %d: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestAugmentStreamNoSuffixWhenNoSourceQualifies(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"abc": {1, 0},
			"far": {3, 4},
		},
		dimension: 2,
	}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	in := make(chan string, 3)
	in <- "a"
	in <- "b"
	in <- "c"
	close(in)

	got := collect(a.AugmentStream(context.Background(), in, []domain.Content{
		sourceContent("far", "far.txt"),
	}))

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected only the forwarded chunks, got %v", got)
	}
}

func TestAugmentStreamEmptyContents(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	in := make(chan string, 2)
	in <- "hello "
	in <- "world"
	close(in)

	got := collect(a.AugmentStream(context.Background(), in, nil))

	if len(got) != 2 || got[0] != "hello " || got[1] != "world" {
		t.Errorf("expected chunks forwarded without a suffix, got %v", got)
	}
	if len(embedder.embedded) != 0 {
		t.Errorf("expected no embedding calls, got %v", embedder.embedded)
	}
}

func TestAugmentStreamEmbeddingFailureSuppressesSuffix(t *testing.T) {
	embedder := &fakeEmbedder{err: errFake, dimension: 2}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	in := make(chan string, 1)
	in <- "answer"
	close(in)

	got := collect(a.AugmentStream(context.Background(), in, []domain.Content{
		sourceContent("segment", "a.txt"),
	}))

	if len(got) != 1 || got[0] != "answer" {
		t.Errorf("expected the answer chunk only, got %v", got)
	}
}

func TestAugmentStreamCancellation(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0}, dimension: 2}
	a := NewSourceAttributor(embedder, 0.85, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan string, 1)
	in <- "partial"
	// in stays open: the upstream never completes.

	out := a.AugmentStream(ctx, in, []domain.Content{
		sourceContent("segment", "a.txt"),
	})

	if chunk := <-out; chunk != "partial" {
		t.Fatalf("expected the forwarded chunk, got %q", chunk)
	}

	cancel()

	if _, ok := <-out; ok {
		t.Error("expected output channel to close after cancellation")
	}
}
