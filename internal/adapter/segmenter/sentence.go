package segmenter

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"contextrag/internal/domain"
)

// SentenceSegmenter splits documents into segments built from whole
// sentences. A segment never exceeds maxSegmentSize characters; when a
// sentence would overflow the current segment, the segment is closed and
// the next one is seeded with up to maxOverlap trailing characters of the
// previous segment for continuity.
type SentenceSegmenter struct {
	maxSegmentSize int
	maxOverlap     int
	tokenizer      *sentences.DefaultSentenceTokenizer
}

// NewSentenceSegmenter creates a segmenter with the given size limits.
func NewSentenceSegmenter(maxSegmentSize, maxOverlap int) (*SentenceSegmenter, error) {
	if maxSegmentSize <= 0 {
		return nil, fmt.Errorf("max segment size must be positive, got %d", maxSegmentSize)
	}
	if maxOverlap < 0 || maxOverlap >= maxSegmentSize {
		return nil, fmt.Errorf("max overlap must be in [0, %d), got %d", maxSegmentSize, maxOverlap)
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence tokenizer: %w", err)
	}

	return &SentenceSegmenter{
		maxSegmentSize: maxSegmentSize,
		maxOverlap:     maxOverlap,
		tokenizer:      tokenizer,
	}, nil
}

// Segment splits a document into ordered sentence-level segments. Each
// segment inherits a copy of the document's metadata. A blank document
// yields no segments.
func (s *SentenceSegmenter) Segment(doc domain.Document) ([]domain.TextSegment, error) {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil, nil
	}

	var parts []string
	for _, sentence := range s.tokenizer.Tokenize(text) {
		t := strings.TrimSpace(sentence.Text)
		if t == "" {
			continue
		}
		// A single sentence longer than the limit is split on word
		// boundaries so the size bound always holds.
		parts = append(parts, splitOversized(t, s.maxSegmentSize)...)
	}

	var segments []domain.TextSegment
	var current strings.Builder

	for _, part := range parts {
		if current.Len() == 0 {
			current.WriteString(part)
			continue
		}

		if current.Len()+1+len(part) <= s.maxSegmentSize {
			current.WriteString(" ")
			current.WriteString(part)
			continue
		}

		closed := current.String()
		segments = append(segments, newSegment(closed, doc))
		current.Reset()

		if seed := overlapSeed(closed, s.maxOverlap); seed != "" && len(seed)+1+len(part) <= s.maxSegmentSize {
			current.WriteString(seed)
			current.WriteString(" ")
		}
		current.WriteString(part)
	}

	if current.Len() > 0 {
		segments = append(segments, newSegment(current.String(), doc))
	}

	return segments, nil
}

// MaxSegmentSize returns the configured segment size limit.
func (s *SentenceSegmenter) MaxSegmentSize() int {
	return s.maxSegmentSize
}

func newSegment(text string, doc domain.Document) domain.TextSegment {
	metadata := make(map[string]string, len(doc.Metadata))
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	return domain.TextSegment{Text: text, Metadata: metadata}
}

// splitOversized splits a sentence longer than max into word-boundary
// pieces no longer than max. Words longer than max are hard-cut.
func splitOversized(sentence string, max int) []string {
	if len(sentence) <= max {
		return []string{sentence}
	}

	var pieces []string
	var current strings.Builder

	for _, word := range strings.Fields(sentence) {
		for len(word) > max {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			pieces = append(pieces, word[:max])
			word = word[max:]
		}
		if word == "" {
			continue
		}

		if current.Len() == 0 {
			current.WriteString(word)
		} else if current.Len()+1+len(word) <= max {
			current.WriteString(" ")
			current.WriteString(word)
		} else {
			pieces = append(pieces, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}

	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	return pieces
}

// overlapSeed returns the trailing portion of text, at most max characters,
// cut at a word boundary. Returns "" when no word boundary falls inside
// the window.
func overlapSeed(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(text) <= max {
		return text
	}

	window := text[len(text)-max:]
	idx := strings.IndexByte(window, ' ')
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(window[idx+1:])
}
