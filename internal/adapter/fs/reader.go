package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"contextrag/internal/domain"
)

// Reader reads a directory of plain-text files into documents. Only files
// directly under the directory are read; subdirectories are skipped.
type Reader struct {
	includes []string
	excludes []string
}

// NewReader creates a reader with include/exclude glob patterns matched
// against bare file names.
func NewReader(includes, excludes []string) *Reader {
	if len(includes) == 0 {
		includes = []string{"*"}
	}
	return &Reader{
		includes: includes,
		excludes: excludes,
	}
}

// ReadDocuments reads every matching file under dir as one document each,
// tagging metadata "file" with the file name. Entries come back in
// directory order (lexicographic), so repeated runs over the same corpus
// produce the same document sequence. Any read error is fatal.
func (r *Reader) ReadDocuments(dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory: %w", err)
	}

	var docs []domain.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !r.shouldInclude(name) || r.shouldExclude(name) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", name, err)
		}

		docs = append(docs, domain.Document{
			Text: string(data),
			Metadata: map[string]string{
				domain.FileKey: name,
			},
		})
	}

	return docs, nil
}

func (r *Reader) shouldInclude(name string) bool {
	for _, pattern := range r.includes {
		matched, err := doublestar.Match(pattern, name)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (r *Reader) shouldExclude(name string) bool {
	for _, pattern := range r.excludes {
		matched, err := doublestar.Match(pattern, name)
		if err == nil && matched {
			return true
		}
	}
	return false
}
