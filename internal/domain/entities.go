package domain

// Metadata keys attached to documents and segments during ingestion.
const (
	// FileKey holds the name of the file a document was read from.
	FileKey = "file"
	// ExtendedContentKey holds the segment text joined with its
	// neighbouring segments, substituted in at retrieval time.
	ExtendedContentKey = "extended_content"
)

// Document is one text file read from the documents directory.
type Document struct {
	Text     string
	Metadata map[string]string
}

// TextSegment is the unit of embedding and retrieval: a bounded chunk of a
// document's text. Segments inherit their document's metadata.
type TextSegment struct {
	Text     string
	Metadata map[string]string
}

// Content is a retrieved segment as handed to the generation step. Text is
// the displayed text (the extended context when one was stored); Segment
// keeps the original short text so source attribution can embed it.
type Content struct {
	Text    string
	Segment TextSegment
	Score   float64
}
