package usecase

import (
	"context"
	"fmt"
	"strings"

	"contextrag/internal/domain"
	"contextrag/internal/port"
)

const answerPromptFormat = `Answer the question using only the provided context.
If the context does not contain the answer, say so.

Context:
%s

Question: %s

Answer:`

const answerPromptNoContextFormat = `Answer the following question.

Question: %s

Answer:`

// Pipeline composes ingestion, retrieval, generation and source
// attribution into one query-answering unit. The owning process calls
// Initialize once before serving queries; ingestion is a destructive
// maintenance operation and must not run concurrently with queries.
type Pipeline struct {
	ingest        *IngestUseCase
	retrieve      *RetrieveUseCase
	attributor    *SourceAttributor
	chat          port.ChatModel
	documentsPath string
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(
	ingest *IngestUseCase,
	retrieve *RetrieveUseCase,
	attributor *SourceAttributor,
	chat port.ChatModel,
	documentsPath string,
) *Pipeline {
	return &Pipeline{
		ingest:        ingest,
		retrieve:      retrieve,
		attributor:    attributor,
		chat:          chat,
		documentsPath: documentsPath,
	}
}

// Initialize runs ingestion, replacing any prior store contents, and
// invalidates cached retrieval results.
func (p *Pipeline) Initialize(ctx context.Context, progress ProgressFunc) (*IngestResult, error) {
	result, err := p.ingest.Ingest(ctx, p.documentsPath, progress)
	if err != nil {
		return nil, err
	}
	p.retrieve.InvalidateCache()
	return result, nil
}

// Answer retrieves context for the question, generates a buffered response
// and appends source citations.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	contents, err := p.retrieve.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}

	response, err := p.chat.Complete(ctx, buildPrompt(question, contents))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return p.attributor.AugmentComplete(ctx, response, contents)
}

// AnswerStream is the streaming variant of Answer: response chunks are
// forwarded as they arrive, followed by one citation chunk.
func (p *Pipeline) AnswerStream(ctx context.Context, question string) (<-chan string, error) {
	contents, err := p.retrieve.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	stream, err := p.chat.CompleteStream(ctx, buildPrompt(question, contents))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return p.attributor.AugmentStream(ctx, stream, contents), nil
}

// buildPrompt grounds the question in the retrieved contents. With no
// retrieved context, generation proceeds on the question alone.
func buildPrompt(question string, contents []domain.Content) string {
	if len(contents) == 0 {
		return fmt.Sprintf(answerPromptNoContextFormat, question)
	}

	texts := make([]string, len(contents))
	for i, content := range contents {
		texts[i] = content.Text
	}

	return fmt.Sprintf(answerPromptFormat, strings.Join(texts, "\n\n"), question)
}
