package port

import "context"

// ChatModel represents a language model for text generation.
type ChatModel interface {
	// Complete generates text based on the prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteStream generates text and delivers it as an ordered
	// sequence of chunks. The channel is closed when generation
	// finishes or fails; a failure mid-stream simply ends the stream.
	CompleteStream(ctx context.Context, prompt string) (<-chan string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
