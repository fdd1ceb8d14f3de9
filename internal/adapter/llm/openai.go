package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIChat generates text via an OpenAI-compatible chat completion API.
type OpenAIChat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIChat creates a chat model, reading the API key from the given
// environment variable. An empty baseURL uses the OpenAI default.
func NewOpenAIChat(apiKeyEnv, model, baseURL string, logger *zap.Logger) (*OpenAIChat, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIChat{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Complete generates text based on the prompt.
func (c *OpenAIChat) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream generates text as an ordered sequence of chunks. The
// returned channel is closed when the stream finishes; a failure
// mid-stream is logged and ends the stream early.
func (c *OpenAIChat) CompleteStream(ctx context.Context, prompt string) (<-chan string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				c.logger.Warn("chat stream ended early", zap.Error(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// ModelName returns the name of the model.
func (c *OpenAIChat) ModelName() string {
	return c.model
}
