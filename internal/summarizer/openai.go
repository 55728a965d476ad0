package summarizer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const systemPrompt = `Summarize the given document excerpt.

Rules:
- Keep key facts, numbers, dates, names, and conclusions.
- Do not add information that is absent from the excerpt.
- Write plain sentences without lists or headings.
- Answer in the same language as the excerpt.`

// OpenAIClient calls OpenAI's chat completions API to produce summaries.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient builds a new client instance.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("API key is empty")
	}

	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Summarize produces a summary for one segment of a document. The request
// carries a fixed system instruction and a user message built from the
// caller's prompt and the segment text.
func (c *OpenAIClient) Summarize(ctx context.Context, input Input) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(input.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(input)),
		},
	}
	if input.MaxTokens > 0 {
		params.MaxTokens = openai.Int(input.MaxTokens)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	// A response without choices yields an empty summary, not an error.
	if len(completion.Choices) == 0 {
		return "", nil
	}

	return completion.Choices[0].Message.Content, nil
}

// ListModels returns the available model identifiers sorted ascending.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	var ids []string

	iter := c.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		ids = append(ids, iter.Current().ID)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}

	slices.Sort(ids)

	return ids, nil
}

func userPrompt(input Input) string {
	return input.Prompt + "\n" + input.Text
}
