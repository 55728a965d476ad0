package summarizer

import "context"

// Input describes the payload for a summary request.
type Input struct {
	// Text contains the plain text to summarise.
	Text string
	// Prompt is the caller-supplied instruction prefixed to the text in the
	// user message.
	Prompt string
	// Model is the identifier of the model that answers the request.
	Model string
	// MaxTokens caps the length of the generated summary.
	MaxTokens int64
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// ModelLister reports the model identifiers the service offers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
