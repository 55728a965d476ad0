package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	encodingName = "cl100k_base"

	estimateRunesPerToken = 4
)

// Counter reports token counts for log and cost accounting. A nil Counter
// is valid and falls back to a rune-based estimate, so callers can degrade
// when the encoding cannot be loaded.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

func NewCounter() (*Counter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("get encoding: %w", err)
	}

	return &Counter{encoding: encoding}, nil
}

func (c *Counter) Count(text string) int {
	if c == nil || c.encoding == nil {
		return Estimate(text)
	}

	return len(c.encoding.Encode(text, nil, nil))
}

// Estimate approximates the token count from the rune count alone.
func Estimate(text string) int {
	return len([]rune(text)) / estimateRunesPerToken
}
