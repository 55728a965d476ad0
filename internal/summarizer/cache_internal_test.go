package summarizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubSummarizer struct {
	mu      sync.Mutex
	calls   int
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(
	_ context.Context,
	_ Input,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	return s.summary, s.err
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func TestCachedSummarizerMemoizesRepeatInputs(t *testing.T) {
	stub := &stubSummarizer{summary: "cached summary"}
	cached := NewCachedSummarizer(stub)

	input := Input{Text: "Segment text", Prompt: "Condense", Model: "m", MaxTokens: 200}
	ctx := context.Background()

	first, err := cached.Summarize(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := cached.Summarize(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != "cached summary" || second != "cached summary" {
		t.Fatalf("unexpected summaries: %q, %q", first, second)
	}

	if got := stub.callCount(); got != 1 {
		t.Fatalf("expected inner summarizer to be called once, got %d", got)
	}
}

func TestCachedSummarizerDistinguishesInputs(t *testing.T) {
	stub := &stubSummarizer{summary: "summary"}
	cached := NewCachedSummarizer(stub)

	ctx := context.Background()
	base := Input{Text: "Segment text", Prompt: "Condense", Model: "m", MaxTokens: 200}

	variants := []Input{
		base,
		{Text: "Other text", Prompt: base.Prompt, Model: base.Model, MaxTokens: base.MaxTokens},
		{Text: base.Text, Prompt: "Other prompt", Model: base.Model, MaxTokens: base.MaxTokens},
		{Text: base.Text, Prompt: base.Prompt, Model: "other", MaxTokens: base.MaxTokens},
		{Text: base.Text, Prompt: base.Prompt, Model: base.Model, MaxTokens: 100},
	}

	for _, input := range variants {
		if _, err := cached.Summarize(ctx, input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := stub.callCount(); got != len(variants) {
		t.Fatalf("expected %d inner calls, got %d", len(variants), got)
	}
}

func TestCachedSummarizerExpiresEntries(t *testing.T) {
	stub := &stubSummarizer{summary: "summary"}
	cached := NewCachedSummarizer(stub)

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cached.now = func() time.Time { return now }

	input := Input{Text: "Segment text", Model: "m"}
	ctx := context.Background()

	if _, err := cached.Summarize(ctx, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(cacheTTL + time.Minute)

	if _, err := cached.Summarize(ctx, input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := stub.callCount(); got != 2 {
		t.Fatalf("expected expired entry to be refreshed, got %d calls", got)
	}
}

func TestCachedSummarizerEvictsLeastRecentlyUsed(t *testing.T) {
	stub := &stubSummarizer{summary: "summary"}
	cached := NewCachedSummarizer(stub)
	cached.maxEntries = 2

	ctx := context.Background()
	a := Input{Text: "text a", Model: "m"}
	b := Input{Text: "text b", Model: "m"}
	c := Input{Text: "text c", Model: "m"}

	for _, input := range []Input{a, b, a, c} {
		if _, err := cached.Summarize(ctx, input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := stub.callCount(); got != 3 {
		t.Fatalf("expected 3 inner calls before eviction check, got %d", got)
	}

	// a was touched after b, so adding c must have evicted b.
	if _, err := cached.Summarize(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stub.callCount(); got != 3 {
		t.Fatalf("expected a to remain cached, got %d calls", got)
	}

	if _, err := cached.Summarize(ctx, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stub.callCount(); got != 4 {
		t.Fatalf("expected b to be evicted, got %d calls", got)
	}
}

func TestCachedSummarizerSkipsWhitespaceText(t *testing.T) {
	stub := &stubSummarizer{summary: "summary"}
	cached := NewCachedSummarizer(stub)

	input := Input{Text: "   \n", Model: "m"}
	ctx := context.Background()

	for range 2 {
		if _, err := cached.Summarize(ctx, input); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := stub.callCount(); got != 2 {
		t.Fatalf("expected whitespace-only input to bypass the cache, got %d calls", got)
	}
}

func TestCachedSummarizerDoesNotCacheFailures(t *testing.T) {
	stub := &stubSummarizer{err: errors.New("service unavailable")}
	cached := NewCachedSummarizer(stub)

	input := Input{Text: "Segment text", Model: "m"}
	ctx := context.Background()

	for range 2 {
		if _, err := cached.Summarize(ctx, input); err == nil {
			t.Fatalf("expected error from inner summarizer")
		}
	}

	if got := stub.callCount(); got != 2 {
		t.Fatalf("expected failures to bypass the cache, got %d calls", got)
	}
}

func TestCachedSummarizerDoesNotCacheEmptySummaries(t *testing.T) {
	stub := &stubSummarizer{summary: ""}
	cached := NewCachedSummarizer(stub)

	input := Input{Text: "Segment text", Model: "m"}
	ctx := context.Background()

	for range 2 {
		summary, err := cached.Summarize(ctx, input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary != "" {
			t.Fatalf("unexpected summary: %q", summary)
		}
	}

	if got := stub.callCount(); got != 2 {
		t.Fatalf("expected empty summaries to stay uncached, got %d calls", got)
	}
}
