package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"docdigest/internal/assembler"
	"docdigest/internal/domain"
	"docdigest/internal/progress"
	"docdigest/internal/segment"
	"docdigest/internal/summarizer"
	"docdigest/internal/tokens"
)

// Batch describes one pipeline invocation. StartedAt is captured once per
// invocation and shared by every document, so all artifacts of the batch
// land in run folders carrying the same timestamp.
type Batch struct {
	Documents     []domain.Document
	Keywords      []string
	Model         string
	Prompt        string
	IncludePrompt bool
	MaxTokens     int64
	StartedAt     time.Time
}

// Orchestrator drives each document of a batch through segmentation,
// sequential per-segment summarization, and artifact assembly, with one
// concurrent unit per document.
type Orchestrator struct {
	summarizer summarizer.Summarizer
	progress   *progress.Store
	counter    *tokens.Counter
	log        *slog.Logger
}

func New(
	s summarizer.Summarizer,
	store *progress.Store,
	counter *tokens.Counter,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		summarizer: s,
		progress:   store,
		counter:    counter,
		log:        log,
	}
}

// Run starts one unit per document immediately, with no in-flight bound or
// queuing, and returns after every unit has finished. Results are indexed in
// batch order. A failure in one document never affects another; the shared
// context only reaches the units through the summarization calls.
func (o *Orchestrator) Run(ctx context.Context, batch Batch) []domain.DocumentResult {
	if batch.StartedAt.IsZero() {
		batch.StartedAt = time.Now()
	}

	results := make([]domain.DocumentResult, len(batch.Documents))

	var wg sync.WaitGroup
	for i, doc := range batch.Documents {
		wg.Add(1)

		go func(i int, doc domain.Document) {
			defer wg.Done()

			results[i] = o.runDocument(ctx, batch, doc)
		}(i, doc)
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) runDocument(
	ctx context.Context,
	batch Batch,
	doc domain.Document,
) domain.DocumentResult {
	result := domain.DocumentResult{Key: doc.Key, Status: domain.StatusFailed}

	if strings.TrimSpace(doc.Text) == "" {
		result.Err = errors.New("document has no extractable text")
		o.log.WarnContext(ctx, "Skipping document without text",
			"documentKey", doc.Key,
			"path", doc.Path)

		return result
	}

	segments := segment.Split(doc.Text, batch.Keywords)
	result.SegmentCount = len(segments)

	if err := o.progress.Begin(doc.Key, len(segments)); err != nil {
		result.Err = fmt.Errorf("begin progress: %w", err)
		o.log.ErrorContext(ctx, "Failed to begin document progress",
			"error", err,
			"documentKey", doc.Key)

		return result
	}
	defer o.progress.End(doc.Key)

	fields := []any{
		"documentKey", doc.Key,
		"segmentCount", len(segments),
	}
	if o.counter != nil {
		fields = append(fields, "textTokens", o.counter.Count(doc.Text))
	}
	o.log.InfoContext(ctx, "Document is segmented", fields...)

	// Segments go out strictly in index order: summaries are concatenated in
	// order, so segment i+1 is never requested before segment i resolved.
	summaries := make([]string, 0, len(segments))
	for _, seg := range segments {
		summary, err := o.summarizer.Summarize(ctx, summarizer.Input{
			Text:      seg.Text,
			Prompt:    batch.Prompt,
			Model:     batch.Model,
			MaxTokens: batch.MaxTokens,
		})
		if err != nil {
			result.Err = fmt.Errorf("summarize segment %d of %d: %w",
				seg.Index, len(segments), err)
			o.log.ErrorContext(ctx, "Failed to summarize segment",
				"error", err,
				"documentKey", doc.Key,
				"segmentIndex", seg.Index,
				"segmentCount", len(segments))

			return result
		}

		summaries = append(summaries, summary)
		o.progress.MarkDone(doc.Key, seg.Index)
	}

	result.Summary = assembler.Join(batch.Prompt, batch.IncludePrompt, summaries)
	result.Status = domain.StatusSucceeded

	path, err := assembler.Persist(doc, batch.StartedAt, result.Summary)
	if err != nil {
		// The in-memory summary stays recorded; only the on-disk copy is
		// missing.
		result.PersistErr = err
		o.log.ErrorContext(ctx, "Failed to persist summary",
			"error", err,
			"documentKey", doc.Key,
			"path", doc.Path)

		return result
	}
	result.OutputPath = path

	o.log.InfoContext(ctx, "Document is summarized",
		"documentKey", doc.Key,
		"segmentCount", len(segments),
		"outputPath", path)

	return result
}
