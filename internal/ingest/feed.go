package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"docdigest/internal/domain"

	"github.com/mmcdole/gofeed"
)

// FeedSource turns the recent items of RSS and Atom feeds into documents.
type FeedSource struct {
	urls   []string
	outDir string
	parser *gofeed.Parser
	log    *slog.Logger
}

func NewFeedSource(urls []string, outDir string, log *slog.Logger) *FeedSource {
	return &FeedSource{
		urls:   urls,
		outDir: outDir,
		parser: gofeed.NewParser(),
		log:    log,
	}
}

func (s *FeedSource) Load(ctx context.Context) ([]domain.Document, error) {
	var documents []domain.Document
	var errs []error

	taken := make(map[string]struct{})

	for _, feedURL := range s.urls {
		feedURL = strings.TrimSpace(feedURL)
		if feedURL == "" {
			continue
		}

		parsed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err))
			continue
		}

		for itemIndex, item := range parsed.Items {
			doc, ok := s.feedItemDocument(ctx, feedURL, itemIndex, item, taken)
			if !ok {
				continue
			}

			documents = append(documents, doc)
		}
	}

	return documents, errors.Join(errs...)
}

func (s *FeedSource) feedItemDocument(
	ctx context.Context,
	feedURL string,
	itemIndex int,
	item *gofeed.Item,
	taken map[string]struct{},
) (domain.Document, bool) {
	content := strings.TrimSpace(item.Content)
	if content == "" {
		content = strings.TrimSpace(item.Description)
	}

	if content == "" {
		s.log.WarnContext(ctx, "Skipping feed item without content",
			"feedURL", feedURL,
			"itemTitle", strings.TrimSpace(item.Title))

		return domain.Document{}, false
	}

	text, err := extractHTMLText(strings.NewReader(content))
	if err != nil || strings.TrimSpace(text) == "" {
		s.log.WarnContext(ctx, "Skipping feed item without extractable text",
			"error", err,
			"feedURL", feedURL,
			"itemTitle", strings.TrimSpace(item.Title))

		return domain.Document{}, false
	}

	key := sanitizeKey(item.Title)
	if key == "" {
		key = sanitizeKey(item.GUID)
	}
	if key == "" {
		key = fmt.Sprintf("item_%d", itemIndex+1)
	}

	base := key
	for n := 2; ; n++ {
		if _, ok := taken[key]; !ok {
			break
		}

		key = fmt.Sprintf("%s_%d", base, n)
	}

	taken[key] = struct{}{}
	key += ".txt"

	published := time.Now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return domain.Document{
		Key:     key,
		Path:    filepath.Join(s.outDir, key),
		Text:    text,
		ModTime: published,
	}, true
}
