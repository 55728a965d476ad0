package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"docdigest/internal/domain"

	"golang.org/x/sync/errgroup"
	"mvdan.cc/xurls/v2"
)

const (
	fetchClientTimeout  = 20 * time.Second
	fetchMaxConcurrency = 8
	fetchMaxBodyBytes   = 8 << 20

	keyMaxLength = 100

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
)

var keySanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// LinkSource fetches every https link found in a text file and turns each
// page into a document. Summaries for fetched pages land next to the file.
type LinkSource struct {
	path   string
	outDir string
	client *http.Client
	log    *slog.Logger
}

func NewLinkSource(path string, outDir string, log *slog.Logger) *LinkSource {
	return &LinkSource{
		path:   path,
		outDir: outDir,
		client: &http.Client{Timeout: fetchClientTimeout},
		log:    log,
	}
}

func (s *LinkSource) Load(ctx context.Context) ([]domain.Document, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	urls, err := extractPageURLs(string(content))
	if err != nil {
		return nil, err
	}

	if len(urls) == 0 {
		return nil, nil
	}

	keys := documentKeys(urls)

	fetched := make([]domain.Document, len(urls))
	errs := make([]error, len(urls))

	var group errgroup.Group
	group.SetLimit(fetchMaxConcurrency)

	for i, pageURL := range urls {
		group.Go(func() error {
			text, fetchErr := s.fetchPage(ctx, pageURL)
			if fetchErr != nil {
				errs[i] = fmt.Errorf("fetch page (URL = %s): %w", pageURL, fetchErr)

				return nil
			}

			fetched[i] = domain.Document{
				Key:     keys[i],
				Path:    filepath.Join(s.outDir, keys[i]),
				Text:    text,
				ModTime: time.Now(),
			}

			return nil
		})
	}

	if waitErr := group.Wait(); waitErr != nil {
		return nil, fmt.Errorf("wait for fetches: %w", waitErr)
	}

	documents := make([]domain.Document, 0, len(urls))
	for _, doc := range fetched {
		if doc.Key == "" {
			continue
		}

		documents = append(documents, doc)
	}

	return documents, errors.Join(errs...)
}

func (s *LinkSource) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"operation", "fetchPage",
				"pageURL", pageURL)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, fetchMaxBodyBytes)

	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return extractHTMLText(limited)
	}

	body, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

func extractPageURLs(text string) ([]string, error) {
	httpsURLRe, err := xurls.StrictMatchingScheme("https://")
	if err != nil {
		return nil, fmt.Errorf("create regexp: %w", err)
	}

	matches := httpsURLRe.FindAllString(text, -1)

	urls := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		trimmed := strings.TrimSpace(m)
		if _, ok := seen[trimmed]; ok {
			continue
		}

		seen[trimmed] = struct{}{}
		urls = append(urls, trimmed)
	}

	return urls, nil
}

func documentKeys(urls []string) []string {
	keys := make([]string, len(urls))
	taken := make(map[string]struct{}, len(urls))

	for i, pageURL := range urls {
		key := sanitizeKey(strings.TrimPrefix(pageURL, "https://"))
		if key == "" {
			key = fmt.Sprintf("link_%d", i+1)
		}

		if _, ok := taken[key]; ok {
			key = fmt.Sprintf("%s_%d", key, i+1)
		}

		taken[key] = struct{}{}
		keys[i] = key + ".txt"
	}

	return keys
}

func sanitizeKey(raw string) string {
	key := keySanitizeRe.ReplaceAllString(strings.ToLower(raw), "_")
	key = strings.Trim(key, "_")

	if len(key) > keyMaxLength {
		key = strings.Trim(key[:keyMaxLength], "_")
	}

	return key
}
