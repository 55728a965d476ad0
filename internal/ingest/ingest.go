package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docdigest/internal/domain"
)

// Source loads documents for one summarization run. Implementations return
// the documents they could load together with a joined error for the ones
// they could not.
type Source interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// DirectorySource reads every supported file directly under a directory.
type DirectorySource struct {
	dir string
	log *slog.Logger
}

func NewDirectorySource(dir string, log *slog.Logger) *DirectorySource {
	return &DirectorySource{dir: dir, log: log}
}

func (s *DirectorySource) Load(ctx context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var documents []domain.Document
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		path := filepath.Join(s.dir, name)

		var text string
		var extractErr error

		switch ext := strings.ToLower(filepath.Ext(name)); ext {
		case ".txt", ".md":
			text, extractErr = readPlainText(path)
		case ".pdf":
			text, extractErr = extractPDFText(path)
		case ".html", ".htm":
			text, extractErr = readHTMLText(path)
		default:
			s.log.DebugContext(ctx, "Skipping unsupported file",
				"path", path,
				"extension", ext)

			continue
		}

		if extractErr != nil {
			errs = append(errs, fmt.Errorf("extract text (path = %s): %w", path, extractErr))
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			errs = append(errs, fmt.Errorf("stat file (path = %s): %w", path, infoErr))
			continue
		}

		documents = append(documents, domain.Document{
			Key:     name,
			Path:    path,
			Text:    text,
			ModTime: info.ModTime(),
		})
	}

	return documents, errors.Join(errs...)
}

func readPlainText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	return string(content), nil
}
