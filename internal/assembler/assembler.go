package assembler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docdigest/internal/domain"
)

// Separator is the fixed visual delimiter between joined summary parts.
const Separator = "\n\n====================\n\n"

const (
	runDirPrefix     = "summary-"
	runDirTimeFormat = "20060102150405"
	outputSuffix     = "_summarized.txt"

	outputDirPerm  = 0o755
	outputFilePerm = 0o644
)

// Join combines per-segment summaries into one artifact text. When
// includePrompt is set and the prompt is non-empty, the prompt becomes the
// first joined part, so the result starts with the prompt followed by the
// separator.
func Join(prompt string, includePrompt bool, summaries []string) string {
	parts := summaries
	if includePrompt && strings.TrimSpace(prompt) != "" {
		parts = append([]string{prompt}, summaries...)
	}

	return strings.Join(parts, Separator)
}

// Persist writes the artifact text into the run's output folder, which sits
// next to the document's source and is shared by every document of the same
// batch whose sources share a parent. The file name is the document's base
// name without extension plus a fixed suffix. The write is all-or-nothing.
func Persist(doc domain.Document, runStartedAt time.Time, text string) (string, error) {
	dir := filepath.Join(
		filepath.Dir(doc.Path),
		runDirPrefix+runStartedAt.Format(runDirTimeFormat),
	)
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	path := filepath.Join(dir, base+outputSuffix)

	if err := writeFileAtomic(path, []byte(text), outputFilePerm); err != nil {
		return "", fmt.Errorf("write summary file: %w", err)
	}

	return path, nil
}

// writeFileAtomic stages the content in a temp file and renames it into
// place so a failed write never leaves a partial artifact behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write temp file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Chmod(tmp.Name(), perm); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
