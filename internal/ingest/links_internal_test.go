package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExtractPageURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"Finds URLs in running text",
			"see https://example.com/a and https://example.com/b",
			[]string{"https://example.com/a", "https://example.com/b"},
		},
		{
			"Dedupes repeated URLs",
			"https://example.com/a\nhttps://example.com/a",
			[]string{"https://example.com/a"},
		},
		{
			"Ignores other schemes",
			"http://example.com/a ftp://example.com/b",
			[]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractPageURLs(tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractPageURLs(%q) = %q; want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Lowercases and replaces separators", "Example.com/Docs/Intro", "example_com_docs_intro"},
		{"Trims leading and trailing separators", "/path/", "path"},
		{"Collapses separator runs", "a--b__c", "a_b_c"},
		{"Caps length", strings.Repeat("a", 150), strings.Repeat("a", 100)},
		{"Empty when nothing survives", "///", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeKey(tt.raw); got != tt.want {
				t.Errorf("sanitizeKey(%q) = %q; want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDocumentKeysAreUnique(t *testing.T) {
	keys := documentKeys([]string{
		"https://example.com/page",
		"https://example.com/page/",
		"https://example.com/other",
	})

	if keys[0] != "example_com_page.txt" {
		t.Fatalf("unexpected first key: %q", keys[0])
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			t.Fatalf("duplicate key: %q", key)
		}

		seen[key] = struct{}{}
	}
}

func TestLinkSourceLoadFetchesPages(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/page":
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html><body><p>page body</p></body></html>"))
			case "/plain":
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				_, _ = w.Write([]byte("plain body"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	defer server.Close()

	dir := t.TempDir()
	linksPath := filepath.Join(dir, "links.txt")
	writeTestFile(t, linksPath, strings.Join([]string{
		server.URL + "/page",
		server.URL + "/plain",
		server.URL + "/page",
		server.URL + "/missing",
	}, "\n"))

	source := NewLinkSource(linksPath, dir, slog.Default())
	source.client = server.Client()

	documents, err := source.Load(context.Background())
	if err == nil {
		t.Fatalf("expected an error for the missing page")
	}

	if !strings.Contains(err.Error(), "/missing") {
		t.Fatalf("expected the failing URL in the error, got %v", err)
	}

	if len(documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(documents))
	}

	if documents[0].Text != "page body" {
		t.Errorf("expected extracted HTML text, got %q", documents[0].Text)
	}

	if documents[1].Text != "plain body" {
		t.Errorf("expected plain body, got %q", documents[1].Text)
	}

	for _, doc := range documents {
		if !strings.HasSuffix(doc.Key, ".txt") {
			t.Errorf("unexpected key: %q", doc.Key)
		}

		if filepath.Dir(doc.Path) != dir {
			t.Errorf("expected a path next to the links file, got %q", doc.Path)
		}

		if doc.ModTime.IsZero() {
			t.Errorf("expected a mod time for %s", doc.Key)
		}
	}
}

func TestLinkSourceLoadWithoutLinks(t *testing.T) {
	dir := t.TempDir()
	linksPath := filepath.Join(dir, "links.txt")
	writeTestFile(t, linksPath, "notes without a single link")

	source := NewLinkSource(linksPath, dir, slog.Default())

	documents, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(documents) != 0 {
		t.Fatalf("expected no documents, got %+v", documents)
	}
}
