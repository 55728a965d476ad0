package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var configEnvVars = []string{
	"OPENAI_API_KEY",
	"MODEL",
	"PROMPT",
	"MAX_TOKENS",
	"KEYWORDS",
	"INCLUDE_PROMPT",
	"DB_PATH",
	"TELEGRAM_TOKEN",
	"TELEGRAM_CHAT_ID",
	"WATCH_SPEC",
}

// clearConfigEnv unsets every config variable for the test and restores the
// original values afterwards. t.Setenv registers the restore; the unset makes
// the variable truly absent rather than empty.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range configEnvVars {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unexpected unset error: %v", err)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model != "gpt-5-mini" {
		t.Errorf("unexpected default model: %q", cfg.Model)
	}

	if cfg.MaxTokens != 200 {
		t.Errorf("unexpected default max tokens: %d", cfg.MaxTokens)
	}

	if !cfg.IncludePrompt {
		t.Errorf("expected the prompt to be included by default")
	}

	if cfg.DBPath != "docdigest.sqlite" {
		t.Errorf("unexpected default db path: %q", cfg.DBPath)
	}

	if cfg.WatchSpec != "0 * * * *" {
		t.Errorf("unexpected default watch spec: %q", cfg.WatchSpec)
	}

	if len(cfg.Keywords) != 0 {
		t.Errorf("expected no default keywords, got %q", cfg.Keywords)
	}

	if cfg.OpenAIAPIKey != "" || cfg.TelegramToken != "" || cfg.TelegramChatID != 0 {
		t.Errorf("expected secrets to stay empty by default: %+v", cfg)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MODEL", "gpt-5")
	t.Setenv("PROMPT", "Condense this")
	t.Setenv("MAX_TOKENS", "300")
	t.Setenv("KEYWORDS", " Alpha , ,Beta,")
	t.Setenv("INCLUDE_PROMPT", "false")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OpenAIAPIKey != "sk-test" || cfg.Model != "gpt-5" || cfg.Prompt != "Condense this" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	if cfg.MaxTokens != 300 {
		t.Errorf("unexpected max tokens: %d", cfg.MaxTokens)
	}

	if want := []string{"Alpha", "Beta"}; !reflect.DeepEqual(cfg.Keywords, want) {
		t.Errorf("expected scrubbed keywords %q, got %q", want, cfg.Keywords)
	}

	if cfg.IncludePrompt {
		t.Errorf("expected the prompt to be excluded")
	}

	if cfg.TelegramChatID != 42 {
		t.Errorf("unexpected chat ID: %d", cfg.TelegramChatID)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	clearConfigEnv(t)

	envPath := filepath.Join(t.TempDir(), ".env")
	content := "MODEL=model-from-file\nKEYWORDS=alpha,beta\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model != "model-from-file" {
		t.Errorf("unexpected model: %q", cfg.Model)
	}

	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(cfg.Keywords, want) {
		t.Errorf("unexpected keywords: %q", cfg.Keywords)
	}
}

func TestLoadPrefersEnvironmentOverFile(t *testing.T) {
	clearConfigEnv(t)

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("MODEL=model-from-file\n"), 0o644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	t.Setenv("MODEL", "model-from-env")

	cfg, err := Load(envPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model != "model-from-env" {
		t.Errorf("expected the environment to win, got %q", cfg.Model)
	}
}

func TestLoadToleratesMissingEnvFile(t *testing.T) {
	clearConfigEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("expected a missing env file to be tolerated, got %v", err)
	}
}

func TestLoadFailsOnMalformedValues(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("MAX_TOKENS", "many")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected an error for a malformed MAX_TOKENS")
	}
}

func TestSplitKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			"Plain list",
			"alpha,beta",
			[]string{"alpha", "beta"},
		},
		{
			"Trims and drops empties",
			" alpha , ,beta,,",
			[]string{"alpha", "beta"},
		},
		{
			"Keeps duplicates and order",
			"cut,cut,intro",
			[]string{"cut", "cut", "intro"},
		},
		{
			"Empty source form",
			"",
			[]string{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := SplitKeywords(test.raw); !reflect.DeepEqual(got, test.want) {
				t.Errorf("SplitKeywords(%q) = %q; want %q", test.raw, got, test.want)
			}
		})
	}
}
