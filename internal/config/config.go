package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries every option of one docdigest invocation. Commands load it
// once and pass it by value into the batch, so no process-wide mutable state
// exists.
type Config struct {
	OpenAIAPIKey   string   `env:"OPENAI_API_KEY"`
	Model          string   `env:"MODEL"            envDefault:"gpt-5-mini"`
	Prompt         string   `env:"PROMPT"`
	MaxTokens      int64    `env:"MAX_TOKENS"       envDefault:"200"`
	Keywords       []string `env:"KEYWORDS"`
	IncludePrompt  bool     `env:"INCLUDE_PROMPT"   envDefault:"true"`
	DBPath         string   `env:"DB_PATH"          envDefault:"docdigest.sqlite"`
	TelegramToken  string   `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64    `env:"TELEGRAM_CHAT_ID"`
	WatchSpec      string   `env:"WATCH_SPEC"       envDefault:"0 * * * *"`
}

// Load reads an optional .env file and then the process environment. A
// missing .env file is not an error; already-set variables win over the file.
func Load(envPath string) (Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load env file (path = %s): %w", envPath, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	cfg.Keywords = scrubKeywords(cfg.Keywords)

	return cfg, nil
}

// SplitKeywords parses the comma-separated source form used by the KEYWORDS
// variable and the --keywords flag.
func SplitKeywords(raw string) []string {
	return scrubKeywords(strings.Split(raw, ","))
}

func scrubKeywords(keywords []string) []string {
	scrubbed := make([]string, 0, len(keywords))

	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}

		scrubbed = append(scrubbed, keyword)
	}

	return scrubbed
}
