package notify

import (
	"fmt"
	"strings"

	"docdigest/internal/domain"
)

const telegramMessageMaxLength = 4096

// Covers https://core.telegram.org/bots/api#markdownv2-style.
//
//nolint:gochecknoglobals // Lookup table meant to be immutable.
var markdownV2Replacer = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`,
	"(", `\(`, ")", `\)`, "~", `\~`, "`", "\\`",
	">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`,
	".", `\.`, "!", `\!`,
)

func escapeMarkdownV2(input string) string {
	return markdownV2Replacer.Replace(input)
}

// FormatRunDigest renders a run and its per-document results as MarkdownV2
// messages, each within the Telegram message length limit.
func FormatRunDigest(run domain.Run, results []domain.DocumentResult) []string {
	var messages []string
	var currentMessage strings.Builder

	currentMessage.WriteString(fmt.Sprintf("📄 *Summarization run %s*\n\n",
		escapeMarkdownV2(strings.TrimSpace(run.ID))))
	currentMessage.WriteString(fmt.Sprintf("Model: %s\nDocuments: %d, succeeded: %d, failed: %d\n\n",
		escapeMarkdownV2(strings.TrimSpace(run.Model)),
		run.Documents,
		run.Succeeded,
		run.Failed))

	baseLength := currentMessage.Len()

	for _, result := range results {
		line := formatResultLine(result)

		if currentMessage.Len()+len(line) > telegramMessageMaxLength {
			messages = append(messages, currentMessage.String())
			currentMessage.Reset()
			currentMessage.WriteString("📄 *Summarization run \\(continue\\)*\n\n")
			baseLength = currentMessage.Len()
		}

		currentMessage.WriteString(line)
	}

	if currentMessage.Len() > baseLength {
		messages = append(messages, currentMessage.String())
	}

	return messages
}

func formatResultLine(result domain.DocumentResult) string {
	key := escapeMarkdownV2(strings.TrimSpace(result.Key))

	if result.Status != domain.StatusSucceeded {
		reason := "unknown failure"
		if result.Err != nil {
			reason = result.Err.Error()
		}

		return fmt.Sprintf("❌ *%s*\n%s\n\n", key, escapeMarkdownV2(reason))
	}

	if result.OutputPath == "" {
		return fmt.Sprintf("✅ *%s*\nsummary kept in memory only\n\n", key)
	}

	return fmt.Sprintf("✅ *%s*\nsaved to %s\n\n",
		key, escapeMarkdownV2(result.OutputPath))
}
