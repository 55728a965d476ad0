package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docdigest/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramNotifier posts run digests to a single Telegram chat.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
	log    *slog.Logger
}

func NewTelegramNotifier(token string, chatID int64, log *slog.Logger) (*TelegramNotifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("token is empty")
	}

	if chatID == 0 {
		return nil, errors.New("chat ID is empty")
	}

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramNotifier{bot: b, chatID: chatID, log: log}, nil
}

func (n *TelegramNotifier) NotifyRun(
	ctx context.Context,
	run domain.Run,
	results []domain.DocumentResult,
) error {
	if len(results) == 0 {
		return nil
	}

	var errs []error

	for _, message := range FormatRunDigest(run, results) {
		if _, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    n.chatID,
			Text:      message,
			ParseMode: models.ParseModeMarkdown,
		}); err != nil {
			errs = append(errs, fmt.Errorf("send message: %w", err))
		}
	}

	if errs == nil {
		n.log.InfoContext(ctx, "Run digest is sent",
			"runID", run.ID,
			"chatID", n.chatID,
			"documents", len(results))
	}

	return errors.Join(errs...)
}
