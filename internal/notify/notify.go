package notify

import (
	"context"

	"docdigest/internal/domain"
)

// Notifier delivers the digest of one finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, run domain.Run, results []domain.DocumentResult) error
}
