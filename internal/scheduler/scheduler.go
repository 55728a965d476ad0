package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	runTimeout            = 15 * time.Minute
)

// Scheduler triggers a summarization run on a cron spec.
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
	spec string
	run  func(ctx context.Context) error
	log  *slog.Logger
}

func New(
	ctx context.Context,
	spec string,
	run func(ctx context.Context) error,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:  ctx,
		cron: c,
		spec: spec,
		run:  run,
		log:  log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	if err := s.run(ctx); err != nil {
		s.log.ErrorContext(ctx, "Failed to run scheduled summarization",
			"error", err,
			"spec", s.spec)
	}
}
