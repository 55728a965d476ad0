package scheduler

import (
	"context"
	"log/slog"
	"testing"
)

func TestRunOnceInvokesRun(t *testing.T) {
	calls := 0

	s := New(context.Background(), "0 * * * *", func(ctx context.Context) error {
		calls++

		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("expected a deadline on the run context")
		}

		return nil
	}, slog.Default())

	s.runOnce()

	if calls != 1 {
		t.Fatalf("expected 1 run, got %d", calls)
	}
}

func TestRunOnceSkipsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(ctx, "0 * * * *", func(context.Context) error {
		t.Error("expected the run to be skipped")

		return nil
	}, slog.Default())

	s.runOnce()
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New(context.Background(), "not a spec", func(context.Context) error {
		return nil
	}, slog.Default())

	if err := s.Start(); err == nil {
		t.Fatalf("expected an error for an invalid spec")
	}
}

func TestStartAndStop(t *testing.T) {
	s := New(context.Background(), "0 * * * *", func(context.Context) error {
		return nil
	}, slog.Default())

	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Stop()
}
