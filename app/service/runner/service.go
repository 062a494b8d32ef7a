package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lawline/app/client/assistant"
	"lawline/app/config"

	"github.com/samber/do"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrTimeout means the run did not reach a terminal state before the
	// deadline. Distinct from failure so callers can suggest a retry.
	ErrTimeout = errors.New("run deadline exceeded")

	// ErrRunFailed means the engine reported a terminal non-success state.
	ErrRunFailed = errors.New("run failed")

	// ErrEmptyResult means the run completed but produced no assistant text.
	ErrEmptyResult = errors.New("run produced no answer")
)

// Engine is the slice of the conversation engine the coordinator needs.
type Engine interface {
	StartRun(ctx context.Context, convID string) (string, error)
	RunState(ctx context.Context, convID, runID string) (assistant.RunState, error)
	CancelRun(ctx context.Context, convID, runID string) error
	LatestAssistantText(ctx context.Context, convID string) (string, error)
}

// Service drives engine runs to completion under a deadline. A hung run for
// one conversation only occupies its own goroutine; other conversations keep
// going.
type Service struct {
	engine Engine

	deadline     time.Duration
	pollInterval time.Duration
	sem          *semaphore.Weighted
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		engine:       do.MustInvoke[*assistant.Client](di),
		deadline:     time.Duration(cfg.Chat.RunDeadlineSec) * time.Second,
		pollInterval: time.Duration(cfg.Chat.PollIntervalSec) * time.Second,
		sem:          semaphore.NewWeighted(cfg.Chat.MaxConcurrentRuns),
	}, nil
}

// RunToCompletion starts a run and polls until it terminates, the deadline
// expires, or ctx is cancelled. On deadline it issues one best-effort cancel
// and returns ErrTimeout.
func (s *Service) RunToCompletion(ctx context.Context, convID string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire run slot: %w", err)
	}
	defer s.sem.Release(1)

	runID, err := s.engine.StartRun(ctx, convID)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	// The deadline is its own timer so it holds even when the poll interval
	// is the longer of the two.
	deadline := time.NewTimer(s.deadline)
	defer deadline.Stop()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			s.cancelRun(ctx, convID, runID)

			return "", ErrTimeout
		case <-ticker.C:
		}

		state, err := s.engine.RunState(ctx, convID, runID)
		if err != nil {
			return "", fmt.Errorf("failed to poll run %s: %w", runID, err)
		}

		switch {
		case state == assistant.RunCompleted:
			text, err := s.engine.LatestAssistantText(ctx, convID)
			if err != nil {
				slog.Warn("Run completed without an answer",
					"conversation", convID,
					"run", runID,
					"error", err,
				)

				return "", ErrEmptyResult
			}

			return text, nil

		case state.Terminal():
			slog.Error("Run terminated without completing",
				"conversation", convID,
				"run", runID,
				"state", string(state),
			)

			return "", fmt.Errorf("%w: state %s", ErrRunFailed, state)
		}
	}
}

// cancelRun is best-effort: the run may already be finishing on the engine
// side, so a failed cancel is only logged.
func (s *Service) cancelRun(ctx context.Context, convID, runID string) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.engine.CancelRun(cancelCtx, convID, runID); err != nil {
		slog.Warn("Failed to cancel run",
			"conversation", convID,
			"run", runID,
			"error", err,
		)
	}
}
