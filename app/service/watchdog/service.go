package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lawline/app/client/assistant"
	"lawline/app/client/telegram"
	"lawline/app/config"
	"lawline/app/service/convstate"
	"lawline/app/service/leads"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// Fetcher is the slice of the conversation engine the watchdog reads from.
// The suffix is keyed on a message id so no amount of history can push
// unrelayed messages out of reach.
type Fetcher interface {
	MessagesAfter(ctx context.Context, convID, afterID string) ([]assistant.Message, error)
}

// Sink receives the composed relay text.
type Sink interface {
	Send(text string) error
}

// Service runs at most one background task per conversation. The task waits
// out the quiet period, relays the unseen tail of the conversation once, and
// terminates. New messages never spawn a second task; they bump the activity
// record the live task re-reads.
type Service struct {
	appCtx  context.Context
	store   *convstate.Store
	engine  *leads.Engine
	fetcher Fetcher
	sink    Sink

	quietPeriod time.Duration
	tick        time.Duration
	publicURL   string

	wg sync.WaitGroup
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		appCtx:      do.MustInvoke[context.Context](di),
		store:       do.MustInvoke[*convstate.Store](di),
		engine:      do.MustInvoke[*leads.Engine](di),
		fetcher:     do.MustInvoke[*assistant.Client](di),
		sink:        do.MustInvoke[*telegram.Client](di),
		quietPeriod: time.Duration(cfg.Chat.QuietPeriodSec) * time.Second,
		tick:        time.Duration(cfg.Chat.WatchTickSec) * time.Second,
		publicURL:   cfg.Server.PublicURL,
	}, nil
}

// Observe makes sure a watchdog task exists for the conversation. Spawning
// is idempotent: a live task means there is nothing to do.
func (s *Service) Observe(convID string) {
	if !s.store.BeginWatch(convID) {
		return
	}

	s.wg.Add(1)
	go s.watch(convID)
}

func (s *Service) watch(convID string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.appCtx.Done():
			s.store.EndWatch(convID)
			return
		case <-ticker.C:
		}

		quiet, ok := s.store.QuietFor(convID)
		if !ok {
			s.store.EndWatch(convID)
			return
		}

		if quiet < s.quietPeriod {
			continue
		}

		s.fire(convID)
		s.store.EndWatch(convID)

		// A message that landed while fire was reading the thread found a
		// live task and armed nothing; hand it a fresh task.
		if quiet, ok := s.store.QuietFor(convID); ok && quiet < s.quietPeriod {
			s.Observe(convID)
		}

		return
	}
}

// fire performs the single relay attempt for this task. State advances only
// after a successful send, so a sink failure is retried naturally by the
// next task.
func (s *Service) fire(convID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.appCtx), 30*time.Second)
	defer cancel()

	lastID, relayed := s.store.LastRelayed(convID)

	delta, err := s.fetcher.MessagesAfter(ctx, convID, lastID)
	if err != nil {
		slog.Warn("Failed to fetch conversation for relay",
			"conversation", convID,
			"error", err,
		)
		return
	}

	if len(delta) == 0 {
		slog.Debug("No new messages to relay", "conversation", convID)
		return
	}

	verdict := s.engine.Classify(leads.Input{
		UserText:      joinByRole(delta, assistant.RoleUser),
		AssistantText: joinByRole(delta, assistant.RoleAssistant),
		Tier:          s.store.Tier(convID),
		UserMessages:  s.store.UserMessages(convID),
	})

	if !verdict.Notify {
		slog.Debug("Conversation not worth relaying",
			"conversation", convID,
			"tier", verdict.Tier.String(),
		)
		return
	}

	text := buildRelayText(convID, delta, verdict, s.publicURL, relayed == 0)

	if err := s.sink.Send(text); err != nil {
		slog.Warn("Failed to relay conversation",
			"conversation", convID,
			"error", err,
		)
		return
	}

	s.store.MarkRelayed(convID, delta[len(delta)-1].ID, relayed+len(delta))
	s.store.RaiseTier(convID, verdict.Tier)

	slog.Info("Relayed conversation",
		"conversation", convID,
		"messages", len(delta),
		"tier", verdict.Tier.String(),
		"variant", string(verdict.Variant),
		"urgent", verdict.Urgent,
	)
}

// Shutdown waits for live tasks to notice the cancelled app context.
func (s *Service) Shutdown() error {
	s.wg.Wait()

	return nil
}
