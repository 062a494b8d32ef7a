package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lawline/app/client/assistant"
	"lawline/app/service/convstate"
	"lawline/app/service/runner"
	"lawline/app/service/watchdog"
	"lawline/app/util/textutil"

	"github.com/samber/do"
)

const maxRunAttempts = 2

const (
	replyEmptyMessage = "Please type a message so I can help you."
	replyStillWorking = "I am still preparing your answer. Please resend your question in a moment."
	replyUnavailable  = "Sorry, I cannot answer right now. Please try again in a minute."
)

// Engine is the slice of the conversation engine the orchestrator needs.
type Engine interface {
	CreateConversation(ctx context.Context) (string, error)
	AppendMessage(ctx context.Context, convID, role, text string) error
}

// Coordinator drives one run to completion.
type Coordinator interface {
	RunToCompletion(ctx context.Context, convID string) (string, error)
}

// Watcher keeps the per-conversation silence watchdog alive.
type Watcher interface {
	Observe(convID string)
}

// Judge decides whether an answer is good enough to return.
type Judge interface {
	Accept(ctx context.Context, question, answer string) bool
}

// Reply is what goes back to the caller. Always user-safe: engine failures
// degrade to a neutral text instead of an error.
type Reply struct {
	Text           string
	ConversationID string
}

// Service orchestrates one inbound chat message end to end: bookkeeping,
// append, run, quality gate, cleanup.
type Service struct {
	store   *convstate.Store
	engine  Engine
	runner  Coordinator
	judge   Judge
	watcher Watcher
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		store:   do.MustInvoke[*convstate.Store](di),
		engine:  do.MustInvoke[*assistant.Client](di),
		runner:  do.MustInvoke[*runner.Service](di),
		judge:   do.MustInvoke[*runner.Judge](di),
		watcher: do.MustInvoke[*watchdog.Service](di),
	}, nil
}

// HandleMessage never fails from the caller's point of view; every error
// path maps to a neutral reply. Appends happen synchronously on the request
// goroutine, so per-conversation order follows arrival order.
func (s *Service) HandleMessage(ctx context.Context, convID, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: replyEmptyMessage, ConversationID: convID}
	}

	if convID == "" {
		created, err := s.engine.CreateConversation(ctx)
		if err != nil {
			slog.Error("Failed to create conversation", "error", err)
			return Reply{Text: replyUnavailable}
		}

		convID = created
	}

	s.store.Touch(convID)
	s.watcher.Observe(convID)

	if err := s.engine.AppendMessage(ctx, convID, assistant.RoleUser, text); err != nil {
		slog.Error("Failed to append message", "conversation", convID, "error", err)
		return Reply{Text: replyUnavailable, ConversationID: convID}
	}

	answer, err := s.runAnswer(ctx, convID, text)
	if err != nil {
		if errors.Is(err, runner.ErrTimeout) {
			return Reply{Text: replyStillWorking, ConversationID: convID}
		}

		slog.Error("Failed to produce answer",
			"conversation", convID,
			"error", err,
			"telegram", true,
		)

		return Reply{Text: replyUnavailable, ConversationID: convID}
	}

	return Reply{Text: textutil.Normalize(answer), ConversationID: convID}
}

// runAnswer applies the post-run quality gate: a rejected answer gets one
// more run attempt, and the last attempt is accepted as-is.
func (s *Service) runAnswer(ctx context.Context, convID, question string) (string, error) {
	var answer string
	var err error

	for attempt := 1; attempt <= maxRunAttempts; attempt++ {
		start := time.Now()

		answer, err = s.runner.RunToCompletion(ctx, convID)
		if err != nil {
			return "", err
		}

		slog.Info("Run completed",
			"conversation", convID,
			"attempt", attempt,
			"duration", time.Since(start),
		)

		if attempt == maxRunAttempts || s.judge.Accept(ctx, question, answer) {
			return answer, nil
		}

		slog.Warn("Answer rejected by quality gate, retrying",
			"conversation", convID,
			"attempt", attempt,
		)
	}

	return answer, nil
}
