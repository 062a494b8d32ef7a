package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lawline/app/config"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

const judgeTimeout = 15 * time.Second

const judgePromptTemplate = `You are reviewing an answer from a legal consultation chatbot.

Question:
%s

Answer:
%s

Reply with exactly one word: GOOD if the answer addresses the question, BAD if it is evasive, empty or off-topic.`

// Judge is an optional post-run quality gate backed by a cheap model. It is
// invoked by the orchestrator after a successful run, never by the run
// coordinator itself.
type Judge struct {
	llm llms.Model
}

// NewJudge returns a nil judge when no judge model is configured; callers
// treat nil as "accept everything".
func NewJudge(di *do.Injector) (*Judge, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.OpenAI.JudgeModel == "" {
		return nil, nil
	}

	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.OpenAI.Token),
		lcopenai.WithModel(cfg.OpenAI.JudgeModel),
	}
	if cfg.OpenAI.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.OpenAI.BaseURL))
	}

	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge model: %w", err)
	}

	return &Judge{llm: llm}, nil
}

// Accept classifies the answer. Any judge-side problem defaults to accepting
// the answer: a flaky gate must never block a working reply.
func (j *Judge) Accept(ctx context.Context, question, answer string) bool {
	if j == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, judgeTimeout)
	defer cancel()

	prompt := fmt.Sprintf(judgePromptTemplate, question, answer)

	verdict, err := llms.GenerateFromSinglePrompt(ctx, j.llm, prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(8),
	)
	if err != nil {
		slog.Warn("Judge call failed, accepting answer", "error", err)
		return true
	}

	return !strings.Contains(strings.ToUpper(verdict), "BAD")
}
