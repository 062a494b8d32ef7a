package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"lawline/app/client/assistant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

type fakeEngine struct {
	states  []assistant.RunState
	answer  string
	polls   atomic.Int32
	cancels atomic.Int32
}

func (f *fakeEngine) StartRun(context.Context, string) (string, error) {
	return "run-1", nil
}

func (f *fakeEngine) RunState(context.Context, string, string) (assistant.RunState, error) {
	poll := int(f.polls.Add(1))
	if poll > len(f.states) {
		return f.states[len(f.states)-1], nil
	}

	return f.states[poll-1], nil
}

func (f *fakeEngine) CancelRun(context.Context, string, string) error {
	f.cancels.Add(1)
	return nil
}

func (f *fakeEngine) LatestAssistantText(context.Context, string) (string, error) {
	if f.answer == "" {
		return "", assert.AnError
	}

	return f.answer, nil
}

func testService(engine Engine, deadline time.Duration) *Service {
	return &Service{
		engine:       engine,
		deadline:     deadline,
		pollInterval: time.Millisecond,
		sem:          semaphore.NewWeighted(4),
	}
}

func TestRunToCompletionSuccess(t *testing.T) {
	engine := &fakeEngine{
		states: []assistant.RunState{assistant.RunQueued, assistant.RunInProgress, assistant.RunCompleted},
		answer: "you need a non-immigrant B visa",
	}

	svc := testService(engine, time.Second)

	text, err := svc.RunToCompletion(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "you need a non-immigrant B visa", text)
	assert.Equal(t, int32(0), engine.cancels.Load())
}

func TestRunToCompletionTimeout(t *testing.T) {
	engine := &fakeEngine{
		states: []assistant.RunState{assistant.RunInProgress},
	}

	svc := testService(engine, 20*time.Millisecond)

	_, err := svc.RunToCompletion(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), engine.cancels.Load(), "timeout issues exactly one cancellation")
}

func TestDeadlineShorterThanPollInterval(t *testing.T) {
	engine := &fakeEngine{
		states: []assistant.RunState{assistant.RunInProgress},
	}

	svc := &Service{
		engine:       engine,
		deadline:     10 * time.Millisecond,
		pollInterval: 250 * time.Millisecond,
		sem:          semaphore.NewWeighted(4),
	}

	start := time.Now()
	_, err := svc.RunToCompletion(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 200*time.Millisecond,
		"deadline must not round up to the poll interval")
	assert.Equal(t, int32(1), engine.cancels.Load())
}

func TestRunToCompletionTerminalFailure(t *testing.T) {
	engine := &fakeEngine{
		states: []assistant.RunState{assistant.RunInProgress, assistant.RunFailed},
	}

	svc := testService(engine, time.Second)

	_, err := svc.RunToCompletion(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrRunFailed)
}

func TestRunToCompletionEmptyResult(t *testing.T) {
	engine := &fakeEngine{
		states: []assistant.RunState{assistant.RunCompleted},
	}

	svc := testService(engine, time.Second)

	_, err := svc.RunToCompletion(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestRunToCompletionContextCancelled(t *testing.T) {
	engine := &fakeEngine{
		states: []assistant.RunState{assistant.RunInProgress},
	}

	svc := testService(engine, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunToCompletion(ctx, "conv-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSlowRunDoesNotBlockOthers(t *testing.T) {
	slow := &fakeEngine{
		states: []assistant.RunState{assistant.RunInProgress},
	}
	fast := &fakeEngine{
		states: []assistant.RunState{assistant.RunCompleted},
		answer: "quick answer",
	}

	slowSvc := testService(slow, 300*time.Millisecond)
	fastSvc := testService(fast, time.Second)

	done := make(chan struct{})
	go func() {
		_, _ = slowSvc.RunToCompletion(context.Background(), "conv-slow")
		close(done)
	}()

	start := time.Now()
	text, err := fastSvc.RunToCompletion(context.Background(), "conv-fast")
	require.NoError(t, err)
	assert.Equal(t, "quick answer", text)
	assert.Less(t, time.Since(start), 150*time.Millisecond,
		"fast conversation must not wait for the slow one")

	<-done
}
