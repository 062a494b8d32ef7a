package assistant

import (
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the engine-agnostic view of one thread message.
type Message struct {
	ID        string
	Role      string
	Text      string
	CreatedAt time.Time
}

// RunState is the lifecycle state of an engine run.
type RunState string

const (
	RunQueued         RunState = "queued"
	RunInProgress     RunState = "in_progress"
	RunRequiresAction RunState = "requires_action"
	RunCancelling     RunState = "cancelling"
	RunCompleted      RunState = "completed"
	RunFailed         RunState = "failed"
	RunCancelled      RunState = "cancelled"
	RunExpired        RunState = "expired"
	RunIncomplete     RunState = "incomplete"
)

// Terminal reports whether the run will make no further progress.
func (s RunState) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired, RunIncomplete:
		return true
	default:
		return false
	}
}

func stateFromAPI(status openai.RunStatus) RunState {
	return RunState(status)
}
