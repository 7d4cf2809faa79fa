package scheduler

import (
	"time"

	"github.com/jscience/grid/pkg/protocol"
)

// Snapshot of a task at the time of an event.
type TaskEvent struct {
	TaskId       string
	Priority     protocol.Priority
	Status       protocol.TaskStatus
	WorkerId     string
	ErrorMessage string
	SubmittedAt  time.Time
}

// Receives task telemetry from the scheduler.
// Methods are called outside of scheduler locks and must not block.
type SchedulerObserver interface {
	// Called when a task has been accepted.
	TaskSubmitted(task TaskEvent)

	// Called when a task changes status after submission.
	TaskStatusChanged(task TaskEvent, status protocol.TaskStatus)
}
