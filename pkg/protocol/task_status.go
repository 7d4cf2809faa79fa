package protocol

import "fmt"

// Lifecycle status of a task envelope.
type TaskStatus int32

const (
	TaskStatus_TASK_UNKNOWN   TaskStatus = 0
	TaskStatus_TASK_QUEUED    TaskStatus = 1
	TaskStatus_TASK_ASSIGNED  TaskStatus = 2
	TaskStatus_TASK_COMPLETED TaskStatus = 3
	TaskStatus_TASK_FAILED    TaskStatus = 4
)

var taskStatusNames = map[TaskStatus]string{
	TaskStatus_TASK_UNKNOWN:   "UNKNOWN",
	TaskStatus_TASK_QUEUED:    "QUEUED",
	TaskStatus_TASK_ASSIGNED:  "ASSIGNED",
	TaskStatus_TASK_COMPLETED: "COMPLETED",
	TaskStatus_TASK_FAILED:    "FAILED",
}

func (status TaskStatus) String() string {
	if name, ok := taskStatusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("TaskStatus(%d)", int32(status))
}

// Should return true if the task is no longer in progress
func (status TaskStatus) IsCompleted() bool {
	switch status {
	case TaskStatus_TASK_COMPLETED, TaskStatus_TASK_FAILED:
		return true
	default:
		return false
	}
}

// Should return true if the task is waiting for or undergoing execution
func (status TaskStatus) IsPending() bool {
	switch status {
	case TaskStatus_TASK_QUEUED, TaskStatus_TASK_ASSIGNED:
		return true
	default:
		return false
	}
}

// Outcome of a task submission.
type SubmitStatus int32

const (
	SubmitStatus_QUEUED   SubmitStatus = 0
	SubmitStatus_REJECTED SubmitStatus = 1
)

func (status SubmitStatus) String() string {
	switch status {
	case SubmitStatus_QUEUED:
		return "QUEUED"
	case SubmitStatus_REJECTED:
		return "REJECTED"
	}
	return fmt.Sprintf("SubmitStatus(%d)", int32(status))
}
