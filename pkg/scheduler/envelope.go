package scheduler

import (
	"time"

	"github.com/jscience/grid/pkg/protocol"
)

// A unit of work accepted by the scheduler.
//
// Everything except the status, the assignee and the resolution fields is
// immutable after creation. The mutable fields are only touched while the
// owning scheduler holds its lock.
type Envelope struct {
	id       string
	payload  []byte
	priority protocol.Priority

	// Time the scheduler accepted the task.
	submittedAt time.Time

	// Timestamp supplied by the client, for reporting only.
	clientTimestamp int64

	// Acceptance order, breaks ties between equal priorities.
	seq uint64

	status       protocol.TaskStatus
	assignee     string
	assignedAt   time.Time
	resolvedAt   time.Time
	errorMessage string

	// Closed when the task reaches a final status.
	done chan struct{}
}

func newEnvelope(request *protocol.TaskRequest, seq uint64, now time.Time) *Envelope {
	return &Envelope{
		id:              request.TaskId,
		payload:         request.Payload,
		priority:        request.Priority,
		submittedAt:     now,
		clientTimestamp: request.Timestamp,
		seq:             seq,
		status:          protocol.TaskStatus_TASK_QUEUED,
		done:            make(chan struct{}),
	}
}

func (e *Envelope) Id() string {
	return e.id
}

func (e *Envelope) Payload() []byte {
	return e.payload
}

func (e *Envelope) Priority() protocol.Priority {
	return e.priority
}

func (e *Envelope) SubmittedAt() time.Time {
	return e.submittedAt
}

func (e *Envelope) ClientTimestamp() int64 {
	return e.clientTimestamp
}

// Returns the request handed to a worker.
func (e *Envelope) Request() *protocol.TaskRequest {
	return &protocol.TaskRequest{
		TaskId:    e.id,
		Payload:   e.payload,
		Priority:  e.priority,
		Timestamp: e.clientTimestamp,
	}
}

// Transition to ASSIGNED.
func (e *Envelope) assign(workerId string, now time.Time) {
	e.status = protocol.TaskStatus_TASK_ASSIGNED
	e.assignee = workerId
	e.assignedAt = now
}

// Transition to a final status and wake up waiters.
func (e *Envelope) resolve(status protocol.TaskStatus, errorMessage string, now time.Time) {
	e.status = status
	e.errorMessage = errorMessage
	e.resolvedAt = now
	close(e.done)
}

func (e *Envelope) isResolved() bool {
	return e.status.IsCompleted()
}

// Returns a copy of the envelope's observable state.
func (e *Envelope) event() TaskEvent {
	return TaskEvent{
		TaskId:       e.id,
		Priority:     e.priority,
		Status:       e.status,
		WorkerId:     e.assignee,
		ErrorMessage: e.errorMessage,
		SubmittedAt:  e.submittedAt,
	}
}
