package scheduler

import (
	"sync"
	"time"

	"github.com/jscience/grid/pkg/utils"
)

// Queue of pending envelopes.
// Envelopes are dequeued by priority, highest first, and in acceptance
// order within the same priority.
type TaskQueue struct {
	mu    sync.Mutex
	items *utils.PriorityQueue[*Envelope]
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		items: utils.NewPriorityQueue[*Envelope](envelopeLess),
	}
}

// Orders envelopes by priority, highest first, then by acceptance order.
func envelopeLess(a, b *Envelope) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.seq < b.seq
}

func (q *TaskQueue) Enqueue(envelope *Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.Push(envelope)
}

// Removes the next envelope and marks it as assigned to the worker.
// Returns nil if the queue is empty.
func (q *TaskQueue) Dequeue(workerId string, now time.Time) *Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()

	envelope, ok := q.items.TryPop()
	if !ok {
		return nil
	}

	envelope.assign(workerId, now)
	return envelope
}

func (q *TaskQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
