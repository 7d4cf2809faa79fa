package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/resultstash"
	"github.com/jscience/grid/pkg/utils"
)

// A priority scheduler.
// Tasks are handed to pulling workers in priority order, with tasks of the
// same priority being handed out in the order they were accepted.
type priorityScheduler struct {
	sync.RWMutex

	config Config

	// Queued tasks
	queue *TaskQueue

	// Registered workers
	registry *WorkerRegistry

	// Map of task id to live envelope
	envelopes map[string]*Envelope

	// Output of completed tasks
	results resultstash.ResultStash

	// Last assigned acceptance sequence number
	seq uint64

	// List of telemetry receivers
	observers []SchedulerObserver

	// Statistics
	numCompletedTasks int64
	numFailedTasks    int64

	now func() time.Time
}

// Create a new priority scheduler.
func NewPriorityScheduler(config Config, results resultstash.ResultStash) *priorityScheduler {
	config.SetDefaults()

	return &priorityScheduler{
		config:    config,
		queue:     NewTaskQueue(),
		registry:  NewWorkerRegistry(),
		envelopes: map[string]*Envelope{},
		results:   results,
		now:       time.Now,
	}
}

// Accept a task for execution.
func (s *priorityScheduler) SubmitTask(request *protocol.TaskRequest) (*Envelope, error) {
	if request.GetTaskId() == "" {
		return nil, fmt.Errorf("%w: empty task id", utils.ErrBadRequest)
	}

	if !request.Priority.IsValid() {
		return nil, fmt.Errorf("%w: invalid priority %d", utils.ErrBadRequest, request.Priority)
	}

	s.Lock()
	if _, ok := s.envelopes[request.TaskId]; ok {
		s.Unlock()
		log.Debug("nok - task - duplicate id:", request.TaskId)
		return nil, fmt.Errorf("%w: task %s", utils.ErrDuplicate, request.TaskId)
	}

	s.seq++
	envelope := newEnvelope(request, s.seq, s.now())
	s.envelopes[envelope.id] = envelope
	s.queue.Enqueue(envelope)
	event := envelope.event()
	observers := s.observers
	s.Unlock()

	log.Infof("new - task - id: %s, priority: %s, size: %d", envelope.id, envelope.priority, len(envelope.payload))

	for _, observer := range observers {
		observer.TaskSubmitted(event)
	}

	return envelope, nil
}

// Register a new worker with the scheduler.
func (s *priorityScheduler) RegisterWorker(principal string, registration *protocol.WorkerRegistration) (*WorkerRecord, error) {
	if registration == nil {
		return nil, fmt.Errorf("%w: missing registration", utils.ErrBadRequest)
	}
	if registration.Cores < 0 || registration.MemoryBytes < 0 {
		return nil, fmt.Errorf("%w: negative capacity", utils.ErrBadRequest)
	}

	return s.registry.Register(principal, registration, s.now()), nil
}

// Remove a worker from the scheduler.
func (s *priorityScheduler) DeregisterWorker(workerId string) error {
	record, ok := s.registry.Remove(workerId)
	if !ok {
		return fmt.Errorf("%w: worker %s", utils.ErrNotFound, workerId)
	}

	log.Info("del - worker - id:", record.Id)
	s.failTasksOfWorkers([]*WorkerRecord{record}, "worker deregistered")
	return nil
}

// Hand the next queued task to a worker.
func (s *priorityScheduler) RequestTask(workerId string) (*Envelope, error) {
	now := s.now()
	if err := s.registry.Touch(workerId, now); err != nil {
		log.Debug("exe - task - request denied, unknown worker:", workerId)
		return nil, err
	}

	s.Lock()
	// A concurrent deregistration removes the worker before failing its
	// tasks under the lock, so a worker still present here is swept later.
	if _, err := s.registry.Lookup(workerId); err != nil {
		s.Unlock()
		log.Debug("exe - task - request denied, worker gone:", workerId)
		return nil, err
	}

	envelope := s.queue.Dequeue(workerId, now)
	if envelope == nil {
		s.Unlock()
		return nil, nil
	}
	event := envelope.event()
	observers := s.observers
	s.Unlock()

	s.registry.SetCurrentTask(workerId, envelope.id)

	log.Infof("run - task - id: %s, worker: %s", envelope.id, workerId)

	for _, observer := range observers {
		observer.TaskStatusChanged(event, protocol.TaskStatus_TASK_ASSIGNED)
	}

	return envelope, nil
}

// Record the outcome of an assigned task.
func (s *priorityScheduler) SubmitResult(result *protocol.TaskResult) (bool, error) {
	if result == nil || result.TaskId == "" {
		return false, fmt.Errorf("%w: missing task id", utils.ErrBadRequest)
	}

	if !result.Status.IsCompleted() {
		return false, fmt.Errorf("%w: result status %s is not final", utils.ErrBadRequest, result.Status)
	}

	now := s.now()
	if err := s.registry.Touch(result.WorkerId, now); err != nil {
		return false, err
	}

	s.Lock()
	envelope, ok := s.envelopes[result.TaskId]
	if !ok || envelope.status != protocol.TaskStatus_TASK_ASSIGNED || envelope.assignee != result.WorkerId {
		s.Unlock()
		log.Debugf("nok - result - ignored - id: %s, worker: %s", result.TaskId, result.WorkerId)
		return false, nil
	}

	status, message := result.Status, result.ErrorMessage
	if status == protocol.TaskStatus_TASK_COMPLETED {
		message = ""
		if err := s.results.Put(envelope.id, result.Data); err != nil {
			log.Warnf("nok - result - store failed - id: %s, error: %v", envelope.id, err)
			status, message = protocol.TaskStatus_TASK_FAILED, err.Error()
		}
	}

	s.resolveNoLock(envelope, status, message, now)
	event := envelope.event()
	observers := s.observers
	s.Unlock()

	s.registry.SetCurrentTask(result.WorkerId, "")

	for _, observer := range observers {
		observer.TaskStatusChanged(event, status)
	}

	return true, nil
}

// Wait for a task to resolve.
func (s *priorityScheduler) AwaitResult(ctx context.Context, taskId string, timeout time.Duration) (*protocol.TaskResult, error) {
	if timeout <= 0 || timeout > s.config.MaxWait {
		timeout = s.config.MaxWait
	}

	s.RLock()
	envelope, ok := s.envelopes[taskId]
	s.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: task %s", utils.ErrNotFound, taskId)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-envelope.done:
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.Lock()
	defer s.Unlock()

	if s.envelopes[taskId] != envelope {
		// Collected by someone else while waiting
		return nil, fmt.Errorf("%w: task %s", utils.ErrNotFound, taskId)
	}

	if !envelope.isResolved() {
		return &protocol.TaskResult{
			TaskId:   envelope.id,
			Status:   envelope.status,
			WorkerId: envelope.assignee,
		}, nil
	}

	result := &protocol.TaskResult{
		TaskId:       envelope.id,
		Status:       envelope.status,
		ErrorMessage: envelope.errorMessage,
		WorkerId:     envelope.assignee,
	}

	if envelope.status == protocol.TaskStatus_TASK_COMPLETED {
		data, err := s.results.Get(envelope.id)
		if err != nil {
			log.Warnf("nok - result - lost - id: %s, error: %v", envelope.id, err)
			result.Status = protocol.TaskStatus_TASK_FAILED
			result.ErrorMessage = fmt.Sprintf("result lost: %v", err)
		} else {
			result.Data = data
		}
	}

	s.evictNoLock(envelope)
	log.Debug("del - task - delivered - id:", envelope.id)
	return result, nil
}

// Run the scheduler.
func (s *priorityScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	log.Info("starting")
	for {
		select {
		case <-ctx.Done():
			log.Info("stopping")
			return

		case <-ticker.C:
			s.sweep()
		}
	}
}

// Remove aged results and silent workers.
func (s *priorityScheduler) sweep() {
	now := s.now()

	if s.config.WorkerTimeout > 0 {
		stale := s.registry.RemoveStale(now.Add(-s.config.WorkerTimeout))
		for _, record := range stale {
			log.Warnf("del - worker - timeout - id: %s, hostname: %s", record.Id, record.Hostname)
		}
		s.failTasksOfWorkers(stale, "worker timed out")
	}

	s.Lock()
	deadline := now.Add(-s.config.ResultTTL)
	for _, envelope := range s.envelopes {
		if envelope.isResolved() && envelope.resolvedAt.Before(deadline) {
			log.Debug("del - task - expired - id:", envelope.id)
			s.evictNoLock(envelope)
		}
	}
	s.Unlock()
}

// Fail tasks that were assigned to workers which are gone.
func (s *priorityScheduler) failTasksOfWorkers(records []*WorkerRecord, reason string) {
	if len(records) == 0 {
		return
	}

	gone := map[string]bool{}
	for _, record := range records {
		gone[record.Id] = true
	}

	now := s.now()
	var events []TaskEvent

	s.Lock()
	for _, envelope := range s.envelopes {
		if envelope.status == protocol.TaskStatus_TASK_ASSIGNED && gone[envelope.assignee] {
			log.Infof("nok - task - id: %s, worker: %s, %s", envelope.id, envelope.assignee, reason)
			s.resolveNoLock(envelope, protocol.TaskStatus_TASK_FAILED, fmt.Sprintf("%s: %s", reason, envelope.assignee), now)
			events = append(events, envelope.event())
		}
	}
	observers := s.observers
	s.Unlock()

	for _, event := range events {
		for _, observer := range observers {
			observer.TaskStatusChanged(event, event.Status)
		}
	}
}

func (s *priorityScheduler) resolveNoLock(envelope *Envelope, status protocol.TaskStatus, message string, now time.Time) {
	envelope.resolve(status, message, now)

	if status == protocol.TaskStatus_TASK_COMPLETED {
		s.numCompletedTasks++
		log.Info("end - task - completed - id:", envelope.id)
	} else {
		s.numFailedTasks++
		log.Infof("end - task - failed - id: %s, error: %s", envelope.id, message)
	}
}

func (s *priorityScheduler) evictNoLock(envelope *Envelope) {
	delete(s.envelopes, envelope.id)
	if err := s.results.Remove(envelope.id); err != nil && !errors.Is(err, utils.ErrNotFound) {
		log.Debugf("del - result - failed - id: %s, error: %v", envelope.id, err)
	}
}

func (s *priorityScheduler) AddObserver(observer SchedulerObserver) {
	s.Lock()
	defer s.Unlock()

	// Copy on write, the slice is read without the lock held
	observers := make([]SchedulerObserver, 0, len(s.observers)+1)
	observers = append(observers, s.observers...)
	s.observers = append(observers, observer)
}

// Scheduler statistics
func (s *priorityScheduler) Statistics() *SchedulerStatistics {
	s.RLock()
	defer s.RUnlock()

	stats := &SchedulerStatistics{
		Workers:        int64(s.registry.Len()),
		QueuedTasks:    int64(s.queue.Size()),
		CompletedTasks: s.numCompletedTasks,
		FailedTasks:    s.numFailedTasks,
		ResultBytes:    s.results.Size(),
	}

	for _, envelope := range s.envelopes {
		switch {
		case envelope.status == protocol.TaskStatus_TASK_ASSIGNED:
			stats.AssignedTasks++
		case envelope.isResolved():
			stats.UncollectedResults++
		}
	}

	return stats
}

func (s *priorityScheduler) ListWorkers() []*protocol.WorkerInfo {
	return s.registry.List()
}
