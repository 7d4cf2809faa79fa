package scheduler

import (
	"context"
	"time"

	"github.com/jscience/grid/pkg/protocol"
)

// Main scheduler interface.
type Scheduler interface {
	// Accept a task for execution.
	// Returns utils.ErrBadRequest for malformed requests and
	// utils.ErrDuplicate if the task id is already live.
	SubmitTask(request *protocol.TaskRequest) (*Envelope, error)

	// Wait for a task to resolve, at most the given duration.
	// A final result is delivered once, after which the task is forgotten.
	// A pending task is reported with its current status.
	AwaitResult(ctx context.Context, taskId string, timeout time.Duration) (*protocol.TaskResult, error)

	///////////////////////////////////////////////////////////////////////////

	// Register a new worker on behalf of an authorized principal.
	RegisterWorker(principal string, registration *protocol.WorkerRegistration) (*WorkerRecord, error)

	// Remove a worker. Tasks assigned to it are failed.
	DeregisterWorker(workerId string) error

	// Hand the next queued task to a worker.
	// Returns nil without error when no task is available.
	RequestTask(workerId string) (*Envelope, error)

	// Record the outcome of an assigned task.
	// Returns false if the result was ignored because the task is not
	// assigned to the reporting worker.
	SubmitResult(result *protocol.TaskResult) (bool, error)

	///////////////////////////////////////////////////////////////////////////

	// Run periodic maintenance until the context is cancelled.
	Run(ctx context.Context)

	// Register a telemetry receiver.
	AddObserver(observer SchedulerObserver)

	// Get scheduler statistics
	Statistics() *SchedulerStatistics

	// Get information about registered workers
	ListWorkers() []*protocol.WorkerInfo
}

// Scheduler statistics
type SchedulerStatistics struct {
	// Number of registered workers
	Workers int64

	// Number of tasks waiting for a worker
	QueuedTasks int64

	// Number of tasks being executed
	AssignedTasks int64

	// Number of resolved tasks not yet collected
	UncollectedResults int64

	// Total number of successful tasks
	CompletedTasks int64

	// Total number of failed tasks
	FailedTasks int64

	// Total size of stored results
	ResultBytes int64
}

// Returns the statistics in wire form.
func (s *SchedulerStatistics) ServerStatus() *protocol.ServerStatus {
	return &protocol.ServerStatus{
		ActiveWorkers:  int32(s.Workers),
		QueuedTasks:    int32(s.QueuedTasks),
		AssignedTasks:  int32(s.AssignedTasks),
		CompletedTasks: s.CompletedTasks,
		FailedTasks:    s.FailedTasks,
	}
}

// Scheduler tuning.
type Config struct {
	// How long a resolved result is kept when no client collects it.
	ResultTTL time.Duration

	// Workers silent for longer than this are removed. Zero disables reaping.
	WorkerTimeout time.Duration

	// Upper bound for result waits.
	MaxWait time.Duration

	// Period of the maintenance sweep.
	SweepInterval time.Duration
}

func (c *Config) SetDefaults() {
	if c.ResultTTL <= 0 {
		c.ResultTTL = 10 * time.Minute
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 30 * time.Second
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Second
	}
}
