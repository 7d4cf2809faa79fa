package worker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/codes"
)

// Attempts made to deliver one result before it is given up.
const submitAttempts = 5

// Time allowed for calls made after the agent has been cancelled.
const shutdownTimeout = 10 * time.Second

type State int32

const (
	StateRegistering State = iota
	StateIdle
	StateExecuting
)

func (s State) String() string {
	switch s {
	case StateRegistering:
		return "REGISTERING"
	case StateIdle:
		return "IDLE"
	case StateExecuting:
		return "EXECUTING"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// A worker agent. It registers with the scheduler and then pulls and
// executes tasks one at a time until its context is cancelled.
type Agent struct {
	client     protocol.ComputeClient
	config     *WorkerConfig
	dispatcher *dispatch.Dispatcher
	host       *protocol.WorkerRegistration
	backoff    backoff.Config

	mu       sync.Mutex
	state    State
	workerId string
}

func NewAgent(client protocol.ComputeClient, config *WorkerConfig, dispatcher *dispatch.Dispatcher) *Agent {
	return &Agent{
		client:     client,
		config:     config,
		dispatcher: dispatcher,
		host:       DiscoverHost(config.Hostname, config.ThreadCount),
		backoff:    backoff.DefaultConfig,
	}
}

// Overrides the registration and result delivery backoff.
func (a *Agent) SetBackoff(config backoff.Config) {
	a.backoff = config
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Returns the identity assigned by the scheduler, if registered.
func (a *Agent) WorkerId() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workerId
}

func (a *Agent) setState(state State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != state {
		log.Tracef("state - worker - %s -> %s", a.state, state)
	}
	a.state = state
}

func (a *Agent) setWorkerId(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workerId = id
}

// Runs the agent until the context is cancelled. Returns an error only
// when the scheduler refuses to register the agent.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting")
	defer log.Info("Terminating")

	defer a.deregister(ctx)

	for ctx.Err() == nil {
		switch a.State() {
		case StateRegistering:
			if err := a.register(ctx); err != nil {
				return err
			}

		case StateIdle:
			a.poll(ctx)
		}
	}

	return nil
}

func (a *Agent) register(ctx context.Context) error {
	// A previous identity is dropped before a new one is requested
	if old := a.WorkerId(); old != "" {
		a.deregister(ctx)
	}

	for retries := 0; ; retries++ {
		response, err := a.client.RegisterWorker(ctx, a.host)
		if err == nil {
			if !response.Authorized {
				log.Error("Registration refused:", response.Reason)
				return fmt.Errorf("%w: %s", utils.ErrUnauthorized, response.Reason)
			}

			a.setWorkerId(response.WorkerId)
			a.setState(StateIdle)
			log.Infof("Registered with scheduler, worker: %s", response.WorkerId)
			return nil
		}

		switch utils.GrpcCode(err) {
		case codes.PermissionDenied, codes.Unauthenticated:
			log.Error("Registration refused:", err)
			return fmt.Errorf("%w: %v", utils.ErrUnauthorized, err)
		case codes.Canceled:
			if ctx.Err() != nil {
				return nil
			}
		}

		delay := a.backoffDelay(retries)
		log.Warnf("Failed to register with scheduler, retrying in %v: %v", delay.Round(time.Millisecond), err)
		if !sleep(ctx, delay) {
			return nil
		}
	}
}

func (a *Agent) deregister(ctx context.Context) {
	id := a.WorkerId()
	if id == "" {
		return
	}
	a.setWorkerId("")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if _, err := a.client.DeregisterWorker(ctx, &protocol.WorkerIdentifier{WorkerId: id}); err != nil {
		log.Debug("Failed to deregister:", err)
		return
	}
	log.Info("Deregistered from scheduler, worker:", id)
}

// Requests one task and executes it, or waits for the poll interval.
func (a *Agent) poll(ctx context.Context) {
	workerId := a.WorkerId()

	task, err := a.client.RequestTask(ctx, &protocol.WorkerIdentifier{WorkerId: workerId})
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		if utils.GrpcCode(err) == codes.NotFound {
			log.Info("Scheduler no longer knows this worker, registering again")
			// The scheduler has already dropped this identity
			a.setWorkerId("")
		} else {
			log.Warn("Failed to request task:", err)
		}
		a.setState(StateRegistering)
		return
	}

	if !task.HasTask() {
		sleep(ctx, a.config.PollInterval)
		return
	}

	a.execute(ctx, workerId, task)
}

func (a *Agent) execute(ctx context.Context, workerId string, task *protocol.TaskRequest) {
	a.setState(StateExecuting)

	log.Infof("run - task - id: %s, priority: %s, size: %s", task.TaskId, task.Priority, utils.HumanByteSize(int64(len(task.Payload))))
	start := time.Now()

	result := &protocol.TaskResult{
		TaskId:   task.TaskId,
		WorkerId: workerId,
	}

	data, err := a.dispatcher.Execute(ctx, task.Payload)
	if err != nil {
		result.Status = protocol.TaskStatus_TASK_FAILED
		result.ErrorMessage = err.Error()
		log.Infof("end - task - id: %s, failed: %v", task.TaskId, err)
	} else {
		result.Status = protocol.TaskStatus_TASK_COMPLETED
		result.Data = data
		log.Infof("end - task - id: %s, duration: %v", task.TaskId, time.Since(start).Round(time.Millisecond))
	}

	a.submit(ctx, result)
}

// Delivers a result. Delivery is retried on transport errors, the
// scheduler ignores duplicates.
func (a *Agent) submit(ctx context.Context, result *protocol.TaskResult) {
	// A result produced during shutdown is still worth delivering
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout+a.backoff.MaxDelay)
	defer cancel()

	for retries := 0; retries < submitAttempts; retries++ {
		ack, err := a.client.SubmitResult(ctx, result)
		if err == nil {
			if !ack.Accepted {
				log.Debug("Result not accepted, task:", result.TaskId)
			}
			a.setState(StateIdle)
			return
		}

		switch utils.GrpcCode(err) {
		case codes.NotFound:
			log.Info("Scheduler no longer knows this worker, registering again")
			a.setWorkerId("")
			a.setState(StateRegistering)
			return
		case codes.InvalidArgument:
			log.Error("Result rejected, task:", result.TaskId, err)
			a.setState(StateIdle)
			return
		}

		delay := a.backoffDelay(retries)
		log.Warnf("Failed to submit result, task: %s, retrying in %v: %v", result.TaskId, delay.Round(time.Millisecond), err)
		if !sleep(ctx, delay) {
			break
		}
	}

	log.Error("Giving up on result, task:", result.TaskId)
	a.setState(StateRegistering)
}

// Exponential backoff with jitter, following the grpc connection backoff.
func (a *Agent) backoffDelay(retries int) time.Duration {
	base, max := float64(a.backoff.BaseDelay), float64(a.backoff.MaxDelay)
	delay := base
	for delay < max && retries > 0 {
		delay *= a.backoff.Multiplier
		retries--
	}
	if delay > max {
		delay = max
	}
	delay *= 1 + a.backoff.Jitter*(rand.Float64()*2-1)
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// Waits for the duration. Returns false if the context ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
