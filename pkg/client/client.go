// Package client splits jobs into batches, runs them on the grid and
// computes any batch the grid does not answer in time locally.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
)

// Upper bound of the time left between the scheduler wait and the call deadline.
const maxWaitMargin = 500 * time.Millisecond

// How a batch fared on the grid.
type Outcome int

const (
	// The grid returned the batch output.
	RemoteSuccess Outcome = iota
	// The grid rejected the batch or its execution failed.
	RemoteFailure
	// The batch did not resolve before its deadline.
	Timeout
	// The scheduler could not be reached.
	TransportError
	// The batch was never offered to the grid.
	NotSubmitted
)

func (o Outcome) String() string {
	switch o {
	case RemoteSuccess:
		return "remote"
	case RemoteFailure:
		return "remote-failure"
	case Timeout:
		return "timeout"
	case TransportError:
		return "transport-error"
	case NotSubmitted:
		return "not-submitted"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// A unit of work that can be split into independent batches.
// Merge is never called concurrently.
type Job interface {
	// Number of batches.
	Batches() int
	// Task payload of batch i.
	Encode(i int) ([]byte, error)
	// Folds the output of batch i into the job result.
	// The result is left untouched when an error is returned.
	Merge(i int, data []byte) error
}

// The answer of the grid for one batch.
type RemoteResult struct {
	Outcome Outcome
	TaskId  string
	Data    []byte
	Err     error
}

type BatchReport struct {
	Index    int           `json:"index" yaml:"index"`
	TaskId   string        `json:"taskId,omitempty" yaml:"taskId,omitempty"`
	Outcome  Outcome       `json:"outcome" yaml:"outcome"`
	Local    bool          `json:"local" yaml:"local"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Where each batch of a job ran.
type Report struct {
	Batches []BatchReport `json:"batches" yaml:"batches"`
}

func (r *Report) Remote() int {
	n := 0
	for _, b := range r.Batches {
		if !b.Local {
			n++
		}
	}
	return n
}

func (r *Report) Local() int {
	return len(r.Batches) - r.Remote()
}

type Client struct {
	remote protocol.ComputeClient
	local  *dispatch.Dispatcher
	config *Config
}

// Creates a client. A nil remote computes every batch locally.
func NewClient(remote protocol.ComputeClient, local *dispatch.Dispatcher, config *Config) *Client {
	config.SetDefaults()

	return &Client{
		remote: remote,
		local:  local,
		config: config,
	}
}

// Dials the scheduler named by the configuration.
func Dial(config *Config) (protocol.ComputeClient, *grpc.ClientConn, error) {
	grpcUri, err := utils.ParseGrpcUrl(config.SchedulerGrpcUri)
	if err != nil {
		return nil, nil, err
	}

	dialOptions := append(config.Grpc.ToDialOptions(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(utils.TokenCredentials(config.Token)),
	)

	conn, err := grpc.NewClient(grpcUri, dialOptions...)
	if err != nil {
		return nil, nil, err
	}

	return protocol.NewComputeClient(conn), conn, nil
}

// Runs all batches of a job. Batches the grid does not complete are
// computed locally, so the merged result is the same either way.
func (c *Client) Run(ctx context.Context, job Job) (*Report, error) {
	n := job.Batches()
	report := &Report{Batches: make([]BatchReport, n)}

	useRemote := c.preflight(ctx)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Parallelism)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			payload, err := job.Encode(i)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}

			start := time.Now()
			remote := RemoteResult{Outcome: NotSubmitted}
			if useRemote {
				remote = c.runRemote(gctx, payload)
			}

			batch := BatchReport{Index: i, TaskId: remote.TaskId, Outcome: remote.Outcome}

			if remote.Outcome == RemoteSuccess {
				mu.Lock()
				err := job.Merge(i, remote.Data)
				if err == nil {
					batch.Duration = time.Since(start)
					report.Batches[i] = batch
				}
				mu.Unlock()
				if err == nil {
					return nil
				}

				// Output of a worker that cannot be merged counts as a failure
				batch.Outcome = RemoteFailure
				remote.Err = fmt.Errorf("unusable result: %w", err)
			}

			if remote.Err != nil {
				batch.Error = remote.Err.Error()
				log.Debugf("Batch %d fell back to local execution, %s: %v", i, batch.Outcome, remote.Err)
			}

			data, err := c.local.Execute(gctx, payload)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			batch.Local = true
			batch.Duration = time.Since(start)

			mu.Lock()
			defer mu.Unlock()

			report.Batches[i] = batch
			if err := job.Merge(i, data); err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	log.Infof("Job finished, batches: %d, remote: %d, local: %d", n, report.Remote(), report.Local())
	return report, nil
}

// Returns true if the grid has workers to run batches.
func (c *Client) preflight(ctx context.Context) bool {
	if c.remote == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	status, err := c.remote.GetStatus(ctx, &protocol.Empty{})
	if err != nil {
		log.Warn("Scheduler unavailable, computing locally:", err)
		return false
	}

	if status.ActiveWorkers == 0 {
		log.Info("No active workers, computing locally")
		return false
	}

	return true
}

// Submits one batch and waits for its result until the batch deadline.
func (c *Client) runRemote(ctx context.Context, payload []byte) RemoteResult {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	result := RemoteResult{TaskId: uuid.NewString()}

	response, err := c.remote.SubmitTask(ctx, &protocol.TaskRequest{
		TaskId:    result.TaskId,
		Payload:   payload,
		Priority:  c.config.priority(),
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return failed(result, err)
	}

	if response.Status != protocol.SubmitStatus_QUEUED {
		result.Outcome = RemoteFailure
		result.Err = fmt.Errorf("rejected: %s", response.Reason)
		return result
	}

	// The scheduler answers with a pending snapshot when its wait runs
	// out, which has to happen before the call deadline.
	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		timeout = remaining - min(remaining/5, maxWaitMargin)
		if timeout < time.Millisecond {
			timeout = time.Millisecond
		}
	}

	stream, err := c.remote.StreamResults(ctx, &protocol.TaskIdentifier{
		TaskId:        result.TaskId,
		TimeoutMillis: timeout.Milliseconds(),
	})
	if err != nil {
		return failed(result, err)
	}

	task, err := stream.Recv()
	if err != nil {
		return failed(result, err)
	}

	switch task.Status {
	case protocol.TaskStatus_TASK_COMPLETED:
		result.Outcome = RemoteSuccess
		result.Data = task.Data
	case protocol.TaskStatus_TASK_FAILED:
		result.Outcome = RemoteFailure
		result.Err = fmt.Errorf("failed on %s: %s", task.WorkerId, task.ErrorMessage)
	default:
		result.Outcome = Timeout
		result.Err = fmt.Errorf("still %s after %v", task.Status, c.config.Timeout)
	}
	return result
}

// Classifies a call error.
func failed(result RemoteResult, err error) RemoteResult {
	result.Err = err
	switch utils.GrpcCode(err) {
	case codes.DeadlineExceeded:
		result.Outcome = Timeout
	case codes.InvalidArgument, codes.PermissionDenied, codes.AlreadyExists, codes.NotFound:
		result.Outcome = RemoteFailure
	default:
		result.Outcome = TransportError
	}
	return result
}
