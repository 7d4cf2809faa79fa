package client

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jscience/grid/pkg/dispatch"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/resultstash"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/jscience/grid/pkg/tasks"
	"github.com/jscience/grid/pkg/worker"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var testView = tasks.MandelbrotSlice{Width: 32, Height: 24, MaxIter: 64, XMin: -2, XMax: 1, YMin: -1.2, YMax: 1.2}

func startScheduler(t *testing.T) *bufconn.Listener {
	listener := bufconn.Listen(1 << 20)

	stash := resultstash.NewResultStash(&resultstash.Config{Size: "4MiB"}, afero.NewMemMapFs())
	sched := scheduler.NewPriorityScheduler(scheduler.Config{MaxWait: 5 * time.Second}, stash)

	server := grpc.NewServer()
	protocol.RegisterComputeServer(server, scheduler.NewComputeService(sched, nil))

	go server.Serve(listener)
	t.Cleanup(server.Stop)

	return listener
}

func dial(t *testing.T, listener *bufconn.Listener) protocol.ComputeClient {
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.UseCompressor(protocol.CompressorName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return protocol.NewComputeClient(conn)
}

// Starts a worker agent and waits until it is registered.
func startAgent(t *testing.T, listener *bufconn.Listener, dispatcher *dispatch.Dispatcher) {
	agent := worker.NewAgent(dial(t, listener), &worker.WorkerConfig{
		Hostname:     "test",
		ThreadCount:  1,
		PollInterval: 5 * time.Millisecond,
	}, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		agent.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		return agent.WorkerId() != ""
	}, 5*time.Second, 5*time.Millisecond)
}

func localPi(t *testing.T, job *PiJob) tasks.PiResult {
	var expected tasks.PiResult
	for i := 0; i < job.Batches(); i++ {
		r, err := tasks.SamplePi(context.Background(), job.batch(i))
		require.NoError(t, err)
		expected.Add(r)
	}
	return expected
}

func TestUnreachableSchedulerMatchesLocal(t *testing.T) {
	listener := bufconn.Listen(1 << 10)
	listener.Close()

	c := NewClient(dial(t, listener), tasks.NewDispatcher(1), &Config{Batches: 4, Timeout: time.Second})

	job := NewPiJob(4, 50000, 42)
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, localPi(t, job), job.Result)
	assert.Equal(t, 4, report.Local())
	for _, batch := range report.Batches {
		assert.Equal(t, NotSubmitted, batch.Outcome)
	}
}

func TestNoRemote(t *testing.T) {
	c := NewClient(nil, tasks.NewDispatcher(1), &Config{})

	job := NewPiJob(3, 1000, 1)
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Local())
	assert.Equal(t, int64(3000), job.Result.Samples)
}

func TestRemoteMandelbrot(t *testing.T) {
	listener := startScheduler(t)
	startAgent(t, listener, tasks.NewDispatcher(1))

	c := NewClient(dial(t, listener), tasks.NewDispatcher(1), &Config{Timeout: 5 * time.Second, Parallelism: 2})

	job := NewMandelbrotJob(testView, 4)
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Remote())
	for _, batch := range report.Batches {
		assert.Equal(t, RemoteSuccess, batch.Outcome)
		assert.NotEmpty(t, batch.TaskId)
	}

	whole := testView
	whole.RowStart, whole.RowEnd = 0, whole.Height
	expected, err := tasks.ComputeMandelbrot(context.Background(), whole)
	require.NoError(t, err)
	assert.Equal(t, expected.Counts, job.Counts)
}

func TestRemoteFailureFallsBack(t *testing.T) {
	listener := startScheduler(t)
	// This worker knows no task types
	startAgent(t, listener, dispatch.NewDispatcher())

	c := NewClient(dial(t, listener), tasks.NewDispatcher(1), &Config{Timeout: 5 * time.Second})

	job := NewPiJob(2, 10000, 9)
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, localPi(t, job), job.Result)
	for _, batch := range report.Batches {
		assert.Equal(t, RemoteFailure, batch.Outcome)
		assert.True(t, batch.Local)
		assert.Contains(t, batch.Error, "Unrecognized task type")
	}
}

func TestTimeoutFallsBack(t *testing.T) {
	listener := startScheduler(t)
	remote := dial(t, listener)

	// Registered, but never pulls
	_, err := remote.RegisterWorker(context.Background(), &protocol.WorkerRegistration{Hostname: "idle"})
	require.NoError(t, err)

	c := NewClient(remote, tasks.NewDispatcher(1), &Config{Timeout: 200 * time.Millisecond})

	job := NewPiJob(2, 10000, 5)
	start := time.Now()
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)

	assert.Equal(t, localPi(t, job), job.Result)
	for _, batch := range report.Batches {
		assert.Equal(t, Timeout, batch.Outcome)
		assert.True(t, batch.Local)
		// The scheduler gives up waiting before the call deadline
		assert.Contains(t, batch.Error, "still QUEUED")
	}
}

// Answers every batch except the ones it refuses to accept.
type flakyCompute struct {
	protocol.ComputeClient

	dispatcher *dispatch.Dispatcher

	// Answer with bytes no job can decode
	garbage bool

	mu       sync.Mutex
	calls    int
	failCall int
	payloads map[string][]byte
}

func (f *flakyCompute) GetStatus(context.Context, *protocol.Empty, ...grpc.CallOption) (*protocol.ServerStatus, error) {
	return &protocol.ServerStatus{ActiveWorkers: 1}, nil
}

func (f *flakyCompute) SubmitTask(_ context.Context, in *protocol.TaskRequest, _ ...grpc.CallOption) (*protocol.TaskResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls == f.failCall {
		return nil, status.Error(codes.Unavailable, "connection reset")
	}
	f.payloads[in.TaskId] = in.Payload
	return &protocol.TaskResponse{TaskId: in.TaskId, Status: protocol.SubmitStatus_QUEUED}, nil
}

func (f *flakyCompute) StreamResults(ctx context.Context, in *protocol.TaskIdentifier, _ ...grpc.CallOption) (protocol.Compute_StreamResultsClient, error) {
	f.mu.Lock()
	payload := f.payloads[in.TaskId]
	f.mu.Unlock()

	if f.garbage {
		return &resultStream{result: &protocol.TaskResult{TaskId: in.TaskId, Status: protocol.TaskStatus_TASK_COMPLETED, Data: []byte{0xff, 0x00}}}, nil
	}

	data, err := f.dispatcher.Execute(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &resultStream{result: &protocol.TaskResult{TaskId: in.TaskId, Status: protocol.TaskStatus_TASK_COMPLETED, Data: data}}, nil
}

type resultStream struct {
	grpc.ClientStream
	result *protocol.TaskResult
}

func (s *resultStream) Recv() (*protocol.TaskResult, error) {
	return s.result, nil
}

func TestFallbackIsPerBatch(t *testing.T) {
	remote := &flakyCompute{
		dispatcher: tasks.NewDispatcher(1),
		failCall:   2,
		payloads:   map[string][]byte{},
	}

	c := NewClient(remote, tasks.NewDispatcher(1), &Config{Parallelism: 1})

	job := NewPiJob(4, 20000, 77)
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, localPi(t, job), job.Result)
	assert.Equal(t, 3, report.Remote())
	assert.Equal(t, 1, report.Local())

	outcomes := map[Outcome]int{}
	for _, batch := range report.Batches {
		outcomes[batch.Outcome]++
	}
	assert.Equal(t, map[Outcome]int{RemoteSuccess: 3, TransportError: 1}, outcomes)
}

func TestUnusableResultFallsBack(t *testing.T) {
	remote := &flakyCompute{
		dispatcher: tasks.NewDispatcher(1),
		garbage:    true,
		payloads:   map[string][]byte{},
	}

	c := NewClient(remote, tasks.NewDispatcher(1), &Config{Parallelism: 2})

	job := NewPiJob(4, 20000, 31)
	report, err := c.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, localPi(t, job), job.Result)
	assert.Equal(t, 4, report.Local())
	assert.Equal(t, 0, report.Remote())
	for _, batch := range report.Batches {
		assert.Equal(t, RemoteFailure, batch.Outcome)
		assert.True(t, batch.Local)
		assert.NotEmpty(t, batch.TaskId)
		assert.Contains(t, batch.Error, "unusable result")
	}
}

func TestMandelbrotJobBands(t *testing.T) {
	job := NewMandelbrotJob(testView, 5)

	covered := 0
	for i := 0; i < job.Batches(); i++ {
		band := job.band(i)
		assert.Equal(t, int32(covered), band.RowStart)
		covered = int(band.RowEnd)
	}
	assert.Equal(t, int(testView.Height), covered)

	data, err := job.Encode(0)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Error(t, job.Merge(0, []byte{0xa0}))

	// More batches than rows
	assert.Equal(t, 2, NewMandelbrotJob(tasks.MandelbrotSlice{Width: 4, Height: 2, MaxIter: 1}, 8).Batches())
}

func TestConfig(t *testing.T) {
	config := &Config{Compress: true}
	config.SetDefaults()
	assert.NoError(t, config.Validate())
	assert.Equal(t, DefaultBatchTimeout, config.Timeout)
	assert.Equal(t, protocol.Priority_NORMAL, config.priority())
	assert.Equal(t, protocol.CompressorName, config.Grpc.Compression)

	config.Priority = "urgent"
	assert.Error(t, config.Validate())
}
