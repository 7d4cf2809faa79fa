package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/resultstash"
	"github.com/jscience/grid/pkg/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type MockObserver struct {
	mock.Mock
}

func (o *MockObserver) TaskSubmitted(task TaskEvent) {
	o.Called(task.TaskId)
}

func (o *MockObserver) TaskStatusChanged(task TaskEvent, status protocol.TaskStatus) {
	o.Called(task.TaskId, status)
}

func newTestStash() resultstash.ResultStash {
	return resultstash.NewResultStash(&resultstash.Config{Size: "1MiB"}, afero.NewMemMapFs())
}

type SchedulerTestSuite struct {
	suite.Suite
	scheduler *priorityScheduler
	clock     time.Time
}

func (s *SchedulerTestSuite) SetupTest() {
	s.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.scheduler = NewPriorityScheduler(Config{
		ResultTTL:     time.Minute,
		WorkerTimeout: time.Minute,
		MaxWait:       time.Second,
	}, newTestStash())
	s.scheduler.now = func() time.Time { return s.clock }
}

func (s *SchedulerTestSuite) submit(id string, priority protocol.Priority) {
	_, err := s.scheduler.SubmitTask(&protocol.TaskRequest{TaskId: id, Priority: priority, Payload: []byte(id)})
	s.Require().NoError(err)
}

func (s *SchedulerTestSuite) register() string {
	record, err := s.scheduler.RegisterWorker("test", &protocol.WorkerRegistration{Hostname: "host", Cores: 4, MemoryBytes: 1 << 30})
	s.Require().NoError(err)
	return record.Id
}

func (s *SchedulerTestSuite) pull(workerId string) string {
	envelope, err := s.scheduler.RequestTask(workerId)
	s.Require().NoError(err)
	if envelope == nil {
		return ""
	}
	return envelope.Id()
}

func (s *SchedulerTestSuite) TestPriorityOrder() {
	worker := s.register()

	s.submit("normal", protocol.Priority_NORMAL)
	s.submit("critical", protocol.Priority_CRITICAL)
	s.submit("low", protocol.Priority_LOW)

	s.Equal("critical", s.pull(worker))
	s.Equal("normal", s.pull(worker))
	s.Equal("low", s.pull(worker))
	s.Equal("", s.pull(worker))
}

func (s *SchedulerTestSuite) TestFifoWithinPriority() {
	worker := s.register()

	for i := 0; i < 10; i++ {
		s.submit(fmt.Sprintf("h%d", i), protocol.Priority_HIGH)
		s.submit(fmt.Sprintf("n%d", i), protocol.Priority_NORMAL)
	}

	for i := 0; i < 10; i++ {
		s.Equal(fmt.Sprintf("h%d", i), s.pull(worker))
	}
	for i := 0; i < 10; i++ {
		s.Equal(fmt.Sprintf("n%d", i), s.pull(worker))
	}
}

func (s *SchedulerTestSuite) TestSubmitValidation() {
	_, err := s.scheduler.SubmitTask(&protocol.TaskRequest{})
	s.ErrorIs(err, utils.ErrBadRequest)

	_, err = s.scheduler.SubmitTask(&protocol.TaskRequest{TaskId: "t", Priority: -1})
	s.ErrorIs(err, utils.ErrBadRequest)

	_, err = s.scheduler.SubmitTask(&protocol.TaskRequest{TaskId: "t", Priority: 4})
	s.ErrorIs(err, utils.ErrBadRequest)

	s.Equal(int64(0), s.scheduler.Statistics().QueuedTasks)
}

func (s *SchedulerTestSuite) TestDuplicateRejected() {
	s.submit("t1", protocol.Priority_NORMAL)

	_, err := s.scheduler.SubmitTask(&protocol.TaskRequest{TaskId: "t1", Priority: protocol.Priority_HIGH})
	s.ErrorIs(err, utils.ErrDuplicate)

	// The first submission is still live
	result, err := s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_QUEUED, result.Status)
	s.Equal(int64(1), s.scheduler.Statistics().QueuedTasks)
}

func (s *SchedulerTestSuite) TestUnknownWorker() {
	s.submit("t1", protocol.Priority_NORMAL)

	_, err := s.scheduler.RequestTask("nobody")
	s.ErrorIs(err, utils.ErrNotFound)
	s.Equal(int64(1), s.scheduler.Statistics().QueuedTasks)

	_, err = s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "t1", WorkerId: "nobody", Status: protocol.TaskStatus_TASK_COMPLETED})
	s.ErrorIs(err, utils.ErrNotFound)
}

func (s *SchedulerTestSuite) TestSubmitResultIdempotent() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)
	s.Equal("t1", s.pull(worker))

	result := &protocol.TaskResult{TaskId: "t1", WorkerId: worker, Status: protocol.TaskStatus_TASK_COMPLETED, Data: []byte("42")}

	accepted, err := s.scheduler.SubmitResult(result)
	s.NoError(err)
	s.True(accepted)

	accepted, err = s.scheduler.SubmitResult(result)
	s.NoError(err)
	s.False(accepted)

	stats := s.scheduler.Statistics()
	s.Equal(int64(1), stats.CompletedTasks)
	s.Equal(int64(1), stats.UncollectedResults)
	s.Equal(int64(2), stats.ResultBytes)
}

func (s *SchedulerTestSuite) TestOversizedResultFails() {
	s.scheduler.results = resultstash.NewResultStash(&resultstash.Config{Size: "1KiB"}, afero.NewMemMapFs())

	worker := s.register()
	s.submit("big", protocol.Priority_NORMAL)
	s.Equal("big", s.pull(worker))

	accepted, err := s.scheduler.SubmitResult(&protocol.TaskResult{
		TaskId:   "big",
		WorkerId: worker,
		Status:   protocol.TaskStatus_TASK_COMPLETED,
		Data:     make([]byte, 4096),
	})
	s.NoError(err)
	s.True(accepted)

	stats := s.scheduler.Statistics()
	s.Equal(int64(0), stats.CompletedTasks)
	s.Equal(int64(1), stats.FailedTasks)
	s.Equal(int64(0), stats.ResultBytes)

	result, err := s.scheduler.AwaitResult(context.Background(), "big", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_FAILED, result.Status)
	s.Contains(result.ErrorMessage, "exceeds the stash limit")
	s.Empty(result.Data)
}

func (s *SchedulerTestSuite) TestSubmitResultNotAssigned() {
	worker := s.register()
	other := s.register()
	s.submit("queued", protocol.Priority_NORMAL)

	accepted, err := s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "queued", WorkerId: worker, Status: protocol.TaskStatus_TASK_COMPLETED})
	s.NoError(err)
	s.False(accepted)

	accepted, err = s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "never", WorkerId: worker, Status: protocol.TaskStatus_TASK_FAILED})
	s.NoError(err)
	s.False(accepted)

	s.Equal("queued", s.pull(worker))
	accepted, err = s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "queued", WorkerId: other, Status: protocol.TaskStatus_TASK_COMPLETED})
	s.NoError(err)
	s.False(accepted)

	_, err = s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "queued", WorkerId: worker, Status: protocol.TaskStatus_TASK_QUEUED})
	s.ErrorIs(err, utils.ErrBadRequest)
}

func (s *SchedulerTestSuite) TestAwaitPendingThenResult() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)

	result, err := s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_QUEUED, result.Status)

	s.Equal("t1", s.pull(worker))

	result, err = s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_ASSIGNED, result.Status)
	s.Equal(worker, result.WorkerId)

	_, err = s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "t1", WorkerId: worker, Status: protocol.TaskStatus_TASK_COMPLETED, Data: []byte("done")})
	s.NoError(err)

	result, err = s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_COMPLETED, result.Status)
	s.Equal([]byte("done"), result.Data)

	// Delivered once, then forgotten
	_, err = s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.ErrorIs(err, utils.ErrNotFound)

	// The id may be reused
	s.submit("t1", protocol.Priority_NORMAL)
}

func (s *SchedulerTestSuite) TestAwaitWakesOnResult() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)
	s.Equal("t1", s.pull(worker))

	done := make(chan *protocol.TaskResult)
	go func() {
		result, _ := s.scheduler.AwaitResult(context.Background(), "t1", time.Second)
		done <- result
	}()

	_, err := s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "t1", WorkerId: worker, Status: protocol.TaskStatus_TASK_FAILED, ErrorMessage: "boom"})
	s.NoError(err)

	select {
	case result := <-done:
		s.Require().NotNil(result)
		s.Equal(protocol.TaskStatus_TASK_FAILED, result.Status)
		s.Equal("boom", result.ErrorMessage)
		s.Empty(result.Data)
	case <-time.After(5 * time.Second):
		s.Fail("result not delivered")
	}
}

func (s *SchedulerTestSuite) TestAwaitUnknown() {
	_, err := s.scheduler.AwaitResult(context.Background(), "missing", time.Millisecond)
	s.ErrorIs(err, utils.ErrNotFound)
}

func (s *SchedulerTestSuite) TestAwaitCancelled() {
	s.submit("t1", protocol.Priority_NORMAL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.scheduler.AwaitResult(ctx, "t1", time.Second)
	s.ErrorIs(err, context.Canceled)
}

func (s *SchedulerTestSuite) TestQueuedTasksCount() {
	worker := s.register()
	for i := 0; i < 5; i++ {
		s.submit(fmt.Sprintf("t%d", i), protocol.Priority_NORMAL)
	}
	s.pull(worker)
	s.pull(worker)

	stats := s.scheduler.Statistics()
	s.Equal(int64(3), stats.QueuedTasks)
	s.Equal(int64(2), stats.AssignedTasks)
	s.Equal(int64(1), stats.Workers)

	status := stats.ServerStatus()
	s.Equal(int32(3), status.QueuedTasks)
	s.Equal(int32(1), status.ActiveWorkers)
}

func (s *SchedulerTestSuite) TestResultTTL() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)
	s.pull(worker)
	_, err := s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "t1", WorkerId: worker, Status: protocol.TaskStatus_TASK_COMPLETED, Data: []byte("x")})
	s.NoError(err)

	s.clock = s.clock.Add(30 * time.Second)
	s.scheduler.sweep()
	s.Equal(int64(1), s.scheduler.Statistics().UncollectedResults)

	s.clock = s.clock.Add(31 * time.Second)
	s.scheduler.sweep()
	s.Equal(int64(0), s.scheduler.Statistics().UncollectedResults)
	s.Equal(int64(0), s.scheduler.Statistics().ResultBytes)
}

func (s *SchedulerTestSuite) TestWorkerTimeout() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)
	s.pull(worker)

	s.clock = s.clock.Add(2 * time.Minute)
	s.scheduler.sweep()

	s.Equal(int64(0), s.scheduler.Statistics().Workers)

	result, err := s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_FAILED, result.Status)
	s.Contains(result.ErrorMessage, "worker timed out")

	_, err = s.scheduler.RequestTask(worker)
	s.ErrorIs(err, utils.ErrNotFound)
}

func (s *SchedulerTestSuite) TestDeregister() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)
	s.pull(worker)

	s.NoError(s.scheduler.DeregisterWorker(worker))
	s.ErrorIs(s.scheduler.DeregisterWorker(worker), utils.ErrNotFound)

	result, err := s.scheduler.AwaitResult(context.Background(), "t1", time.Millisecond)
	s.NoError(err)
	s.Equal(protocol.TaskStatus_TASK_FAILED, result.Status)
}

func (s *SchedulerTestSuite) TestDeregisterDuringRequest() {
	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)

	// Move the clock so the liveness refresh of the request is visible
	s.clock = s.clock.Add(time.Second)
	touched := s.clock.UnixMilli()

	s.scheduler.Lock()

	requested := make(chan error, 1)
	go func() {
		_, err := s.scheduler.RequestTask(worker)
		requested <- err
	}()
	s.Require().Eventually(func() bool {
		workers := s.scheduler.ListWorkers()
		return len(workers) == 1 && workers[0].LastSeen == touched
	}, time.Second, time.Millisecond)

	deregistered := make(chan error, 1)
	go func() {
		deregistered <- s.scheduler.DeregisterWorker(worker)
	}()
	s.Require().Eventually(func() bool {
		return s.scheduler.registry.Len() == 0
	}, time.Second, time.Millisecond)

	s.scheduler.Unlock()

	s.ErrorIs(<-requested, utils.ErrNotFound)
	s.NoError(<-deregistered)

	stats := s.scheduler.Statistics()
	s.Equal(int64(1), stats.QueuedTasks)
	s.Equal(int64(0), stats.AssignedTasks)
	s.Equal(int64(0), stats.FailedTasks)

	other := s.register()
	s.Equal("t1", s.pull(other))
}

func (s *SchedulerTestSuite) TestRegistryLookup() {
	worker := s.register()

	record, err := s.scheduler.registry.Lookup(worker)
	s.NoError(err)
	s.Equal(worker, record.Id)
	s.Equal("host", record.Hostname)
	s.Equal(int32(4), record.Cores)
	s.Equal("test", record.Principal)

	s.NoError(s.scheduler.DeregisterWorker(worker))
	_, err = s.scheduler.registry.Lookup(worker)
	s.ErrorIs(err, utils.ErrNotFound)

	_, err = s.scheduler.registry.Lookup("nobody")
	s.ErrorIs(err, utils.ErrNotFound)
}

func (s *SchedulerTestSuite) TestObservers() {
	observer := &MockObserver{}
	observer.On("TaskSubmitted", "t1").Once()
	observer.On("TaskStatusChanged", "t1", protocol.TaskStatus_TASK_ASSIGNED).Once()
	observer.On("TaskStatusChanged", "t1", protocol.TaskStatus_TASK_COMPLETED).Once()
	s.scheduler.AddObserver(observer)

	worker := s.register()
	s.submit("t1", protocol.Priority_NORMAL)
	s.pull(worker)
	_, err := s.scheduler.SubmitResult(&protocol.TaskResult{TaskId: "t1", WorkerId: worker, Status: protocol.TaskStatus_TASK_COMPLETED})
	s.NoError(err)

	observer.AssertExpectations(s.T())
}

func (s *SchedulerTestSuite) TestListWorkers() {
	first := s.register()
	s.clock = s.clock.Add(time.Second)
	second := s.register()

	workers := s.scheduler.ListWorkers()
	s.Require().Len(workers, 2)
	s.Equal(first, workers[0].WorkerId)
	s.Equal(second, workers[1].WorkerId)
	s.Equal("test", workers[0].Principal)
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func TestConcurrentPullsDeliverOnce(t *testing.T) {
	s := NewPriorityScheduler(Config{}, newTestStash())

	const tasks = 200
	for i := 0; i < tasks; i++ {
		_, err := s.SubmitTask(&protocol.TaskRequest{TaskId: fmt.Sprintf("t%d", i), Priority: protocol.Priority(i % 4)})
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := map[string]int{}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		record, err := s.RegisterWorker("test", &protocol.WorkerRegistration{Hostname: fmt.Sprintf("w%d", w)})
		require.NoError(t, err)

		wg.Add(1)
		go func(workerId string) {
			defer wg.Done()
			for {
				envelope, err := s.RequestTask(workerId)
				if !assert.NoError(t, err) || envelope == nil {
					return
				}
				mu.Lock()
				seen[envelope.Id()]++
				mu.Unlock()
			}
		}(record.Id)
	}
	wg.Wait()

	assert.Len(t, seen, tasks)
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
}
