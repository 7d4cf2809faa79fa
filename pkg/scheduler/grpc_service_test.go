package scheduler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/jscience/grid/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startComputeServer(t *testing.T, authorizer Authorizer) protocol.ComputeClient {
	listener := bufconn.Listen(1 << 20)

	server := grpc.NewServer()
	scheduler := NewPriorityScheduler(Config{MaxWait: 2 * time.Second}, newTestStash())
	protocol.RegisterComputeServer(server, NewComputeService(scheduler, authorizer))

	go server.Serve(listener)
	t.Cleanup(server.Stop)

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

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func recvResult(t *testing.T, client protocol.ComputeClient, taskId string, timeout time.Duration) *protocol.TaskResult {
	stream, err := client.StreamResults(context.Background(), &protocol.TaskIdentifier{TaskId: taskId, TimeoutMillis: timeout.Milliseconds()})
	require.NoError(t, err)
	result, err := stream.Recv()
	require.NoError(t, err)
	return result
}

func TestComputeServiceEndToEnd(t *testing.T) {
	client := startComputeServer(t, nil)
	ctx := context.Background()

	reg, err := client.RegisterWorker(ctx, &protocol.WorkerRegistration{Hostname: "node1", Cores: 8, MemoryBytes: 1 << 32})
	require.NoError(t, err)
	require.True(t, reg.Authorized)
	require.NotEmpty(t, reg.WorkerId)
	worker := &protocol.WorkerIdentifier{WorkerId: reg.WorkerId}

	for _, task := range []struct {
		id       string
		priority protocol.Priority
	}{
		{"normal", protocol.Priority_NORMAL},
		{"critical", protocol.Priority_CRITICAL},
		{"low", protocol.Priority_LOW},
	} {
		response, err := client.SubmitTask(ctx, &protocol.TaskRequest{TaskId: task.id, Priority: task.priority, Payload: []byte(task.id)})
		require.NoError(t, err)
		assert.Equal(t, protocol.SubmitStatus_QUEUED, response.Status)
	}

	status, err := client.GetStatus(ctx, &protocol.Empty{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), status.ActiveWorkers)
	assert.Equal(t, int32(3), status.QueuedTasks)

	pending := recvResult(t, client, "low", 10*time.Millisecond)
	assert.Equal(t, protocol.TaskStatus_TASK_QUEUED, pending.Status)

	for _, expected := range []string{"critical", "normal", "low"} {
		task, err := client.RequestTask(ctx, worker)
		require.NoError(t, err)
		require.Equal(t, expected, task.TaskId)
		assert.Equal(t, []byte(expected), task.Payload)

		ack, err := client.SubmitResult(ctx, &protocol.TaskResult{
			TaskId:   task.TaskId,
			WorkerId: reg.WorkerId,
			Status:   protocol.TaskStatus_TASK_COMPLETED,
			Data:     []byte("result-" + expected),
		})
		require.NoError(t, err)
		assert.True(t, ack.Accepted)
	}

	empty, err := client.RequestTask(ctx, worker)
	require.NoError(t, err)
	assert.False(t, empty.HasTask())

	result := recvResult(t, client, "critical", time.Second)
	assert.Equal(t, protocol.TaskStatus_TASK_COMPLETED, result.Status)
	assert.Equal(t, []byte("result-critical"), result.Data)

	_, err = client.DeregisterWorker(ctx, worker)
	require.NoError(t, err)
}

func TestComputeServiceRejections(t *testing.T) {
	client := startComputeServer(t, nil)
	ctx := context.Background()

	response, err := client.SubmitTask(ctx, &protocol.TaskRequest{TaskId: "t1"})
	require.NoError(t, err)
	assert.Equal(t, protocol.SubmitStatus_QUEUED, response.Status)

	response, err = client.SubmitTask(ctx, &protocol.TaskRequest{TaskId: "t1"})
	require.NoError(t, err)
	assert.Equal(t, protocol.SubmitStatus_REJECTED, response.Status)
	assert.NotEmpty(t, response.Reason)

	response, err = client.SubmitTask(ctx, &protocol.TaskRequest{Priority: protocol.Priority_HIGH})
	require.NoError(t, err)
	assert.Equal(t, protocol.SubmitStatus_REJECTED, response.Status)

	_, err = client.RequestTask(ctx, &protocol.WorkerIdentifier{WorkerId: "unknown"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	stream, err := client.StreamResults(ctx, &protocol.TaskIdentifier{TaskId: "missing"})
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestComputeServiceAuthorization(t *testing.T) {
	client := startComputeServer(t, NewTokenAuthorizer(map[string]TokenGrant{
		"worker-secret": {Principal: "farm", Role: RoleWorker},
		"admin-secret":  {Principal: "ops", Role: RoleAdmin},
	}))
	ctx := context.Background()
	registration := &protocol.WorkerRegistration{Hostname: "node1", Cores: 1}

	reg, err := client.RegisterWorker(ctx, registration)
	require.NoError(t, err)
	assert.False(t, reg.Authorized)
	assert.Empty(t, reg.WorkerId)

	reg, err = client.RegisterWorker(withToken(ctx, "wrong"), registration)
	require.NoError(t, err)
	assert.False(t, reg.Authorized)

	reg, err = client.RegisterWorker(withToken(ctx, "worker-secret"), registration)
	require.NoError(t, err)
	assert.True(t, reg.Authorized)

	_, err = client.ListWorkers(withToken(ctx, "worker-secret"), &protocol.Empty{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	list, err := client.ListWorkers(withToken(ctx, "admin-secret"), &protocol.Empty{})
	require.NoError(t, err)
	require.Len(t, list.Workers, 1)
	assert.Equal(t, "farm", list.Workers[0].Principal)
	assert.Equal(t, "node1", list.Workers[0].Hostname)
}
