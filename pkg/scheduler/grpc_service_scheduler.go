package scheduler

import (
	"context"
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
)

// Implements the Compute gRPC service.
// Client facing methods are in this file, worker and administrative
// methods live next to it.
type computeService struct {
	protocol.UnimplementedComputeServer
	scheduler  Scheduler
	authorizer Authorizer
}

func NewComputeService(scheduler Scheduler, authorizer Authorizer) *computeService {
	if authorizer == nil {
		authorizer = AllowAll()
	}

	return &computeService{
		scheduler:  scheduler,
		authorizer: authorizer,
	}
}

func (s *computeService) GetStatus(_ context.Context, _ *protocol.Empty) (*protocol.ServerStatus, error) {
	return s.scheduler.Statistics().ServerStatus(), nil
}

// Validation failures are reported as REJECTED responses, not as call errors.
func (s *computeService) SubmitTask(_ context.Context, request *protocol.TaskRequest) (*protocol.TaskResponse, error) {
	envelope, err := s.scheduler.SubmitTask(request)
	if err != nil {
		log.Debug("nok - task - rejected:", err)
		return &protocol.TaskResponse{
			TaskId: request.GetTaskId(),
			Status: protocol.SubmitStatus_REJECTED,
			Reason: err.Error(),
		}, nil
	}

	return &protocol.TaskResponse{
		TaskId: envelope.Id(),
		Status: protocol.SubmitStatus_QUEUED,
	}, nil
}

// Sends exactly one result: the final one, or the current status if the
// task did not resolve in time.
func (s *computeService) StreamResults(request *protocol.TaskIdentifier, stream protocol.Compute_StreamResultsServer) error {
	timeout := time.Duration(request.TimeoutMillis) * time.Millisecond

	result, err := s.scheduler.AwaitResult(stream.Context(), request.TaskId, timeout)
	if err != nil {
		return utils.GrpcError(err)
	}

	if err := stream.Send(result); err != nil {
		log.Debugf("nok - result - send failed - id: %s, error: %v", request.TaskId, err)
		return utils.GrpcError(err)
	}

	return nil
}
