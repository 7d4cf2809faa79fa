package scheduler

import (
	"context"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
)

func (s *computeService) RegisterWorker(ctx context.Context, registration *protocol.WorkerRegistration) (*protocol.WorkerRegistrationResponse, error) {
	auth, err := AuthorizeContext(ctx, s.authorizer, RoleWorker)
	if err != nil {
		log.Infof("nok - worker - hostname: %s, %v", registration.Hostname, err)
		return &protocol.WorkerRegistrationResponse{
			Authorized: false,
			Reason:     err.Error(),
		}, nil
	}

	record, err := s.scheduler.RegisterWorker(auth.Principal, registration)
	if err != nil {
		return nil, utils.GrpcError(err)
	}

	return &protocol.WorkerRegistrationResponse{
		WorkerId:   record.Id,
		Authorized: true,
	}, nil
}

func (s *computeService) DeregisterWorker(_ context.Context, worker *protocol.WorkerIdentifier) (*protocol.Empty, error) {
	if err := s.scheduler.DeregisterWorker(worker.GetWorkerId()); err != nil {
		return nil, utils.GrpcError(err)
	}
	return &protocol.Empty{}, nil
}

// An empty request is returned when no task is queued.
func (s *computeService) RequestTask(_ context.Context, worker *protocol.WorkerIdentifier) (*protocol.TaskRequest, error) {
	envelope, err := s.scheduler.RequestTask(worker.GetWorkerId())
	if err != nil {
		return nil, utils.GrpcError(err)
	}

	if envelope == nil {
		return &protocol.TaskRequest{}, nil
	}

	return envelope.Request(), nil
}

func (s *computeService) SubmitResult(_ context.Context, result *protocol.TaskResult) (*protocol.ResultAck, error) {
	accepted, err := s.scheduler.SubmitResult(result)
	if err != nil {
		return nil, utils.GrpcError(err)
	}
	return &protocol.ResultAck{Accepted: accepted}, nil
}
