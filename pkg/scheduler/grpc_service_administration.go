package scheduler

import (
	"context"

	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
)

func (s *computeService) ListWorkers(ctx context.Context, _ *protocol.Empty) (*protocol.WorkerList, error) {
	if _, err := AuthorizeContext(ctx, s.authorizer, RoleAdmin); err != nil {
		return nil, utils.GrpcError(err)
	}

	return &protocol.WorkerList{Workers: s.scheduler.ListWorkers()}, nil
}
