package worker

import (
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func NewWorkerClient(workerConfig *WorkerConfig) (protocol.ComputeClient, *grpc.ClientConn, error) {
	grpcUri, err := utils.ParseGrpcUrl(workerConfig.SchedulerGrpcUri)
	if err != nil {
		return nil, nil, err
	}

	dialOptions := append(workerConfig.Grpc.ToDialOptions(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(utils.TokenCredentials(workerConfig.Token)),
	)

	conn, err := grpc.NewClient(grpcUri, dialOptions...)
	if err != nil {
		return nil, nil, err
	}

	return protocol.NewComputeClient(conn), conn, nil
}
