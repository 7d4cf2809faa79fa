package main

import (
	"net"

	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/protocol"
	"github.com/jscience/grid/pkg/scheduler"
	"github.com/jscience/grid/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Creates the gRPC server with the compute and health services.
func newGrpcServer(sched scheduler.Scheduler, authorizer scheduler.Authorizer) (*grpc.Server, *health.Server) {
	// Setup gRPC options
	opts := config.GRPCOptions.ToServerOptions()

	server := grpc.NewServer(opts...)
	protocol.RegisterComputeServer(server, scheduler.NewComputeService(sched, authorizer))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(protocol.Compute_ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

// Listens on a specific address and serves gRPC requests until the server stops.
func serveGrpc(server *grpc.Server, address string) {
	network, host, err := utils.ParseListenUrl(address, 9090)
	if err != nil {
		log.Fatal(err)
	}

	socket, err := net.Listen(network, host)
	if err != nil {
		log.Fatal(err)
	}

	if network == "unix" {
		socket.(*net.UnixListener).SetUnlinkOnClose(true)
		log.Info("Listening on", network, host)
	} else {
		log.Info("Listening on", network, socket.Addr())
	}

	if err := server.Serve(socket); err != nil && err != grpc.ErrServerStopped {
		log.Fatal(err)
	}
}
