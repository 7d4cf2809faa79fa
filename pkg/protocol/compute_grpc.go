package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Compute_ServiceName                     = "grid.v1.Compute"
	Compute_GetStatus_FullMethodName        = "/grid.v1.Compute/GetStatus"
	Compute_SubmitTask_FullMethodName       = "/grid.v1.Compute/SubmitTask"
	Compute_RegisterWorker_FullMethodName   = "/grid.v1.Compute/RegisterWorker"
	Compute_DeregisterWorker_FullMethodName = "/grid.v1.Compute/DeregisterWorker"
	Compute_RequestTask_FullMethodName      = "/grid.v1.Compute/RequestTask"
	Compute_SubmitResult_FullMethodName     = "/grid.v1.Compute/SubmitResult"
	Compute_StreamResults_FullMethodName    = "/grid.v1.Compute/StreamResults"
	Compute_ListWorkers_FullMethodName      = "/grid.v1.Compute/ListWorkers"
)

// ComputeClient is the client API for the Compute service.
type ComputeClient interface {
	// Snapshot of worker and queue counts.
	GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ServerStatus, error)
	// Enqueue a task. Validation failures are reported in the response.
	SubmitTask(ctx context.Context, in *TaskRequest, opts ...grpc.CallOption) (*TaskResponse, error)
	// Register the calling worker. The bearer token is sent as metadata.
	RegisterWorker(ctx context.Context, in *WorkerRegistration, opts ...grpc.CallOption) (*WorkerRegistrationResponse, error)
	// Remove a worker from the registry.
	DeregisterWorker(ctx context.Context, in *WorkerIdentifier, opts ...grpc.CallOption) (*Empty, error)
	// Pull the next task. An empty task id means no work is pending.
	RequestTask(ctx context.Context, in *WorkerIdentifier, opts ...grpc.CallOption) (*TaskRequest, error)
	// Report the outcome of an assigned task.
	SubmitResult(ctx context.Context, in *TaskResult, opts ...grpc.CallOption) (*ResultAck, error)
	// Wait a bounded time for a task to resolve.
	StreamResults(ctx context.Context, in *TaskIdentifier, opts ...grpc.CallOption) (Compute_StreamResultsClient, error)
	// List registered workers. Requires the admin role.
	ListWorkers(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*WorkerList, error)
}

type computeClient struct {
	cc grpc.ClientConnInterface
}

// Creates a Compute client. Calls are encoded with the CBOR codec.
func NewComputeClient(cc grpc.ClientConnInterface) ComputeClient {
	return &computeClient{cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *computeClient) GetStatus(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ServerStatus, error) {
	out := new(ServerStatus)
	err := c.cc.Invoke(ctx, Compute_GetStatus_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *computeClient) SubmitTask(ctx context.Context, in *TaskRequest, opts ...grpc.CallOption) (*TaskResponse, error) {
	out := new(TaskResponse)
	err := c.cc.Invoke(ctx, Compute_SubmitTask_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *computeClient) RegisterWorker(ctx context.Context, in *WorkerRegistration, opts ...grpc.CallOption) (*WorkerRegistrationResponse, error) {
	out := new(WorkerRegistrationResponse)
	err := c.cc.Invoke(ctx, Compute_RegisterWorker_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *computeClient) DeregisterWorker(ctx context.Context, in *WorkerIdentifier, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	err := c.cc.Invoke(ctx, Compute_DeregisterWorker_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *computeClient) RequestTask(ctx context.Context, in *WorkerIdentifier, opts ...grpc.CallOption) (*TaskRequest, error) {
	out := new(TaskRequest)
	err := c.cc.Invoke(ctx, Compute_RequestTask_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *computeClient) SubmitResult(ctx context.Context, in *TaskResult, opts ...grpc.CallOption) (*ResultAck, error) {
	out := new(ResultAck)
	err := c.cc.Invoke(ctx, Compute_SubmitResult_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *computeClient) StreamResults(ctx context.Context, in *TaskIdentifier, opts ...grpc.CallOption) (Compute_StreamResultsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Compute_ServiceDesc.Streams[0], Compute_StreamResults_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &computeStreamResultsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Compute_StreamResultsClient interface {
	Recv() (*TaskResult, error)
	grpc.ClientStream
}

type computeStreamResultsClient struct {
	grpc.ClientStream
}

func (x *computeStreamResultsClient) Recv() (*TaskResult, error) {
	m := new(TaskResult)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *computeClient) ListWorkers(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*WorkerList, error) {
	out := new(WorkerList)
	err := c.cc.Invoke(ctx, Compute_ListWorkers_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ComputeServer is the server API for the Compute service.
type ComputeServer interface {
	GetStatus(context.Context, *Empty) (*ServerStatus, error)
	SubmitTask(context.Context, *TaskRequest) (*TaskResponse, error)
	RegisterWorker(context.Context, *WorkerRegistration) (*WorkerRegistrationResponse, error)
	DeregisterWorker(context.Context, *WorkerIdentifier) (*Empty, error)
	RequestTask(context.Context, *WorkerIdentifier) (*TaskRequest, error)
	SubmitResult(context.Context, *TaskResult) (*ResultAck, error)
	StreamResults(*TaskIdentifier, Compute_StreamResultsServer) error
	ListWorkers(context.Context, *Empty) (*WorkerList, error)
}

// UnimplementedComputeServer can be embedded to have forward compatible implementations.
type UnimplementedComputeServer struct{}

func (UnimplementedComputeServer) GetStatus(context.Context, *Empty) (*ServerStatus, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetStatus not implemented")
}
func (UnimplementedComputeServer) SubmitTask(context.Context, *TaskRequest) (*TaskResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitTask not implemented")
}
func (UnimplementedComputeServer) RegisterWorker(context.Context, *WorkerRegistration) (*WorkerRegistrationResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RegisterWorker not implemented")
}
func (UnimplementedComputeServer) DeregisterWorker(context.Context, *WorkerIdentifier) (*Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeregisterWorker not implemented")
}
func (UnimplementedComputeServer) RequestTask(context.Context, *WorkerIdentifier) (*TaskRequest, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RequestTask not implemented")
}
func (UnimplementedComputeServer) SubmitResult(context.Context, *TaskResult) (*ResultAck, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitResult not implemented")
}
func (UnimplementedComputeServer) StreamResults(*TaskIdentifier, Compute_StreamResultsServer) error {
	return status.Errorf(codes.Unimplemented, "method StreamResults not implemented")
}
func (UnimplementedComputeServer) ListWorkers(context.Context, *Empty) (*WorkerList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListWorkers not implemented")
}

func RegisterComputeServer(s grpc.ServiceRegistrar, srv ComputeServer) {
	s.RegisterService(&Compute_ServiceDesc, srv)
}

func _Compute_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_GetStatus_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).GetStatus(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _Compute_SubmitTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TaskRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).SubmitTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_SubmitTask_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).SubmitTask(ctx, req.(*TaskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Compute_RegisterWorker_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(WorkerRegistration)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).RegisterWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_RegisterWorker_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).RegisterWorker(ctx, req.(*WorkerRegistration))
	}
	return interceptor(ctx, in, info, handler)
}

func _Compute_DeregisterWorker_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(WorkerIdentifier)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).DeregisterWorker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_DeregisterWorker_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).DeregisterWorker(ctx, req.(*WorkerIdentifier))
	}
	return interceptor(ctx, in, info, handler)
}

func _Compute_RequestTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(WorkerIdentifier)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).RequestTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_RequestTask_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).RequestTask(ctx, req.(*WorkerIdentifier))
	}
	return interceptor(ctx, in, info, handler)
}

func _Compute_SubmitResult_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TaskResult)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).SubmitResult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_SubmitResult_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).SubmitResult(ctx, req.(*TaskResult))
	}
	return interceptor(ctx, in, info, handler)
}

func _Compute_StreamResults_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(TaskIdentifier)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ComputeServer).StreamResults(m, &computeStreamResultsServer{stream})
}

type Compute_StreamResultsServer interface {
	Send(*TaskResult) error
	grpc.ServerStream
}

type computeStreamResultsServer struct {
	grpc.ServerStream
}

func (x *computeStreamResultsServer) Send(m *TaskResult) error {
	return x.ServerStream.SendMsg(m)
}

func _Compute_ListWorkers_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ComputeServer).ListWorkers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Compute_ListWorkers_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ComputeServer).ListWorkers(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// Compute_ServiceDesc is the grpc.ServiceDesc for the Compute service.
var Compute_ServiceDesc = grpc.ServiceDesc{
	ServiceName: Compute_ServiceName,
	HandlerType: (*ComputeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: _Compute_GetStatus_Handler},
		{MethodName: "SubmitTask", Handler: _Compute_SubmitTask_Handler},
		{MethodName: "RegisterWorker", Handler: _Compute_RegisterWorker_Handler},
		{MethodName: "DeregisterWorker", Handler: _Compute_DeregisterWorker_Handler},
		{MethodName: "RequestTask", Handler: _Compute_RequestTask_Handler},
		{MethodName: "SubmitResult", Handler: _Compute_SubmitResult_Handler},
		{MethodName: "ListWorkers", Handler: _Compute_ListWorkers_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamResults",
			Handler:       _Compute_StreamResults_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "grid/v1/compute",
}
