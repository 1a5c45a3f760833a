package pullpiri

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names of NodeAgentService, the agent-side service the
// master calls into.
const (
	NodeAgentService_HandleArtifact_FullMethodName = "/pullpiri.NodeAgentService/HandleArtifact"
	NodeAgentService_RemoveArtifact_FullMethodName = "/pullpiri.NodeAgentService/RemoveArtifact"
	NodeAgentService_HealthCheck_FullMethodName    = "/pullpiri.NodeAgentService/HealthCheck"
)

// NodeAgentClient is the client API for NodeAgentService.
type NodeAgentClient interface {
	HandleArtifact(ctx context.Context, in *ArtifactInfo, opts ...grpc.CallOption) (*Ack, error)
	RemoveArtifact(ctx context.Context, in *RemoveArtifactRequest, opts ...grpc.CallOption) (*Ack, error)
	HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*Pong, error)
}

type nodeAgentClient struct {
	cc grpc.ClientConnInterface
}

// NewNodeAgentClient creates a NodeAgentService client on cc.
func NewNodeAgentClient(cc grpc.ClientConnInterface) NodeAgentClient {
	return &nodeAgentClient{cc}
}

func (c *nodeAgentClient) HandleArtifact(ctx context.Context, in *ArtifactInfo, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	err := c.cc.Invoke(ctx, NodeAgentService_HandleArtifact_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeAgentClient) RemoveArtifact(ctx context.Context, in *RemoveArtifactRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	err := c.cc.Invoke(ctx, NodeAgentService_RemoveArtifact_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeAgentClient) HealthCheck(ctx context.Context, in *HealthCheckRequest, opts ...grpc.CallOption) (*Pong, error) {
	out := new(Pong)
	err := c.cc.Invoke(ctx, NodeAgentService_HealthCheck_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NodeAgentServer is the server API for NodeAgentService.
type NodeAgentServer interface {
	HandleArtifact(ctx context.Context, in *ArtifactInfo) (*Ack, error)
	RemoveArtifact(ctx context.Context, in *RemoveArtifactRequest) (*Ack, error)
	HealthCheck(ctx context.Context, in *HealthCheckRequest) (*Pong, error)
}

// RegisterNodeAgentServer registers srv on s.
func RegisterNodeAgentServer(s grpc.ServiceRegistrar, srv NodeAgentServer) {
	s.RegisterService(&NodeAgentService_ServiceDesc, srv)
}

func _NodeAgentService_HandleArtifact_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ArtifactInfo)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeAgentServer).HandleArtifact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: NodeAgentService_HandleArtifact_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeAgentServer).HandleArtifact(ctx, req.(*ArtifactInfo))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeAgentService_RemoveArtifact_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RemoveArtifactRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeAgentServer).RemoveArtifact(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: NodeAgentService_RemoveArtifact_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeAgentServer).RemoveArtifact(ctx, req.(*RemoveArtifactRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeAgentService_HealthCheck_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HealthCheckRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeAgentServer).HealthCheck(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: NodeAgentService_HealthCheck_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeAgentServer).HealthCheck(ctx, req.(*HealthCheckRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// NodeAgentService_ServiceDesc is the grpc.ServiceDesc for
// NodeAgentService.
var NodeAgentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pullpiri.NodeAgentService",
	HandlerType: (*NodeAgentServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "HandleArtifact",
			Handler:    _NodeAgentService_HandleArtifact_Handler,
		},
		{
			MethodName: "RemoveArtifact",
			Handler:    _NodeAgentService_RemoveArtifact_Handler,
		},
		{
			MethodName: "HealthCheck",
			Handler:    _NodeAgentService_HealthCheck_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
