package pullpiri

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names of ApiServerService, the master-side service agents
// call into.
const (
	ApiServerService_RegisterNode_FullMethodName = "/pullpiri.ApiServerService/RegisterNode"
	ApiServerService_Heartbeat_FullMethodName    = "/pullpiri.ApiServerService/Heartbeat"
	ApiServerService_ReportState_FullMethodName  = "/pullpiri.ApiServerService/ReportState"
)

// ApiServerClient is the client API for ApiServerService.
type ApiServerClient interface {
	RegisterNode(ctx context.Context, in *RegisterNodeRequest, opts ...grpc.CallOption) (*RegisterNodeResponse, error)
	Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*Ack, error)
	ReportState(ctx context.Context, in *ReportStateRequest, opts ...grpc.CallOption) (*Ack, error)
}

type apiServerClient struct {
	cc grpc.ClientConnInterface
}

// NewApiServerClient creates an ApiServerService client on cc.
func NewApiServerClient(cc grpc.ClientConnInterface) ApiServerClient {
	return &apiServerClient{cc}
}

func (c *apiServerClient) RegisterNode(ctx context.Context, in *RegisterNodeRequest, opts ...grpc.CallOption) (*RegisterNodeResponse, error) {
	out := new(RegisterNodeResponse)
	err := c.cc.Invoke(ctx, ApiServerService_RegisterNode_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiServerClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	err := c.cc.Invoke(ctx, ApiServerService_Heartbeat_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiServerClient) ReportState(ctx context.Context, in *ReportStateRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	err := c.cc.Invoke(ctx, ApiServerService_ReportState_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// callOptions pins every stub call to the Piccolo wire codec.
func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

// ApiServerServer is the server API for ApiServerService.
type ApiServerServer interface {
	RegisterNode(ctx context.Context, in *RegisterNodeRequest) (*RegisterNodeResponse, error)
	Heartbeat(ctx context.Context, in *HeartbeatRequest) (*Ack, error)
	ReportState(ctx context.Context, in *ReportStateRequest) (*Ack, error)
}

// RegisterApiServerServer registers srv on s.
func RegisterApiServerServer(s grpc.ServiceRegistrar, srv ApiServerServer) {
	s.RegisterService(&ApiServerService_ServiceDesc, srv)
}

func _ApiServerService_RegisterNode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterNodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ApiServerServer).RegisterNode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ApiServerService_RegisterNode_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ApiServerServer).RegisterNode(ctx, req.(*RegisterNodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ApiServerService_Heartbeat_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ApiServerServer).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ApiServerService_Heartbeat_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ApiServerServer).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ApiServerService_ReportState_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReportStateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ApiServerServer).ReportState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ApiServerService_ReportState_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ApiServerServer).ReportState(ctx, req.(*ReportStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ApiServerService_ServiceDesc is the grpc.ServiceDesc for
// ApiServerService.
var ApiServerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pullpiri.ApiServerService",
	HandlerType: (*ApiServerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterNode",
			Handler:    _ApiServerService_RegisterNode_Handler,
		},
		{
			MethodName: "Heartbeat",
			Handler:    _ApiServerService_Heartbeat_Handler,
		},
		{
			MethodName: "ReportState",
			Handler:    _ApiServerService_ReportState_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
