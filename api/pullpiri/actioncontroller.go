package pullpiri

import (
	"context"

	"google.golang.org/grpc"
)

// ActionControllerService is served by the external action controller;
// only the client side lives in this repository.
const (
	ActionControllerService_Reconcile_FullMethodName = "/pullpiri.ActionControllerService/Reconcile"
)

// ActionControllerClient is the client API for ActionControllerService.
type ActionControllerClient interface {
	Reconcile(ctx context.Context, in *ReconcileRequest, opts ...grpc.CallOption) (*Ack, error)
}

type actionControllerClient struct {
	cc grpc.ClientConnInterface
}

// NewActionControllerClient creates an ActionControllerService client on cc.
func NewActionControllerClient(cc grpc.ClientConnInterface) ActionControllerClient {
	return &actionControllerClient{cc}
}

func (c *actionControllerClient) Reconcile(ctx context.Context, in *ReconcileRequest, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	err := c.cc.Invoke(ctx, ActionControllerService_Reconcile_FullMethodName, in, out, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ActionControllerServer is the server API for ActionControllerService.
// Implemented here only by test doubles.
type ActionControllerServer interface {
	Reconcile(ctx context.Context, in *ReconcileRequest) (*Ack, error)
}

// RegisterActionControllerServer registers srv on s.
func RegisterActionControllerServer(s grpc.ServiceRegistrar, srv ActionControllerServer) {
	s.RegisterService(&ActionControllerService_ServiceDesc, srv)
}

func _ActionControllerService_Reconcile_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReconcileRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ActionControllerServer).Reconcile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ActionControllerService_Reconcile_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ActionControllerServer).Reconcile(ctx, req.(*ReconcileRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ActionControllerService_ServiceDesc is the grpc.ServiceDesc for
// ActionControllerService.
var ActionControllerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "pullpiri.ActionControllerService",
	HandlerType: (*ActionControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Reconcile",
			Handler:    _ActionControllerService_Reconcile_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
