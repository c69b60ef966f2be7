package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The admin API has two unary methods, both taking Empty and returning a
// Struct, so it is described by hand on top of the well-known types.
const (
	ServiceName          = "memorylane.admin.AdminService"
	PingMethod           = "/" + ServiceName + "/Ping"
	TriggerUnlocksMethod = "/" + ServiceName + "/TriggerUnlocks"
)

// AdminServiceServer is implemented by GRPCServer.
type AdminServiceServer interface {
	Ping(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TriggerUnlocks(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(PingMethod, AdminServiceServer.Ping)},
		{MethodName: "TriggerUnlocks", Handler: unaryHandler(TriggerUnlocksMethod, AdminServiceServer.TriggerUnlocks)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "memorylane/admin.proto",
}

func RegisterAdminServiceServer(s grpc.ServiceRegistrar, srv AdminServiceServer) {
	s.RegisterService(&AdminServiceDesc, srv)
}

type adminMethod func(AdminServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call adminMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdminServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdminServiceServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AdminClient calls the admin API over an existing connection.
type AdminClient struct {
	cc grpc.ClientConnInterface
}

func NewAdminClient(cc grpc.ClientConnInterface) *AdminClient {
	return &AdminClient{cc: cc}
}

func (c *AdminClient) Ping(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, PingMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AdminClient) TriggerUnlocks(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TriggerUnlocksMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
