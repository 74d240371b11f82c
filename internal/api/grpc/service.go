// Package grpc serves the set-expansion API over gRPC. Requests and
// responses are google.protobuf.Struct messages whose fields mirror the HTTP
// query parameters, so the service needs no generated code.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "setexpand.v1.Expansion"

// ExpansionServer is the server API for the Expansion service.
type ExpansionServer interface {
	Keyword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostSeedSet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DotOp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteColumns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwapCells(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ExpansionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ExpansionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ExpansionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the Expansion service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExpansionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Keyword", Handler: unaryHandler("Keyword", ExpansionServer.Keyword)},
		{MethodName: "PostSeedSet", Handler: unaryHandler("PostSeedSet", ExpansionServer.PostSeedSet)},
		{MethodName: "DotOp", Handler: unaryHandler("DotOp", ExpansionServer.DotOp)},
		{MethodName: "DeleteColumns", Handler: unaryHandler("DeleteColumns", ExpansionServer.DeleteColumns)},
		{MethodName: "SwapCells", Handler: unaryHandler("SwapCells", ExpansionServer.SwapCells)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "setexpand/v1/expansion.proto",
}

// RegisterExpansionServer registers srv on s.
func RegisterExpansionServer(s grpc.ServiceRegistrar, srv ExpansionServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ExpansionClient is the client API for the Expansion service.
type ExpansionClient struct {
	cc grpc.ClientConnInterface
}

// NewExpansionClient creates a client over cc.
func NewExpansionClient(cc grpc.ClientConnInterface) *ExpansionClient {
	return &ExpansionClient{cc: cc}
}

// Call invokes method with req.
func (c *ExpansionClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
