package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "glassbox.v1.AnalysisGateway"
	// SessionHeader carries the caller's session id in request metadata.
	SessionHeader = "x-session-id"
)

// GatewayServer is the server API for the AnalysisGateway service. Every message is a
// google.protobuf.Struct whose fields mirror the JSON names of the domain models.
type GatewayServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckHealth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(GatewayServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// GatewayServiceDesc describes the AnalysisGateway service for grpc.ServiceRegistrar.
// Every message is a structpb.Struct and no .proto file descriptor backs the service,
// so Metadata is empty: server reflection lists the service name but cannot describe
// its methods. Clients call it through GatewayClient.
var GatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: unaryHandler("Analyze", GatewayServer.Analyze)},
		{MethodName: "GetResult", Handler: unaryHandler("GetResult", GatewayServer.GetResult)},
		{MethodName: "GetHistory", Handler: unaryHandler("GetHistory", GatewayServer.GetHistory)},
		{MethodName: "CheckHealth", Handler: unaryHandler("CheckHealth", GatewayServer.CheckHealth)},
		{MethodName: "EndSession", Handler: unaryHandler("EndSession", GatewayServer.EndSession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "",
}

// RegisterGatewayServer attaches srv to the registrar.
func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&GatewayServiceDesc, srv)
}

func unaryHandler(method string, call unaryMethod) methodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GatewayServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GatewayClient calls the AnalysisGateway service over a client connection.
type GatewayClient struct {
	cc grpc.ClientConnInterface
}

// NewGatewayClient wraps a client connection.
func NewGatewayClient(cc grpc.ClientConnInterface) *GatewayClient {
	return &GatewayClient{cc: cc}
}

// Invoke calls method with in and returns the response message.
func (c *GatewayClient) Invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
