// Package wire defines the gRPC surface of a logmap server: the Map service
// of logmap.proto, its messages, and the codec that carries them.
package wire

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "logmap.Map"

// MapServer is implemented by the server side of the service.
type MapServer interface {
	Insert(context.Context, *InsertRequest) (*Empty, error)
	Get(context.Context, *KeyRequest) (*GetResponse, error)
	Remove(context.Context, *KeyRequest) (*Empty, error)
	Contains(context.Context, *KeyRequest) (*ContainsResponse, error)
	Len(context.Context, *LenRequest) (*LenResponse, error)
}

func RegisterMapServer(s grpc.ServiceRegistrar, srv MapServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the wire name of a service method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MapServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Insert", Handler: unary("Insert", MapServer.Insert)},
		{MethodName: "Get", Handler: unary("Get", MapServer.Get)},
		{MethodName: "Remove", Handler: unary("Remove", MapServer.Remove)},
		{MethodName: "Contains", Handler: unary("Contains", MapServer.Contains)},
		{MethodName: "Len", Handler: unary("Len", MapServer.Len)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "logmap.proto",
}

func unary[Req, Resp any](method string, call func(MapServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MapServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(MapServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
