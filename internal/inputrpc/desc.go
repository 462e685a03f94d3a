// Package inputrpc accepts visitor input over gRPC: discrete screen events
// and a stream of speech transcripts. Messages are google.protobuf.Struct so
// the service needs no generated code.
package inputrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "kiosk.v1.Input"

	submitMethod      = "/kiosk.v1.Input/Submit"
	transcriptsMethod = "/kiosk.v1.Input/Transcripts"
)

type InputServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transcripts(TranscriptsServer) error
}

type TranscriptsServer interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InputServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Transcripts", Handler: transcriptsHandler, ServerStreams: true, ClientStreams: true},
	},
	Metadata: "kiosk/v1/input.proto",
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InputServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InputServer).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func transcriptsHandler(srv any, stream grpc.ServerStream) error {
	return srv.(InputServer).Transcripts(&transcriptsServer{stream})
}

type transcriptsServer struct{ grpc.ServerStream }

func (x *transcriptsServer) Send(m *structpb.Struct) error { return x.ServerStream.SendMsg(m) }

func (x *transcriptsServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Client calls the Input service.
type Client struct{ cc grpc.ClientConnInterface }

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, submitMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type TranscriptsClient interface {
	Send(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

func (c *Client) Transcripts(ctx context.Context, opts ...grpc.CallOption) (TranscriptsClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], transcriptsMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &transcriptsClient{stream}, nil
}

type transcriptsClient struct{ grpc.ClientStream }

func (x *transcriptsClient) Send(m *structpb.Struct) error { return x.ClientStream.SendMsg(m) }

func (x *transcriptsClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
