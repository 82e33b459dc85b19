package ledger

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerServer is the server API for the Ledger gRPC service.
//
// Messages are protobuf Struct values so this package does not require a
// protoc/codegen toolchain. Field conventions are documented on the
// client methods.
//
// Proto definition: ledger.proto.
type LedgerServer interface {
	Issue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BulkIssue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	VerifyCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCertificatesByIssuer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentCounter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedLedgerServer can be embedded to have forward compatible implementations.
type UnimplementedLedgerServer struct{}

func (UnimplementedLedgerServer) Issue(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Issue not implemented")
}
func (UnimplementedLedgerServer) BulkIssue(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method BulkIssue not implemented")
}
func (UnimplementedLedgerServer) GetCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCertificate not implemented")
}
func (UnimplementedLedgerServer) VerifyCertificate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyCertificate not implemented")
}
func (UnimplementedLedgerServer) GetCertificatesByIssuer(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCertificatesByIssuer not implemented")
}
func (UnimplementedLedgerServer) GetCurrentCounter(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCurrentCounter not implemented")
}

// RegisterLedgerServer registers the Ledger service on a gRPC server.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&Ledger_ServiceDesc, srv)
}

// LedgerClient is the client API for the Ledger gRPC service.
type LedgerClient interface {
	Issue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	BulkIssue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCertificate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	VerifyCertificate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCertificatesByIssuer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCurrentCounter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ledgerClient struct{ cc grpc.ClientConnInterface }

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient { return &ledgerClient{cc: cc} }

func (c *ledgerClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Issue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "/certledger.ledger.v1.Ledger/Issue", in, opts)
}

func (c *ledgerClient) BulkIssue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "/certledger.ledger.v1.Ledger/BulkIssue", in, opts)
}

func (c *ledgerClient) GetCertificate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "/certledger.ledger.v1.Ledger/GetCertificate", in, opts)
}

func (c *ledgerClient) VerifyCertificate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "/certledger.ledger.v1.Ledger/VerifyCertificate", in, opts)
}

func (c *ledgerClient) GetCertificatesByIssuer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "/certledger.ledger.v1.Ledger/GetCertificatesByIssuer", in, opts)
}

func (c *ledgerClient) GetCurrentCounter(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "/certledger.ledger.v1.Ledger/GetCurrentCounter", in, opts)
}

type ledgerMethod func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call ledgerMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		h := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, h)
	}
}

// Ledger_ServiceDesc is the grpc.ServiceDesc for the Ledger service.
var Ledger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "certledger.ledger.v1.Ledger",
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Issue", Handler: handler("/certledger.ledger.v1.Ledger/Issue", LedgerServer.Issue)},
		{MethodName: "BulkIssue", Handler: handler("/certledger.ledger.v1.Ledger/BulkIssue", LedgerServer.BulkIssue)},
		{MethodName: "GetCertificate", Handler: handler("/certledger.ledger.v1.Ledger/GetCertificate", LedgerServer.GetCertificate)},
		{MethodName: "VerifyCertificate", Handler: handler("/certledger.ledger.v1.Ledger/VerifyCertificate", LedgerServer.VerifyCertificate)},
		{MethodName: "GetCertificatesByIssuer", Handler: handler("/certledger.ledger.v1.Ledger/GetCertificatesByIssuer", LedgerServer.GetCertificatesByIssuer)},
		{MethodName: "GetCurrentCounter", Handler: handler("/certledger.ledger.v1.Ledger/GetCurrentCounter", LedgerServer.GetCurrentCounter)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}
