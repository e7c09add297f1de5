package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified operator service name.
const ServiceName = "contractsign.operator.v1.OperatorService"

// Operator method names.
const (
	MethodIssueLink        = "IssueLink"
	MethodPublishTerms     = "PublishTerms"
	MethodActivateTerms    = "ActivateTerms"
	MethodRunSweep         = "RunSweep"
	MethodSetSchedule      = "SetSchedule"
	MethodCompleteContract = "CompleteContract"
)

// FullMethod returns the gRPC path of an operator method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// OperatorServer is the operator service. Requests and responses are
// google.protobuf.Struct values so no generated code is needed.
type OperatorServer interface {
	IssueLink(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PublishTerms(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ActivateTerms(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunSweep(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompleteContract(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(OperatorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, m structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(OperatorServer), ctx, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		return interceptor(ctx, in, info, handler)
	}
}

// OperatorServiceDesc registers an OperatorServer with a grpc.Server.
var OperatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OperatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodIssueLink, Handler: unaryHandler(MethodIssueLink, OperatorServer.IssueLink)},
		{MethodName: MethodPublishTerms, Handler: unaryHandler(MethodPublishTerms, OperatorServer.PublishTerms)},
		{MethodName: MethodActivateTerms, Handler: unaryHandler(MethodActivateTerms, OperatorServer.ActivateTerms)},
		{MethodName: MethodRunSweep, Handler: unaryHandler(MethodRunSweep, OperatorServer.RunSweep)},
		{MethodName: MethodSetSchedule, Handler: unaryHandler(MethodSetSchedule, OperatorServer.SetSchedule)},
		{MethodName: MethodCompleteContract, Handler: unaryHandler(MethodCompleteContract, OperatorServer.CompleteContract)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "contractsign/operator/v1/operator.proto",
}
