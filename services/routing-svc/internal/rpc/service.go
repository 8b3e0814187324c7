package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// RoutingServiceServer is the server-side contract for
// logistics.routing.v1.RoutingService. It is implemented by
// internal/service.RoutingService and registered against a
// *grpc.Server with RegisterRoutingServiceServer.
type RoutingServiceServer interface {
	Solve(ctx context.Context, req *SolveRequest) (*SolveResponse, error)
	GetSolveRecord(ctx context.Context, req *GetSolveRecordRequest) (*SolveRecordOutput, error)
	ListSolveRecords(ctx context.Context, req *ListSolveRecordsRequest) (*ListSolveRecordsResponse, error)
}

// serviceName is the fully qualified name grpc-go uses to route
// incoming requests to this ServiceDesc; it plays the role a .proto
// package+service declaration would normally assign.
const serviceName = "logistics.routing.v1.RoutingService"

// solveHandler has the signature grpc-go expects of a unary method
// handler: dec fills a pointer to a zero-valued request message, and
// interceptor, when non-nil, runs around the dispatch.
func solveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SolveRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoutingServiceServer).Solve(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: serviceName + "/Solve",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RoutingServiceServer).Solve(ctx, req.(*SolveRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getSolveRecordHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetSolveRecordRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoutingServiceServer).GetSolveRecord(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: serviceName + "/GetSolveRecord",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RoutingServiceServer).GetSolveRecord(ctx, req.(*GetSolveRecordRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func listSolveRecordsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ListSolveRecordsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RoutingServiceServer).ListSolveRecords(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: serviceName + "/ListSolveRecords",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RoutingServiceServer).ListSolveRecords(ctx, req.(*ListSolveRecordsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// ServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would otherwise generate from a .proto file. grpc-go never requires
// generated code at runtime: it dispatches purely off this struct plus
// whatever codec the client negotiated over content-subtype (here,
// pkg/rpcjson's "json" codec rather than protobuf wire format).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RoutingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Solve", Handler: solveHandler},
		{MethodName: "GetSolveRecord", Handler: getSolveRecordHandler},
		{MethodName: "ListSolveRecords", Handler: listSolveRecordsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "routing-svc/internal/rpc/service.go",
}

// RegisterRoutingServiceServer registers srv against s under the
// RoutingService ServiceDesc, the hand-rolled analogue of a generated
// RegisterRoutingServiceServer function.
func RegisterRoutingServiceServer(s *grpc.Server, srv RoutingServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
