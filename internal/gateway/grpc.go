// ABOUTME: viewgate.v1.ViewService gRPC service exposing the RPC pipeline
// ABOUTME: Requests and responses are google.protobuf.Struct; tokens travel as metadata

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/viewgate/internal/auth"
	"github.com/2389/viewgate/internal/rpc"
)

// Fully qualified names of the view service.
const (
	ViewServiceName = "viewgate.v1.ViewService"
	CallMethod      = "/" + ViewServiceName + "/Call"
)

// ViewServiceServer is the server API for the view service.
type ViewServiceServer interface {
	Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var viewServiceDesc = grpc.ServiceDesc{
	ServiceName: ViewServiceName,
	HandlerType: (*ViewServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Call", Handler: viewServiceCallHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "viewgate/v1/view.proto",
}

// RegisterViewService registers srv on s.
func RegisterViewService(s grpc.ServiceRegistrar, srv ViewServiceServer) {
	s.RegisterService(&viewServiceDesc, srv)
}

func viewServiceCallHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ViewServiceServer).Call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CallMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ViewServiceServer).Call(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// viewService adapts gRPC calls to the pipeline.
type viewService struct {
	pipeline *rpc.Pipeline
	logger   *slog.Logger
}

func newViewService(p *rpc.Pipeline, logger *slog.Logger) *viewService {
	return &viewService{pipeline: p, logger: logger}
}

// Call runs {view, method, args} through the pipeline and returns
// {result, viewData}. Refreshed tokens are sent as header metadata, also when
// the call fails after authentication.
func (s *viewService) Call(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	body, err := json.Marshal(map[string]any{
		"method": fields["method"].GetStringValue(),
		"args":   fields["args"].AsInterface(),
	})
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad request: malformed arguments")
	}

	var callErr error
	resp := s.pipeline.Handle(ctx, &rpc.Request{
		ViewKey: fields["view"].GetStringValue(),
		Body:    body,
		Header:  auth.HeaderFromMetadata(ctx),
	}, func(err error) { callErr = err })

	if md := auth.MetadataFromHeader(resp.Header); md != nil {
		if err := grpc.SetHeader(ctx, md); err != nil {
			s.logger.Warn("failed to set token metadata", "error", err)
		}
	}
	if callErr != nil {
		return nil, statusFromError(callErr)
	}

	success, ok := resp.Body.(rpc.SuccessBody)
	if !ok {
		return nil, status.Error(codes.Internal, "Internal server error.")
	}
	out, err := successStruct(success)
	if err != nil {
		s.logger.Error("failed to encode call result", "error", err)
		return nil, status.Error(codes.Internal, "Internal server error.")
	}
	return out, nil
}

// successStruct converts the JSON result and view data to a Struct.
func successStruct(b rpc.SuccessBody) (*structpb.Struct, error) {
	raw, err := json.Marshal(b.Result)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}

	var viewData any
	if len(b.ViewData) > 0 {
		if err := json.Unmarshal(b.ViewData, &viewData); err != nil {
			return nil, fmt.Errorf("decoding view data: %w", err)
		}
	}

	return structpb.NewStruct(map[string]any{
		"result":   result,
		"viewData": viewData,
	})
}

// statusFromError maps a pipeline error onto a gRPC status with the same
// public message the HTTP transport uses.
func statusFromError(err error) error {
	httpStatus, msg := rpc.StatusFor(err)
	var code codes.Code
	switch httpStatus {
	case http.StatusBadRequest:
		code = codes.InvalidArgument
	case http.StatusUnauthorized:
		code = codes.Unauthenticated
	case http.StatusForbidden:
		code = codes.PermissionDenied
	case http.StatusNotFound:
		code = codes.NotFound
	case http.StatusServiceUnavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, msg)
}
