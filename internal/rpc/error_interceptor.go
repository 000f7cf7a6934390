package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/R3E-Network/service_layer/internal/apperrors"
)

// ErrorInterceptor maps the core service error taxonomy to gRPC status
// codes, the gRPC analogue of the teacher's infrastructure/errors.GetHTTPStatus.
func ErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return resp, translateError(err)
		}
		return resp, nil
	}
}

// translateError converts err into a *status.Status carrying the mapped
// gRPC code, defaulting to Internal for errors with no structured Kind.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := codes.Internal
	if e, ok := apperrors.As(err); ok {
		code = e.GRPCCode()
	}
	return status.Error(code, err.Error())
}
