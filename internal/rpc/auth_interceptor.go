package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/R3E-Network/service_layer/internal/apperrors"
)

// AuthInterceptor extracts "authorization: Bearer <token>" from incoming
// gRPC metadata, resolves it to a Principal via resolve, and carries the
// result into the handler's context. Missing header → Unauthenticated, per
// spec.md §6.
func AuthInterceptor(resolve *Resolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token, err := bearerToken(ctx)
		if err != nil {
			return nil, status.Error(apperrors.Unauthenticated.GRPCCode(), err.Error())
		}
		principal, err := resolve.Resolve(ctx, token)
		if err != nil {
			return nil, translateError(err)
		}
		return handler(withPrincipal(ctx, principal), req)
	}
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errMissingMetadata
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", errMissingMetadata
	}
	const prefix = "Bearer "
	raw := values[0]
	if len(raw) <= len(prefix) || raw[:len(prefix)] != prefix {
		return "", errMalformedAuthHeader
	}
	return raw[len(prefix):], nil
}

var (
	errMissingMetadata     = apperrors.UnauthenticatedError("missing authorization metadata")
	errMalformedAuthHeader = apperrors.UnauthenticatedError("malformed authorization header")
)
