// Package rpc adapts the core services to a gRPC transport: bearer-token
// authentication, principal-context plumbing, and error-kind translation.
// Grounded on the teacher's infrastructure/serviceauth bearer-header
// convention, re-targeted at end-user/service-account tokens instead of
// service-mesh identity.
package rpc

import (
	"context"

	"github.com/R3E-Network/service_layer/internal/domain"
)

type principalKey struct{}

// PrincipalFromContext returns the Principal the auth interceptor attached
// to ctx. Handlers call this instead of re-parsing metadata.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}
