package rpc

import (
	"context"

	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/repository"
)

// UserValidator validates a bearer token against the external identity
// provider named by AUTH_SERVER_URL and returns the User it names. The HTTP
// call itself is out of scope (see spec's Non-goals on outer identity
// providers); callers supply whatever implementation fits their deployment.
type UserValidator interface {
	ValidateUserToken(ctx context.Context, token string) (domain.User, error)
}

// Resolver turns a bearer token into a Principal: a ServiceAccount lookup
// first, falling through to user-token validation, per spec.md §4.9.
type Resolver struct {
	ServiceAccounts *repository.Repository[domain.ServiceAccount]
	Users           UserValidator
}

// Resolve implements the ServiceAccount-then-User fallback named in §4.9.
func (r *Resolver) Resolve(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return nil, apperrors.UnauthenticatedError("missing bearer token")
	}

	accounts, err := r.ServiceAccounts.ListWhere(ctx, "key = $1", token)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		return accounts[0], nil
	}

	if r.Users == nil {
		return nil, apperrors.UnauthenticatedError("invalid bearer token")
	}
	user, err := r.Users.ValidateUserToken(ctx, token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.Unauthenticated, "invalid bearer token", err)
	}
	return user, nil
}
