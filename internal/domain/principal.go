package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PrincipalKind distinguishes the two concrete Principal variants.
type PrincipalKind string

const (
	PrincipalUser           PrincipalKind = "User"
	PrincipalServiceAccount PrincipalKind = "ServiceAccount"
)

// OrganizationLister is satisfied by anything that can enumerate the
// organizations a principal belongs to — the Repository in production,
// a fake in tests.
type OrganizationLister interface {
	OrganizationsForPrincipal(ctx context.Context, kind PrincipalKind, id uuid.UUID) ([]Organization, error)
}

// Principal is the authenticated actor behind an RPC call: a User or a
// ServiceAccount. There is no inheritance — callers switch on Kind().
type Principal interface {
	ID() uuid.UUID
	Kind() PrincipalKind
	ResourceName() string
	Organizations(ctx context.Context, lister OrganizationLister) ([]Organization, error)
}

// User is a human principal identified by email.
type User struct {
	UUID      uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (u User) ID() uuid.UUID         { return u.UUID }
func (u User) Kind() PrincipalKind   { return PrincipalUser }
func (u User) ResourceName() string  { return "user/" + u.UUID.String() }
func (u User) PrimaryKey() map[string]any {
	return map[string]any{"id": u.UUID}
}

func (u *User) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		u.CreatedAt = createdAt
	}
	u.UpdatedAt = updatedAt
}

func (u *User) EnsureID() {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
}

func (u User) Organizations(ctx context.Context, lister OrganizationLister) ([]Organization, error) {
	return lister.OrganizationsForPrincipal(ctx, PrincipalUser, u.UUID)
}

// ServiceAccount is a machine principal holding an opaque bearer key.
type ServiceAccount struct {
	UUID      uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Key       string    `db:"key"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s ServiceAccount) ID() uuid.UUID        { return s.UUID }
func (s ServiceAccount) Kind() PrincipalKind  { return PrincipalServiceAccount }
func (s ServiceAccount) ResourceName() string { return "service_account/" + s.UUID.String() }
func (s ServiceAccount) PrimaryKey() map[string]any {
	return map[string]any{"id": s.UUID}
}

func (s *ServiceAccount) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		s.CreatedAt = createdAt
	}
	s.UpdatedAt = updatedAt
}

func (s *ServiceAccount) EnsureID() {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
}

func (s ServiceAccount) Organizations(ctx context.Context, lister OrganizationLister) ([]Organization, error) {
	return lister.OrganizationsForPrincipal(ctx, PrincipalServiceAccount, s.UUID)
}
