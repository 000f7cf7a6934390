package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/internal/domain"
)

// Factory produces default-populated entities for tests and internal
// construction, persisting them through a Repository, following the
// teacher's per-entity factory convention. Foreign keys are set by override
// functions such as WithOrganization; a factory does not create or persist
// parent rows.
type Factory[T any] struct {
	repo    *Repository[T]
	default_ func() T
}

func NewFactory[T any](repo *Repository[T], defaults func() T) *Factory[T] {
	return &Factory[T]{repo: repo, default_: defaults}
}

// Create persists a default-populated entity, applying overrides in order.
func (f *Factory[T]) Create(ctx context.Context, overrides ...func(*T)) (T, error) {
	v := f.default_()
	for _, o := range overrides {
		o(&v)
	}
	return f.repo.Create(ctx, v)
}

// OrganizationFactory builds Organizations with a random name.
func OrganizationFactory(repo *Repository[domain.Organization]) *Factory[domain.Organization] {
	return NewFactory(repo, func() domain.Organization {
		return domain.Organization{Name: "org-" + uuid.NewString()[:8]}
	})
}

// ProjectFactory builds Projects with a random name. It creates no
// Organization: OrganizationID stays zero unless WithOrganization is
// supplied as an override.
func ProjectFactory(repo *Repository[domain.Project]) *Factory[domain.Project] {
	return NewFactory(repo, func() domain.Project {
		return domain.Project{Name: "project-" + uuid.NewString()[:8]}
	})
}

// WithOrganization overrides a Project's organization_id.
func WithOrganization(orgID uuid.UUID) func(*domain.Project) {
	return func(p *domain.Project) { p.OrganizationID = orgID }
}

// InstanceFactory builds Instances with sensible zero-usage defaults.
func InstanceFactory(repo *Repository[domain.Instance]) *Factory[domain.Instance] {
	return NewFactory(repo, func() domain.Instance {
		return domain.Instance{
			Status:         domain.InstanceUnknown,
			CPUMax:         1,
			MemoryMaxBytes: 1 << 30,
			DiskMaxBytes:   10 << 30,
		}
	})
}
