// Package domain holds the control plane's entity types: the plain structs
// persisted through internal/repository and passed between services.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the root of the ownership tree.
type Organization struct {
	ID                   uuid.UUID  `db:"id"`
	Name                 string     `db:"name"`
	ParentOrganizationID *uuid.UUID `db:"parent_organization_id"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// PrimaryKey satisfies repository.Entity.
func (o Organization) PrimaryKey() map[string]any {
	return map[string]any{"id": o.ID}
}

func (o *Organization) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		o.CreatedAt = createdAt
	}
	o.UpdatedAt = updatedAt
}

func (o *Organization) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
}

// Project belongs to exactly one organization.
type Project struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	OrganizationID uuid.UUID `db:"organization_id"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (p Project) PrimaryKey() map[string]any {
	return map[string]any{"id": p.ID}
}

func (p *Project) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		p.CreatedAt = createdAt
	}
	p.UpdatedAt = updatedAt
}

func (p *Project) EnsureID() {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
}
