package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvitationState is the lifecycle state of an Invitation.
type InvitationState string

const (
	InvitationUnspecified InvitationState = "Unspecified"
	InvitationPending     InvitationState = "Pending"
	InvitationAccepted    InvitationState = "Accepted"
	InvitationDeclined    InvitationState = "Declined"
	InvitationExpired     InvitationState = "Expired"
)

// Invitation records an outstanding or resolved offer to join an organization.
type Invitation struct {
	ID             uuid.UUID       `db:"id"`
	OrganizationID uuid.UUID       `db:"organization_id"`
	UserID         uuid.UUID       `db:"user_id"`
	State          InvitationState `db:"state"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (i Invitation) PrimaryKey() map[string]any { return map[string]any{"id": i.ID} }

func (i *Invitation) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		i.CreatedAt = createdAt
	}
	i.UpdatedAt = updatedAt
}

func (i *Invitation) EnsureID() {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
}

// Accept transitions a Pending invitation to Accepted. Any other starting
// state is a no-op error.
func (i Invitation) Accept() (Invitation, error) {
	if i.State != InvitationPending {
		return i, &StateError{Entity: "Invitation", From: string(i.State), To: string(InvitationAccepted)}
	}
	i.State = InvitationAccepted
	return i, nil
}

// Decline transitions a Pending invitation to Declined.
func (i Invitation) Decline() (Invitation, error) {
	if i.State != InvitationPending {
		return i, &StateError{Entity: "Invitation", From: string(i.State), To: string(InvitationDeclined)}
	}
	i.State = InvitationDeclined
	return i, nil
}

// StateError reports an illegal lifecycle transition.
type StateError struct {
	Entity string
	From   string
	To     string
}

func (e *StateError) Error() string {
	return e.Entity + ": cannot transition from " + e.From + " to " + e.To
}
