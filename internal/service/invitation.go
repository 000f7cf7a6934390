package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/repository"
	"github.com/R3E-Network/service_layer/pkg/authz"
)

// Invitation implements the organization-invitation lifecycle supplemented
// from original_source/'s frn-core/src/identity/invitation.rs: invite a user
// into an organization, then let them accept or decline.
type Invitation struct {
	Invitations *repository.Repository[domain.Invitation]
	Authz       *authz.Engine
}

func NewInvitation(invitations *repository.Repository[domain.Invitation], az *authz.Engine) *Invitation {
	return &Invitation{Invitations: invitations, Authz: az}
}

// Invite creates a Pending invitation for userID into organizationID,
// authorized by InviteMember over the organization.
func (s *Invitation) Invite(ctx context.Context, principal domain.Principal, organizationID, userID uuid.UUID) (domain.Invitation, error) {
	if err := s.Authz.Can(principal).Perform(domain.PermissionInviteMember).Over("organization", organizationID.String()).Await(ctx); err != nil {
		return domain.Invitation{}, err
	}
	inv := domain.Invitation{
		OrganizationID: organizationID,
		UserID:         userID,
		State:          domain.InvitationPending,
	}
	return s.Invitations.Create(ctx, inv)
}

// Accept transitions invitationID to Accepted. The invited user may accept
// their own invitation; any other principal needs Get over the invitation.
func (s *Invitation) Accept(ctx context.Context, principal domain.Principal, invitationID uuid.UUID) (domain.Invitation, error) {
	return s.transition(ctx, principal, invitationID, func(inv domain.Invitation) (domain.Invitation, error) {
		return inv.Accept()
	})
}

// Decline transitions invitationID to Declined.
func (s *Invitation) Decline(ctx context.Context, principal domain.Principal, invitationID uuid.UUID) (domain.Invitation, error) {
	return s.transition(ctx, principal, invitationID, func(inv domain.Invitation) (domain.Invitation, error) {
		return inv.Decline()
	})
}

func (s *Invitation) transition(ctx context.Context, principal domain.Principal, invitationID uuid.UUID, apply func(domain.Invitation) (domain.Invitation, error)) (domain.Invitation, error) {
	inv, err := s.Invitations.GetByID(ctx, invitationID)
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv.UserID != principal.ID() {
		if err := s.Authz.Can(principal).Perform(domain.PermissionGet).Over("invitation", invitationID.String()).Await(ctx); err != nil {
			return domain.Invitation{}, err
		}
	}
	updated, err := apply(inv)
	if err != nil {
		return domain.Invitation{}, err
	}
	return s.Invitations.Update(ctx, updated)
}
