package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/pkg/pangolin"
)

// Pangolin executes the VPN-user-lifecycle operations against the Pangolin
// client.
type Pangolin struct {
	Client *pangolin.Client
}

func (e Pangolin) Execute(ctx context.Context, op domain.Operation) error {
	switch op.Kind {
	case domain.KindPangolinInviteUser:
		var payload domain.PangolinInviteUserPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("pangolin executor: decode payload: %w", err)
		}
		return e.Client.InviteUser(ctx, payload.OrgSlug, payload.Email)
	case domain.KindPangolinRemoveUser:
		var payload domain.PangolinUserRefPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("pangolin executor: decode payload: %w", err)
		}
		return e.Client.RemoveUser(ctx, payload.OrgSlug, payload.UserID)
	case domain.KindPangolinUpdateUser:
		var payload domain.PangolinUserRefPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("pangolin executor: decode payload: %w", err)
		}
		return e.Client.UpdateUser(ctx, payload.OrgSlug, payload.UserID, payload.RoleID, payload.Disabled)
	default:
		return fmt.Errorf("pangolin executor: unsupported operation kind %s", op.Kind)
	}
}
