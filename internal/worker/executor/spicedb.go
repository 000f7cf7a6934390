package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/pkg/authz"
)

// SpiceDb executes WriteRelationships / DeleteRelationship operations
// against the relationship store.
type SpiceDb struct {
	Client *authz.Client
}

func (e SpiceDb) Execute(ctx context.Context, op domain.Operation) error {
	switch op.Kind {
	case domain.KindWriteRelationships:
		var payload domain.WriteRelationshipsPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("spicedb executor: decode payload: %w", err)
		}
		for _, rel := range payload.Relationships {
			if _, err := e.Client.WriteRelationship(ctx, rel); err != nil {
				return err
			}
		}
		return nil
	case domain.KindDeleteRelationship:
		var payload domain.DeleteRelationshipPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("spicedb executor: decode payload: %w", err)
		}
		_, err := e.Client.DeleteRelationship(ctx, payload.Relationship)
		return err
	default:
		return fmt.Errorf("spicedb executor: unsupported operation kind %s", op.Kind)
	}
}
