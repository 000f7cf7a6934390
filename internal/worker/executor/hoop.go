package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/pkg/hoop"
)

// Hoop executes the SSH bastion agent/connection operations against the
// Hoop client.
type Hoop struct {
	Client *hoop.Client
}

func (e Hoop) Execute(ctx context.Context, op domain.Operation) error {
	switch op.Kind {
	case domain.KindHoopCreateAgent:
		var payload domain.HoopAgentPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("hoop executor: decode payload: %w", err)
		}
		_, err := e.Client.CreateAgent(ctx, payload.AgentName)
		return err
	case domain.KindHoopDeleteAgent:
		var payload domain.HoopAgentPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("hoop executor: decode payload: %w", err)
		}
		return e.Client.DeleteAgent(ctx, payload.AgentName)
	case domain.KindHoopCreateConnection:
		var payload domain.HoopConnectionPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("hoop executor: decode payload: %w", err)
		}
		return e.Client.CreateConnection(ctx, payload.ConnectionName, payload.AgentID)
	case domain.KindHoopDeleteConnection:
		var payload domain.HoopConnectionPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("hoop executor: decode payload: %w", err)
		}
		return e.Client.DeleteConnection(ctx, payload.ConnectionName)
	default:
		return fmt.Errorf("hoop executor: unsupported operation kind %s", op.Kind)
	}
}
