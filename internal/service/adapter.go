package service

import (
	"context"

	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/pkg/hypervisor"
)

// hypervisorStatusAdapter narrows *hypervisor.Client down to the
// Synchronizer's statusGetter contract, so the Synchronizer never imports
// pkg/hypervisor directly and stays testable against a fake.
type hypervisorStatusAdapter struct {
	client *hypervisor.Client
}

func (a hypervisorStatusAdapter) GetStatus(ctx context.Context, node string, vmid int) (statusResult, error) {
	return a.client.GetStatus(ctx, node, vmid)
}

// HypervisorStatusSource builds a Synchronizer.clientFor that reuses the
// Instance service's per-hypervisor client cache, per §5's "one client per
// backend URL" resource policy — the Synchronizer never opens its own.
func HypervisorStatusSource(instances *Instance) func(domain.Hypervisor) (statusGetter, error) {
	return func(hv domain.Hypervisor) (statusGetter, error) {
		client, err := instances.clientFor(hv)
		if err != nil {
			return nil, err
		}
		return hypervisorStatusAdapter{client: client}, nil
	}
}
