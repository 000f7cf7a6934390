package hypervisor

import (
	"context"
	"fmt"
	"net/http"
)

// ZoneConfig is the backend SDN zone create request body.
type ZoneConfig struct {
	Zone string `json:"zone"`
	Type string `json:"type"`
}

// VNetConfig is the backend SDN vnet create request body.
type VNetConfig struct {
	VNet string `json:"vnet"`
	Zone string `json:"zone"`
}

// SubnetConfig is the backend SDN subnet create request body; Subnet is the
// CIDR-derived id produced by CIDRToSubnetID.
type SubnetConfig struct {
	Subnet  string `json:"subnet"`
	Gateway string `json:"gateway,omitempty"`
}

// SDNZoneCreate creates an SDN zone. Synchronous; does not apply until
// SDNApply is invoked.
func (c *Client) SDNZoneCreate(ctx context.Context, cfg ZoneConfig) error {
	return c.do(ctx, http.MethodPost, "/api2/json/cluster/sdn/zones", cfg, nil)
}

// SDNZoneDelete deletes an SDN zone.
func (c *Client) SDNZoneDelete(ctx context.Context, zone string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api2/json/cluster/sdn/zones/%s", zone), nil, nil)
}

// SDNVNetCreate creates an SDN vnet within a zone.
func (c *Client) SDNVNetCreate(ctx context.Context, cfg VNetConfig) error {
	return c.do(ctx, http.MethodPost, "/api2/json/cluster/sdn/vnets", cfg, nil)
}

// SDNVNetDelete deletes an SDN vnet.
func (c *Client) SDNVNetDelete(ctx context.Context, vnet string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api2/json/cluster/sdn/vnets/%s", vnet), nil, nil)
}

// SDNSubnetCreate creates a subnet under a vnet. The CIDR is converted to
// the backend's subnet id namespace via CIDRToSubnetID before the call.
func (c *Client) SDNSubnetCreate(ctx context.Context, vnet, cidr string, cfg SubnetConfig) error {
	cfg.Subnet = CIDRToSubnetID(cidr)
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api2/json/cluster/sdn/vnets/%s/subnets", vnet), cfg, nil)
}

// SDNSubnetDelete deletes a subnet under a vnet.
func (c *Client) SDNSubnetDelete(ctx context.Context, vnet, cidr string) error {
	subnetID := CIDRToSubnetID(cidr)
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api2/json/cluster/sdn/vnets/%s/subnets/%s", vnet, subnetID), nil, nil)
}

// SDNApply applies pending SDN configuration changes; must be invoked after
// any zone/vnet/subnet mutation.
func (c *Client) SDNApply(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/api2/json/cluster/sdn", nil, nil)
}
