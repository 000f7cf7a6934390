package domain

import (
	"time"

	"github.com/google/uuid"
)

// Zone is a named physical location (datacenter) referenced by Hypervisor.
type Zone struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Provider  string    `db:"provider"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (z Zone) PrimaryKey() map[string]any { return map[string]any{"id": z.ID} }

func (z *Zone) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		z.CreatedAt = createdAt
	}
	z.UpdatedAt = updatedAt
}

func (z *Zone) EnsureID() {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
}

// Hypervisor is a connection record for one backend cluster. Node names the
// cluster member this record addresses requests at (the hypervisor client's
// node path segment).
type Hypervisor struct {
	ID                 uuid.UUID `db:"id"`
	URL                string    `db:"url"`
	AuthorizationToken string    `db:"authorization_token"`
	StorageName        string    `db:"storage_name"`
	Node               string    `db:"node"`
	OrganizationID     uuid.UUID `db:"organization_id"`
	ZoneID             uuid.UUID `db:"zone_id"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (h Hypervisor) PrimaryKey() map[string]any { return map[string]any{"id": h.ID} }

func (h *Hypervisor) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		h.CreatedAt = createdAt
	}
	h.UpdatedAt = updatedAt
}

func (h *Hypervisor) EnsureID() {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
}

// InstanceStatus is the reconciled run state of an Instance.
type InstanceStatus string

const (
	InstanceRunning InstanceStatus = "Running"
	InstanceStopped InstanceStatus = "Stopped"
	InstanceUnknown InstanceStatus = "Unknown"
)

// Instance is the platform's VM record.
type Instance struct {
	ID              uuid.UUID      `db:"id"`
	HypervisorID    uuid.UUID      `db:"hypervisor_id"`
	ProjectID       uuid.UUID      `db:"project_id"`
	DistantID       string         `db:"distant_id"`
	Name            string         `db:"name"`
	Status          InstanceStatus `db:"status"`
	CPUMax          int64          `db:"cpu_max"`
	MemoryMaxBytes  int64          `db:"memory_max_bytes"`
	DiskMaxBytes    int64          `db:"disk_max_bytes"`
	CPUUsage        float64        `db:"cpu_usage"`
	MemoryUsageByte int64          `db:"memory_usage_bytes"`
	DiskUsageBytes  int64          `db:"disk_usage_bytes"`
	IPv4            *string        `db:"ipv4"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (i Instance) PrimaryKey() map[string]any { return map[string]any{"id": i.ID} }

func (i *Instance) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		i.CreatedAt = createdAt
	}
	i.UpdatedAt = updatedAt
}

func (i *Instance) EnsureID() {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
}

// ZeroTrustNetworkType is a VPN categorization (e.g. "wireguard", "tailscale").
type ZeroTrustNetworkType struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (t ZeroTrustNetworkType) PrimaryKey() map[string]any { return map[string]any{"id": t.ID} }

func (t *ZeroTrustNetworkType) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		t.CreatedAt = createdAt
	}
	t.UpdatedAt = updatedAt
}

func (t *ZeroTrustNetworkType) EnsureID() {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
}

// ZeroTrustNetwork is a per-organization VPN definition.
type ZeroTrustNetwork struct {
	ID             uuid.UUID `db:"id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	NetworkTypeID  uuid.UUID `db:"network_type_id"`
	Name           string    `db:"name"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (n ZeroTrustNetwork) PrimaryKey() map[string]any { return map[string]any{"id": n.ID} }

func (n *ZeroTrustNetwork) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		n.CreatedAt = createdAt
	}
	n.UpdatedAt = updatedAt
}

func (n *ZeroTrustNetwork) EnsureID() {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
}
