// Package rpcapi defines the wire contract for the control plane's own gRPC
// surface: plain JSON-tagged request/response structs dispatched through the
// same codec/json registration pkg/authz's client uses, rather than
// protoc-generated stubs, matching the authorization store's own wire shape.
package rpcapi

import "time"

const ServiceName = "controlplane.v1.ControlPlane"

const (
	MethodCreateInstance = "/" + ServiceName + "/CreateInstance"
	MethodCloneInstance  = "/" + ServiceName + "/CloneInstance"
	MethodDeleteInstance = "/" + ServiceName + "/DeleteInstance"
	MethodStartInstance  = "/" + ServiceName + "/StartInstance"
	MethodStopInstance   = "/" + ServiceName + "/StopInstance"
	MethodListInstances  = "/" + ServiceName + "/ListInstances"

	MethodCreateOrganization = "/" + ServiceName + "/CreateOrganization"
	MethodListOrganizations  = "/" + ServiceName + "/ListOrganizations"

	MethodCreateProject = "/" + ServiceName + "/CreateProject"
	MethodListProjects  = "/" + ServiceName + "/ListProjects"

	MethodListZones = "/" + ServiceName + "/ListZones"

	MethodListZeroTrustNetworkTypes = "/" + ServiceName + "/ListZeroTrustNetworkTypes"
	MethodListZeroTrustNetworks     = "/" + ServiceName + "/ListZeroTrustNetworks"

	MethodRegisterHypervisor = "/" + ServiceName + "/RegisterHypervisor"
	MethodDetachHypervisor   = "/" + ServiceName + "/DetachHypervisor"

	MethodInviteMember = "/" + ServiceName + "/InviteMember"
	MethodAcceptInvite = "/" + ServiceName + "/AcceptInvite"
	MethodDeclineInvite = "/" + ServiceName + "/DeclineInvite"

	MethodGetOperation  = "/" + ServiceName + "/GetOperation"
	MethodWaitOperation = "/" + ServiceName + "/WaitOperation"
)

// InstanceView is the wire projection of domain.Instance.
type InstanceView struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	HypervisorID   string    `json:"hypervisor_id"`
	Name           string    `json:"name"`
	DistantID      string    `json:"distant_id"`
	Status         string    `json:"status"`
	CPUMax         int64     `json:"cpu_max"`
	MemoryMaxBytes int64     `json:"memory_max_bytes"`
	DiskMaxBytes   int64     `json:"disk_max_bytes"`
	IPv4           *string   `json:"ipv4,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateInstanceRequest struct {
	ProjectID     string `json:"project_id"`
	ZoneID        string `json:"zone_id"`
	Name          string `json:"name"`
	Cores         int    `json:"cores"`
	MemoryBytes   int64  `json:"memory_bytes"`
	DiskBytes     int64  `json:"disk_bytes"`
	ImageSource   string `json:"image_source"`
	NetworkBridge string `json:"network_bridge"`
}

type CreateInstanceResponse struct {
	Instance InstanceView `json:"instance"`
}

type CloneInstanceRequest struct {
	InstanceID string `json:"instance_id"`
}

type CloneInstanceResponse struct {
	Instance InstanceView `json:"instance"`
}

type InstanceIDRequest struct {
	InstanceID string `json:"instance_id"`
}

type Empty struct{}

type ListInstancesResponse struct {
	Instances []InstanceView `json:"instances"`
}

type OrganizationView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type CreateOrganizationResponse struct {
	Organization OrganizationView `json:"organization"`
}

type ListOrganizationsResponse struct {
	Organizations []OrganizationView `json:"organizations"`
}

type ProjectView struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateProjectRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
}

type CreateProjectResponse struct {
	Project ProjectView `json:"project"`
}

type ListProjectsRequest struct {
	OrganizationID string `json:"organization_id"`
}

type ListProjectsResponse struct {
	Projects []ProjectView `json:"projects"`
}

type ZoneView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

type ListZonesResponse struct {
	Zones []ZoneView `json:"zones"`
}

type ZeroTrustNetworkTypeView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListZeroTrustNetworkTypesResponse struct {
	Types []ZeroTrustNetworkTypeView `json:"types"`
}

type ZeroTrustNetworkView struct {
	ID     string `json:"id"`
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
}

type ListZeroTrustNetworksRequest struct {
	ProjectID string `json:"project_id"`
}

type ListZeroTrustNetworksResponse struct {
	Networks []ZeroTrustNetworkView `json:"networks"`
}

type HypervisorView struct {
	ID             string `json:"id"`
	URL            string `json:"url"`
	Node           string `json:"node"`
	StorageName    string `json:"storage_name"`
	OrganizationID string `json:"organization_id"`
	ZoneID         string `json:"zone_id"`
}

type RegisterHypervisorRequest struct {
	URL                string `json:"url"`
	Node               string `json:"node"`
	AuthorizationToken string `json:"authorization_token"`
	StorageName        string `json:"storage_name"`
	OrganizationID     string `json:"organization_id"`
	ZoneID             string `json:"zone_id"`
}

type RegisterHypervisorResponse struct {
	Hypervisor HypervisorView `json:"hypervisor"`
}

type HypervisorIDRequest struct {
	HypervisorID string `json:"hypervisor_id"`
}

type InviteMemberRequest struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
}

type InvitationView struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	State          string `json:"state"`
}

type InviteMemberResponse struct {
	Invitation InvitationView `json:"invitation"`
}

type InvitationIDRequest struct {
	InvitationID string `json:"invitation_id"`
}

type InvitationResponse struct {
	Invitation InvitationView `json:"invitation"`
}

type OperationView struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type OperationIDRequest struct {
	OperationID string `json:"operation_id"`
}

// WaitOperationRequest's TimeoutMs is optional; absence (nil) means wait
// indefinitely, per the RPC surface's wait contract.
type WaitOperationRequest struct {
	OperationID string `json:"operation_id"`
	TimeoutMs   *int64 `json:"timeout_ms,omitempty"`
}

type OperationResponse struct {
	Operation OperationView `json:"operation"`
}
