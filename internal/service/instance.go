// Package service implements the Instance Service (§4.5) and the
// Synchronizer (§4.6): the core business logic layered over the Hypervisor
// Client, the Authorization Engine, the Operations Queue, and the
// repositories, grounded on the teacher's per-domain service packages
// (internal/app/*/service) generalized to this system's single compute
// domain.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/infrastructure/resilience"
	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/queue"
	"github.com/R3E-Network/service_layer/internal/repository"
	"github.com/R3E-Network/service_layer/pkg/authz"
	"github.com/R3E-Network/service_layer/pkg/hypervisor"
)

// CreateInstanceRequest is the caller-supplied shape for Instance.Create;
// zero fields fall back to the defaults named in spec.md §4.5 step 4.
type CreateInstanceRequest struct {
	ProjectID     uuid.UUID
	ZoneID        uuid.UUID // optional; zero means "any zone for the organization"
	Name          string
	Cores         int
	MemoryBytes   int64
	DiskBytes     int64
	ImageSource   string // SCSI0 import-from source
	NetworkBridge string
}

const (
	defaultCores         = 2
	defaultMemoryBytes   = 2 << 30
	defaultDiskBytes     = 20 << 30
	defaultSCSIHW        = "virtio-scsi-pci"
	defaultNetworkBridge = "vmbr0"
)

// Instance implements the Instance Service.
type Instance struct {
	Hypervisors  *repository.Repository[domain.Hypervisor]
	Instances    *repository.Repository[domain.Instance]
	Projects     *repository.Repository[domain.Project]
	Authz        *authz.Engine
	Queue        *queue.Queue
	Metrics      *metrics.Metrics

	mu      sync.Mutex
	clients map[uuid.UUID]*hypervisor.Client
}

func NewInstance(hypervisors *repository.Repository[domain.Hypervisor], instances *repository.Repository[domain.Instance],
	projects *repository.Repository[domain.Project], az *authz.Engine, q *queue.Queue) *Instance {
	return &Instance{
		Hypervisors: hypervisors,
		Instances:   instances,
		Projects:    projects,
		Authz:       az,
		Queue:       q,
		clients:     make(map[uuid.UUID]*hypervisor.Client),
	}
}

func (s *Instance) clientFor(h domain.Hypervisor) (*hypervisor.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[h.ID]; ok {
		return c, nil
	}
	c, err := hypervisor.New(hypervisor.Config{BaseURL: h.URL, AuthorizationToken: h.AuthorizationToken})
	if err != nil {
		return nil, err
	}
	c.Metrics = s.Metrics
	// One breaker per backend: a hypervisor cluster wedged or unreachable
	// trips independently of its siblings.
	c.Breaker = resilience.New(resilience.DefaultConfig())
	s.clients[h.ID] = c
	return c, nil
}

// resolveHypervisor picks the first Hypervisor matching the project's
// organization and, when given, the requested zone; per §4.5 step 2.
func (s *Instance) resolveHypervisor(ctx context.Context, project domain.Project, zoneID uuid.UUID) (domain.Hypervisor, error) {
	var rows []domain.Hypervisor
	var err error
	if zoneID == uuid.Nil {
		rows, err = s.Hypervisors.ListWhere(ctx, "organization_id = $1", project.OrganizationID)
	} else {
		rows, err = s.Hypervisors.ListWhere(ctx, "organization_id = $1 AND zone_id = $2", project.OrganizationID, zoneID)
	}
	if err != nil {
		return domain.Hypervisor{}, err
	}
	if len(rows) == 0 {
		return domain.Hypervisor{}, apperrors.New(apperrors.NotFound, "NoHypervisorsAvailable")
	}
	return rows[0], nil
}

// Create implements the 8-step create flow in spec.md §4.5.
func (s *Instance) Create(ctx context.Context, principal domain.Principal, req CreateInstanceRequest) (domain.Instance, error) {
	// 1. Permission check: Create over the target Project.
	if err := s.Authz.Can(principal).Perform(domain.PermissionCreate).Over("project", req.ProjectID.String()).Await(ctx); err != nil {
		return domain.Instance{}, err
	}

	project, err := s.Projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return domain.Instance{}, err
	}

	// 2. Select a Hypervisor.
	hv, err := s.resolveHypervisor(ctx, project, req.ZoneID)
	if err != nil {
		return domain.Instance{}, err
	}
	client, err := s.clientFor(hv)
	if err != nil {
		return domain.Instance{}, err
	}

	// 3. Ask the hypervisor for next_id().
	vmid, err := client.NextID(ctx)
	if err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}

	// 4. Build the backend VM configuration with defaults overridden by the request.
	cores := req.Cores
	if cores == 0 {
		cores = defaultCores
	}
	memory := req.MemoryBytes
	if memory == 0 {
		memory = defaultMemoryBytes
	}
	disk := req.DiskBytes
	if disk == 0 {
		disk = defaultDiskBytes
	}
	bridge := req.NetworkBridge
	if bridge == "" {
		bridge = defaultNetworkBridge
	}
	cfg := hypervisor.VMConfig{
		VMID:   vmid,
		Name:   req.Name,
		Cores:  cores,
		Memory: memory / (1 << 20), // MiB, the backend's unit
		SCSI0:  fmt.Sprintf("%s:0,import-from=%s", hv.StorageName, req.ImageSource),
		SCSIHW: defaultSCSIHW,
		Net0:   fmt.Sprintf("virtio,bridge=%s", bridge),
	}

	// 5. Invoke backend create(), then wait for the task.
	task, err := client.Create(ctx, hv.Node, cfg)
	if err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}
	if _, err := client.WaitTask(ctx, hv.Node, task); err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}

	// 6. The disk-image import ignores the requested size; resize explicitly.
	resizeTask, err := client.ResizeDisk(ctx, hv.Node, vmid, "scsi0", disk)
	if err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}
	if _, err := client.WaitTask(ctx, hv.Node, resizeTask); err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}

	// 7. Persist the Instance row.
	instance := domain.Instance{
		HypervisorID:   hv.ID,
		ProjectID:      req.ProjectID,
		DistantID:      fmt.Sprintf("%d", vmid),
		Name:           req.Name,
		Status:         domain.InstanceUnknown,
		CPUMax:         int64(cores),
		MemoryMaxBytes: memory,
		DiskMaxBytes:   disk,
	}
	instance, err = s.Instances.Create(ctx, instance)
	if err != nil {
		return domain.Instance{}, err
	}

	// 8. Enqueue a WriteRelationships Operation asserting ownership relations.
	op, err := domain.NewOperation(domain.KindWriteRelationships, domain.BackendSpiceDb, domain.WriteRelationshipsPayload{
		Relationships: []domain.Relationship{
			{
				SubjectType: "project",
				SubjectID:   req.ProjectID.String(),
				Relation:    "owner",
				ObjectType:  "instance",
				ObjectID:    instance.ID.String(),
			},
		},
	}, 10)
	if err != nil {
		return domain.Instance{}, fmt.Errorf("instance service: build write_relationships operation: %w", err)
	}
	if _, err := s.Queue.Create(ctx, op); err != nil {
		return domain.Instance{}, err
	}

	return instance, nil
}

// Start authorizes and starts instanceID, waiting for the backend task.
func (s *Instance) Start(ctx context.Context, principal domain.Principal, instanceID uuid.UUID) error {
	instance, hv, client, err := s.authorizeOn(ctx, principal, domain.PermissionStart, instanceID)
	if err != nil {
		return err
	}
	vmid, err := vmidOf(instance)
	if err != nil {
		return err
	}
	task, err := client.Start(ctx, hv.Node, vmid)
	if err != nil {
		return translateHypervisorErr(err)
	}
	_, err = client.WaitTask(ctx, hv.Node, task)
	return translateHypervisorErr(err)
}

// Stop authorizes and stops instanceID, waiting for the backend task.
func (s *Instance) Stop(ctx context.Context, principal domain.Principal, instanceID uuid.UUID) error {
	instance, hv, client, err := s.authorizeOn(ctx, principal, domain.PermissionStop, instanceID)
	if err != nil {
		return err
	}
	vmid, err := vmidOf(instance)
	if err != nil {
		return err
	}
	task, err := client.Stop(ctx, hv.Node, vmid)
	if err != nil {
		return translateHypervisorErr(err)
	}
	_, err = client.WaitTask(ctx, hv.Node, task)
	return translateHypervisorErr(err)
}

// Delete authorizes, deletes the backend VM, then removes the database row.
func (s *Instance) Delete(ctx context.Context, principal domain.Principal, instanceID uuid.UUID) error {
	instance, hv, client, err := s.authorizeOn(ctx, principal, domain.PermissionDelete, instanceID)
	if err != nil {
		return err
	}
	vmid, err := vmidOf(instance)
	if err != nil {
		return err
	}
	task, err := client.Delete(ctx, hv.Node, vmid)
	if err != nil {
		return translateHypervisorErr(err)
	}
	if _, err := client.WaitTask(ctx, hv.Node, task); err != nil {
		return translateHypervisorErr(err)
	}
	return s.Instances.Delete(ctx, map[string]any{"id": instance.ID})
}

// Clone authorizes Create on the source Instance's Project, then clones it.
func (s *Instance) Clone(ctx context.Context, principal domain.Principal, instanceID uuid.UUID) (domain.Instance, error) {
	source, err := s.Instances.GetByID(ctx, instanceID)
	if err != nil {
		return domain.Instance{}, err
	}
	if err := s.Authz.Can(principal).Perform(domain.PermissionCreate).Over("project", source.ProjectID.String()).Await(ctx); err != nil {
		return domain.Instance{}, err
	}
	hv, err := s.Hypervisors.GetByID(ctx, source.HypervisorID)
	if err != nil {
		return domain.Instance{}, err
	}
	client, err := s.clientFor(hv)
	if err != nil {
		return domain.Instance{}, err
	}
	srcVMID, err := vmidOf(source)
	if err != nil {
		return domain.Instance{}, err
	}
	newVMID, err := client.NextID(ctx)
	if err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}
	task, err := client.Clone(ctx, hv.Node, srcVMID, newVMID, true)
	if err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}
	if _, err := client.WaitTask(ctx, hv.Node, task); err != nil {
		return domain.Instance{}, translateHypervisorErr(err)
	}

	clone := domain.Instance{
		HypervisorID:   hv.ID,
		ProjectID:      source.ProjectID,
		DistantID:      fmt.Sprintf("%d", newVMID),
		Name:           source.Name + "-clone",
		Status:         domain.InstanceUnknown,
		CPUMax:         source.CPUMax,
		MemoryMaxBytes: source.MemoryMaxBytes,
		DiskMaxBytes:   source.DiskMaxBytes,
	}
	return s.Instances.Create(ctx, clone)
}

// List returns every Instance accessible to principal via lookup_resources.
// A freshly created Instance is invisible here until its WriteRelationships
// Operation lands — eventually-consistent by design, per §9's Open
// Questions note, not a bug to be papered over.
func (s *Instance) List(ctx context.Context, principal domain.Principal) ([]domain.Instance, error) {
	ids, err := s.Authz.Lookup(principal).Permission(domain.PermissionList).ResourceType("instance").Await(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]domain.Instance, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		instance, err := s.Instances.GetByID(ctx, parsed)
		if err != nil {
			if ae, ok := apperrors.As(err); ok && ae.Kind == apperrors.NotFound {
				continue
			}
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

func (s *Instance) authorizeOn(ctx context.Context, principal domain.Principal, permission domain.Permission, instanceID uuid.UUID) (domain.Instance, domain.Hypervisor, *hypervisor.Client, error) {
	instance, err := s.Instances.GetByID(ctx, instanceID)
	if err != nil {
		return domain.Instance{}, domain.Hypervisor{}, nil, err
	}
	if err := s.Authz.Can(principal).Perform(permission).Over("instance", instanceID.String()).Await(ctx); err != nil {
		return domain.Instance{}, domain.Hypervisor{}, nil, err
	}
	hv, err := s.Hypervisors.GetByID(ctx, instance.HypervisorID)
	if err != nil {
		return domain.Instance{}, domain.Hypervisor{}, nil, err
	}
	client, err := s.clientFor(hv)
	if err != nil {
		return domain.Instance{}, domain.Hypervisor{}, nil, err
	}
	return instance, hv, client, nil
}

func vmidOf(instance domain.Instance) (int, error) {
	var vmid int
	if _, err := fmt.Sscanf(instance.DistantID, "%d", &vmid); err != nil {
		return 0, fmt.Errorf("instance service: parse distant_id %q: %w", instance.DistantID, err)
	}
	return vmid, nil
}

// translateHypervisorErr maps a pkg/hypervisor.Error into the platform's
// apperrors taxonomy, per §4.2's error translation table (VMNotFound ->
// DistantInstanceNotFound / NotFound, VM-not-running -> InstanceNotRunning;
// everything else -> Unavailable so the worker/service retry policy treats
// it as transient).
func translateHypervisorErr(err error) error {
	if err == nil {
		return nil
	}
	kind, vmid, ok := hypervisor.TranslateError(err)
	if !ok {
		return apperrors.Wrap(apperrors.Unavailable, "hypervisor call", err)
	}
	switch kind {
	case "DistantInstanceNotFound":
		return apperrors.NotFoundf("distant instance", vmid)
	case "InstanceNotRunning":
		return apperrors.InstanceNotRunningf("distant instance %s is not running", vmid)
	default:
		return apperrors.Wrap(apperrors.Unavailable, "hypervisor call", err)
	}
}
