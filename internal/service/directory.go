package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/repository"
	"github.com/R3E-Network/service_layer/pkg/authz"
)

// Directory groups the thin CRUD services named in the RPC surface's
// Organizations/Projects/Zones/ZeroTrustNetworkTypes-Networks/Hypervisors
// groups — each a direct repository read/write authorized the same way
// Instance is, with no additional domain logic of its own.
type Directory struct {
	Organizations      *repository.Repository[domain.Organization]
	Projects           *repository.Repository[domain.Project]
	Zones              *repository.Repository[domain.Zone]
	NetworkTypes       *repository.Repository[domain.ZeroTrustNetworkType]
	Networks           *repository.Repository[domain.ZeroTrustNetwork]
	Hypervisors        *repository.Repository[domain.Hypervisor]
	Authz              *authz.Engine
}

func NewDirectory(
	organizations *repository.Repository[domain.Organization],
	projects *repository.Repository[domain.Project],
	zones *repository.Repository[domain.Zone],
	networkTypes *repository.Repository[domain.ZeroTrustNetworkType],
	networks *repository.Repository[domain.ZeroTrustNetwork],
	hypervisors *repository.Repository[domain.Hypervisor],
	az *authz.Engine,
) *Directory {
	return &Directory{
		Organizations: organizations,
		Projects:      projects,
		Zones:         zones,
		NetworkTypes:  networkTypes,
		Networks:      networks,
		Hypervisors:   hypervisors,
		Authz:         az,
	}
}

// CreateOrganization creates a root organization. Any authenticated
// principal may create one; ownership relationships are established
// out-of-band by whichever onboarding flow calls this.
func (d *Directory) CreateOrganization(ctx context.Context, name string) (domain.Organization, error) {
	return d.Organizations.Create(ctx, domain.Organization{Name: name})
}

// ListOrganizations lists the organizations principal belongs to, resolved
// through the authorization store rather than a Postgres join table —
// organization membership is a relationship tuple, not a row here.
func (d *Directory) ListOrganizations(ctx context.Context, principal domain.Principal) ([]domain.Organization, error) {
	return principal.Organizations(ctx, authzOrganizationLister{d.Authz, d.Organizations})
}

type authzOrganizationLister struct {
	az   *authz.Engine
	orgs *repository.Repository[domain.Organization]
}

func (l authzOrganizationLister) OrganizationsForPrincipal(ctx context.Context, kind domain.PrincipalKind, id uuid.UUID) ([]domain.Organization, error) {
	ids, err := l.az.Lookup(principalRef{kind, id}).Permission(domain.PermissionGet).ResourceType("organization").Await(ctx)
	if err != nil {
		return nil, err
	}
	orgs := make([]domain.Organization, 0, len(ids))
	for _, idStr := range ids {
		orgID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		org, err := l.orgs.GetByID(ctx, orgID)
		if err != nil {
			if _, ok := apperrors.As(err); ok && apperrors.KindOf(err) == apperrors.NotFound {
				continue
			}
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, nil
}

// principalRef is a minimal domain.Principal adapter so the lister can
// reconstruct the subject reference authz.Engine.Lookup needs without
// pulling in a full User/ServiceAccount row.
type principalRef struct {
	kind domain.PrincipalKind
	id   uuid.UUID
}

func (p principalRef) ID() uuid.UUID       { return p.id }
func (p principalRef) Kind() domain.PrincipalKind { return p.kind }
func (p principalRef) ResourceName() string {
	return string(p.kind) + "/" + p.id.String()
}
func (p principalRef) Organizations(ctx context.Context, lister domain.OrganizationLister) ([]domain.Organization, error) {
	return lister.OrganizationsForPrincipal(ctx, p.kind, p.id)
}

// CreateProject creates a project under organizationID, authorized by
// Create over the organization.
func (d *Directory) CreateProject(ctx context.Context, principal domain.Principal, organizationID uuid.UUID, name string) (domain.Project, error) {
	if err := d.Authz.Can(principal).Perform(domain.PermissionCreate).Over("organization", organizationID.String()).Await(ctx); err != nil {
		return domain.Project{}, err
	}
	return d.Projects.Create(ctx, domain.Project{OrganizationID: organizationID, Name: name})
}

// ListProjects lists the projects visible to principal under organizationID.
func (d *Directory) ListProjects(ctx context.Context, principal domain.Principal, organizationID uuid.UUID) ([]domain.Project, error) {
	if err := d.Authz.Can(principal).Perform(domain.PermissionList).Over("organization", organizationID.String()).Await(ctx); err != nil {
		return nil, err
	}
	return d.Projects.ListWhere(ctx, "organization_id = $1", organizationID)
}

// ListZones lists every physical zone, regardless of principal — zones are
// platform-wide infrastructure, not a tenant-scoped resource.
func (d *Directory) ListZones(ctx context.Context) ([]domain.Zone, error) {
	return d.Zones.List(ctx)
}

// ListZeroTrustNetworkTypes lists every VPN categorization, the same way
// ListZones does.
func (d *Directory) ListZeroTrustNetworkTypes(ctx context.Context) ([]domain.ZeroTrustNetworkType, error) {
	return d.NetworkTypes.List(ctx)
}

// ListZeroTrustNetworks lists the VPN definitions belonging to projectID's
// organization, authorized by List over the project.
func (d *Directory) ListZeroTrustNetworks(ctx context.Context, principal domain.Principal, project domain.Project) ([]domain.ZeroTrustNetwork, error) {
	if err := d.Authz.Can(principal).Perform(domain.PermissionList).Over("project", project.ID.String()).Await(ctx); err != nil {
		return nil, err
	}
	return d.Networks.ListWhere(ctx, "organization_id = $1", project.OrganizationID)
}

// RegisterHypervisor attaches a new hypervisor connection to organizationID,
// authorized by Create over the organization (registering capacity is an
// administrative act on the owning organization, not the hypervisor itself —
// there is no hypervisor row yet to authorize against).
func (d *Directory) RegisterHypervisor(ctx context.Context, principal domain.Principal, hv domain.Hypervisor) (domain.Hypervisor, error) {
	if err := d.Authz.Can(principal).Perform(domain.PermissionCreate).Over("organization", hv.OrganizationID.String()).Await(ctx); err != nil {
		return domain.Hypervisor{}, err
	}
	return d.Hypervisors.Create(ctx, hv)
}

// DetachHypervisor removes a hypervisor connection, authorized by Delete
// over the hypervisor itself.
func (d *Directory) DetachHypervisor(ctx context.Context, principal domain.Principal, hypervisorID uuid.UUID) error {
	if err := d.Authz.Can(principal).Perform(domain.PermissionDelete).Over("hypervisor", hypervisorID.String()).Await(ctx); err != nil {
		return err
	}
	return d.Hypervisors.Delete(ctx, map[string]any{"id": hypervisorID})
}
