package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/queue"
	"github.com/R3E-Network/service_layer/internal/repository"
	"github.com/R3E-Network/service_layer/internal/rpcapi"
	"github.com/R3E-Network/service_layer/internal/service"
)

// Server implements the control plane's own RPC surface (§4.9): Instances,
// Organizations, Projects, Zones, ZeroTrustNetworkTypes/Networks,
// Hypervisors, Invitations and Operations, each a thin adapter extracting
// the Principal the auth interceptor attached to ctx and delegating to a
// core service.
type Server struct {
	Instances   *service.Instance
	Invitations *service.Invitation
	Directory   *service.Directory
	Projects    *repository.Repository[domain.Project]
	Queue       *queue.Queue
}

// ServiceDesc registers Server against a *grpc.Server, in the hand-rolled
// JSON-codec style pkg/authz's Client speaks on the other side — there is
// no protoc-generated stub in this tree.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: rpcapi.ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateInstance", func(s *Server, ctx context.Context, req rpcapi.CreateInstanceRequest) (any, error) {
			return s.CreateInstance(ctx, req)
		}),
		unaryMethod("CloneInstance", func(s *Server, ctx context.Context, req rpcapi.CloneInstanceRequest) (any, error) {
			return s.CloneInstance(ctx, req)
		}),
		unaryMethod("DeleteInstance", func(s *Server, ctx context.Context, req rpcapi.InstanceIDRequest) (any, error) {
			return s.DeleteInstance(ctx, req)
		}),
		unaryMethod("StartInstance", func(s *Server, ctx context.Context, req rpcapi.InstanceIDRequest) (any, error) {
			return s.StartInstance(ctx, req)
		}),
		unaryMethod("StopInstance", func(s *Server, ctx context.Context, req rpcapi.InstanceIDRequest) (any, error) {
			return s.StopInstance(ctx, req)
		}),
		unaryMethod("ListInstances", func(s *Server, ctx context.Context, req rpcapi.Empty) (any, error) {
			return s.ListInstances(ctx, req)
		}),
		unaryMethod("CreateOrganization", func(s *Server, ctx context.Context, req rpcapi.CreateOrganizationRequest) (any, error) {
			return s.CreateOrganization(ctx, req)
		}),
		unaryMethod("ListOrganizations", func(s *Server, ctx context.Context, req rpcapi.Empty) (any, error) {
			return s.ListOrganizations(ctx, req)
		}),
		unaryMethod("CreateProject", func(s *Server, ctx context.Context, req rpcapi.CreateProjectRequest) (any, error) {
			return s.CreateProject(ctx, req)
		}),
		unaryMethod("ListProjects", func(s *Server, ctx context.Context, req rpcapi.ListProjectsRequest) (any, error) {
			return s.ListProjects(ctx, req)
		}),
		unaryMethod("ListZones", func(s *Server, ctx context.Context, req rpcapi.Empty) (any, error) {
			return s.ListZones(ctx, req)
		}),
		unaryMethod("ListZeroTrustNetworkTypes", func(s *Server, ctx context.Context, req rpcapi.Empty) (any, error) {
			return s.ListZeroTrustNetworkTypes(ctx, req)
		}),
		unaryMethod("ListZeroTrustNetworks", func(s *Server, ctx context.Context, req rpcapi.ListZeroTrustNetworksRequest) (any, error) {
			return s.ListZeroTrustNetworks(ctx, req)
		}),
		unaryMethod("RegisterHypervisor", func(s *Server, ctx context.Context, req rpcapi.RegisterHypervisorRequest) (any, error) {
			return s.RegisterHypervisor(ctx, req)
		}),
		unaryMethod("DetachHypervisor", func(s *Server, ctx context.Context, req rpcapi.HypervisorIDRequest) (any, error) {
			return s.DetachHypervisor(ctx, req)
		}),
		unaryMethod("InviteMember", func(s *Server, ctx context.Context, req rpcapi.InviteMemberRequest) (any, error) {
			return s.InviteMember(ctx, req)
		}),
		unaryMethod("AcceptInvite", func(s *Server, ctx context.Context, req rpcapi.InvitationIDRequest) (any, error) {
			return s.AcceptInvite(ctx, req)
		}),
		unaryMethod("DeclineInvite", func(s *Server, ctx context.Context, req rpcapi.InvitationIDRequest) (any, error) {
			return s.DeclineInvite(ctx, req)
		}),
		unaryMethod("GetOperation", func(s *Server, ctx context.Context, req rpcapi.OperationIDRequest) (any, error) {
			return s.GetOperation(ctx, req)
		}),
		unaryMethod("WaitOperation", func(s *Server, ctx context.Context, req rpcapi.WaitOperationRequest) (any, error) {
			return s.WaitOperation(ctx, req)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "controlplane.proto",
}

// unaryMethod builds a grpc.MethodDesc around a typed handler, decoding the
// request via the registered JSON codec and running it through the server's
// interceptor chain the same way protoc-generated code would.
func unaryMethod[Req any](name string, fn func(*Server, context.Context, Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			var req Req
			if err := dec(&req); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if interceptor == nil {
				return fn(s, ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + rpcapi.ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(s, ctx, req.(Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

func principalOrErr(ctx context.Context) (domain.Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, apperrors.UnauthenticatedError("no principal in context")
	}
	return p, nil
}

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.InvalidArgumentf("invalid id %q", raw)
	}
	return id, nil
}

func instanceView(i domain.Instance) rpcapi.InstanceView {
	return rpcapi.InstanceView{
		ID:             i.ID.String(),
		ProjectID:      i.ProjectID.String(),
		HypervisorID:   i.HypervisorID.String(),
		Name:           i.Name,
		DistantID:      i.DistantID,
		Status:         string(i.Status),
		CPUMax:         i.CPUMax,
		MemoryMaxBytes: i.MemoryMaxBytes,
		DiskMaxBytes:   i.DiskMaxBytes,
		IPv4:           i.IPv4,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func (s *Server) CreateInstance(ctx context.Context, req rpcapi.CreateInstanceRequest) (rpcapi.CreateInstanceResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.CreateInstanceResponse{}, err
	}
	projectID, err := parseUUID(req.ProjectID)
	if err != nil {
		return rpcapi.CreateInstanceResponse{}, err
	}
	var zoneID uuid.UUID
	if req.ZoneID != "" {
		if zoneID, err = parseUUID(req.ZoneID); err != nil {
			return rpcapi.CreateInstanceResponse{}, err
		}
	}
	instance, err := s.Instances.Create(ctx, principal, service.CreateInstanceRequest{
		ProjectID:     projectID,
		ZoneID:        zoneID,
		Name:          req.Name,
		Cores:         req.Cores,
		MemoryBytes:   req.MemoryBytes,
		DiskBytes:     req.DiskBytes,
		ImageSource:   req.ImageSource,
		NetworkBridge: req.NetworkBridge,
	})
	if err != nil {
		return rpcapi.CreateInstanceResponse{}, err
	}
	return rpcapi.CreateInstanceResponse{Instance: instanceView(instance)}, nil
}

func (s *Server) CloneInstance(ctx context.Context, req rpcapi.CloneInstanceRequest) (rpcapi.CloneInstanceResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.CloneInstanceResponse{}, err
	}
	instanceID, err := parseUUID(req.InstanceID)
	if err != nil {
		return rpcapi.CloneInstanceResponse{}, err
	}
	clone, err := s.Instances.Clone(ctx, principal, instanceID)
	if err != nil {
		return rpcapi.CloneInstanceResponse{}, err
	}
	return rpcapi.CloneInstanceResponse{Instance: instanceView(clone)}, nil
}

func (s *Server) DeleteInstance(ctx context.Context, req rpcapi.InstanceIDRequest) (rpcapi.Empty, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	instanceID, err := parseUUID(req.InstanceID)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	return rpcapi.Empty{}, s.Instances.Delete(ctx, principal, instanceID)
}

func (s *Server) StartInstance(ctx context.Context, req rpcapi.InstanceIDRequest) (rpcapi.Empty, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	instanceID, err := parseUUID(req.InstanceID)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	return rpcapi.Empty{}, s.Instances.Start(ctx, principal, instanceID)
}

func (s *Server) StopInstance(ctx context.Context, req rpcapi.InstanceIDRequest) (rpcapi.Empty, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	instanceID, err := parseUUID(req.InstanceID)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	return rpcapi.Empty{}, s.Instances.Stop(ctx, principal, instanceID)
}

func (s *Server) ListInstances(ctx context.Context, _ rpcapi.Empty) (rpcapi.ListInstancesResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.ListInstancesResponse{}, err
	}
	instances, err := s.Instances.List(ctx, principal)
	if err != nil {
		return rpcapi.ListInstancesResponse{}, err
	}
	out := make([]rpcapi.InstanceView, len(instances))
	for i, inst := range instances {
		out[i] = instanceView(inst)
	}
	return rpcapi.ListInstancesResponse{Instances: out}, nil
}

func (s *Server) CreateOrganization(ctx context.Context, req rpcapi.CreateOrganizationRequest) (rpcapi.CreateOrganizationResponse, error) {
	if _, err := principalOrErr(ctx); err != nil {
		return rpcapi.CreateOrganizationResponse{}, err
	}
	org, err := s.Directory.CreateOrganization(ctx, req.Name)
	if err != nil {
		return rpcapi.CreateOrganizationResponse{}, err
	}
	return rpcapi.CreateOrganizationResponse{Organization: rpcapi.OrganizationView{
		ID: org.ID.String(), Name: org.Name, CreatedAt: org.CreatedAt,
	}}, nil
}

func (s *Server) ListOrganizations(ctx context.Context, _ rpcapi.Empty) (rpcapi.ListOrganizationsResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.ListOrganizationsResponse{}, err
	}
	orgs, err := s.Directory.ListOrganizations(ctx, principal)
	if err != nil {
		return rpcapi.ListOrganizationsResponse{}, err
	}
	out := make([]rpcapi.OrganizationView, len(orgs))
	for i, o := range orgs {
		out[i] = rpcapi.OrganizationView{ID: o.ID.String(), Name: o.Name, CreatedAt: o.CreatedAt}
	}
	return rpcapi.ListOrganizationsResponse{Organizations: out}, nil
}

func (s *Server) CreateProject(ctx context.Context, req rpcapi.CreateProjectRequest) (rpcapi.CreateProjectResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.CreateProjectResponse{}, err
	}
	orgID, err := parseUUID(req.OrganizationID)
	if err != nil {
		return rpcapi.CreateProjectResponse{}, err
	}
	project, err := s.Directory.CreateProject(ctx, principal, orgID, req.Name)
	if err != nil {
		return rpcapi.CreateProjectResponse{}, err
	}
	return rpcapi.CreateProjectResponse{Project: rpcapi.ProjectView{
		ID: project.ID.String(), OrganizationID: project.OrganizationID.String(), Name: project.Name, CreatedAt: project.CreatedAt,
	}}, nil
}

func (s *Server) ListProjects(ctx context.Context, req rpcapi.ListProjectsRequest) (rpcapi.ListProjectsResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.ListProjectsResponse{}, err
	}
	orgID, err := parseUUID(req.OrganizationID)
	if err != nil {
		return rpcapi.ListProjectsResponse{}, err
	}
	projects, err := s.Directory.ListProjects(ctx, principal, orgID)
	if err != nil {
		return rpcapi.ListProjectsResponse{}, err
	}
	out := make([]rpcapi.ProjectView, len(projects))
	for i, p := range projects {
		out[i] = rpcapi.ProjectView{ID: p.ID.String(), OrganizationID: p.OrganizationID.String(), Name: p.Name, CreatedAt: p.CreatedAt}
	}
	return rpcapi.ListProjectsResponse{Projects: out}, nil
}

func (s *Server) ListZones(ctx context.Context, _ rpcapi.Empty) (rpcapi.ListZonesResponse, error) {
	if _, err := principalOrErr(ctx); err != nil {
		return rpcapi.ListZonesResponse{}, err
	}
	zones, err := s.Directory.ListZones(ctx)
	if err != nil {
		return rpcapi.ListZonesResponse{}, err
	}
	out := make([]rpcapi.ZoneView, len(zones))
	for i, z := range zones {
		out[i] = rpcapi.ZoneView{ID: z.ID.String(), Name: z.Name, Provider: z.Provider}
	}
	return rpcapi.ListZonesResponse{Zones: out}, nil
}

func (s *Server) ListZeroTrustNetworkTypes(ctx context.Context, _ rpcapi.Empty) (rpcapi.ListZeroTrustNetworkTypesResponse, error) {
	if _, err := principalOrErr(ctx); err != nil {
		return rpcapi.ListZeroTrustNetworkTypesResponse{}, err
	}
	types, err := s.Directory.ListZeroTrustNetworkTypes(ctx)
	if err != nil {
		return rpcapi.ListZeroTrustNetworkTypesResponse{}, err
	}
	out := make([]rpcapi.ZeroTrustNetworkTypeView, len(types))
	for i, t := range types {
		out[i] = rpcapi.ZeroTrustNetworkTypeView{ID: t.ID.String(), Name: t.Name}
	}
	return rpcapi.ListZeroTrustNetworkTypesResponse{Types: out}, nil
}

func (s *Server) ListZeroTrustNetworks(ctx context.Context, req rpcapi.ListZeroTrustNetworksRequest) (rpcapi.ListZeroTrustNetworksResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.ListZeroTrustNetworksResponse{}, err
	}
	projectID, err := parseUUID(req.ProjectID)
	if err != nil {
		return rpcapi.ListZeroTrustNetworksResponse{}, err
	}
	project, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		return rpcapi.ListZeroTrustNetworksResponse{}, err
	}
	networks, err := s.Directory.ListZeroTrustNetworks(ctx, principal, project)
	if err != nil {
		return rpcapi.ListZeroTrustNetworksResponse{}, err
	}
	out := make([]rpcapi.ZeroTrustNetworkView, len(networks))
	for i, n := range networks {
		out[i] = rpcapi.ZeroTrustNetworkView{ID: n.ID.String(), TypeID: n.NetworkTypeID.String(), Name: n.Name}
	}
	return rpcapi.ListZeroTrustNetworksResponse{Networks: out}, nil
}

func (s *Server) RegisterHypervisor(ctx context.Context, req rpcapi.RegisterHypervisorRequest) (rpcapi.RegisterHypervisorResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.RegisterHypervisorResponse{}, err
	}
	orgID, err := parseUUID(req.OrganizationID)
	if err != nil {
		return rpcapi.RegisterHypervisorResponse{}, err
	}
	zoneID, err := parseUUID(req.ZoneID)
	if err != nil {
		return rpcapi.RegisterHypervisorResponse{}, err
	}
	hv, err := s.Directory.RegisterHypervisor(ctx, principal, domain.Hypervisor{
		URL:                req.URL,
		Node:               req.Node,
		AuthorizationToken: req.AuthorizationToken,
		StorageName:        req.StorageName,
		OrganizationID:     orgID,
		ZoneID:             zoneID,
	})
	if err != nil {
		return rpcapi.RegisterHypervisorResponse{}, err
	}
	return rpcapi.RegisterHypervisorResponse{Hypervisor: rpcapi.HypervisorView{
		ID: hv.ID.String(), URL: hv.URL, Node: hv.Node, StorageName: hv.StorageName,
		OrganizationID: hv.OrganizationID.String(), ZoneID: hv.ZoneID.String(),
	}}, nil
}

func (s *Server) DetachHypervisor(ctx context.Context, req rpcapi.HypervisorIDRequest) (rpcapi.Empty, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	hvID, err := parseUUID(req.HypervisorID)
	if err != nil {
		return rpcapi.Empty{}, err
	}
	return rpcapi.Empty{}, s.Directory.DetachHypervisor(ctx, principal, hvID)
}

func invitationView(inv domain.Invitation) rpcapi.InvitationView {
	return rpcapi.InvitationView{
		ID:             inv.ID.String(),
		OrganizationID: inv.OrganizationID.String(),
		UserID:         inv.UserID.String(),
		State:          string(inv.State),
	}
}

func (s *Server) InviteMember(ctx context.Context, req rpcapi.InviteMemberRequest) (rpcapi.InviteMemberResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.InviteMemberResponse{}, err
	}
	orgID, err := parseUUID(req.OrganizationID)
	if err != nil {
		return rpcapi.InviteMemberResponse{}, err
	}
	userID, err := parseUUID(req.UserID)
	if err != nil {
		return rpcapi.InviteMemberResponse{}, err
	}
	inv, err := s.Invitations.Invite(ctx, principal, orgID, userID)
	if err != nil {
		return rpcapi.InviteMemberResponse{}, err
	}
	return rpcapi.InviteMemberResponse{Invitation: invitationView(inv)}, nil
}

func (s *Server) AcceptInvite(ctx context.Context, req rpcapi.InvitationIDRequest) (rpcapi.InvitationResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.InvitationResponse{}, err
	}
	invID, err := parseUUID(req.InvitationID)
	if err != nil {
		return rpcapi.InvitationResponse{}, err
	}
	inv, err := s.Invitations.Accept(ctx, principal, invID)
	if err != nil {
		return rpcapi.InvitationResponse{}, err
	}
	return rpcapi.InvitationResponse{Invitation: invitationView(inv)}, nil
}

func (s *Server) DeclineInvite(ctx context.Context, req rpcapi.InvitationIDRequest) (rpcapi.InvitationResponse, error) {
	principal, err := principalOrErr(ctx)
	if err != nil {
		return rpcapi.InvitationResponse{}, err
	}
	invID, err := parseUUID(req.InvitationID)
	if err != nil {
		return rpcapi.InvitationResponse{}, err
	}
	inv, err := s.Invitations.Decline(ctx, principal, invID)
	if err != nil {
		return rpcapi.InvitationResponse{}, err
	}
	return rpcapi.InvitationResponse{Invitation: invitationView(inv)}, nil
}

func operationView(op domain.Operation) rpcapi.OperationView {
	v := rpcapi.OperationView{
		ID:          op.ID.String(),
		Kind:        string(op.Kind),
		Status:      string(op.Status),
		Attempts:    op.Attempts,
		CreatedAt:   op.CreatedAt,
		CompletedAt: op.CompletedAt,
	}
	if op.LastError != nil {
		v.LastError = *op.LastError
	}
	return v
}

func (s *Server) GetOperation(ctx context.Context, req rpcapi.OperationIDRequest) (rpcapi.OperationResponse, error) {
	if _, err := principalOrErr(ctx); err != nil {
		return rpcapi.OperationResponse{}, err
	}
	id, err := parseUUID(req.OperationID)
	if err != nil {
		return rpcapi.OperationResponse{}, err
	}
	op, err := s.Queue.Get(ctx, id)
	if err != nil {
		return rpcapi.OperationResponse{}, err
	}
	return rpcapi.OperationResponse{Operation: operationView(op)}, nil
}

func (s *Server) WaitOperation(ctx context.Context, req rpcapi.WaitOperationRequest) (rpcapi.OperationResponse, error) {
	if _, err := principalOrErr(ctx); err != nil {
		return rpcapi.OperationResponse{}, err
	}
	id, err := parseUUID(req.OperationID)
	if err != nil {
		return rpcapi.OperationResponse{}, err
	}
	// A nil or non-positive TimeoutMs means wait indefinitely, bounded only
	// by the RPC's own context deadline.
	var timeout time.Duration
	if req.TimeoutMs != nil && *req.TimeoutMs > 0 {
		timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
	}
	op, err := s.Queue.Wait(ctx, id, timeout)
	if err != nil {
		return rpcapi.OperationResponse{}, err
	}
	return rpcapi.OperationResponse{Operation: operationView(op)}, nil
}
