package authz

import (
	"context"

	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/internal/domain"
)

// Engine layers the typestate builder on top of a relationship store Client.
type Engine struct {
	client  *Client
	Metrics *metrics.Metrics
}

func NewEngine(client *Client) *Engine {
	return &Engine{client: client}
}

// Can starts a check chain: auth.Can(principal).Perform(permission).Over(objectType, objectID).
func (e *Engine) Can(principal domain.Principal) CheckWithPrincipal {
	return CheckWithPrincipal{engine: e, principal: principal}
}

// Lookup starts a lookup chain: auth.Lookup(principal).Permission(p).ResourceType(t).
func (e *Engine) Lookup(principal domain.Principal) LookupWithPrincipal {
	return LookupWithPrincipal{engine: e, principal: principal}
}

// CheckWithPrincipal is the first typestate: a principal has been bound but
// no permission has been chosen yet. Its only valid transition is Perform.
type CheckWithPrincipal struct {
	engine    *Engine
	principal domain.Principal
}

// Perform binds the permission being checked, producing CheckWithPermission.
// The receiver is not modified, so the same CheckWithPrincipal value can
// start further chains; the call sites in this repository build a fresh one
// from Engine.Can for each check.
func (c CheckWithPrincipal) Perform(permission domain.Permission) CheckWithPermission {
	return CheckWithPermission{engine: c.engine, principal: c.principal, permission: permission}
}

// CheckWithPermission is the second typestate: principal and permission are
// bound, awaiting the target resource.
type CheckWithPermission struct {
	engine     *Engine
	principal  domain.Principal
	permission domain.Permission
}

// Over binds the target resource and returns the terminal, awaitable
// CheckWithResource.
func (c CheckWithPermission) Over(objectType, objectID string) CheckWithResource {
	return CheckWithResource{
		engine:     c.engine,
		principal:  c.principal,
		permission: c.permission,
		objectType: objectType,
		objectID:   objectID,
	}
}

// CheckWithResource is the terminal typestate; Await performs the RPC.
type CheckWithResource struct {
	engine     *Engine
	principal  domain.Principal
	permission domain.Permission
	objectType string
	objectID   string
}

// Await performs the check, returning nil when permitted, a Forbidden
// apperrors.Error when denied, and an Unavailable one when the relationship
// store cannot be reached.
func (c CheckWithResource) Await(ctx context.Context) error {
	err := c.engine.client.Check(ctx, c.principal.Kind(), c.principal.ID().String(), c.permission, c.objectType, c.objectID)
	if c.engine.Metrics != nil {
		outcome := "allowed"
		if err != nil {
			outcome = "denied"
		}
		c.engine.Metrics.AuthzChecks.WithLabelValues(string(c.permission), outcome).Inc()
	}
	return err
}

// LookupWithPrincipal is the first lookup typestate.
type LookupWithPrincipal struct {
	engine    *Engine
	principal domain.Principal
}

func (l LookupWithPrincipal) Permission(permission domain.Permission) LookupWithPermission {
	return LookupWithPermission{engine: l.engine, principal: l.principal, permission: permission}
}

// LookupWithPermission is the second lookup typestate.
type LookupWithPermission struct {
	engine     *Engine
	principal  domain.Principal
	permission domain.Permission
}

func (l LookupWithPermission) ResourceType(objectType string) LookupWithResourceType {
	return LookupWithResourceType{engine: l.engine, principal: l.principal, permission: l.permission, objectType: objectType}
}

// LookupWithResourceType is the terminal lookup typestate; Await performs the RPC.
type LookupWithResourceType struct {
	engine     *Engine
	principal  domain.Principal
	permission domain.Permission
	objectType string
}

func (l LookupWithResourceType) Await(ctx context.Context) ([]string, error) {
	return l.engine.client.LookupResources(ctx, l.principal.Kind(), l.principal.ID().String(), l.permission, l.objectType)
}
