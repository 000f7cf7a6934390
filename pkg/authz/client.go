// Package authz implements the Authorization Client & Engine (§4.4): four
// RPC primitives against the external relationship store plus a typestate
// builder in which each step returns a new value of a distinct type carrying
// the parameters bound so far.
//
// The relationship store is reached over grpc.ClientConn using the JSON
// codec registered in internal/rpc/codec, against the wire contract in
// internal/authzpb — grounded on the teacher's own
// google.golang.org/grpc dependency rather than a vendored third-party SDK.
package authz

import (
	"context"
	"crypto/tls"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/authzpb"
	_ "github.com/R3E-Network/service_layer/internal/rpc/codec"
	"github.com/R3E-Network/service_layer/internal/domain"
)

// Client talks to the relationship store over one gRPC connection.
type Client struct {
	conn *grpc.ClientConn
}

// Config configures the relationship store connection.
type Config struct {
	Target         string // host:port
	PresharedKey   string
	Insecure       bool
}

// presharedKeyCred carries the SpiceDB-style preshared key as a gRPC
// per-RPC credential.
type presharedKeyCred struct {
	key      string
	insecure bool
}

func (c presharedKeyCred) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + c.key}, nil
}

func (c presharedKeyCred) RequireTransportSecurity() bool { return !c.insecure }

// New dials the relationship store and forces the JSON codec on every call.
func New(cfg Config) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
		grpc.WithPerRPCCredentials(presharedKeyCred{key: cfg.PresharedKey, insecure: cfg.Insecure}),
	}
	if cfg.Insecure {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	}
	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		return nil, fmt.Errorf("authz: dial %s: %w", cfg.Target, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func subjectRef(kind domain.PrincipalKind, id string) authzpb.SubjectReference {
	return authzpb.SubjectReference{SubjectType: string(kind), SubjectID: id}
}

// Check returns nil when subject holds permission on object, Forbidden when
// it does not, and Unavailable for transport failures.
func (c *Client) Check(ctx context.Context, subjectType domain.PrincipalKind, subjectID string, permission domain.Permission, objectType, objectID string) error {
	req := &authzpb.CheckPermissionRequest{
		Subject:    subjectRef(subjectType, subjectID),
		Permission: string(permission),
		Object:     authzpb.ObjectReference{ObjectType: objectType, ObjectID: objectID},
	}
	resp := new(authzpb.CheckPermissionResponse)
	if err := c.conn.Invoke(ctx, authzpb.MethodCheckPermission, req, resp); err != nil {
		return apperrors.Wrap(apperrors.Unavailable, "authz: check", err)
	}
	if !resp.Permitted {
		return apperrors.New(apperrors.Forbidden, fmt.Sprintf("%s does not hold %s on %s/%s", subjectID, permission, objectType, objectID))
	}
	return nil
}

// LookupResources enumerates the ids of objectType on which subject holds
// permission.
func (c *Client) LookupResources(ctx context.Context, subjectType domain.PrincipalKind, subjectID string, permission domain.Permission, objectType string) ([]string, error) {
	req := &authzpb.LookupResourcesRequest{
		ResourceType: objectType,
		Permission:   string(permission),
		Subject:      subjectRef(subjectType, subjectID),
	}
	resp := new(authzpb.LookupResourcesResponse)
	if err := c.conn.Invoke(ctx, authzpb.MethodLookupResources, req, resp); err != nil {
		return nil, apperrors.Wrap(apperrors.Unavailable, "authz: lookup_resources", err)
	}
	return resp.ObjectIDs, nil
}

// WriteRelationship creates or updates one relationship tuple and returns
// the resulting consistency token.
func (c *Client) WriteRelationship(ctx context.Context, rel domain.Relationship) (domain.Zookie, error) {
	req := &authzpb.WriteRelationshipsRequest{Updates: []authzpb.RelationshipUpdate{
		{
			Operation: "touch",
			Subject:   authzpb.SubjectReference{SubjectType: rel.SubjectType, SubjectID: rel.SubjectID},
			Relation:  rel.Relation,
			Object:    authzpb.ObjectReference{ObjectType: rel.ObjectType, ObjectID: rel.ObjectID},
		},
	}}
	resp := new(authzpb.WriteRelationshipsResponse)
	if err := c.conn.Invoke(ctx, authzpb.MethodWriteRelationships, req, resp); err != nil {
		return "", apperrors.Wrap(apperrors.Unavailable, "authz: write_relationship", err)
	}
	return domain.Zookie(resp.Zookie), nil
}

// DeleteRelationship removes one relationship tuple and returns the
// resulting consistency token.
func (c *Client) DeleteRelationship(ctx context.Context, rel domain.Relationship) (domain.Zookie, error) {
	subject := authzpb.SubjectReference{SubjectType: rel.SubjectType, SubjectID: rel.SubjectID}
	object := authzpb.ObjectReference{ObjectType: rel.ObjectType, ObjectID: rel.ObjectID}
	req := &authzpb.DeleteRelationshipsRequest{
		Subject:  &subject,
		Relation: rel.Relation,
		Object:   &object,
	}
	resp := new(authzpb.DeleteRelationshipsResponse)
	if err := c.conn.Invoke(ctx, authzpb.MethodDeleteRelationships, req, resp); err != nil {
		return "", apperrors.Wrap(apperrors.Unavailable, "authz: delete_relationship", err)
	}
	return domain.Zookie(resp.Zookie), nil
}
