// Package authzpb is the wire contract for the relationship store gRPC
// service named in spec.md §4.4/§6 (CheckPermission, LookupResources,
// WriteRelationships, DeleteRelationships, WatchServices). There is no
// protoc-generated code here: per SPEC_FULL.md's design decision, messages
// are plain structs carried over the internal/rpc/codec JSON codec rather
// than a vendored stub of a third-party SDK this corpus never depends on.
package authzpb

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "authz.v1.PermissionsService"

const (
	MethodCheckPermission    = "/" + ServiceName + "/CheckPermission"
	MethodLookupResources    = "/" + ServiceName + "/LookupResources"
	MethodWriteRelationships = "/" + ServiceName + "/WriteRelationships"
	MethodDeleteRelationships = "/" + ServiceName + "/DeleteRelationships"
	MethodWatchServices      = "/" + ServiceName + "/WatchServices"
)

// ObjectReference identifies one object by type and id.
type ObjectReference struct {
	ObjectType string `json:"object_type"`
	ObjectID   string `json:"object_id"`
}

// SubjectReference identifies one subject by type and id.
type SubjectReference struct {
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
}

// RelationshipUpdate is one write in a WriteRelationships call.
type RelationshipUpdate struct {
	Operation  string           `json:"operation"` // "touch" | "delete"
	Subject    SubjectReference `json:"subject"`
	Relation   string           `json:"relation"`
	Object     ObjectReference  `json:"object"`
}

// CheckPermissionRequest asks whether subject holds permission on object, at
// or after the consistency point named by AtLeastAsFresh.
type CheckPermissionRequest struct {
	Subject        SubjectReference `json:"subject"`
	Permission     string           `json:"permission"`
	Object         ObjectReference  `json:"object"`
	AtLeastAsFresh string           `json:"at_least_as_fresh,omitempty"`
}

// CheckPermissionResponse reports the check result.
type CheckPermissionResponse struct {
	Permitted bool   `json:"permitted"`
	Zookie    string `json:"zookie"`
}

// LookupResourcesRequest asks for every object of ResourceType on which
// Subject holds Permission.
type LookupResourcesRequest struct {
	ResourceType   string           `json:"resource_type"`
	Permission     string           `json:"permission"`
	Subject        SubjectReference `json:"subject"`
	AtLeastAsFresh string           `json:"at_least_as_fresh,omitempty"`
}

// LookupResourcesResponse lists the matching object ids.
type LookupResourcesResponse struct {
	ObjectIDs []string `json:"object_ids"`
	Zookie    string   `json:"zookie"`
}

// WriteRelationshipsRequest applies a batch of relationship mutations
// atomically.
type WriteRelationshipsRequest struct {
	Updates []RelationshipUpdate `json:"updates"`
}

// WriteRelationshipsResponse returns the consistency token for the write.
type WriteRelationshipsResponse struct {
	Zookie string `json:"zookie"`
}

// DeleteRelationshipsRequest deletes every relationship matching the filter.
type DeleteRelationshipsRequest struct {
	Subject  *SubjectReference `json:"subject,omitempty"`
	Relation string            `json:"relation,omitempty"`
	Object   *ObjectReference  `json:"object,omitempty"`
}

// DeleteRelationshipsResponse returns the consistency token for the delete.
type DeleteRelationshipsResponse struct {
	Zookie string `json:"zookie"`
}
