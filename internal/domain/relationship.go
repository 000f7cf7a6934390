package domain

// Relationship is one authorization tuple: subject holds relation on object.
type Relationship struct {
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
	Relation    string `json:"relation"`
	ObjectType  string `json:"object_type"`
	ObjectID    string `json:"object_id"`
}

// Zookie is an opaque consistency token returned by the authorization store,
// carried alongside writes to implement read-your-writes.
type Zookie string

// Permission is a closed enumeration of checkable actions.
type Permission string

const (
	PermissionCreate      Permission = "Create"
	PermissionDelete      Permission = "Delete"
	PermissionGet         Permission = "Get"
	PermissionList        Permission = "List"
	PermissionInviteMember Permission = "InviteMember"
	PermissionStart       Permission = "Start"
	PermissionStop        Permission = "Stop"
)
