package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OperationKind is a closed tag naming the side effect an Operation performs.
type OperationKind string

const (
	KindWriteRelationships             OperationKind = "WriteRelationships"
	KindDeleteRelationship             OperationKind = "DeleteRelationship"
	KindPangolinInviteUser             OperationKind = "PangolinInviteUser"
	KindPangolinRemoveUser             OperationKind = "PangolinRemoveUser"
	KindPangolinUpdateUser             OperationKind = "PangolinUpdateUser"
	KindHoopCreateAgent                OperationKind = "HoopCreateAgent"
	KindHoopDeleteAgent                OperationKind = "HoopDeleteAgent"
	KindHoopCreateConnection           OperationKind = "HoopCreateConnection"
	KindHoopDeleteConnection           OperationKind = "HoopDeleteConnection"
	KindKubernetesCreateNamespaceAccess OperationKind = "KubernetesCreateNamespaceAccess"
	KindKubernetesDeleteNamespaceAccess OperationKind = "KubernetesDeleteNamespaceAccess"
)

// TargetBackend is the external system an Operation is executed against.
type TargetBackend string

const (
	BackendSpiceDb     TargetBackend = "SpiceDb"
	BackendPangolin    TargetBackend = "Pangolin"
	BackendHoop        TargetBackend = "Hoop"
	BackendKubernetes  TargetBackend = "Kubernetes"
)

// backendByKind is the canonical kind -> target_backend mapping. Operation
// rows persist both fields (see the Open Questions note on the duplicate
// kind/target_backend pairing); NewOperation derives TargetBackend from it
// when the caller passes none. A stored pair is not checked against it.
var backendByKind = map[OperationKind]TargetBackend{
	KindWriteRelationships:              BackendSpiceDb,
	KindDeleteRelationship:              BackendSpiceDb,
	KindPangolinInviteUser:              BackendPangolin,
	KindPangolinRemoveUser:              BackendPangolin,
	KindPangolinUpdateUser:              BackendPangolin,
	KindHoopCreateAgent:                 BackendHoop,
	KindHoopDeleteAgent:                 BackendHoop,
	KindHoopCreateConnection:            BackendHoop,
	KindHoopDeleteConnection:            BackendHoop,
	KindKubernetesCreateNamespaceAccess: BackendKubernetes,
	KindKubernetesDeleteNamespaceAccess: BackendKubernetes,
}

// BackendForKind returns the canonical backend for kind.
func BackendForKind(kind OperationKind) (TargetBackend, bool) {
	b, ok := backendByKind[kind]
	return b, ok
}

// OperationStatus is the state-machine position of an Operation.
type OperationStatus string

const (
	OperationPending   OperationStatus = "Pending"
	OperationRunning   OperationStatus = "Running"
	OperationSucceeded OperationStatus = "Succeeded"
	OperationFailed    OperationStatus = "Failed"
	OperationCancelled OperationStatus = "Cancelled"
)

// Terminal reports whether status is one of the terminal states.
func (s OperationStatus) Terminal() bool {
	switch s {
	case OperationSucceeded, OperationFailed, OperationCancelled:
		return true
	default:
		return false
	}
}

// Operation is one durable queue entry: a pending or resolved externally
// targeted side effect.
type Operation struct {
	ID             uuid.UUID       `db:"id"`
	Kind           OperationKind   `db:"kind"`
	TargetBackend  TargetBackend   `db:"target_backend"`
	Status         OperationStatus `db:"status"`
	Payload        json.RawMessage `db:"payload"`
	Attempts       int             `db:"attempts"`
	MaxAttempts    int             `db:"max_attempts"`
	LastError      *string         `db:"last_error"`
	NextAttemptAt  *time.Time      `db:"next_attempt_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	CompletedAt    *time.Time      `db:"completed_at"`
}

func (o Operation) PrimaryKey() map[string]any { return map[string]any{"id": o.ID} }

func (o *Operation) Stamp(createdAt, updatedAt time.Time) {
	if !createdAt.IsZero() {
		o.CreatedAt = createdAt
	}
	o.UpdatedAt = updatedAt
}

func (o *Operation) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
}

// Done reports whether the Operation has reached a terminal state, the
// flag surfaced by the RPC surface's Get/Wait responses.
func (o Operation) Done() bool { return o.CompletedAt != nil }

// NewOperation constructs a Pending Operation ready for insertion, deriving
// TargetBackend from Kind when the caller did not already pin one.
func NewOperation(kind OperationKind, backend TargetBackend, payload any, maxAttempts int) (Operation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Operation{}, err
	}
	if backend == "" {
		if derived, ok := BackendForKind(kind); ok {
			backend = derived
		}
	}
	return Operation{
		ID:            uuid.New(),
		Kind:          kind,
		TargetBackend: backend,
		Status:        OperationPending,
		Payload:       raw,
		MaxAttempts:   maxAttempts,
	}, nil
}

// WriteRelationshipsPayload is the payload shape for KindWriteRelationships.
type WriteRelationshipsPayload struct {
	Relationships []Relationship `json:"relationships"`
}

// DeleteRelationshipPayload is the payload shape for KindDeleteRelationship.
type DeleteRelationshipPayload struct {
	Relationship Relationship `json:"relationship"`
}

// PangolinInviteUserPayload is the payload shape for KindPangolinInviteUser.
type PangolinInviteUserPayload struct {
	OrgSlug string `json:"org_slug"`
	Email   string `json:"email"`
}

// PangolinUserRefPayload is shared by Remove/Update Pangolin operations.
type PangolinUserRefPayload struct {
	OrgSlug  string `json:"org_slug"`
	UserID   string `json:"user_id"`
	RoleID   *string `json:"role_id,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

// HoopAgentPayload is the payload shape for Hoop agent operations.
type HoopAgentPayload struct {
	AgentName string `json:"agent_name"`
}

// HoopConnectionPayload is the payload shape for Hoop connection operations.
type HoopConnectionPayload struct {
	ConnectionName string `json:"connection_name"`
	AgentID        string `json:"agent_id"`
}

// KubernetesNamespaceAccessPayload is the payload shape for Kubernetes
// namespace-access operations.
type KubernetesNamespaceAccessPayload struct {
	Namespace string `json:"namespace"`
	Subject   string `json:"subject"`
}
