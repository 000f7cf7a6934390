package hypervisor

import (
	"fmt"
	"regexp"
)

// vmNotFoundPattern matches the backend's 500 body when a VM config file is
// absent, capturing the numeric vmid.
var vmNotFoundPattern = regexp.MustCompile(`^Configuration file 'nodes/.*?/qemu-server/(\d+)\.conf' does not exist\n$`)

// vmNotRunningPattern matches the backend's 500 body when an operation that
// requires a running VM (e.g. stop, agent queries) is issued against one
// that is stopped, capturing the numeric vmid.
var vmNotRunningPattern = regexp.MustCompile(`^VM (\d+) is not running\n?$`)

// Error is the hypervisor client's wire-level error taxonomy, translated to
// apperrors.Kind at the service boundary (never leaked past it).
type Error struct {
	Kind    string
	Message string
	Errors  map[string]string
	VMID    string
}

func (e *Error) Error() string {
	if e.VMID != "" {
		return fmt.Sprintf("%s: vmid=%s", e.Kind, e.VMID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

const (
	KindInvalid             = "Invalid"
	KindUnauthorized        = "Unauthorized"
	KindVMNotFound          = "VMNotFound"
	KindVMNotRunning        = "VMNotRunning"
	KindInternal            = "Internal"
	KindUnexpectedResponse  = "UnexpectedResponse"
	KindUnexpectedRedirect  = "UnexpectedRedirect"
	KindGuardedByCloudflare = "GuardedByCloudflare"
	KindTaskNotCompleted    = "TaskNotCompleted"
)

// classifyInternalMessage applies the VMNotFound/VMNotRunning special cases
// to a 500 response body's message field.
func classifyInternalMessage(message string) *Error {
	if m := vmNotFoundPattern.FindStringSubmatch(message); m != nil {
		return &Error{Kind: KindVMNotFound, VMID: m[1]}
	}
	if m := vmNotRunningPattern.FindStringSubmatch(message); m != nil {
		return &Error{Kind: KindVMNotRunning, VMID: m[1]}
	}
	return &Error{Kind: KindInternal, Message: message}
}

func taskNotCompleted(taskID string) *Error {
	return &Error{Kind: KindTaskNotCompleted, Message: taskID}
}
