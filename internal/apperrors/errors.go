// Package apperrors defines the control plane's error taxonomy: a small
// closed set of Kinds that every boundary (service, RPC surface, worker)
// translates to and from, so no transport- or store-specific error type
// ever crosses a layer edge.
package apperrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Kind is one of the error kinds named in the error-handling design.
type Kind string

const (
	NotFound           Kind = "NotFound"
	InvalidArgument    Kind = "InvalidArgument"
	Unauthenticated    Kind = "Unauthenticated"
	Forbidden          Kind = "Forbidden"
	Conflict           Kind = "Conflict"
	InstanceNotRunning Kind = "InstanceNotRunning"
	Unavailable        Kind = "Unavailable"
	Internal           Kind = "Internal"
)

// Error is a structured, kind-tagged error carrying an optional wrapped
// cause and arbitrary diagnostic details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetails returns a copy of e with key/value added to Details.
func (e *Error) WithDetails(key string, value any) *Error {
	out := *e
	out.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return &out
}

// New constructs a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NotFoundf builds a NotFound error naming the resource and id, matching the
// teacher's NotFound(resource, id) constructor convention.
func NotFoundf(resource, id string) *Error {
	return New(NotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// Convenience constructors mirroring the common cases each layer raises.
func InvalidArgumentf(format string, args ...any) *Error {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

func ForbiddenError(message string) *Error { return New(Forbidden, message) }

func UnauthenticatedError(message string) *Error { return New(Unauthenticated, message) }

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

// InstanceNotRunningf builds the distinct state-conflict outcome for an
// operation that requires a running instance while it is stopped.
func InstanceNotRunningf(format string, args ...any) *Error {
	return New(InstanceNotRunning, fmt.Sprintf(format, args...))
}

func Unavailablef(format string, args ...any) *Error {
	return New(Unavailable, fmt.Sprintf(format, args...))
}

func Internalf(cause error, format string, args ...any) *Error {
	return Wrap(Internal, fmt.Sprintf(format, args...), cause)
}

// As extracts an *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, defaulting to Internal when err does not
// carry a structured Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Transient reports whether a Kind should be retried by the Operation
// Worker's backoff policy (connectivity, 5xx, timeouts) as opposed to
// treated as permanent (4xx validation, not-found).
func (k Kind) Transient() bool {
	switch k {
	case Unavailable, Internal:
		return true
	default:
		return false
	}
}

// GRPCCode maps a Kind to the gRPC status code the RPC surface's error
// interceptor translates it to, the gRPC analogue of the teacher's
// infrastructure/errors.GetHTTPStatus.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case NotFound:
		return codes.NotFound
	case InvalidArgument:
		return codes.InvalidArgument
	case Unauthenticated:
		return codes.Unauthenticated
	case Forbidden:
		return codes.PermissionDenied
	case Conflict:
		return codes.AlreadyExists
	case InstanceNotRunning:
		return codes.FailedPrecondition
	case Unavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// GRPCCode returns the gRPC status code for e's Kind.
func (e *Error) GRPCCode() codes.Code { return e.Kind.GRPCCode() }
