// Package executor implements the four per-backend Operation executors
// dispatched by the Operation Worker (§4.8), one per TargetBackend, behind a
// shared Executor interface. Dispatch is a lookup in internal/worker.Worker's
// Executors map, keyed by TargetBackend and filled in once at process start
// (no runtime plugin registration) — this package only supplies the
// implementations.
package executor

import (
	"context"
	"errors"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/pkg/hoop"
	"github.com/R3E-Network/service_layer/pkg/pangolin"
)

// Executor performs the side effect named by one Operation's kind+payload.
type Executor interface {
	Execute(ctx context.Context, op domain.Operation) error
}

// Transient reports whether err should be retried (connectivity, 5xx,
// timeouts) per spec.md §4.8 step 5, as opposed to mark_failed immediately
// (4xx other than 429, or validation) per step 6.
func Transient(err error) bool {
	switch e := err.(type) {
	case *pangolin.StatusError:
		return e.StatusCode == 429 || e.StatusCode >= 500
	case *hoop.StatusError:
		return e.StatusCode == 429 || e.StatusCode >= 500
	}
	var status apierrors.APIStatus
	if errors.As(err, &status) {
		code := status.Status().Code
		return code == 429 || code >= 500
	}
	if ae, ok := apperrors.As(err); ok {
		return ae.Kind.Transient()
	}
	return true // connectivity errors, context deadlines, decode failures aside
}
