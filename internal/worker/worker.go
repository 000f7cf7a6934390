// Package worker implements the Operation Worker (§4.8): a single-threaded
// consumer of the Operations Queue, safe to run as multiple instances since
// the queue's claim guarantees each row goes to exactly one of them.
package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/queue"
	"github.com/R3E-Network/service_layer/internal/worker/executor"
)

// safetyNetInterval is the periodic wake named in spec.md §4.8 step 1, in
// case a NOTIFY is missed (e.g. during a listener reconnect).
const safetyNetInterval = 30 * time.Second

// backoff reparameterizes the teacher's exponential-backoff shape per
// spec.md §4.8 step 5: base 1s, factor 2, cap 5min, jitter ±25%.
var backoffBase = time.Second
var backoffCap = 5 * time.Minute
var backoffMultiplier = 2.0
var backoffJitter = 0.25

func retryDelay(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * backoffMultiplier)
		if d > backoffCap {
			d = backoffCap
			break
		}
	}
	jitterRange := float64(d) * backoffJitter
	return d + time.Duration(rand.Float64()*jitterRange*2-jitterRange)
}

// Worker runs the claim-dispatch-resolve loop against one Queue.
type Worker struct {
	Queue      *queue.Queue
	Executors  map[domain.TargetBackend]executor.Executor
	Log        *logrus.Logger
	Metrics    *metrics.Metrics

	cancel context.CancelFunc
	done   chan struct{}
}

// recordClaimed increments the claimed counter, a no-op when Metrics is nil.
func (w *Worker) recordClaimed(op domain.Operation) {
	if w.Metrics == nil {
		return
	}
	w.Metrics.OperationsClaimed.WithLabelValues(string(op.Kind), string(op.TargetBackend)).Inc()
}

// recordFinished increments the finished counter, a no-op when Metrics is nil.
func (w *Worker) recordFinished(op domain.Operation, outcome string) {
	if w.Metrics == nil {
		return
	}
	w.Metrics.OperationsFinished.WithLabelValues(string(op.Kind), outcome).Inc()
}

func (w *Worker) Name() string { return "operation-worker" }

// Start launches Run in the background, satisfying lifecycle.Service.
func (w *Worker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		if err := w.Run(runCtx); err != nil && runCtx.Err() == nil {
			w.Log.WithError(err).Error("worker: run exited")
		}
	}()
	return nil
}

// Stop cancels Run and waits for it to return.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Run blocks, processing operations until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(safetyNetInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-w.Queue.Notifications():
			if n == nil {
				continue // listener reconnected; next loop iteration re-polls
			}
		case <-ticker.C:
		}
	}
}

// drain claims and executes operations one at a time until none remain.
func (w *Worker) drain(ctx context.Context) {
	for {
		op, ok, err := w.Queue.Claim(ctx)
		if err != nil {
			w.Log.WithError(err).Error("worker: claim failed")
			return
		}
		if !ok {
			return
		}
		w.recordClaimed(op)
		w.process(ctx, op)
	}
}

func (w *Worker) process(ctx context.Context, op domain.Operation) {
	log := w.Log.WithField("operation_id", op.ID).WithField("kind", op.Kind)

	exec, ok := w.Executors[op.TargetBackend]
	if !ok {
		log.Errorf("worker: no executor registered for backend %s", op.TargetBackend)
		if err := w.Queue.MarkFailed(ctx, op.ID, "no executor for target backend"); err != nil {
			log.WithError(err).Error("worker: mark_failed")
		}
		w.recordFinished(op, "failed")
		return
	}

	err := exec.Execute(ctx, op)
	if err == nil {
		if err := w.Queue.MarkCompleted(ctx, op.ID); err != nil {
			log.WithError(err).Error("worker: mark_completed")
		}
		w.recordFinished(op, "succeeded")
		return
	}

	if executor.Transient(err) && op.Attempts < op.MaxAttempts {
		delay := retryDelay(op.Attempts)
		log.WithError(err).Warnf("worker: transient failure, retrying in %s", delay)
		if scheduleErr := w.Queue.ScheduleRetry(ctx, op.ID, err.Error(), delay); scheduleErr != nil {
			log.WithError(scheduleErr).Error("worker: schedule_retry")
		}
		w.recordFinished(op, "retried")
		return
	}

	log.WithError(err).Error("worker: permanent failure")
	if markErr := w.Queue.MarkFailed(ctx, op.ID, err.Error()); markErr != nil {
		log.WithError(markErr).Error("worker: mark_failed")
	}
	w.recordFinished(op, "failed")
}
