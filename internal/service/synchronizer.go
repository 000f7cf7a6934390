package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/R3E-Network/service_layer/internal/repository"
)

// DefaultSynchronizerPeriod is the tick period named in spec.md §4.6.
const DefaultSynchronizerPeriod = 5 * time.Second

// Synchronizer implements the cooperative periodic reconciliation loop of
// §4.6, grounded on the teacher's internal/app/system.Service lifecycle
// shape (Name/Start/Stop) carried into internal/platform/lifecycle.
type Synchronizer struct {
	Hypervisors  *repository.Repository[domain.Hypervisor]
	Instances    *repository.Repository[domain.Instance]
	Period       time.Duration
	HeartbeatURL string
	HTTPClient   *http.Client
	Log          *logrus.Logger

	StatusSource func(domain.Hypervisor) (statusGetter, error)

	ticking bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// statusGetter is the narrow slice of *hypervisor.Client the Synchronizer
// depends on, so tests can substitute a fake without a live backend.
type statusGetter interface {
	GetStatus(ctx context.Context, node string, vmid int) (statusResult, error)
}

// statusResult mirrors hypervisor.VMStatus's RuntimeStatus() projection.
type statusResult interface {
	RuntimeStatus() domain.InstanceStatus
}

func (s *Synchronizer) Name() string { return "synchronizer" }

func (s *Synchronizer) Start(ctx context.Context) error {
	period := s.Period
	if period == 0 {
		period = DefaultSynchronizerPeriod
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.tick(runCtx)
			}
		}
	}()
	return nil
}

func (s *Synchronizer) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// tick implements the 5-step reconciliation; step 1's mutual-exclusion
// guard lives here rather than in Start so a slow tick never overlaps the
// next ticker fire.
func (s *Synchronizer) tick(ctx context.Context) {
	s.mu.Lock()
	if s.ticking {
		s.mu.Unlock()
		return
	}
	s.ticking = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.ticking = false
		s.mu.Unlock()
	}()

	instances, err := s.Instances.List(ctx)
	if err != nil {
		s.Log.WithError(err).Error("synchronizer: list instances")
		return
	}

	changed := false
	for _, instance := range instances {
		hv, err := s.Hypervisors.GetByID(ctx, instance.HypervisorID)
		if err != nil {
			s.Log.WithError(err).WithField("instance_id", instance.ID).Warn("synchronizer: load hypervisor")
			continue
		}
		status, err := s.fetchStatus(ctx, hv, instance)
		if err != nil {
			s.Log.WithError(err).WithField("instance_id", instance.ID).Warn("synchronizer: get_status")
			continue
		}
		if status != instance.Status {
			instance.Status = status
			if _, err := s.Instances.Update(ctx, instance); err != nil {
				s.Log.WithError(err).WithField("instance_id", instance.ID).Warn("synchronizer: update status")
				continue
			}
			changed = true
		}
	}

	if changed {
		s.heartbeat(ctx)
	}
}

func (s *Synchronizer) fetchStatus(ctx context.Context, hv domain.Hypervisor, instance domain.Instance) (domain.InstanceStatus, error) {
	vmid, err := vmidOf(instance)
	if err != nil {
		return domain.InstanceUnknown, err
	}
	if s.StatusSource == nil {
		return domain.InstanceUnknown, fmt.Errorf("synchronizer: no hypervisor client configured")
	}
	client, err := s.StatusSource(hv)
	if err != nil {
		return domain.InstanceUnknown, err
	}
	res, err := client.GetStatus(ctx, hv.Node, vmid)
	if err != nil {
		return domain.InstanceUnknown, err
	}
	return res.RuntimeStatus(), nil
}

// heartbeat issues the optional monitor GET; failures are logged and never
// block reconciliation, per spec.md §4.6 step 5.
func (s *Synchronizer) heartbeat(ctx context.Context) {
	if s.HeartbeatURL == "" {
		return
	}
	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.HeartbeatURL, nil)
	if err != nil {
		s.Log.WithError(err).Warn("synchronizer: build heartbeat request")
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		s.Log.WithError(err).Warn("synchronizer: heartbeat request")
		return
	}
	_ = resp.Body.Close()
}
