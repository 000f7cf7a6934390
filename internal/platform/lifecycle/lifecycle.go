// Package lifecycle owns the Service interface and Manager the process
// entrypoints register long-running components against, adapted from the
// teacher's applications/system.Manager (descriptor/layer reporting dropped;
// nothing in this system needs to present a service inventory).
package lifecycle

import (
	"context"
	"fmt"
	"sync"
)

// Service is a lifecycle-managed component, such as the Synchronizer or the
// Operation Worker.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts registered services in registration order and stops them
// in reverse order, guarding against duplicate Start/Stop invocations.
type Manager struct {
	mu        sync.Mutex
	services  []Service
	started   bool
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewManager() *Manager {
	return &Manager{}
}

// Register appends svc to the lifecycle queue. Must be called before Start.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("lifecycle: cannot register a nil service")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("lifecycle: service %q registered after manager start", svc.Name())
	}
	m.services = append(m.services, svc)
	return nil
}

// Start runs Start on every registered service in order. If one fails, the
// already-started services are stopped in reverse order before returning.
func (m *Manager) Start(ctx context.Context) error {
	var startErr error
	m.startOnce.Do(func() {
		m.mu.Lock()
		m.started = true
		services := append([]Service(nil), m.services...)
		m.mu.Unlock()

		for idx, svc := range services {
			if err := svc.Start(ctx); err != nil {
				startErr = fmt.Errorf("lifecycle: start %s: %w", svc.Name(), err)
				for i := idx - 1; i >= 0; i-- {
					_ = services[i].Stop(ctx)
				}
				break
			}
		}
	})
	return startErr
}

// Stop runs Stop on every registered service in reverse order. Idempotent;
// returns the first error encountered.
func (m *Manager) Stop(ctx context.Context) error {
	var stopErr error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		services := append([]Service(nil), m.services...)
		m.mu.Unlock()

		for i := len(services) - 1; i >= 0; i-- {
			if err := services[i].Stop(ctx); err != nil && stopErr == nil {
				stopErr = fmt.Errorf("lifecycle: stop %s: %w", services[i].Name(), err)
			}
		}
	})
	return stopErr
}
