// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// HealthStatusType is the aggregated pipeline health.
type HealthStatusType string

const (
	// HealthStatusHealthy means all components are functioning.
	HealthStatusHealthy HealthStatusType = "healthy"
	// HealthStatusDegraded means the pipeline works but something is
	// strained.
	HealthStatusDegraded HealthStatusType = "degraded"
	// HealthStatusUnhealthy means a component is down.
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// ComponentHealth is the health of a single pipeline component.
type ComponentHealth struct {
	Healthy   bool                   `json:"healthy"`
	Degraded  bool                   `json:"degraded,omitempty"`
	Name      string                 `json:"name"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	LastCheck time.Time              `json:"last_check"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheckable is implemented by components that report health.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// OverallHealth aggregates all component checks.
type OverallHealth struct {
	Healthy    bool                       `json:"healthy"`
	Status     HealthStatusType           `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs checks across registered components with a
// per-check timeout.
type HealthChecker struct {
	timeout    time.Duration
	mu         sync.RWMutex
	components map[string]HealthCheckable
}

// NewHealthChecker creates a checker with the given per-check timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		timeout:    timeout,
		components: make(map[string]HealthCheckable),
	}
}

// Register adds a component to the checker.
func (h *HealthChecker) Register(name string, component HealthCheckable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component
}

// CheckAll runs every registered check concurrently and aggregates.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	snapshot := make(map[string]HealthCheckable, len(h.components))
	for name, comp := range h.components {
		snapshot[name] = comp
	}
	h.mu.RUnlock()

	overall := OverallHealth{
		Healthy:    true,
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, component := range snapshot {
		wg.Add(1)
		go func(name string, comp HealthCheckable) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()

			resultCh := make(chan ComponentHealth, 1)
			go func() {
				result := comp.HealthCheck(checkCtx)
				result.Name = name
				result.LastCheck = time.Now()
				resultCh <- result
			}()

			var result ComponentHealth
			select {
			case result = <-resultCh:
			case <-checkCtx.Done():
				result = ComponentHealth{
					Name:      name,
					Healthy:   false,
					Error:     "health check timeout",
					LastCheck: time.Now(),
				}
			}

			mu.Lock()
			overall.Components[name] = result
			if !result.Healthy {
				overall.Healthy = false
				overall.Status = HealthStatusUnhealthy
			} else if result.Degraded && overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
			mu.Unlock()
		}(name, component)
	}

	wg.Wait()
	return overall
}

// HealthCheck implements HealthCheckable for Publisher.
func (p *Publisher) HealthCheck(ctx context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		return ComponentHealth{
			Healthy: false,
			Error:   "publisher is closed",
		}
	}

	details := map[string]interface{}{}

	if p.circuitBreaker != nil {
		state := p.circuitBreaker.State()
		details["circuit_breaker_state"] = state.String()

		switch state {
		case gobreaker.StateOpen:
			return ComponentHealth{
				Healthy: false,
				Error:   "circuit breaker is open",
				Details: details,
			}
		case gobreaker.StateHalfOpen:
			return ComponentHealth{
				Healthy:  true,
				Degraded: true,
				Message:  "circuit breaker is half-open",
				Details:  details,
			}
		}
	}

	return ComponentHealth{
		Healthy: true,
		Message: "publisher is operational",
		Details: details,
	}
}

// HealthCheck implements HealthCheckable for EmbeddedServer.
func (s *EmbeddedServer) HealthCheck(ctx context.Context) ComponentHealth {
	if !s.IsRunning() {
		return ComponentHealth{
			Healthy: false,
			Error:   "embedded NATS server is not running",
		}
	}

	return ComponentHealth{
		Healthy: true,
		Message: "embedded NATS server is running",
		Details: map[string]interface{}{
			"client_url":        s.ClientURL(),
			"jetstream_enabled": s.JetStreamEnabled(),
		},
	}
}

// HealthCheck implements HealthCheckable for StreamInitializer.
func (s *StreamInitializer) HealthCheck(ctx context.Context) ComponentHealth {
	if !s.IsHealthy(ctx) {
		return ComponentHealth{
			Healthy: false,
			Error:   "stream " + s.config.Name + " is unreachable",
		}
	}

	return ComponentHealth{
		Healthy: true,
		Message: "stream " + s.config.Name + " is reachable",
	}
}
