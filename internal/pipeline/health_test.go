// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"context"
	"testing"
	"time"
)

type checkFunc func(ctx context.Context) ComponentHealth

func (f checkFunc) HealthCheck(ctx context.Context) ComponentHealth {
	return f(ctx)
}

func healthyCheck(msg string) checkFunc {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Healthy: true, Message: msg}
	}
}

func TestHealthCheckerAllHealthy(t *testing.T) {
	checker := NewHealthChecker(time.Second)
	checker.Register("publisher", healthyCheck("ok"))
	checker.Register("router", healthyCheck("ok"))

	overall := checker.CheckAll(context.Background())
	if !overall.Healthy {
		t.Error("Healthy = false, want true")
	}
	if overall.Status != HealthStatusHealthy {
		t.Errorf("Status = %q, want healthy", overall.Status)
	}
	if len(overall.Components) != 2 {
		t.Errorf("components = %d, want 2", len(overall.Components))
	}
	if overall.Components["publisher"].Name != "publisher" {
		t.Errorf("component name = %q, want publisher", overall.Components["publisher"].Name)
	}
}

func TestHealthCheckerUnhealthyComponent(t *testing.T) {
	checker := NewHealthChecker(time.Second)
	checker.Register("publisher", healthyCheck("ok"))
	checker.Register("stream", checkFunc(func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Healthy: false, Error: "stream PIPELINE is unreachable"}
	}))

	overall := checker.CheckAll(context.Background())
	if overall.Healthy {
		t.Error("Healthy = true with an unhealthy component")
	}
	if overall.Status != HealthStatusUnhealthy {
		t.Errorf("Status = %q, want unhealthy", overall.Status)
	}
}

func TestHealthCheckerDegradedComponent(t *testing.T) {
	checker := NewHealthChecker(time.Second)
	checker.Register("publisher", checkFunc(func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Healthy: true, Degraded: true, Message: "circuit breaker is half-open"}
	}))

	overall := checker.CheckAll(context.Background())
	if !overall.Healthy {
		t.Error("Healthy = false, want true for degraded-only")
	}
	if overall.Status != HealthStatusDegraded {
		t.Errorf("Status = %q, want degraded", overall.Status)
	}
}

func TestHealthCheckerTimeout(t *testing.T) {
	checker := NewHealthChecker(20 * time.Millisecond)
	checker.Register("stuck", checkFunc(func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return ComponentHealth{Healthy: true}
	}))

	overall := checker.CheckAll(context.Background())
	if overall.Healthy {
		t.Error("Healthy = true for a stuck component")
	}
	stuck := overall.Components["stuck"]
	if stuck.Error != "health check timeout" {
		t.Errorf("Error = %q, want health check timeout", stuck.Error)
	}
}

func TestStreamInitializerHealthCheck(t *testing.T) {
	js := NewMockJetStream()
	initializer, err := NewStreamInitializer(js, testStreamConfig())
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}

	health := initializer.HealthCheck(context.Background())
	if health.Healthy {
		t.Error("Healthy = true before the stream exists")
	}

	if _, err := initializer.EnsureStream(context.Background()); err != nil {
		t.Fatalf("EnsureStream() error = %v", err)
	}

	health = initializer.HealthCheck(context.Background())
	if !health.Healthy {
		t.Errorf("Healthy = false after EnsureStream: %+v", health)
	}
}
