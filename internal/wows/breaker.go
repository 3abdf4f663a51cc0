// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package wows

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/navarchus/internal/config"
	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// BreakerClient wraps Client with a circuit breaker so a degraded WoWS
// API cannot stall replay ingestion. While the circuit is open,
// lookups fail fast and callers fall back to placeholder names.
//
// The breaker uses real time for its interval and timeout windows;
// tests should exercise the wrapped Client directly.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewBreakerClient creates an encyclopedia client protected by a
// circuit breaker. The circuit opens at a 60% failure rate over a
// one-minute window with at least 10 requests, allows 3 probes in
// half-open state, and waits 2 minutes before probing.
func NewBreakerClient(cfg *config.WOWSConfig) *BreakerClient {
	client := NewClient(cfg)
	cbName := "wows-api"

	metrics.RecordBreakerState(cbName, 0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening wows-api circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.RecordBreakerState(name, stateToInt(to))
			metrics.RecordBreakerTransition(name, fromStr, toStr)
		},

		// A player without a clan is an answer, not an API failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps one API call with circuit breaker accounting.
func (bc *BreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil && !errors.Is(err, ErrNotFound) {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	return result, err
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// ShipName resolves a ship name with circuit breaker protection.
func (bc *BreakerClient) ShipName(ctx context.Context, shipID int64) (string, error) {
	return castResult[string](bc.execute(func() (any, error) {
		return bc.client.ShipName(ctx, shipID)
	}))
}

// AccountID resolves an account id with circuit breaker protection.
func (bc *BreakerClient) AccountID(ctx context.Context, nickname string) (int64, error) {
	return castResult[int64](bc.execute(func() (any, error) {
		return bc.client.AccountID(ctx, nickname)
	}))
}

// ClanTag resolves a clan tag with circuit breaker protection.
func (bc *BreakerClient) ClanTag(ctx context.Context, nickname string) (string, error) {
	return castResult[string](bc.execute(func() (any, error) {
		return bc.client.ClanTag(ctx, nickname)
	}))
}

func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
