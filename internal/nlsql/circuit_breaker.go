// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package nlsql

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
)

// CircuitBreakerGenerator wraps a Generator with the circuit breaker
// pattern so a failing or slow completion endpoint cannot stall the API.
//
// DETERMINISM NOTE: The circuit breaker uses real time (via sony/gobreaker)
// for its interval and timeout calculations. The timing determines when to
// recover from failures, not data integrity. For unit tests, test the
// wrapped generator directly.
type CircuitBreakerGenerator struct {
	inner Generator
	cb    *gobreaker.CircuitBreaker[string]
	name  string
}

// NewCircuitBreakerGenerator creates a generator with circuit breaker.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerGenerator(inner Generator) *CircuitBreakerGenerator {
	cbName := "nlsql-generator"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,               // Allow 3 concurrent requests in half-open state
		Interval:    time.Minute,     // Reset counts after 1 minute in closed state
		Timeout:     2 * time.Minute, // Wait 2 minutes before transitioning from open to half-open

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false // Need at least 10 requests for statistical significance
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		// Rejected SQL and local rate limiting are caller errors, not
		// upstream failures; they must not open the circuit
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnsafeSQL) || errors.Is(err, ErrRateLimited)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerGenerator{
		inner: inner,
		cb:    cb,
		name:  cbName,
	}
}

// GenerateSQL delegates to the wrapped generator with breaker protection
func (g *CircuitBreakerGenerator) GenerateSQL(ctx context.Context, prompt string, schemas []*models.TableSchema) (string, error) {
	result, err := g.cb.Execute(func() (string, error) {
		return g.inner.GenerateSQL(ctx, prompt, schemas)
	})

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		case errors.Is(err, ErrUnsafeSQL), errors.Is(err, ErrRateLimited):
			// Caller-side rejection, counted as breaker success
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
		default:
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()

			counts := g.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(g.name).Set(float64(counts.ConsecutiveFailures))
		}
		return "", err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(g.name).Set(0)

	return result, nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
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

// stateToString converts circuit breaker state to string for logging
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
