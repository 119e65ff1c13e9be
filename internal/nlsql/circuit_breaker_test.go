// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package nlsql

import (
	"context"
	"errors"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/querylens/internal/models"
)

type stubGenerator struct {
	sql   string
	err   error
	calls int
}

func (s *stubGenerator) GenerateSQL(_ context.Context, _ string, _ []*models.TableSchema) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.sql, nil
}

func TestCircuitBreakerPassThrough(t *testing.T) {
	stub := &stubGenerator{sql: "SELECT 1"}
	gen := NewCircuitBreakerGenerator(stub)

	got, err := gen.GenerateSQL(context.Background(), "one", nil)
	if err != nil {
		t.Fatalf("GenerateSQL failed: %v", err)
	}
	if got != "SELECT 1" {
		t.Errorf("Expected SELECT 1, got %q", got)
	}
	if stub.calls != 1 {
		t.Errorf("Expected 1 inner call, got %d", stub.calls)
	}
}

func TestCircuitBreakerPropagatesError(t *testing.T) {
	wantErr := errors.New("upstream down")
	gen := NewCircuitBreakerGenerator(&stubGenerator{err: wantErr})

	if _, err := gen.GenerateSQL(context.Background(), "one", nil); !errors.Is(err, wantErr) {
		t.Errorf("Expected wrapped upstream error, got %v", err)
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	stub := &stubGenerator{err: errors.New("upstream down")}
	gen := NewCircuitBreakerGenerator(stub)

	// 10 consecutive failures exceed the 60% trip threshold
	for i := 0; i < 10; i++ {
		if _, err := gen.GenerateSQL(context.Background(), "fail", nil); err == nil {
			t.Fatalf("Expected failure on call %d", i)
		}
	}

	callsBefore := stub.calls
	_, err := gen.GenerateSQL(context.Background(), "after open", nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Expected ErrOpenState after trip, got %v", err)
	}
	if stub.calls != callsBefore {
		t.Error("Expected open circuit to short-circuit the inner generator")
	}
}

func TestCircuitBreakerIgnoresLocalRejections(t *testing.T) {
	stub := &stubGenerator{err: ErrUnsafeSQL}
	gen := NewCircuitBreakerGenerator(stub)

	// Far more than the trip threshold; unsafe SQL is a caller problem,
	// not an upstream outage
	for i := 0; i < 25; i++ {
		if _, err := gen.GenerateSQL(context.Background(), "bad", nil); !errors.Is(err, ErrUnsafeSQL) {
			t.Fatalf("Expected ErrUnsafeSQL on call %d, got %v", i, err)
		}
	}

	// Circuit must still be closed and reach the inner generator
	stub.err = nil
	stub.sql = "SELECT 1"
	if _, err := gen.GenerateSQL(context.Background(), "good", nil); err != nil {
		t.Errorf("Expected closed circuit after rejections, got %v", err)
	}
}

func TestCircuitBreakerIgnoresRateLimiting(t *testing.T) {
	stub := &stubGenerator{err: ErrRateLimited}
	gen := NewCircuitBreakerGenerator(stub)

	for i := 0; i < 25; i++ {
		if _, err := gen.GenerateSQL(context.Background(), "busy", nil); !errors.Is(err, ErrRateLimited) {
			t.Fatalf("Expected ErrRateLimited on call %d, got %v", i, err)
		}
	}

	stub.err = nil
	stub.sql = "SELECT 1"
	if _, err := gen.GenerateSQL(context.Background(), "good", nil); err != nil {
		t.Errorf("Expected closed circuit after rate limiting, got %v", err)
	}
}
