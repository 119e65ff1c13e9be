// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/querylens/internal/config"
	"github.com/tomtom215/querylens/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(&config.HistoryConfig{
		Enabled:   true,
		Path:      ":memory:",
		Retention: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Failed to close history store: %v", err)
		}
	})
	return store
}

func TestPutAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)

	audit := &models.QueryAudit{
		SQL:      "SELECT COUNT(*) FROM users",
		Path:     models.QueryPathFallback,
		RowCount: 3,
	}
	if err := store.Put(audit); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if audit.ID == "" {
		t.Error("Expected ID to be assigned")
	}
	if audit.ExecutedAt.IsZero() {
		t.Error("Expected ExecutedAt to be assigned")
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		audit := &models.QueryAudit{
			ID:         fmt.Sprintf("audit-%d", i),
			SQL:        fmt.Sprintf("SELECT %d", i),
			Path:       models.QueryPathDirect,
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Put(audit); err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
	}

	records, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].ID != "audit-4" {
		t.Errorf("Expected newest record first, got %q", records[0].ID)
	}
	if records[2].ID != "audit-2" {
		t.Errorf("Expected audit-2 third, got %q", records[2].ID)
	}
}

func TestRecentMoreThanStored(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put(&models.QueryAudit{SQL: "SELECT 1", Path: models.QueryPathDirect}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records, err := store.Recent(100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}
}

func TestRecentZero(t *testing.T) {
	store := newTestStore(t)

	records, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty result for n=0, got %d", len(records))
	}
}

func TestRoundTripFields(t *testing.T) {
	store := newTestStore(t)

	want := &models.QueryAudit{
		Prompt:     "weekly signups",
		SQL:        "SELECT date_trunc('week', signup_date) FROM users GROUP BY 1",
		Path:       models.QueryPathFallback,
		RowCount:   12,
		DurationMS: 34,
		Error:      "",
	}
	if err := store.Put(want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	records, err := store.Recent(1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.Prompt != want.Prompt {
		t.Errorf("Expected prompt %q, got %q", want.Prompt, got.Prompt)
	}
	if got.SQL != want.SQL {
		t.Errorf("Expected query %q, got %q", want.SQL, got.SQL)
	}
	if got.Path != want.Path {
		t.Errorf("Expected path %q, got %q", want.Path, got.Path)
	}
	if got.RowCount != want.RowCount {
		t.Errorf("Expected %d rows, got %d", want.RowCount, got.RowCount)
	}
	if got.DurationMS != want.DurationMS {
		t.Errorf("Expected duration %d, got %d", want.DurationMS, got.DurationMS)
	}
}

func TestCount(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 7; i++ {
		if err := store.Put(&models.QueryAudit{SQL: fmt.Sprintf("SELECT %d", i)}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 7 {
		t.Errorf("Expected 7 records, got %d", count)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	store, err := Open(&config.HistoryConfig{Enabled: true, Path: ":memory:", Retention: time.Hour})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := store.Put(&models.QueryAudit{SQL: "SELECT 1"}); err == nil {
		t.Error("Expected Put on closed store to fail")
	}
	if _, err := store.Recent(1); err == nil {
		t.Error("Expected Recent on closed store to fail")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Expected repeat Close to be a no-op, got %v", err)
	}
}
