// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package query

import (
	"reflect"
	"testing"
)

func TestWhereBuilderEmpty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}
	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	clause, args := wb.Build()
	if clause != "1=1" {
		t.Errorf("Expected 1=1 for empty builder, got %q", clause)
	}
	if len(args) != 0 {
		t.Errorf("Expected no args, got %v", args)
	}
}

func TestWhereBuilderAddEquals(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddEquals("country", "US")

	clause, args := wb.Build()
	if clause != "country = ?" {
		t.Errorf("Expected country = ?, got %q", clause)
	}
	if !reflect.DeepEqual(args, []any{"US"}) {
		t.Errorf("Expected [US], got %v", args)
	}
}

func TestWhereBuilderMultipleClauses(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddEquals("country", "DE").AddEquals("segment", "pro")

	clause, args := wb.Build()
	if clause != "country = ? AND segment = ?" {
		t.Errorf("Expected AND-joined clauses, got %q", clause)
	}
	if !reflect.DeepEqual(args, []any{"DE", "pro"}) {
		t.Errorf("Expected [DE pro], got %v", args)
	}
	if wb.Count() != 2 {
		t.Errorf("Expected count 2, got %d", wb.Count())
	}
}

func TestWhereBuilderAddIn(t *testing.T) {
	t.Run("multiple values", func(t *testing.T) {
		wb := NewWhereBuilder()
		wb.AddIn("segment", []string{"pro", "enterprise"})

		clause, args := wb.Build()
		if clause != "segment IN (?, ?)" {
			t.Errorf("Expected IN clause, got %q", clause)
		}
		if !reflect.DeepEqual(args, []any{"pro", "enterprise"}) {
			t.Errorf("Expected [pro enterprise], got %v", args)
		}
	})

	t.Run("empty list skipped", func(t *testing.T) {
		wb := NewWhereBuilder()
		wb.AddIn("segment", nil)

		if !wb.IsEmpty() {
			t.Error("Expected empty IN list to be skipped")
		}
	})
}

func TestWhereBuilderAddClause(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddClause("event_count >= ?", 10)
	wb.AddEquals("event_type", "login")

	clause, args := wb.Build()
	if clause != "event_count >= ? AND event_type = ?" {
		t.Errorf("Unexpected clause %q", clause)
	}
	if !reflect.DeepEqual(args, []any{10, "login"}) {
		t.Errorf("Expected [10 login], got %v", args)
	}
}

func TestWhereBuilderBuildWithPrefix(t *testing.T) {
	wb := NewWhereBuilder()
	wb.AddEquals("user_id", int64(42))

	clause, args := wb.BuildWithPrefix()
	if clause != "WHERE user_id = ?" {
		t.Errorf("Expected WHERE prefix, got %q", clause)
	}
	if !reflect.DeepEqual(args, []any{int64(42)}) {
		t.Errorf("Expected [42], got %v", args)
	}
}
