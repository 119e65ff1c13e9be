// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package sqlcompat

import "testing"

func TestNeedsFallback(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"plain select", "SELECT * FROM users LIMIT 10", false},
		{"filtered select", "SELECT id, name FROM users WHERE active = true ORDER BY name", false},
		{"extract call", "SELECT EXTRACT(HOUR FROM ts) FROM events", true},
		{"date_trunc call", "SELECT DATE_TRUNC('week', signup_date) FROM users", true},
		{"case when", "SELECT CASE WHEN a > 1 THEN 'x' ELSE 'y' END FROM t", true},
		{"cte", "WITH recent AS (SELECT * FROM events) SELECT * FROM recent", true},
		{"window functions phrase", "SELECT 1 -- uses window functions", true},
		{"type cast", "SELECT signup_date::date FROM users", true},
		{"interval literal", "SELECT * FROM events WHERE ts > NOW() - INTERVAL '7 days'", true},
		{"generate_series", "SELECT generate_series(1, 10)", true},
		{"array_agg", "SELECT ARRAY_AGG(name) FROM users", true},
		{"string_agg", "SELECT STRING_AGG(name, ',') FROM users", true},
		{"coalesce", "SELECT COALESCE(a, b) FROM t", true},
		{"nullif", "SELECT NULLIF(a, 0) FROM t", true},
		{"greatest", "SELECT GREATEST(a, b) FROM t", true},
		{"least", "SELECT LEAST(a, b) FROM t", true},
		{"count distinct", "SELECT COUNT(DISTINCT user_id) FROM events", true},
		{"lowercase count distinct", "select count(distinct country) from users", true},
		{"case insensitive probe", "select date_trunc('day', ts) from events", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NeedsFallback(tc.query); got != tc.want {
				t.Errorf("NeedsFallback(%q) = %v, want %v", tc.query, got, tc.want)
			}
		})
	}
}

func TestCanProcess(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{
			name:  "date_trunc group by",
			query: "SELECT DATE_TRUNC('week', signup_date) AS week, COUNT(*) FROM users GROUP BY week",
			want:  true,
		},
		{
			name:  "date_part group by",
			query: "SELECT DATE_PART('hour', created_at) FROM events GROUP BY 1",
			want:  true,
		},
		{
			name:  "time function without group by",
			query: "SELECT DATE_PART('hour', created_at) FROM events",
			want:  false,
		},
		{
			name:  "group by without time function",
			query: "SELECT country, COUNT(*) FROM users GROUP BY country",
			want:  false,
		},
		{
			name:  "missing from",
			query: "SELECT DATE_PART('hour', created_at) GROUP BY 1",
			want:  false,
		},
		{
			name:  "cte is not processable",
			query: "WITH w AS (SELECT * FROM events) SELECT * FROM w",
			want:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanProcess(tc.query); got != tc.want {
				t.Errorf("CanProcess(%q) = %v, want %v", tc.query, got, tc.want)
			}
		})
	}
}

// A query can need fallback while still being unprocessable; the two
// predicates are independent and the caller must surface an explicit error
// for that combination.
func TestClassifierIndependence(t *testing.T) {
	query := "WITH recent AS (SELECT * FROM events) SELECT * FROM recent"
	if !NeedsFallback(query) {
		t.Error("Expected CTE query to need fallback")
	}
	if CanProcess(Normalize(query)) {
		t.Error("Expected CTE query to be unprocessable by the aggregator")
	}
}
