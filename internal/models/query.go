// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package models

import "time"

// Execution path names reported in query results.
const (
	// QueryPathDirect means the query was decomposed into a structured
	// filter/sort/limit fetch and run by the backing store.
	QueryPathDirect = "direct"

	// QueryPathFallback means the query went through the compatibility
	// engine: syntax normalization plus in-memory aggregation.
	QueryPathFallback = "fallback"
)

// ExecuteQueryRequest is the body of POST /api/v1/query/execute.
type ExecuteQueryRequest struct {
	// Query is the SQL text to execute. Only read-only SELECT statements
	// are accepted.
	Query string `json:"query" validate:"required,min=1,max=10000"`
}

// GenerateQueryRequest is the body of POST /api/v1/query/generate.
type GenerateQueryRequest struct {
	// Prompt is the natural-language question to translate into SQL.
	Prompt string `json:"prompt" validate:"required,min=1,max=2000"`

	// Execute runs the generated SQL through the execution pipeline and
	// includes its result in the response.
	Execute bool `json:"execute"`
}

// QueryResult is the outcome of executing one query.
type QueryResult struct {
	// Rows are the result mappings, one per output row.
	Rows []map[string]any `json:"rows"`

	// RowCount duplicates len(Rows) for clients that only need the size.
	RowCount int `json:"row_count"`

	// Path records which execution path produced the rows.
	Path string `json:"path"`
}

// GeneratedQuery is the outcome of one prompt-to-SQL generation.
type GeneratedQuery struct {
	Prompt string `json:"prompt"`
	SQL    string `json:"sql"`

	// Result is present when the request asked for execution.
	Result *QueryResult `json:"result,omitempty"`
}

// TableSchema describes one table for the schema endpoint and as context
// for the AI generator.
type TableSchema struct {
	Name    string        `json:"name"`
	Columns []TableColumn `json:"columns"`
}

// TableColumn is one column of a table schema.
type TableColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryAudit is one record in the query history.
type QueryAudit struct {
	ID         string        `json:"id"`
	Prompt     string        `json:"prompt,omitempty"`
	SQL        string        `json:"sql"`
	Path       string        `json:"path"`
	RowCount   int           `json:"row_count"`
	Duration   time.Duration `json:"duration_ns"`
	DurationMS int64         `json:"duration_ms"`
	Error      string        `json:"error,omitempty"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	UptimeSec int64             `json:"uptime_seconds"`
	Checks    map[string]string `json:"checks,omitempty"`
}
