// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/querylens/internal/cache"
	"github.com/tomtom215/querylens/internal/config"
	"github.com/tomtom215/querylens/internal/database"
	"github.com/tomtom215/querylens/internal/history"
	"github.com/tomtom215/querylens/internal/models"
	"github.com/tomtom215/querylens/internal/nlsql"
	"github.com/tomtom215/querylens/internal/sqlcompat"
)

// stubGenerator returns a fixed SQL text or error.
type stubGenerator struct {
	sql string
	err error
}

func (g *stubGenerator) GenerateSQL(_ context.Context, _ string, _ []*models.TableSchema) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.sql, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		API: config.APIConfig{
			DefaultPageSize:   50,
			MaxPageSize:       500,
			RateLimitRequests: 1000,
			RateLimitWindow:   time.Minute,
		},
		Cache: config.CacheConfig{TTL: time.Minute},
	}
}

// newTestHandler builds a handler over a seeded in-memory database with a
// fresh history store. The bus is nil so audits write synchronously.
func newTestHandler(t *testing.T, generator *stubGenerator) *Handler {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:         ":memory:",
		MaxMemory:    "512MB",
		Threads:      2,
		SeedDemoData: true,
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	auditLog, err := history.Open(&config.HistoryConfig{
		Enabled:   true,
		Path:      ":memory:",
		Retention: time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	t.Cleanup(func() { _ = auditLog.Close() })

	var gen nlsql.Generator
	if generator != nil {
		gen = generator
	}

	return NewHandler(
		db,
		sqlcompat.NewEngine(db),
		gen,
		cache.New(time.Minute),
		auditLog,
		nil,
		testConfig(),
	)
}

func executeQuery(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/query/execute", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ExecuteQuery(w, r)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return &resp
}

func TestExecuteQueryFallback(t *testing.T) {
	h := newTestHandler(t, nil)

	w := executeQuery(t, h, `{"query": "SELECT DATE_TRUNC('week', signup_date) AS week, COUNT(*) FROM users GROUP BY week ORDER BY week"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %T", resp.Data)
	}
	if data["path"] != models.QueryPathFallback {
		t.Errorf("Expected path %q, got %v", models.QueryPathFallback, data["path"])
	}

	rows, ok := data["rows"].([]interface{})
	if !ok || len(rows) == 0 {
		t.Fatalf("Expected non-empty rows, got %v", data["rows"])
	}
	first, ok := rows[0].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected row object, got %T", rows[0])
	}
	if _, ok := first["week"]; !ok {
		t.Errorf("Expected week field in row, got %v", first)
	}
	if _, ok := first["user_count"]; !ok {
		t.Errorf("Expected user_count field in row, got %v", first)
	}
}

func TestExecuteQueryDirect(t *testing.T) {
	h := newTestHandler(t, nil)

	w := executeQuery(t, h, `{"query": "SELECT * FROM users WHERE country = 'US' LIMIT 5"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	if data["path"] != models.QueryPathDirect {
		t.Errorf("Expected path %q, got %v", models.QueryPathDirect, data["path"])
	}
	if rc, _ := data["row_count"].(float64); rc != 5 {
		t.Errorf("Expected 5 rows, got %v", data["row_count"])
	}
}

func TestExecuteQueryCached(t *testing.T) {
	h := newTestHandler(t, nil)
	body := `{"query": "SELECT * FROM users LIMIT 3"}`

	first := executeQuery(t, h, body)
	if first.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", first.Code)
	}
	if resp := decodeResponse(t, first); resp.Metadata.Cached {
		t.Error("Expected first response to be uncached")
	}

	second := executeQuery(t, h, body)
	if second.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", second.Code)
	}
	if resp := decodeResponse(t, second); !resp.Metadata.Cached {
		t.Error("Expected second response to be served from cache")
	}
}

func TestExecuteQueryUnsupported(t *testing.T) {
	h := newTestHandler(t, nil)

	// Needs the fallback path (COALESCE probe) but has no recognized
	// time-function grouping.
	w := executeQuery(t, h, `{"query": "SELECT COALESCE(country, 'n/a') FROM users"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != "QUERY_UNSUPPORTED" {
		t.Errorf("Expected QUERY_UNSUPPORTED error, got %+v", resp.Error)
	}
}

func TestExecuteQueryNoTable(t *testing.T) {
	h := newTestHandler(t, nil)

	w := executeQuery(t, h, `{"query": "SELECT DATE_TRUNC('week', signup_date) GROUP BY week"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != "QUERY_UNSUPPORTED" {
		t.Errorf("Expected QUERY_UNSUPPORTED error, got %+v", resp.Error)
	}
}

func TestExecuteQueryUnknownTable(t *testing.T) {
	h := newTestHandler(t, nil)

	w := executeQuery(t, h, `{"query": "SELECT * FROM missing_table LIMIT 5"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	if resp.Error == nil || resp.Error.Code != "QUERY_FAILED" {
		t.Errorf("Expected QUERY_FAILED error, got %+v", resp.Error)
	}
}

func TestExecuteQueryValidation(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query": ""}`},
		{"missing query", `{}`},
		{"malformed json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := executeQuery(t, h, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", w.Code)
			}
			resp := decodeResponse(t, w)
			if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("Expected VALIDATION_ERROR, got %+v", resp.Error)
			}
		})
	}
}

func TestExecuteQueryWritesAudit(t *testing.T) {
	h := newTestHandler(t, nil)

	before, err := h.history.Count()
	if err != nil {
		t.Fatalf("Failed to count audits: %v", err)
	}

	executeQuery(t, h, `{"query": "SELECT * FROM users LIMIT 2"}`)

	after, err := h.history.Count()
	if err != nil {
		t.Fatalf("Failed to count audits: %v", err)
	}
	if after != before+1 {
		t.Errorf("Expected audit count %d, got %d", before+1, after)
	}

	records, err := h.history.Recent(1)
	if err != nil {
		t.Fatalf("Failed to read audits: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 audit record, got %d", len(records))
	}
	if records[0].Path != models.QueryPathDirect {
		t.Errorf("Expected direct path audit, got %q", records[0].Path)
	}
	if records[0].RowCount != 2 {
		t.Errorf("Expected 2 audited rows, got %d", records[0].RowCount)
	}
}

func TestExecuteQueryFailureAudited(t *testing.T) {
	h := newTestHandler(t, nil)

	executeQuery(t, h, `{"query": "SELECT COALESCE(country, 'x') FROM users"}`)

	records, err := h.history.Recent(1)
	if err != nil {
		t.Fatalf("Failed to read audits: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 audit record, got %d", len(records))
	}
	if records[0].Error == "" {
		t.Error("Expected audit record to carry the failure")
	}
}
