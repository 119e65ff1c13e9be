// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/querylens/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string", "hello", "hello"},
		{"newline escaped", "line1\nline2", "line1\\x0aline2"},
		{"carriage return escaped", "a\rb", "a\\x0db"},
		{"tab escaped", "a\tb", "a\\x09b"},
		{"delete escaped", "a\x7fb", "a\\x7fb"},
		{"unicode preserved", "héllo wörld", "héllo wörld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	respondJSON(w, 200, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"key": "value"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})

	if w.Code != 200 {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("Expected ETag header to be set")
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=60") {
		t.Errorf("Expected Cache-Control with max-age, got %s", cc)
	}

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("Expected status success, got %s", resp.Status)
	}
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	respondError(w, 400, "VALIDATION_ERROR", "bad input", nil)

	if w.Code != 400 {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("Expected status error, got %s", resp.Status)
	}
	if resp.Error == nil {
		t.Fatal("Expected error payload")
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %s", resp.Error.Code)
	}
	if resp.Error.Message != "bad input" {
		t.Errorf("Expected message 'bad input', got %s", resp.Error.Message)
	}
}

func TestGenerateETag(t *testing.T) {
	a := generateETag([]byte("payload-a"))
	b := generateETag([]byte("payload-b"))

	if a == "" {
		t.Error("Expected non-empty ETag")
	}
	if a == b {
		t.Error("Expected different payloads to produce different ETags")
	}
	if again := generateETag([]byte("payload-a")); again != a {
		t.Errorf("Expected deterministic ETag, got %s then %s", a, again)
	}
}

func TestValidateRequest(t *testing.T) {
	valid := models.ExecuteQueryRequest{Query: "SELECT 1"}
	if apiErr := validateRequest(&valid); apiErr != nil {
		t.Errorf("Expected valid request to pass, got %+v", apiErr)
	}

	invalid := models.ExecuteQueryRequest{}
	apiErr := validateRequest(&invalid)
	if apiErr == nil {
		t.Fatal("Expected validation error for empty query")
	}
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %s", apiErr.Code)
	}
}

func TestGetIntParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=25&bad=abc", nil)

	if got := getIntParam(r, "limit", 50); got != 25 {
		t.Errorf("Expected 25, got %d", got)
	}
	if got := getIntParam(r, "missing", 50); got != 50 {
		t.Errorf("Expected default 50, got %d", got)
	}
	if got := getIntParam(r, "bad", 50); got != 50 {
		t.Errorf("Expected default for non-numeric, got %d", got)
	}
}

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero uses fallback", 0, 50},
		{"negative uses fallback", -1, 50},
		{"within range kept", 100, 100},
		{"above max clamped", 9999, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampPageSize(tt.requested, 50, 500); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
