// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/querylens/internal/models"
)

// Health handles GET /api/v1/health with a per-dependency check map.
// Status is "healthy" only when the database answers; the optional AI
// generator being absent does not degrade health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	status := "healthy"
	if h.db != nil && h.db.Ping(r.Context()) == nil {
		checks["database"] = "ok"
	} else {
		checks["database"] = "unreachable"
		status = "degraded"
	}

	if h.generator != nil {
		checks["ai_generator"] = "configured"
	} else {
		checks["ai_generator"] = "disabled"
	}

	if h.history != nil {
		checks["history"] = "ok"
	} else {
		checks["history"] = "disabled"
	}

	health := models.HealthStatus{
		Status:    status,
		Version:   Version,
		UptimeSec: int64(time.Since(h.startTime).Seconds()),
		Checks:    checks,
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   map[string]string{"status": "alive"},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests. Fails with 503 until the
// database accepts queries.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		respondError(w, http.StatusServiceUnavailable, "QUERY_FAILED", "Database not ready", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   map[string]string{"status": "ready"},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
