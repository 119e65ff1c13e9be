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

// History handles GET /api/v1/history?limit=N, returning recent query
// audit records newest-first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Query history is not enabled", nil)
		return
	}

	limit := clampPageSize(
		getIntParam(r, "limit", h.config.API.DefaultPageSize),
		h.config.API.DefaultPageSize,
		h.config.API.MaxPageSize,
	)

	records, err := h.history.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to read query history", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   records,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
