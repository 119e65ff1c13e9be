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

// Schema handles GET /api/v1/schema, returning every table with its
// columns and types.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	schemas, err := h.tableSchemas(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load schema catalog", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   schemas,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
