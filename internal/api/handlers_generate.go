// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/querylens/internal/models"
	"github.com/tomtom215/querylens/internal/nlsql"
)

// GenerateQuery handles POST /api/v1/query/generate.
//
// The prompt plus the live table catalog go to the AI generator. With
// execute=true the returned SQL also runs through the execution pipeline
// and the result rides along in the response.
func (h *Handler) GenerateQuery(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		respondError(w, http.StatusServiceUnavailable, "GENERATION_FAILED", "AI generation is not configured", nil)
		return
	}

	var req models.GenerateQueryRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	schemas, err := h.tableSchemas(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "GENERATION_FAILED", "Failed to load schema context", err)
		return
	}

	start := time.Now()
	sqlText, err := h.generator.GenerateSQL(r.Context(), req.Prompt, schemas)
	if err != nil {
		h.respondGenerateError(w, err)
		return
	}

	generated := &models.GeneratedQuery{
		Prompt: req.Prompt,
		SQL:    sqlText,
	}

	if req.Execute {
		result, execErr := h.runQuery(r.Context(), sqlText)
		elapsed := time.Since(start)

		audit := &models.QueryAudit{
			Prompt:     req.Prompt,
			SQL:        sqlText,
			Duration:   elapsed,
			DurationMS: elapsed.Milliseconds(),
		}
		if result != nil {
			audit.Path = result.Path
			audit.RowCount = result.RowCount
		}
		if execErr != nil {
			audit.Error = execErr.Error()
		}
		h.publishAudit(audit)

		if execErr != nil {
			h.respondQueryError(w, execErr)
			return
		}
		generated.Result = result
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   generated,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// tableSchemas loads the full table catalog, cached briefly since DDL only
// changes on reseed.
func (h *Handler) tableSchemas(ctx context.Context) ([]*models.TableSchema, error) {
	const schemaKey = "schema:catalog"
	if cached, ok := h.cache.Get(schemaKey); ok {
		if schemas, ok := cached.([]*models.TableSchema); ok {
			return schemas, nil
		}
	}

	tables, err := h.db.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make([]*models.TableSchema, 0, len(tables))
	for _, table := range tables {
		schema, err := h.db.DescribeTable(ctx, table)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}

	h.cache.Set(schemaKey, schemas)
	return schemas, nil
}

// respondGenerateError maps generator failures onto HTTP statuses.
func (h *Handler) respondGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, nlsql.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Generation rate limit exceeded", nil)
	case errors.Is(err, nlsql.ErrUnsafeSQL):
		respondError(w, http.StatusBadRequest, "GENERATION_FAILED", err.Error(), nil)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "GENERATION_FAILED", "AI generation temporarily unavailable", nil)
	default:
		respondError(w, http.StatusBadGateway, "GENERATION_FAILED", err.Error(), err)
	}
}
