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

	"github.com/tomtom215/querylens/internal/cache"
	"github.com/tomtom215/querylens/internal/database"
	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
	"github.com/tomtom215/querylens/internal/sqlcompat"
)

// ExecuteQuery handles POST /api/v1/query/execute.
//
// The classifier decides the path: queries using PostgreSQL constructs the
// embedded store cannot run go through the compatibility engine, flat
// SELECTs are decomposed into a structured fetch. Results are cached by
// query hash and every execution is audited.
func (h *Handler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req models.ExecuteQueryRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	cacheKey := cache.GenerateKey("query.execute", req.Query)
	if cached, ok := h.cache.Get(cacheKey); ok {
		if result, ok := cached.(*models.QueryResult); ok {
			metrics.RecordCacheAccess("query", true)
			respondJSON(w, http.StatusOK, &models.APIResponse{
				Status: "success",
				Data:   result,
				Metadata: models.Metadata{
					Timestamp: time.Now(),
					Cached:    true,
				},
			})
			return
		}
	}
	metrics.RecordCacheAccess("query", false)

	start := time.Now()
	result, err := h.runQuery(r.Context(), req.Query)
	elapsed := time.Since(start)

	audit := &models.QueryAudit{
		SQL:        req.Query,
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}
	if result != nil {
		audit.Path = result.Path
		audit.RowCount = result.RowCount
	}
	if err != nil {
		audit.Error = err.Error()
	}
	h.publishAudit(audit)

	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	h.cache.Set(cacheKey, result)

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   result,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: elapsed.Milliseconds(),
		},
	})
}

// runQuery executes one query through whichever path the classifier picks
// and records pipeline metrics.
func (h *Handler) runQuery(ctx context.Context, query string) (*models.QueryResult, error) {
	if sqlcompat.NeedsFallback(query) {
		start := time.Now()
		rows, err := h.engine.Execute(ctx, query)
		metrics.RecordQueryExecution(models.QueryPathFallback, time.Since(start), len(rows), err)
		if err != nil {
			return nil, err
		}

		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			out[i] = row
		}
		return &models.QueryResult{
			Rows:     out,
			RowCount: len(out),
			Path:     models.QueryPathFallback,
		}, nil
	}

	start := time.Now()
	params, err := parseSimpleSelect(query, sqlcompat.MaxFetchRows)
	if err != nil {
		metrics.RecordQueryExecution(models.QueryPathDirect, time.Since(start), 0, err)
		return nil, err
	}

	rows, err := h.db.FetchFiltered(ctx, params)
	metrics.RecordQueryExecution(models.QueryPathDirect, time.Since(start), len(rows), err)
	if err != nil {
		return nil, err
	}

	return &models.QueryResult{
		Rows:     rows,
		RowCount: len(rows),
		Path:     models.QueryPathDirect,
	}, nil
}

// respondQueryError maps pipeline errors onto HTTP statuses and API codes.
func (h *Handler) respondQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sqlcompat.ErrNoTable),
		errors.Is(err, sqlcompat.ErrUnsupportedQuery),
		errors.Is(err, errNotSimpleSelect):
		respondError(w, http.StatusBadRequest, "QUERY_UNSUPPORTED", err.Error(), nil)
	case errors.Is(err, database.ErrUnknownTable),
		errors.Is(err, database.ErrUnknownColumn):
		respondError(w, http.StatusBadRequest, "QUERY_FAILED", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logging.Warn().Err(err).Msg("Query canceled")
		respondError(w, http.StatusServiceUnavailable, "QUERY_FAILED", "Query canceled", nil)
	default:
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "Query execution failed", err)
	}
}
