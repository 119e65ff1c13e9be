// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package api

import (
	"time"

	"github.com/tomtom215/querylens/internal/cache"
	"github.com/tomtom215/querylens/internal/config"
	"github.com/tomtom215/querylens/internal/database"
	"github.com/tomtom215/querylens/internal/events"
	"github.com/tomtom215/querylens/internal/history"
	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/models"
	"github.com/tomtom215/querylens/internal/nlsql"
	"github.com/tomtom215/querylens/internal/sqlcompat"
)

// Version is the reported application version. Overridden at build time
// via -ldflags.
var Version = "1.0.0"

// Handler holds the collaborators behind the HTTP endpoints. The generator,
// history store and event bus are optional; the corresponding features
// degrade gracefully when nil.
type Handler struct {
	db        *database.DB
	engine    *sqlcompat.Engine
	generator nlsql.Generator
	cache     *cache.Cache
	history   *history.Store
	bus       *events.Bus
	config    *config.Config
	startTime time.Time
}

// NewHandler creates the API handler. db, engine, resultCache and cfg are
// required; generator, auditLog and bus may be nil.
func NewHandler(
	db *database.DB,
	engine *sqlcompat.Engine,
	generator nlsql.Generator,
	resultCache *cache.Cache,
	auditLog *history.Store,
	bus *events.Bus,
	cfg *config.Config,
) *Handler {
	return &Handler{
		db:        db,
		engine:    engine,
		generator: generator,
		cache:     resultCache,
		history:   auditLog,
		bus:       bus,
		config:    cfg,
		startTime: time.Now(),
	}
}

// publishAudit emits the query.executed event for asynchronous persistence.
// When no bus is wired the audit is written synchronously, so the trail
// survives in single-process setups without the consumer service.
func (h *Handler) publishAudit(audit *models.QueryAudit) {
	if h.bus != nil {
		if err := h.bus.PublishQueryExecuted(audit); err != nil {
			logging.Warn().Err(err).Str("path", audit.Path).Msg("Failed to publish query audit event")
		}
		return
	}

	if h.history != nil {
		if err := h.history.Put(audit); err != nil {
			logging.Warn().Err(err).Str("path", audit.Path).Msg("Failed to write query audit record")
		}
	}
}
