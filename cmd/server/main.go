// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package main is the entry point for the Querylens server.
//
// Querylens is a self-hosted analytics dashboard that answers natural
// language questions about a demo analytics dataset. Prompts are turned
// into SQL by an OpenAI-compatible endpoint, and queries are executed
// against an embedded DuckDB database through a two-path compatibility
// engine: simple selects are decomposed into structured fetches, and
// date-bucketing aggregations are rewritten for in-process evaluation.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Database: Initialize embedded DuckDB and seed demo data if enabled
//  3. History: Open the BadgerDB audit trail (optional)
//  4. Event Bus: In-process Watermill pub/sub for query audit events
//  5. AI Generator: OpenAI-compatible client wrapped in a circuit breaker (optional)
//  6. HTTP Server: REST API under /api/v1 plus /metrics
//
// All long-running components run under a suture supervisor tree and are
// restarted on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (QUERYLENS_ prefix)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// The AI generator is optional. Without it the /query/execute endpoint
// still works with raw SQL, and /query/generate returns 503:
//
//	export QUERYLENS_AI_ENABLED=true
//	export QUERYLENS_AI_ENDPOINT=https://api.openai.com/v1/chat/completions
//	export QUERYLENS_AI_API_KEY=sk-...
//	export QUERYLENS_AI_MODEL=gpt-4o-mini
//	./querylens
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (shutdown timeout)
//   - Drains the event bus and closes history and database
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/querylens/internal/api"
	"github.com/tomtom215/querylens/internal/cache"
	"github.com/tomtom215/querylens/internal/config"
	"github.com/tomtom215/querylens/internal/database"
	"github.com/tomtom215/querylens/internal/events"
	"github.com/tomtom215/querylens/internal/history"
	"github.com/tomtom215/querylens/internal/logging"
	"github.com/tomtom215/querylens/internal/nlsql"
	"github.com/tomtom215/querylens/internal/sqlcompat"
	"github.com/tomtom215/querylens/internal/supervisor"
	"github.com/tomtom215/querylens/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("db_path", cfg.Database.Path).
		Bool("ai_enabled", cfg.AI.Enabled).
		Bool("history_enabled", cfg.History.Enabled).
		Msg("Starting Querylens")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// Query audit trail (optional)
	var auditLog *history.Store
	if cfg.History.Enabled {
		auditLog, err = history.Open(&cfg.History)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open history store")
		}
		defer func() {
			if err := auditLog.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing history store")
			}
		}()
		logging.Info().Str("path", cfg.History.Path).Msg("Query history enabled")
	} else {
		logging.Info().Msg("Query history disabled")
	}

	bus := events.NewBus(events.NewWatermillLogger())
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// Natural-language SQL generation (optional). The circuit breaker
	// shields the API from a misbehaving upstream endpoint.
	var generator nlsql.Generator
	if cfg.AI.Enabled {
		generator = nlsql.NewCircuitBreakerGenerator(nlsql.NewClient(&cfg.AI))
		logging.Info().
			Str("model", cfg.AI.Model).
			Int("requests_per_minute", cfg.AI.RequestsPerMinute).
			Msg("AI generation enabled")
	} else {
		logging.Info().Msg("AI generation disabled")
	}

	resultCache := cache.New(cfg.Cache.TTL)
	engine := sqlcompat.NewEngine(db)

	handler := api.NewHandler(db, engine, generator, resultCache, auditLog, bus, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if auditLog != nil {
		tree.AddDataService(services.NewHistoryConsumerService(bus, auditLog))
		logging.Info().Msg("History consumer added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain remaining shutdown errors until the supervisor finishes.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
