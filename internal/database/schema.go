// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/querylens/internal/logging"
)

// createTables creates the demo analytics schema. CREATE TABLE IF NOT
// EXISTS keeps startup idempotent across restarts.
func (db *DB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id      BIGINT PRIMARY KEY,
			country      VARCHAR,
			user_segment VARCHAR,
			signup_date  TIMESTAMP,
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id    BIGINT PRIMARY KEY,
			user_id     BIGINT,
			event_type  VARCHAR,
			occurred_at TIMESTAMP,
			country     VARCHAR
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}

	return nil
}

var demoCountries = []string{"US", "DE", "BR", "JP", "IN", "FR", "GB", "AU"}

var demoSegments = []string{"free", "trial", "pro", "enterprise"}

var demoEventTypes = []string{"login", "page_view", "export", "invite"}

// seedDemoData populates the demo tables with a deterministic dataset so
// dashboards and tests behave the same on every fresh start. Skipped when
// the users table already has rows.
func (db *DB) seedDemoData(ctx context.Context) error {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if count > 0 {
		logging.Debug().Int("existing_rows", count).Msg("Demo data already seeded, skipping")
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	userStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO users (user_id, country, user_segment, signup_date) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("seed prepare users: %w", err)
	}
	defer closeWithLog(userStmt, "seed users statement")

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	const userCount = 500
	for i := 0; i < userCount; i++ {
		// Spread signups over ~6 months with an uneven hourly profile
		signup := base.AddDate(0, 0, i%180).Add(time.Duration((i*7)%24) * time.Hour)
		if _, err := userStmt.ExecContext(ctx,
			i+1,
			demoCountries[i%len(demoCountries)],
			demoSegments[(i/3)%len(demoSegments)],
			signup,
		); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}

	eventStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO events (event_id, user_id, event_type, occurred_at, country) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("seed prepare events: %w", err)
	}
	defer closeWithLog(eventStmt, "seed events statement")

	const eventCount = 2000
	for i := 0; i < eventCount; i++ {
		userID := (i % userCount) + 1
		occurred := base.AddDate(0, 0, (i*3)%200).Add(time.Duration((i*11)%24) * time.Hour)
		if _, err := eventStmt.ExecContext(ctx,
			i+1,
			userID,
			demoEventTypes[i%len(demoEventTypes)],
			occurred,
			demoCountries[userID%len(demoCountries)],
		); err != nil {
			return fmt.Errorf("seed events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	logging.Info().Int("users", userCount).Int("events", eventCount).Msg("Seeded demo analytics data")
	return nil
}
