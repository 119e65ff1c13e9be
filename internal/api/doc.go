// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package api is the HTTP surface of the dashboard backend. It exposes the
// query execution and generation endpoints, the schema catalog, the audit
// history listing, and health probes, all under /api/v1 on a Chi router.
//
// Query execution picks one of two paths. Simple SELECTs are decomposed into
// a structured filter/sort/limit fetch against the database. Queries using
// PostgreSQL constructs the embedded store cannot run go through the
// compatibility engine in internal/sqlcompat, which aggregates raw rows in
// memory. Both paths publish an audit event and cache their result by query
// hash.
package api
