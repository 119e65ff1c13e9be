// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package metrics provides Prometheus instrumentation for the query
// pipeline, database layer, NL-to-SQL generation, API endpoints, cache,
// and circuit breakers.
//
// All collectors are registered with the default registry via promauto
// at package init and exposed through the /metrics endpoint. Helper
// functions (RecordDBQuery, RecordQueryExecution, RecordGeneration,
// RecordAPIRequest) wrap the common record-duration-and-count patterns
// so call sites stay one line.
//
// Label cardinality is kept deliberately small: paths are limited to
// "direct" and "fallback", and error types recorded on counters are
// truncated to 50 characters.
package metrics
