// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package sqlcompat implements the query compatibility engine: a narrow
// SQL-compatibility shim that rewrites a small subset of PostgreSQL syntax
// and reproduces GROUP BY/aggregate semantics in application memory over
// raw rows fetched from a single table.
//
// The engine is a three-stage pipeline:
//
//  1. Normalize rewrites recognized PostgreSQL-only syntax (EXTRACT calls,
//     ::type casts) into a normalized query string using textual pattern
//     substitution. There is no real SQL parser here, on purpose.
//  2. NeedsFallback / CanProcess classify a query: does it use constructs
//     the backing store cannot evaluate, and if so, is it one of the two
//     grouping shapes the aggregator knows how to reproduce?
//  3. Engine.Execute fetches raw rows for the referenced table and
//     aggregates them in memory: either date_trunc bucketing (Path A) or
//     date_part tuple grouping (Path B).
//
// The recognizers are deliberately regex-based and narrow. Queries outside
// the two documented shapes are rejected with ErrUnsupportedQuery rather
// than guessed at. Known quirks of the reference behavior are preserved:
// the 10,000-row fetch cap, the fixed 100-row output cap on Path B, and
// the empty-result (not error) policy for unparseable grouping patterns.
//
// Every invocation is stateless and side-effect-free apart from the single
// bulk row fetch; concurrent invocations share nothing.
package sqlcompat
