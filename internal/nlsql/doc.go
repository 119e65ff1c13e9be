// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package nlsql turns natural-language prompts into candidate SQL using an
// OpenAI-compatible chat-completions endpoint.
//
// The generated SQL is never trusted: responses are stripped of markdown
// code fences and rejected unless they are a single SELECT statement.
// Callers run the result through the same read-only execution pipeline as
// hand-written queries.
//
// The HTTP client is rate limited (golang.org/x/time) and callers should
// wrap it in CircuitBreakerGenerator so a slow or failing upstream cannot
// stall the API.
package nlsql
