// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package sqlcompat

import "regexp"

var (
	// extractCallRe matches EXTRACT(<field> FROM <expr>) case-insensitively.
	// The expression is the longest run of non-')' characters, which is as
	// far as a textual rewrite can safely reach without a parser.
	extractCallRe = regexp.MustCompile(`(?i)EXTRACT\s*\(\s*(\w+)\s+FROM\s+([^)]+?)\s*\)`)

	// castRe matches <identifier>::<type> casts, including array types like
	// ::text[]. Only bare-word identifiers are rewritten; anything more
	// structured passes through untouched.
	castRe = regexp.MustCompile(`(\w+)::\w+(\[\])?`)
)

// Normalize rewrites recognized PostgreSQL-only syntax into a normalized
// query string the aggregator can parse more easily:
//
//   - EXTRACT(field FROM expr) becomes DATE_PART('field', expr)
//   - identifier::type casts are stripped to the bare identifier
//
// Both rules apply to every occurrence, case-insensitively. Unmatched text
// passes through unchanged and the input is never mutated. Normalize is
// idempotent: applying it to its own output is a no-op, because the EXTRACT
// rewrite emits no EXTRACT( and the cast rewrite leaves no '::' behind.
func Normalize(query string) string {
	normalized := extractCallRe.ReplaceAllString(query, "DATE_PART('$1', $2)")
	normalized = castRe.ReplaceAllString(normalized, "$1")
	return normalized
}
