// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package sqlcompat

import (
	"regexp"
	"strings"
)

// fallbackProbes is the fixed, ordered set of constructs the backing store
// cannot evaluate. A query matching any probe must take the in-process
// aggregation path. Probes are case-insensitive and unanchored.
var fallbackProbes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)EXTRACT\s*\(`),
	regexp.MustCompile(`(?i)DATE_TRUNC\s*\(`),
	regexp.MustCompile(`(?i)CASE\s+WHEN`),
	regexp.MustCompile(`(?i)WITH\s+\w+\s+AS`),
	regexp.MustCompile(`(?i)window functions`),
	regexp.MustCompile(`::\w+`),
	regexp.MustCompile(`(?i)INTERVAL\s+'`),
	regexp.MustCompile(`(?i)GENERATE_SERIES\s*\(`),
	regexp.MustCompile(`(?i)ARRAY_AGG\s*\(`),
	regexp.MustCompile(`(?i)STRING_AGG\s*\(`),
	regexp.MustCompile(`(?i)COALESCE\s*\(`),
	regexp.MustCompile(`(?i)NULLIF\s*\(`),
	regexp.MustCompile(`(?i)GREATEST\s*\(`),
	regexp.MustCompile(`(?i)LEAST\s*\(`),
	regexp.MustCompile(`(?i)COUNT\s*\(\s*DISTINCT`),
}

// NeedsFallback reports whether the raw query text uses any construct that
// requires the fallback aggregation path instead of a direct structured
// fetch. The probe set is fixed; it errs toward fallback, since a false
// positive only costs a slower path while a false negative sends an
// unevaluable query to the backing store.
func NeedsFallback(query string) bool {
	for _, probe := range fallbackProbes {
		if probe.MatchString(query) {
			return true
		}
	}
	return false
}

// CanProcess reports whether the aggregator can reproduce the normalized
// query: it must group by a recognized time function over a table. Queries
// that need fallback but fail this predicate get ErrUnsupportedQuery, never
// a silent mis-processing.
//
// NeedsFallback and CanProcess are independent: a CTE needs fallback yet is
// not processable.
func CanProcess(normalized string) bool {
	lower := strings.ToLower(normalized)
	hasTimeFunc := strings.Contains(lower, "date_part") ||
		strings.Contains(lower, "date_trunc") ||
		strings.Contains(lower, "extract")
	return hasTimeFunc &&
		strings.Contains(lower, "group by") &&
		strings.Contains(lower, "from")
}
