// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package sqlcompat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Query-fragment recognizers shared by both aggregation paths. These are
// textual pattern matchers over the normalized query, not a grammar: only
// the documented shapes are recognized, everything else is ignored.
var (
	fromTableRe  = regexp.MustCompile(`(?i)\bFROM\s+([A-Za-z_]\w*)`)
	dateTruncRe  = regexp.MustCompile(`(?i)DATE_TRUNC\s*\(\s*'(\w+)'\s*,\s*([^)]+?)\s*\)`)
	datePartRe   = regexp.MustCompile(`(?i)DATE_PART\s*\(\s*'(\w+)'\s*,\s*([^)]+?)\s*\)`)
	truncAliasRe = regexp.MustCompile(`(?i)DATE_TRUNC\s*\([^)]+\)\s+AS\s+(\w+)`)
	orderByRe    = regexp.MustCompile(`(?i)ORDER\s+BY\s+(\w+)(?:\s+(ASC|DESC))?`)
	limitRe      = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
)

// tableName extracts the source table from the first FROM <identifier>
// occurrence. Its absence is a hard failure: without a table there is
// nothing to fetch.
func tableName(query string) (string, error) {
	m := fromTableRe.FindStringSubmatch(query)
	if m == nil {
		return "", fmt.Errorf("%w: no FROM clause found", ErrNoTable)
	}
	return m[1], nil
}

// dateTruncCall parses the first DATE_TRUNC('<precision>', <column>) call.
// Later occurrences are ignored, matching the reference behavior. Any
// trailing cast on the column is stripped.
func dateTruncCall(query string) (precision, column string, ok bool) {
	m := dateTruncRe.FindStringSubmatch(query)
	if m == nil {
		return "", "", false
	}
	return strings.ToLower(m[1]), stripCast(m[2]), true
}

// datePartCall is one parsed DATE_PART('<field>', <column>) occurrence.
type datePartCall struct {
	field  string
	column string
}

// datePartCalls collects every DATE_PART call in the query, in order of
// appearance. Unlike dateTruncCall, all occurrences matter: together they
// form the grouping tuple.
func datePartCalls(query string) []datePartCall {
	matches := datePartRe.FindAllStringSubmatch(query, -1)
	calls := make([]datePartCall, 0, len(matches))
	for _, m := range matches {
		calls = append(calls, datePartCall{
			field:  strings.ToLower(m[1]),
			column: stripCast(m[2]),
		})
	}
	return calls
}

// truncAlias returns the output field name for the bucket label: the AS
// <alias> clause immediately following the DATE_TRUNC call, defaulting to
// "week" when none is present.
func truncAlias(query string) string {
	m := truncAliasRe.FindStringSubmatch(query)
	if m == nil {
		return "week"
	}
	return m[1]
}

// orderByClause parses ORDER BY <col> [ASC|DESC]. Direction defaults to
// ascending.
func orderByClause(query string) (column string, descending, ok bool) {
	m := orderByRe.FindStringSubmatch(query)
	if m == nil {
		return "", false, false
	}
	return m[1], strings.EqualFold(m[2], "DESC"), true
}

// limitClause parses LIMIT <n>. Absence means no truncation.
func limitClause(query string) (int, bool) {
	m := limitRe.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// stripCast removes a trailing ::type cast from a column expression and
// trims surrounding whitespace. Normalization already strips casts, but the
// column fragment may come from text normalization never saw.
func stripCast(expr string) string {
	expr = strings.TrimSpace(expr)
	if i := strings.Index(expr, "::"); i >= 0 {
		expr = expr[:i]
	}
	return strings.TrimSpace(expr)
}

// timestampLayouts are the formats row values are tried against, most
// specific first. DuckDB returns time.Time directly; string layouts cover
// JSON-decoded fixtures and text columns.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp interprets a raw row value as a point in time. The second
// return is false for nil, empty, and unparseable values; callers decide
// whether that means "skip the row" (Path A) or "null slot" (Path B).
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// stringValue renders a raw row value for distinct counting. Nil maps to
// the empty string, which distinct accumulators ignore.
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
