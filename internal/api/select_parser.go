// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package api

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/querylens/internal/database"
)

// The direct path only handles flat SELECTs: single table, optional
// AND-joined equality predicates, one ORDER BY column, one LIMIT. Anything
// richer is the compatibility engine's job and never reaches this parser.
var (
	selectRe  = regexp.MustCompile(`(?is)^\s*select\s+.+?\s+from\s+([A-Za-z_]\w*)`)
	whereRe   = regexp.MustCompile(`(?is)\bwhere\s+(.*?)(?:\border\s+by\b|\blimit\b|$)`)
	equalRe   = regexp.MustCompile(`(?i)^([A-Za-z_]\w*)\s*=\s*(.+)$`)
	orderByRe = regexp.MustCompile(`(?i)\border\s+by\s+([A-Za-z_]\w*)(\s+(?:asc|desc))?`)
	limitRe   = regexp.MustCompile(`(?i)\blimit\s+(\d+)`)
	orRe      = regexp.MustCompile(`(?i)\bor\b`)
	andRe     = regexp.MustCompile(`(?i)\band\b`)
)

// errNotSimpleSelect marks queries the direct path cannot decompose.
var errNotSimpleSelect = fmt.Errorf("query is not a simple select")

// parseSimpleSelect decomposes a flat SELECT into structured fetch
// parameters. The maxRows cap applies when the query carries no LIMIT of
// its own or asks for more.
func parseSimpleSelect(query string, maxRows int) (database.FetchParams, error) {
	params := database.FetchParams{Limit: maxRows}

	m := selectRe.FindStringSubmatch(query)
	if m == nil {
		return params, errNotSimpleSelect
	}
	params.Table = m[1]

	// Joins and subqueries are out of scope for the direct path.
	lower := strings.ToLower(query)
	for _, stop := range []string{" join ", "group by", "having", "union", "(select"} {
		if strings.Contains(lower, stop) {
			return params, errNotSimpleSelect
		}
	}

	if wm := whereRe.FindStringSubmatch(query); wm != nil {
		filters, err := parsePredicates(wm[1])
		if err != nil {
			return params, err
		}
		params.Filters = filters
	}

	if om := orderByRe.FindStringSubmatch(query); om != nil {
		params.OrderBy = om[1]
		params.Descending = strings.EqualFold(strings.TrimSpace(om[2]), "desc")
	}

	if lm := limitRe.FindStringSubmatch(query); lm != nil {
		if n, err := strconv.Atoi(lm[1]); err == nil && n > 0 && n < maxRows {
			params.Limit = n
		}
	}

	return params, nil
}

// parsePredicates splits an AND-joined WHERE body into equality filters.
// OR, inequalities and function calls bail out to the fallback path.
func parsePredicates(body string) ([]database.Filter, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	if orRe.MatchString(body) {
		return nil, errNotSimpleSelect
	}

	parts := andRe.Split(body, -1)
	filters := make([]database.Filter, 0, len(parts))
	for _, part := range parts {
		em := equalRe.FindStringSubmatch(strings.TrimSpace(part))
		if em == nil {
			return nil, errNotSimpleSelect
		}
		filters = append(filters, database.Filter{
			Column: em[1],
			Value:  parseLiteral(strings.TrimSpace(em[2])),
		})
	}
	return filters, nil
}

// parseLiteral converts a SQL literal into a bind value. Quoted strings are
// unquoted, integers parsed, everything else kept verbatim.
func parseLiteral(lit string) any {
	if len(lit) >= 2 && lit[0] == '\'' && lit[len(lit)-1] == '\'' {
		return strings.ReplaceAll(lit[1:len(lit)-1], "''", "'")
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f
	}
	return lit
}
