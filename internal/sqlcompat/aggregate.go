// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package sqlcompat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// MaxFetchRows caps the bulk row fetch backing one aggregation. Rows
	// beyond the cap are silently excluded. This matches the reference
	// behavior; downstream consumers may depend on the exact value, so do
	// not "fix" it.
	MaxFetchRows = 10000

	// maxPartResultRows caps Path B output regardless of the query's own
	// LIMIT. Also reference behavior, also load-bearing.
	maxPartResultRows = 100

	dateLabelLayout = "2006-01-02"
	hourLabelLayout = "2006-01-02 15:00:00"
)

// RowSource is the single capability the engine consumes: a bulk fetch of
// raw rows from one table. Implementations fail with a descriptive error
// when the table is inaccessible or the backing store errors.
type RowSource interface {
	FetchRows(ctx context.Context, table string, maxRows int) ([]map[string]any, error)
}

// ResultRow is one output group: the bucket label plus whichever aggregate
// counters the query text activated.
type ResultRow map[string]any

// aggregateKind selects how an accumulator folds rows into its counter.
type aggregateKind int

const (
	countRows aggregateKind = iota
	countDistinct
)

// aggregateSpec maps a literal trigger substring in the query text to an
// output field and accumulator kind. The supported aggregate expressions
// are exactly this closed table; anything else is silently not computed.
type aggregateSpec struct {
	triggers []string
	field    string
	kind     aggregateKind
	column   string
}

var aggregateSpecs = []aggregateSpec{
	{triggers: []string{"count(user_id)", "count(*)"}, field: "user_count", kind: countRows},
	{triggers: []string{"count(distinct country)"}, field: "country_count", kind: countDistinct, column: "country"},
	{triggers: []string{"count(distinct user_segment)"}, field: "segment_count", kind: countDistinct, column: "user_segment"},
}

// activeAggregates returns the specs whose trigger substring appears in the
// query text. Matching is literal and case-insensitive: there is no column
// reference resolution behind it.
func activeAggregates(query string) []aggregateSpec {
	lower := strings.ToLower(query)
	var active []aggregateSpec
	for _, spec := range aggregateSpecs {
		for _, trigger := range spec.triggers {
			if strings.Contains(lower, trigger) {
				active = append(active, spec)
				break
			}
		}
	}
	return active
}

// Engine reproduces DATE_TRUNC/DATE_PART + GROUP BY + COUNT semantics in
// memory over rows fetched from a RowSource. It holds no per-query state;
// one Engine serves any number of concurrent invocations.
type Engine struct {
	rows RowSource
}

// NewEngine creates an aggregation engine over the given row source.
func NewEngine(rows RowSource) *Engine {
	return &Engine{rows: rows}
}

// Execute runs the fallback aggregation pipeline for one raw query: it
// normalizes the text, verifies the query is one of the two supported
// grouping shapes, fetches the referenced table's rows, and aggregates
// them. The returned rows are freshly allocated; the input is not retained.
//
// Error contract: a query with no FROM clause fails with ErrNoTable; a
// query outside the supported shapes fails with ErrUnsupportedQuery; a
// fetch failure propagates wrapped with the table it targeted. A query in
// shape whose grouping pattern still cannot be parsed yields an empty
// result set, not an error.
func (e *Engine) Execute(ctx context.Context, rawQuery string) ([]ResultRow, error) {
	normalized := Normalize(rawQuery)

	table, tableErr := tableName(normalized)
	if !CanProcess(normalized) {
		if tableErr != nil {
			return nil, tableErr
		}
		return nil, fmt.Errorf("%w: no recognized time-function grouping", ErrUnsupportedQuery)
	}
	if tableErr != nil {
		return nil, tableErr
	}

	rows, err := e.rows.FetchRows(ctx, table, MaxFetchRows)
	if err != nil {
		return nil, fmt.Errorf("fetch rows from %q: %w", table, err)
	}

	if strings.Contains(strings.ToLower(normalized), "date_trunc") {
		return aggregateByTrunc(normalized, rawQuery, rows), nil
	}
	return aggregateByPart(normalized, rawQuery, rows), nil
}

// truncBucket holds per-bucket accumulator state for Path A.
type truncBucket struct {
	label    string
	counts   map[string]int
	distinct map[string]map[string]struct{}
}

// aggregateByTrunc is Path A: bucket rows by truncating one timestamp
// column to the stated precision, then count per bucket.
func aggregateByTrunc(normalized, original string, rows []map[string]any) []ResultRow {
	precision, column, ok := dateTruncCall(normalized)
	if !ok {
		// Unparseable grouping pattern means "nothing to aggregate".
		return []ResultRow{}
	}
	alias := truncAlias(normalized)
	active := activeAggregates(original)

	buckets := make(map[string]*truncBucket)
	var insertion []string

	for _, row := range rows {
		ts, ok := parseTimestamp(row[column])
		if !ok {
			// Null or absent bucket column: the row joins no bucket and no
			// count, including plain COUNT(*).
			continue
		}
		label := truncateToPrecision(ts, precision)

		b := buckets[label]
		if b == nil {
			b = &truncBucket{
				label:    label,
				counts:   make(map[string]int),
				distinct: make(map[string]map[string]struct{}),
			}
			buckets[label] = b
			insertion = append(insertion, label)
		}

		for _, spec := range active {
			switch spec.kind {
			case countRows:
				b.counts[spec.field]++
			case countDistinct:
				if v := stringValue(row[spec.column]); v != "" {
					set := b.distinct[spec.field]
					if set == nil {
						set = make(map[string]struct{})
						b.distinct[spec.field] = set
					}
					set[v] = struct{}{}
				}
			}
		}
	}

	// Stable default order is insertion order; ORDER BY overrides it below.
	results := make([]ResultRow, 0, len(insertion))
	for _, label := range insertion {
		b := buckets[label]
		row := ResultRow{alias: b.label}
		for _, spec := range active {
			switch spec.kind {
			case countRows:
				row[spec.field] = b.counts[spec.field]
			case countDistinct:
				row[spec.field] = len(b.distinct[spec.field])
			}
		}
		results = append(results, row)
	}

	if col, desc, ok := orderByClause(normalized); ok {
		sort.SliceStable(results, func(i, j int) bool {
			if desc {
				return lessValues(results[j][col], results[i][col])
			}
			return lessValues(results[i][col], results[j][col])
		})
	}

	if n, ok := limitClause(normalized); ok && len(results) > n {
		results = results[:n]
	}
	return results
}

// truncateToPrecision computes the bucket label for one timestamp. Weeks
// start on Monday; the weekday arithmetic follows the 0=Sunday convention,
// so the offset back to Monday is (weekday+6) mod 7 days. Unknown
// precisions degrade to day.
func truncateToPrecision(ts time.Time, precision string) string {
	switch precision {
	case "week":
		offset := (int(ts.Weekday()) + 6) % 7
		monday := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location()).
			AddDate(0, 0, -offset)
		return monday.Format(dateLabelLayout)
	case "month":
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, ts.Location()).Format(dateLabelLayout)
	case "year":
		return time.Date(ts.Year(), time.January, 1, 0, 0, 0, 0, ts.Location()).Format(dateLabelLayout)
	case "hour":
		return ts.Format(hourLabelLayout)
	default: // "day" and anything unrecognized
		return ts.Format(dateLabelLayout)
	}
}

// partBucket holds per-bucket accumulator state for Path B.
type partBucket struct {
	values []any
	count  int
}

// aggregateByPart is Path B: group rows by the tuple of every DATE_PART
// value computed per row, count rows per tuple, and emit the top buckets
// by count.
func aggregateByPart(normalized, original string, rows []map[string]any) []ResultRow {
	calls := datePartCalls(normalized)
	if len(calls) == 0 {
		return []ResultRow{}
	}
	names := partFieldNames(original, len(calls))

	buckets := make(map[string]*partBucket)
	var insertion []string

	for _, row := range rows {
		values := make([]any, len(calls))
		var key strings.Builder
		for i, call := range calls {
			if i > 0 {
				key.WriteByte('|')
			}
			ts, ok := parseTimestamp(row[call.column])
			if !ok {
				// Missing column contributes a null slot; the row stays.
				values[i] = nil
				key.WriteString("null")
				continue
			}
			n := datePartValue(ts, call.field)
			values[i] = n
			fmt.Fprintf(&key, "%d", n)
		}

		k := key.String()
		b := buckets[k]
		if b == nil {
			b = &partBucket{values: values}
			buckets[k] = b
			insertion = append(insertion, k)
		}
		b.count++
	}

	results := make([]ResultRow, 0, len(insertion))
	for _, k := range insertion {
		b := buckets[k]
		row := ResultRow{"user_count": b.count}
		for i, name := range names {
			row[name] = b.values[i]
		}
		results = append(results, row)
	}

	// Fixed ordering and cap: descending by count, first 100 buckets. The
	// query's own LIMIT is deliberately ignored here.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i]["user_count"].(int) > results[j]["user_count"].(int)
	})
	if len(results) > maxPartResultRows {
		results = results[:maxPartResultRows]
	}
	return results
}

// knownPartAliases maps tuple position to the alias name recognized by
// literal substring sniffing against the query text. Only these two names
// are discovered; see the package design notes for why this stays narrow.
var knownPartAliases = map[int]string{
	0: "signup_hour",
	1: "signup_day_of_week",
}

// partFieldNames assigns output column names to tuple slots. A slot whose
// known alias does not appear in the query text gets a positional name so
// the value is still addressable.
func partFieldNames(query string, n int) []string {
	lower := strings.ToLower(query)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		if alias, ok := knownPartAliases[i]; ok && strings.Contains(lower, alias) {
			names[i] = alias
			continue
		}
		names[i] = fmt.Sprintf("part_%d", i+1)
	}
	return names
}

// datePartValue computes one numeric date part. Day-of-week follows the
// 0=Sunday convention. Unrecognized fields yield 0 rather than an error.
func datePartValue(ts time.Time, field string) int {
	switch field {
	case "hour":
		return ts.Hour()
	case "dow":
		return int(ts.Weekday())
	case "day":
		return ts.Day()
	case "month":
		return int(ts.Month())
	case "year":
		return ts.Year()
	case "minute":
		return ts.Minute()
	default:
		return 0
	}
}

// lessValues is the generic comparison used by ORDER BY: numeric when both
// sides are numbers, string comparison of the rendered values otherwise.
// Nil sorts first.
func lessValues(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
