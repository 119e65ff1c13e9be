// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tomtom215/querylens/internal/database/query"
	"github.com/tomtom215/querylens/internal/metrics"
	"github.com/tomtom215/querylens/internal/models"
)

// Identifiers are validated against this pattern before interpolation.
// Everything else (values, limits) goes through placeholders.
var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// ErrUnknownTable is returned when a fetch names a table that does not
// exist in the catalog.
var ErrUnknownTable = fmt.Errorf("unknown table")

// ErrUnknownColumn is returned when a filter or sort names a column that
// does not exist on the target table.
var ErrUnknownColumn = fmt.Errorf("unknown column")

// Filter is a single equality predicate for FetchFiltered
type Filter struct {
	Column string
	Value  any
}

// FetchParams describes a structured filtered fetch
type FetchParams struct {
	Table      string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// FetchRows scans up to maxRows rows from the given table. The table name
// is validated against the live catalog before interpolation.
func (db *DB) FetchRows(ctx context.Context, table string, maxRows int) ([]map[string]any, error) {
	start := time.Now()

	if err := db.validateTable(ctx, table); err != nil {
		metrics.RecordDBQuery("SELECT", table, time.Since(start), err)
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT ?", table) // #nosec G201 -- identifier validated against catalog
	rows, err := db.conn.QueryContext(ctx, query, maxRows)
	if err != nil {
		metrics.RecordDBQuery("SELECT", table, time.Since(start), err)
		return nil, fmt.Errorf("fetch rows: %w", err)
	}
	defer closeWithLog(rows, "fetch rows cursor")

	result, err := scanRowMaps(rows)
	metrics.RecordDBQuery("SELECT", table, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	metrics.DBRowsFetched.WithLabelValues(table).Observe(float64(len(result)))
	return result, nil
}

// FetchFiltered runs a structured SELECT built from validated identifiers
// and placeholder-bound values. This is the row source for queries the
// compatibility engine does not need to take over.
func (db *DB) FetchFiltered(ctx context.Context, params FetchParams) ([]map[string]any, error) {
	start := time.Now()

	if err := db.validateTable(ctx, params.Table); err != nil {
		metrics.RecordDBQuery("SELECT", params.Table, time.Since(start), err)
		return nil, err
	}

	columns, err := db.tableColumns(ctx, params.Table)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", params.Table) // #nosec G201 -- identifier validated against catalog

	wb := query.NewWhereBuilder()
	for _, f := range params.Filters {
		if !columns[strings.ToLower(f.Column)] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, params.Table, f.Column)
		}
		wb.AddEquals(f.Column, f.Value)
	}
	var args []any
	if !wb.IsEmpty() {
		whereClause, whereArgs := wb.BuildWithPrefix()
		sb.WriteString(" ")
		sb.WriteString(whereClause)
		args = whereArgs
	}

	if params.OrderBy != "" {
		if !columns[strings.ToLower(params.OrderBy)] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, params.Table, params.OrderBy)
		}
		direction := "ASC"
		if params.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", params.OrderBy, direction)
	}

	if params.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, params.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		metrics.RecordDBQuery("SELECT", params.Table, time.Since(start), err)
		return nil, fmt.Errorf("fetch filtered: %w", err)
	}
	defer closeWithLog(rows, "filtered fetch cursor")

	result, err := scanRowMaps(rows)
	metrics.RecordDBQuery("SELECT", params.Table, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListTables returns the names of user tables in the main schema
func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
	metrics.RecordDBQuery("CATALOG", "tables", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer closeWithLog(rows, "table list cursor")

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table list iteration: %w", err)
	}
	return tables, nil
}

// DescribeTable returns the column catalog for one table
func (db *DB) DescribeTable(ctx context.Context, name string) (*models.TableSchema, error) {
	if !identRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		"SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position",
		name)
	metrics.RecordDBQuery("CATALOG", name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("describe table: %w", err)
	}
	defer closeWithLog(rows, "describe cursor")

	schema := &models.TableSchema{Name: name}
	for rows.Next() {
		var col models.TableColumn
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe iteration: %w", err)
	}
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return schema, nil
}

// validateTable checks the identifier pattern and the live catalog
func (db *DB) validateTable(ctx context.Context, table string) error {
	if !identRe.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	var count int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'main' AND table_name = ?",
		table).Scan(&count)
	if err != nil {
		return fmt.Errorf("table lookup: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

// tableColumns returns a lowercase column-name set for identifier validation
func (db *DB) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	schema, err := db.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	columns := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		columns[strings.ToLower(col.Name)] = true
	}
	return columns, nil
}

// scanRowMaps reads all rows of a cursor into generic column maps
func scanRowMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	result := make([]map[string]any, 0, 64)
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}
