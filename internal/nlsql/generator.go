// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package nlsql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/querylens/internal/models"
)

// ErrRateLimited is returned when the local rate limiter rejects a request
// before it reaches the upstream endpoint.
var ErrRateLimited = errors.New("generation rate limit exceeded")

// ErrUnsafeSQL is returned when the model produces something other than a
// single SELECT statement.
var ErrUnsafeSQL = errors.New("generated SQL rejected")

// Generator produces candidate SQL for a natural-language prompt given the
// current table catalog.
type Generator interface {
	GenerateSQL(ctx context.Context, prompt string, schemas []*models.TableSchema) (string, error)
}

// forbiddenKeywords are statement types that must never appear in generated
// SQL, even inside an otherwise valid SELECT.
var forbiddenKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "create",
	"attach", "detach", "copy", "pragma", "install", "load",
}

// sanitizeSQL strips markdown code fences from a model response and
// enforces the single-SELECT-statement contract.
func sanitizeSQL(raw string) (string, error) {
	sqlText := strings.TrimSpace(raw)

	// Models frequently wrap SQL in ```sql ... ``` fences
	if strings.HasPrefix(sqlText, "```") {
		sqlText = strings.TrimPrefix(sqlText, "```sql")
		sqlText = strings.TrimPrefix(sqlText, "```SQL")
		sqlText = strings.TrimPrefix(sqlText, "```")
		if idx := strings.Index(sqlText, "```"); idx >= 0 {
			sqlText = sqlText[:idx]
		}
		sqlText = strings.TrimSpace(sqlText)
	}

	sqlText = strings.TrimSuffix(sqlText, ";")
	sqlText = strings.TrimSpace(sqlText)

	if sqlText == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnsafeSQL)
	}

	lower := strings.ToLower(sqlText)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return "", fmt.Errorf("%w: not a SELECT statement", ErrUnsafeSQL)
	}
	if strings.Contains(sqlText, ";") {
		return "", fmt.Errorf("%w: multiple statements", ErrUnsafeSQL)
	}
	for _, keyword := range forbiddenKeywords {
		if containsWord(lower, keyword) {
			return "", fmt.Errorf("%w: contains %s", ErrUnsafeSQL, strings.ToUpper(keyword))
		}
	}

	return sqlText, nil
}

// containsWord reports whether word appears in s on identifier boundaries,
// so column names like created_at do not trip the "create" check.
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(s[start-1])
		afterOK := end == len(s) || !isWordChar(s[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// schemaContext renders the table catalog into a compact prompt section
func schemaContext(schemas []*models.TableSchema) string {
	var sb strings.Builder
	for _, schema := range schemas {
		if schema == nil {
			continue
		}
		sb.WriteString(schema.Name)
		sb.WriteString("(")
		for i, col := range schema.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col.Name)
			sb.WriteString(" ")
			sb.WriteString(col.Type)
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}
