// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package sqlcompat

import "errors"

var (
	// ErrNoTable indicates the query has no FROM <identifier> clause, so the
	// engine cannot determine which table to fetch rows from. This always
	// aborts the request.
	ErrNoTable = errors.New("cannot parse table name")

	// ErrUnsupportedQuery indicates the query needs the fallback path but is
	// not one of the two grouping shapes the aggregator can reproduce (for
	// example a CTE or window function). Callers must surface this as an
	// explicit conversion failure rather than return partial results.
	ErrUnsupportedQuery = errors.New("query conversion not supported")
)
