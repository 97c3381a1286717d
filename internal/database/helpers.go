// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package database

import (
	"strings"
	"time"

	"github.com/tomtom215/parley/internal/metrics"
)

// isUniqueConstraintError reports whether err is a DuckDB unique
// constraint violation. DuckDB error messages contain "UNIQUE constraint"
// or "Duplicate key" depending on the code path.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "unique constraint") || strings.Contains(errMsg, "duplicate key")
}

// observe records query duration and outcome for Prometheus.
// Call from a deferred closure so err carries the final value.
func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

// utcNow returns the current time truncated to microseconds in UTC.
// DuckDB TIMESTAMP columns store microsecond precision, so truncating
// up front keeps round-tripped values comparable with ==.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
