// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure.
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"id": "...", "content": "hi"},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable code plus a human-readable message.
//
// Codes used by the API: VALIDATION_ERROR, UNAUTHORIZED, FORBIDDEN,
// NOT_FOUND, CONFLICT, PAYLOAD_TOO_LARGE, DATABASE_ERROR, SERVICE_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
