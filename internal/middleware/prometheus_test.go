// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPrometheusMetrics_PassesThrough(t *testing.T) {
	called := false
	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if !called {
		t.Fatal("Expected wrapped handler to be called")
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}
	if rec.Body.String() != `{"status":"success"}` {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestMetricsResponseWriter_DefaultStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapper := &metricsResponseWriter{
		ResponseWriter: rec,
		statusCode:     http.StatusOK,
	}

	// A handler that never calls WriteHeader should record 200.
	if _, err := wrapper.Write([]byte("ok")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if wrapper.statusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", wrapper.statusCode)
	}

	wrapper.WriteHeader(http.StatusNotFound)
	if wrapper.statusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 after WriteHeader, got %d", wrapper.statusCode)
	}
}
