package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// TestHealthHandler_MethodNotAllowed verifies non-GET requests are rejected.
func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	handler := NewHealthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy when backend reachable", func(t *testing.T) {
		handler := NewHealthHandler(pingerFunc(func(context.Context) error { return nil }))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "connected", response.Sessions)
		assert.Empty(t, response.Error)
	})

	t.Run("unhealthy when backend unavailable", func(t *testing.T) {
		handler := NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") }))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "disconnected", response.Sessions)
		assert.Contains(t, response.Error, "connection refused")
	})

	t.Run("ping is bounded by a deadline", func(t *testing.T) {
		var hadDeadline bool
		handler := NewHealthHandler(pingerFunc(func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.True(t, hadDeadline)
	})
}
