package cli

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/openface/internal/api/response"
)

func TestClientDecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"ALREADY_ACTED","message":"already acted this phase"}}`))
	}))
	defer server.Close()

	err := NewClient(server.URL+"/", "tok").Post("/api/v1/rooms/ABCDEF/place", map[string]any{}, nil)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "ALREADY_ACTED", apiErr.Code)
	assert.Contains(t, err.Error(), "ALREADY_ACTED")
}

func TestClientPlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL, "").Get("/api/v1/health", nil)
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, "HTTP 502: bad gateway", err.Error())
}

func TestClientDecodesResultAndNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","rooms":3}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")

	var health response.Health
	require.NoError(t, c.Get("/api/v1/health", &health))
	assert.Equal(t, response.Health{Status: "ok", Rooms: 3}, health)

	var ignored response.Room
	assert.NoError(t, c.Post("/api/v1/players/logout", nil, &ignored))
}
