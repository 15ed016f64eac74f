package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(ready bool) *Server {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewServer(nil, l, func() bool { return ready })
}

func TestHealthz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(true)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("starting", func(t *testing.T) {
		srv := newTestServer(false)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestQueryParamValidation(t *testing.T) {
	srv := newTestServer(true)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"missing chat_id", "/api/marriages", http.StatusBadRequest},
		{"non-numeric chat_id", "/api/marriages?chat_id=abc", http.StatusBadRequest},
		{"bad page", "/api/marriages?chat_id=1&page=0", http.StatusBadRequest},
		{"tree missing user_id", "/api/family-tree?chat_id=1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			require.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(true)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
