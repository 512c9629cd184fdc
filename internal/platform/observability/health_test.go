package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name     string
		pinger   Pinger
		path     string
		wantCode int
	}{
		{name: "healthz", path: "/healthz", wantCode: http.StatusOK},
		{name: "readyz without pinger", path: "/readyz", wantCode: http.StatusOK},
		{name: "readyz ok", pinger: pingerFunc(func(context.Context) error { return nil }), path: "/readyz", wantCode: http.StatusOK},
		{name: "readyz down", pinger: pingerFunc(func(context.Context) error { return errDown }), path: "/readyz", wantCode: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)

			HealthHandler(tt.pinger).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
