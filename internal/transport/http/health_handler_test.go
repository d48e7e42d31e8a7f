package http

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"tankevents/internal/config"
	"tankevents/internal/services"
)

func TestHealthHandler(t *testing.T) {
	hs := services.NewHealthService("1.0.0", config.PathsConfig{DataDir: t.TempDir()}, nil, nil, nil)
	h := NewHealthHandler(hs, nil)

	r := chi.NewRouter()
	r.Mount("/api/health", h.Routes())
	r.Get("/api/version", h.Version)

	tests := []struct {
		path       string
		wantStatus int
		wantField  string
		wantValue  interface{}
		noStore    bool
	}{
		{"/api/health", http.StatusOK, "status", "ok", true},
		{"/api/health/live", http.StatusOK, "status", "alive", true},
		// no run service or hub is wired
		{"/api/health/ready", http.StatusServiceUnavailable, "status", "not_ready", true},
		{"/api/version", http.StatusOK, "version", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := serve(t, r, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantValue, body[tt.wantField])
			if tt.noStore {
				assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			}
		})
	}
}
