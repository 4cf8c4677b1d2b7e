package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/internal/config"
	"github.com/donaldgifford/film-deal-tracker/internal/notify"
	"github.com/donaldgifford/film-deal-tracker/pkg/logger"
)

func quietLogger() *slog.Logger {
	return logger.Discard()
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: memory
search:
  api_key: test-key
  base_url: http://127.0.0.1:1/search.json
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestBuildApp_Routes(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	s, err := openStore(context.Background(), &cfg.Database, quietLogger())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	a, err := buildApp(cfg, s, quietLogger())
	require.NoError(t, err)

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: `"ok"`},
		{method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "fdt_"},
		{method: http.MethodGet, path: "/openapi.json", wantStatus: http.StatusOK, wantBody: "run-check"},
		{method: http.MethodGet, path: "/api/v1/cache", wantStatus: http.StatusOK, wantBody: `"entries":[]`},
		{method: http.MethodGet, path: "/api/v1/runs/latest", wantStatus: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/v1/resolve?title=House&year=1977", wantStatus: http.StatusOK, wantBody: "Hausu"},
		{method: http.MethodGet, path: "/api/v1/sales/active?at=2026-11-27T12:00:00Z", wantStatus: http.StatusOK},
		{
			method:     http.MethodPost,
			path:       "/api/v1/check",
			body:       `{}`,
			wantStatus: http.StatusOK,
			wantBody:   `"subscribers":[]`,
		},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		if tt.body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		a.echo.ServeHTTP(rec, req)

		assert.Equal(t, tt.wantStatus, rec.Code, "%s %s: %s", tt.method, tt.path, rec.Body.String())
		if tt.wantBody != "" {
			assert.Contains(t, rec.Body.String(), tt.wantBody, "%s %s", tt.method, tt.path)
		}
	}
}

func TestBuildApp_BadTimezone(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Sales.Timezone = "Nowhere/Special"

	_, err := buildApp(cfg, nil, quietLogger())
	require.Error(t, err)
}

func TestBuildNotifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.NotificationsConfig
	}{
		{name: "no sinks falls back to log"},
		{
			name: "discord",
			cfg: config.NotificationsConfig{
				Discord: config.DiscordConfig{Enabled: true, WebhookURL: "https://discord.example/hook"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n, err := buildNotifier(&tt.cfg, quietLogger())
			require.NoError(t, err)
			assert.IsType(t, &notify.Fanout{}, n)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FDT_TEST_WIRE_KEY=from-dotenv\n"), 0o600))

	t.Setenv("FDT_TEST_WIRE_KEY", "")
	require.NoError(t, os.Unsetenv("FDT_TEST_WIRE_KEY"))

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv("FDT_TEST_WIRE_KEY"))

	require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
	require.NoError(t, loadEnvFile(""))
}
