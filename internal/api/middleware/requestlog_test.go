package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		status        int
		providedReqID string
		wantLogFields []string
		wantNoLog     bool
	}{
		{
			name:   "logs GET request with generated ID",
			method: http.MethodGet,
			path:   "/api/v1/cache",
			status: http.StatusOK,
			wantLogFields: []string{
				"level=INFO",
				"method=GET",
				"path=/api/v1/cache",
				"status=200",
				"duration_ms=",
				"request_id=",
			},
		},
		{
			name:          "logs POST request",
			method:        http.MethodPost,
			path:          "/api/v1/check",
			status:        http.StatusOK,
			wantLogFields: []string{"method=POST", "status=200"},
		},
		{
			name:          "server errors log at warn",
			method:        http.MethodPost,
			path:          "/api/v1/check",
			status:        http.StatusInternalServerError,
			wantLogFields: []string{"level=WARN", "status=500"},
		},
		{
			name:          "uses provided request ID",
			method:        http.MethodGet,
			path:          "/api/v1/runs/latest",
			status:        http.StatusOK,
			providedReqID: "custom-req-id-123",
			wantLogFields: []string{"request_id=custom-req-id-123"},
		},
		{
			name:      "successful probes log at debug",
			method:    http.MethodGet,
			path:      "/healthz",
			status:    http.StatusOK,
			wantNoLog: true,
		},
		{
			name:          "failed probes log at warn",
			method:        http.MethodGet,
			path:          "/readyz",
			status:        http.StatusServiceUnavailable,
			wantLogFields: []string{"level=WARN", "path=/readyz", "status=503"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			e := echo.New()
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			if tt.providedReqID != "" {
				req.Header.Set(requestIDHeader, tt.providedReqID)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var ctxID string
			handler := RequestLog(logger)(func(c echo.Context) error {
				ctxID = RequestIDFromContext(c.Request().Context())
				return c.NoContent(tt.status)
			})
			require.NoError(t, handler(c))

			if tt.wantNoLog {
				assert.Empty(t, buf.String())
			}
			for _, field := range tt.wantLogFields {
				assert.Contains(t, buf.String(), field)
			}

			respID := rec.Header().Get(requestIDHeader)
			assert.NotEmpty(t, respID)
			assert.Equal(t, respID, RequestID(c))
			assert.Equal(t, respID, ctxID)
			if tt.providedReqID != "" {
				assert.Equal(t, tt.providedReqID, respID)
			}
		})
	}
}

func TestRequestLog_ReturnedErrorStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", http.NoBody), httptest.NewRecorder())

	err := RequestLog(logger)(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "no runs yet")
	})(c)

	require.Error(t, err)
	assert.Contains(t, buf.String(), "status=404")
	assert.Contains(t, buf.String(), "level=INFO")
}
