package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func jsonServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request) any) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := handler(w, r)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.LatestRun(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerUnavailable)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestClient_APIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        APIError
		wantMsg     string
	}{
		{
			name:        "problem document",
			status:      http.StatusNotFound,
			contentType: "application/problem+json",
			body:        `{"title":"Not Found","status":404,"detail":"latest run: not found"}`,
			want:        APIError{Status: 404, Title: "Not Found", Detail: "latest run: not found"},
			wantMsg:     "Not Found (HTTP 404): latest run: not found",
		},
		{
			name:        "validation details",
			status:      http.StatusUnprocessableEntity,
			contentType: "application/problem+json",
			body: `{"title":"Unprocessable Entity","status":422,"detail":"validation failed",` +
				`"errors":[{"message":"expected string","location":"body.max_price"}]}`,
			want: APIError{
				Status: 422,
				Title:  "Unprocessable Entity",
				Detail: "validation failed",
				Errors: []string{"body.max_price: expected string"},
			},
			wantMsg: "Unprocessable Entity (HTTP 422): validation failed [body.max_price: expected string]",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        "upstream unavailable\n",
			want:        APIError{Status: 502, Detail: "upstream unavailable"},
			wantMsg:     "Bad Gateway (HTTP 502): upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := New(srv.URL).LatestRun(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, *apiErr)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestClient_RunCheck(t *testing.T) {
	t.Parallel()

	c := jsonServer(t, func(_ http.ResponseWriter, r *http.Request) any {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/check", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req checkRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, checkRequest{SubscriberID: "sub-1", Force: true}, req)

		return domain.RunReport{
			ID:          "run-1",
			Subscribers: []domain.SubscriberReport{{SubscriberID: "sub-1", Status: domain.RunStatusPartial}},
		}
	})

	report, err := c.RunCheck(context.Background(), "sub-1", true)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.ID)
	require.Len(t, report.Subscribers, 1)
	assert.Equal(t, domain.RunStatusPartial, report.Subscribers[0].Status)
}

func TestClient_Cache(t *testing.T) {
	t.Parallel()

	c := jsonServer(t, func(_ http.ResponseWriter, r *http.Request) any {
		assert.Equal(t, "/api/v1/cache", r.URL.Path)
		if r.Method == http.MethodDelete {
			return map[string]int{"cleared": 3}
		}
		return map[string]any{"entries": []any{}, "fresh": 2, "stale": 1}
	})

	status, err := c.CacheStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.Fresh)
	assert.Equal(t, 1, status.Stale)

	n, err := c.ClearCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClient_ActiveSales(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 11, 27, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		at        time.Time
		wantQuery string
	}{
		{name: "server time", wantQuery: ""},
		{name: "explicit time", at: at, wantQuery: "at=2026-11-27T12%3A00%3A00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := jsonServer(t, func(_ http.ResponseWriter, r *http.Request) any {
				assert.Equal(t, "/api/v1/sales/active", r.URL.Path)
				assert.Equal(t, tt.wantQuery, r.URL.RawQuery)
				return map[string]any{"windows": []domain.SaleWindow{{Name: "Black Friday"}}}
			})

			windows, err := c.ActiveSales(context.Background(), tt.at)
			require.NoError(t, err)
			require.Len(t, windows, 1)
			assert.Equal(t, "Black Friday", windows[0].Name)
		})
	}
}

func TestClient_Resolve(t *testing.T) {
	t.Parallel()

	c := jsonServer(t, func(_ http.ResponseWriter, r *http.Request) any {
		assert.Equal(t, "/api/v1/resolve", r.URL.Path)
		assert.Equal(t, "House", r.URL.Query().Get("title"))
		assert.Equal(t, "1977", r.URL.Query().Get("year"))
		return map[string]any{"aliases": []domain.Alias{
			{SourceTitle: "House", ResolvedTitle: "House", Confidence: 1},
			{SourceTitle: "House", ResolvedTitle: "Hausu", Confidence: 0.95},
		}}
	})

	aliases, err := c.Resolve(context.Background(), "House", 1977)
	require.NoError(t, err)
	require.Len(t, aliases, 2)
	assert.Equal(t, "Hausu", aliases[1].ResolvedTitle)
}

func TestClient_Subscribers(t *testing.T) {
	t.Parallel()

	c := jsonServer(t, func(_ http.ResponseWriter, r *http.Request) any {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/subscribers/sub-1":
			var req SubscriberRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			return Subscriber{ID: "sub-1", MaxPrice: req.MaxPrice, Labels: req.Labels, Active: true}
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/subscribers/sub-1/watchlist":
			var req struct {
				Entries []WatchlistItem `json:"entries"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := make([]domain.WatchlistEntry, 0, len(req.Entries))
			for _, it := range req.Entries {
				out = append(out, domain.WatchlistEntry{SubscriberID: "sub-1", CanonicalTitle: it.Title, ReleaseYear: it.Year})
			}
			return map[string]any{"entries": out}
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			return nil
		}
	})

	sub, err := c.UpsertSubscriber(context.Background(), "sub-1", &SubscriberRequest{
		MaxPrice: "25.00",
		Labels:   []string{"criterion"},
	})
	require.NoError(t, err)
	assert.Equal(t, "25.00", sub.MaxPrice)
	assert.Equal(t, []string{"criterion"}, sub.Labels)

	entries, err := c.ReplaceWatchlist(context.Background(), "sub-1", []WatchlistItem{{Title: "House", Year: 1977}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "House", entries[0].CanonicalTitle)
}
