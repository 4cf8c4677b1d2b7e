package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/internal/api/handlers"
	"github.com/donaldgifford/film-deal-tracker/internal/store"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func TestUpsertSubscriber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		check      func(t *testing.T, sub *domain.Subscriber)
	}{
		{
			name:       "defaults applied",
			body:       map[string]any{"max_price": "30"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, sub *domain.Subscriber) {
				t.Helper()
				assert.True(t, decimal.RequireFromString("30").Equal(sub.MaxPrice))
				assert.Equal(t, "USD", sub.Currency)
				assert.Equal(t, domain.FrequencyDaily, sub.CheckFrequency)
				assert.True(t, sub.Active)
				assert.Empty(t, sub.Labels)
			},
		},
		{
			name: "labels and frequency",
			body: map[string]any{
				"max_price":       "24.99",
				"currency":        "gbp",
				"labels":          []string{"criterion", "arrow"},
				"check_frequency": "weekly",
				"active":          false,
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, sub *domain.Subscriber) {
				t.Helper()
				assert.Equal(t, "GBP", sub.Currency)
				assert.Equal(t, domain.LabelFilter{domain.LabelCriterion, domain.LabelArrow}, sub.Labels)
				assert.Equal(t, domain.FrequencyWeekly, sub.CheckFrequency)
				assert.False(t, sub.Active)
			},
		},
		{name: "bad price", body: map[string]any{"max_price": "thirty"}, wantStatus: http.StatusBadRequest},
		{name: "negative price", body: map[string]any{"max_price": "-1"}, wantStatus: http.StatusBadRequest},
		{
			name:       "unknown label",
			body:       map[string]any{"max_price": "30", "labels": []string{"blockbuster"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown frequency",
			body:       map[string]any{"max_price": "30", "check_frequency": "hourly"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "frequency is case insensitive",
			body:       map[string]any{"max_price": "30", "check_frequency": "Monthly"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, sub *domain.Subscriber) {
				t.Helper()
				assert.Equal(t, domain.FrequencyMonthly, sub.CheckFrequency)
			},
		},
		{
			name:       "other is not a filterable label",
			body:       map[string]any{"max_price": "30", "labels": []string{"criterion", "other"}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := store.NewMemoryStore()
			_, api := humatest.New(t)
			handlers.RegisterSubscriberRoutes(api, handlers.NewSubscribersHandler(s))

			resp := api.Put("/api/v1/subscribers/sub-1", tt.body)
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			if tt.check == nil {
				return
			}

			sub, err := s.GetSubscriber(context.Background(), "sub-1")
			require.NoError(t, err)
			tt.check(t, sub)
		})
	}
}

func TestGetSubscriber(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	_, api := humatest.New(t)
	handlers.RegisterSubscriberRoutes(api, handlers.NewSubscribersHandler(s))

	resp := api.Get("/api/v1/subscribers/sub-1")
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Put("/api/v1/subscribers/sub-1", map[string]any{"max_price": "30", "labels": []string{"criterion"}})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Get("/api/v1/subscribers/sub-1")
	require.Equal(t, http.StatusOK, resp.Code)

	var got handlers.SubscriberView
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "sub-1", got.ID)
	assert.Equal(t, "30.00", got.MaxPrice)
	assert.Equal(t, []string{"criterion"}, got.Labels)
}

func TestReplaceWatchlist(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	_, api := humatest.New(t)
	handlers.RegisterSubscriberRoutes(api, handlers.NewSubscribersHandler(s))

	resp := api.Put("/api/v1/subscribers/ghost/watchlist", map[string]any{
		"entries": []map[string]any{{"title": "House", "year": 1977}},
	})
	require.Equal(t, http.StatusNotFound, resp.Code)

	require.Equal(t, http.StatusOK, api.Put("/api/v1/subscribers/sub-1", map[string]any{"max_price": "30"}).Code)

	resp = api.Put("/api/v1/subscribers/sub-1/watchlist", map[string]any{
		"entries": []map[string]any{{"title": "House", "year": 1977}, {"title": "Suspiria"}},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Put("/api/v1/subscribers/sub-1/watchlist", map[string]any{
		"entries": []map[string]any{{"title": "Possession", "year": 1981}},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Get("/api/v1/subscribers/sub-1/watchlist")
	require.Equal(t, http.StatusOK, resp.Code)

	var got struct {
		Entries []domain.WatchlistEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, domain.WatchlistEntry{SubscriberID: "sub-1", CanonicalTitle: "Possession", ReleaseYear: 1981}, got.Entries[0])

	resp = api.Put("/api/v1/subscribers/sub-1/watchlist", map[string]any{
		"entries": []map[string]any{{"title": "   "}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
