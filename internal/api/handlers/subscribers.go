package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// SubscriberStore persists subscribers and their watchlists.
type SubscriberStore interface {
	UpsertSubscriber(ctx context.Context, s *domain.Subscriber) error
	GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error)
	ListWatchlistEntries(ctx context.Context, subscriberID string) ([]domain.WatchlistEntry, error)
	ReplaceWatchlist(ctx context.Context, subscriberID string, entries []domain.WatchlistEntry) error
}

// SubscribersHandler manages subscriber preferences and watchlists.
type SubscribersHandler struct {
	store SubscriberStore
	now   func() time.Time
}

// NewSubscribersHandler creates a new SubscribersHandler.
func NewSubscribersHandler(s SubscriberStore) *SubscribersHandler {
	return &SubscribersHandler{store: s, now: time.Now}
}

// SubscriberView is the API representation of a subscriber. Prices travel
// as decimal strings.
type SubscriberView struct {
	ID             string     `json:"id"`
	MaxPrice       string     `json:"max_price" example:"30.00"`
	Currency       string     `json:"currency" example:"USD"`
	Labels         []string   `json:"labels,omitempty"`
	CheckFrequency string     `json:"check_frequency" enum:"daily,weekly,monthly"`
	Active         bool       `json:"active"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
}

func subscriberView(s *domain.Subscriber) SubscriberView {
	labels := make([]string, 0, len(s.Labels))
	for _, l := range s.Labels {
		labels = append(labels, string(l))
	}
	return SubscriberView{
		ID:             s.ID,
		MaxPrice:       s.MaxPrice.StringFixed(2),
		Currency:       s.Currency,
		Labels:         labels,
		CheckFrequency: string(s.CheckFrequency),
		Active:         s.Active,
		LastCheckedAt:  s.LastCheckedAt,
	}
}

// SubscriberIDInput identifies a subscriber in the path.
type SubscriberIDInput struct {
	ID string `path:"id" doc:"Subscriber ID"`
}

// SubscriberOutput is a single subscriber response.
type SubscriberOutput struct {
	Body SubscriberView
}

// UpsertSubscriberInput is the request for PUT /api/v1/subscribers/{id}.
type UpsertSubscriberInput struct {
	ID   string `path:"id" doc:"Subscriber ID"`
	Body struct {
		MaxPrice       string   `json:"max_price" doc:"Price ceiling as a decimal string" example:"30.00"`
		Currency       string   `json:"currency,omitempty" example:"USD"`
		Labels         []string `json:"labels,omitempty" doc:"Labels to watch; empty watches every label"`
		CheckFrequency string   `json:"check_frequency,omitempty" doc:"daily, weekly or monthly; defaults to daily"`
		Active         *bool    `json:"active,omitempty"`
	}
}

// WatchlistOutput is the response for watchlist endpoints.
type WatchlistOutput struct {
	Body struct {
		Entries []domain.WatchlistEntry `json:"entries"`
	}
}

// WatchlistItem is one film in a watchlist replacement request.
type WatchlistItem struct {
	Title string `json:"title" minLength:"1"`
	Year  int    `json:"year,omitempty" minimum:"0"`
}

// ReplaceWatchlistInput is the request for PUT /api/v1/subscribers/{id}/watchlist.
type ReplaceWatchlistInput struct {
	ID   string `path:"id" doc:"Subscriber ID"`
	Body struct {
		Entries []WatchlistItem `json:"entries"`
	}
}

// Get returns a subscriber.
func (h *SubscribersHandler) Get(ctx context.Context, in *SubscriberIDInput) (*SubscriberOutput, error) {
	sub, err := h.store.GetSubscriber(ctx, in.ID)
	if err != nil {
		return nil, storeError("subscriber "+in.ID, err)
	}
	return &SubscriberOutput{Body: subscriberView(sub)}, nil
}

// Upsert creates or updates a subscriber's preferences.
func (h *SubscribersHandler) Upsert(ctx context.Context, in *UpsertSubscriberInput) (*SubscriberOutput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(in.Body.MaxPrice))
	if err != nil || price.IsNegative() {
		return nil, huma.Error400BadRequest("max_price must be a non-negative decimal")
	}

	labels := make(domain.LabelFilter, 0, len(in.Body.Labels))
	for _, s := range in.Body.Labels {
		l, ok := domain.ParseLabel(s)
		if !ok {
			return nil, huma.Error400BadRequest("unknown label " + s)
		}
		if l == domain.LabelOther {
			return nil, huma.Error400BadRequest("label other cannot be watched explicitly; omit labels to watch every label")
		}
		labels = append(labels, l)
	}

	freq, ok := domain.ParseCheckFrequency(in.Body.CheckFrequency)
	if !ok {
		return nil, huma.Error400BadRequest("check_frequency must be daily, weekly or monthly")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Body.Currency))
	if currency == "" {
		currency = "USD"
	}
	active := true
	if in.Body.Active != nil {
		active = *in.Body.Active
	}

	sub := &domain.Subscriber{
		ID:             in.ID,
		MaxPrice:       price,
		Currency:       currency,
		Labels:         labels,
		CheckFrequency: freq,
		Active:         active,
		UpdatedAt:      h.now().UTC(),
	}
	if existing, err := h.store.GetSubscriber(ctx, in.ID); err == nil {
		sub.CreatedAt = existing.CreatedAt
		sub.LastCheckedAt = existing.LastCheckedAt
	} else {
		sub.CreatedAt = sub.UpdatedAt
	}

	if err := h.store.UpsertSubscriber(ctx, sub); err != nil {
		return nil, huma.Error500InternalServerError("saving subscriber: " + err.Error())
	}
	return &SubscriberOutput{Body: subscriberView(sub)}, nil
}

// Watchlist returns a subscriber's watchlist.
func (h *SubscribersHandler) Watchlist(ctx context.Context, in *SubscriberIDInput) (*WatchlistOutput, error) {
	entries, err := h.store.ListWatchlistEntries(ctx, in.ID)
	if err != nil {
		return nil, storeError("watchlist "+in.ID, err)
	}
	resp := &WatchlistOutput{}
	resp.Body.Entries = entries
	if resp.Body.Entries == nil {
		resp.Body.Entries = []domain.WatchlistEntry{}
	}
	return resp, nil
}

// ReplaceWatchlist supersedes a subscriber's watchlist.
func (h *SubscribersHandler) ReplaceWatchlist(
	ctx context.Context,
	in *ReplaceWatchlistInput,
) (*WatchlistOutput, error) {
	if _, err := h.store.GetSubscriber(ctx, in.ID); err != nil {
		return nil, storeError("subscriber "+in.ID, err)
	}

	entries := make([]domain.WatchlistEntry, 0, len(in.Body.Entries))
	for _, item := range in.Body.Entries {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			return nil, huma.Error400BadRequest("watchlist titles must not be empty")
		}
		entries = append(entries, domain.WatchlistEntry{
			SubscriberID:   in.ID,
			CanonicalTitle: title,
			ReleaseYear:    item.Year,
		})
	}

	if err := h.store.ReplaceWatchlist(ctx, in.ID, entries); err != nil {
		return nil, huma.Error500InternalServerError("replacing watchlist: " + err.Error())
	}
	resp := &WatchlistOutput{}
	resp.Body.Entries = entries
	return resp, nil
}

// RegisterSubscriberRoutes registers subscriber endpoints with the Huma API.
func RegisterSubscriberRoutes(api huma.API, h *SubscribersHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-subscriber",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscribers/{id}",
		Summary:     "Get a subscriber",
		Tags:        []string{"subscribers"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "upsert-subscriber",
		Method:      http.MethodPut,
		Path:        "/api/v1/subscribers/{id}",
		Summary:     "Create or update a subscriber",
		Tags:        []string{"subscribers"},
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, h.Upsert)

	huma.Register(api, huma.Operation{
		OperationID: "get-watchlist",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscribers/{id}/watchlist",
		Summary:     "Get a subscriber's watchlist",
		Tags:        []string{"subscribers"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Watchlist)

	huma.Register(api, huma.Operation{
		OperationID: "replace-watchlist",
		Method:      http.MethodPut,
		Path:        "/api/v1/subscribers/{id}/watchlist",
		Summary:     "Replace a subscriber's watchlist",
		Description: "The submitted list supersedes the previous one wholesale.",
		Tags:        []string{"subscribers"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, h.ReplaceWatchlist)
}
