package client

import (
	"context"
	"net/url"
	"time"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Subscriber is a subscriber as returned by the API.
type Subscriber struct {
	ID             string     `json:"id"`
	MaxPrice       string     `json:"max_price"`
	Currency       string     `json:"currency"`
	Labels         []string   `json:"labels,omitempty"`
	CheckFrequency string     `json:"check_frequency"`
	Active         bool       `json:"active"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
}

// SubscriberRequest holds the preferences accepted when upserting a
// subscriber.
type SubscriberRequest struct {
	MaxPrice       string   `json:"max_price"`
	Currency       string   `json:"currency,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	CheckFrequency string   `json:"check_frequency,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

// WatchlistItem is one film submitted in a watchlist replacement.
type WatchlistItem struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

type watchlistBody struct {
	Entries []domain.WatchlistEntry `json:"entries"`
}

// GetSubscriber returns a subscriber by ID.
func (c *Client) GetSubscriber(ctx context.Context, id string) (*Subscriber, error) {
	var s Subscriber
	if err := c.get(ctx, "/api/v1/subscribers/"+url.PathEscape(id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSubscriber creates or updates a subscriber.
func (c *Client) UpsertSubscriber(ctx context.Context, id string, req *SubscriberRequest) (*Subscriber, error) {
	var s Subscriber
	if err := c.put(ctx, "/api/v1/subscribers/"+url.PathEscape(id), req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Watchlist returns a subscriber's watchlist.
func (c *Client) Watchlist(ctx context.Context, id string) ([]domain.WatchlistEntry, error) {
	var resp watchlistBody
	if err := c.get(ctx, "/api/v1/subscribers/"+url.PathEscape(id)+"/watchlist", &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// ReplaceWatchlist supersedes a subscriber's watchlist.
func (c *Client) ReplaceWatchlist(
	ctx context.Context,
	id string,
	items []WatchlistItem,
) ([]domain.WatchlistEntry, error) {
	body := struct {
		Entries []WatchlistItem `json:"entries"`
	}{Entries: items}
	if body.Entries == nil {
		body.Entries = []WatchlistItem{}
	}

	var resp watchlistBody
	if err := c.put(ctx, "/api/v1/subscribers/"+url.PathEscape(id)+"/watchlist", body, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}
