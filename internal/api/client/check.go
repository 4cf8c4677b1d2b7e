package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/donaldgifford/film-deal-tracker/internal/dealcache"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

type checkRequest struct {
	SubscriberID string `json:"subscriber_id,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// CacheStatus is the deal cache summary returned by the API.
type CacheStatus struct {
	Entries []dealcache.EntryStatus `json:"entries"`
	Fresh   int                     `json:"fresh"`
	Stale   int                     `json:"stale"`
}

// RunCheck triggers a check and returns its report. An empty subscriberID
// checks every due subscriber.
func (c *Client) RunCheck(ctx context.Context, subscriberID string, force bool) (*domain.RunReport, error) {
	var report domain.RunReport
	req := checkRequest{SubscriberID: subscriberID, Force: force}
	if err := c.post(ctx, "/api/v1/check", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// LatestRun returns the most recent run report.
func (c *Client) LatestRun(ctx context.Context) (*domain.RunReport, error) {
	var report domain.RunReport
	if err := c.get(ctx, "/api/v1/runs/latest", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CacheStatus returns the deal cache entries and their freshness.
func (c *Client) CacheStatus(ctx context.Context) (*CacheStatus, error) {
	var status CacheStatus
	if err := c.get(ctx, "/api/v1/cache", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ClearCache removes every cached entry and returns how many were removed.
func (c *Client) ClearCache(ctx context.Context) (int, error) {
	var resp struct {
		Cleared int `json:"cleared"`
	}
	if err := c.del(ctx, "/api/v1/cache", &resp); err != nil {
		return 0, err
	}
	return resp.Cleared, nil
}

// ActiveSales returns the sale windows active at the given time. A zero
// time asks the server for its current time.
func (c *Client) ActiveSales(ctx context.Context, at time.Time) ([]domain.SaleWindow, error) {
	path := "/api/v1/sales/active"
	if !at.IsZero() {
		path += "?at=" + url.QueryEscape(at.Format(time.RFC3339))
	}
	var resp struct {
		Windows []domain.SaleWindow `json:"windows"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Windows, nil
}

// Resolve returns the aliases searched for a title.
func (c *Client) Resolve(ctx context.Context, title string, year int) ([]domain.Alias, error) {
	q := url.Values{}
	q.Set("title", title)
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	var resp struct {
		Aliases []domain.Alias `json:"aliases"`
	}
	if err := c.get(ctx, "/api/v1/resolve?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Aliases, nil
}
