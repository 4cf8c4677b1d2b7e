// Package store defines the datastore abstraction for film-deal-tracker.
// All business logic depends on the Store interface (or one of its narrower
// parts), never on concrete implementations. This enables mock-based
// testing without a running database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/donaldgifford/film-deal-tracker/pkg/resolve"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CacheStore persists deal cache entries.
type CacheStore interface {
	GetCacheEntry(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error)
	PutCacheEntry(ctx context.Context, e *domain.CacheEntry) error
	ListCacheEntries(ctx context.Context) ([]domain.CacheEntry, error)
	ClearCacheEntries(ctx context.Context) (int, error)
}

// NotificationStore persists what each subscriber has been notified about.
type NotificationStore interface {
	ListNotificationStates(
		ctx context.Context,
		subscriberID string,
		canonicalTitle string,
	) ([]domain.NotificationState, error)
	// PutNotificationStates upserts all states atomically.
	PutNotificationStates(ctx context.Context, states []domain.NotificationState) error
}

// SubscriberStore persists subscriber preferences.
type SubscriberStore interface {
	UpsertSubscriber(ctx context.Context, s *domain.Subscriber) error
	GetSubscriber(ctx context.Context, id string) (*domain.Subscriber, error)
	ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
	UpdateSubscriberLastChecked(ctx context.Context, id string, t time.Time) error
}

// WatchlistStore persists synchronized watchlists.
type WatchlistStore interface {
	ListWatchlistEntries(ctx context.Context, subscriberID string) ([]domain.WatchlistEntry, error)
	// ReplaceWatchlist supersedes a subscriber's watchlist wholesale.
	ReplaceWatchlist(ctx context.Context, subscriberID string, entries []domain.WatchlistEntry) error
}

// RunStore persists check run reports.
type RunStore interface {
	SaveRunReport(ctx context.Context, r *domain.RunReport) error
	LatestRunReport(ctx context.Context) (*domain.RunReport, error)
}

// Store defines all data access operations for film-deal-tracker.
type Store interface {
	CacheStore
	NotificationStore
	SubscriberStore
	WatchlistStore
	RunStore

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
	Close()
}

// UniqueEntries drops watchlist entries that repeat an earlier title and
// release year. Titles compare by their resolver key, so case and
// diacritics do not make two entries distinct. Order is kept.
func UniqueEntries(entries []domain.WatchlistEntry) []domain.WatchlistEntry {
	type entryKey struct {
		title string
		year  int
	}
	seen := make(map[entryKey]struct{}, len(entries))
	out := make([]domain.WatchlistEntry, 0, len(entries))
	for _, e := range entries {
		k := entryKey{title: resolve.Key(e.CanonicalTitle), year: e.ReleaseYear}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
