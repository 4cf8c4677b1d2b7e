package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// MemoryStore implements Store in process memory. Data does not survive a
// restart; it backs development runs and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	cache         map[domain.CacheKey]domain.CacheEntry
	notifications map[domain.NotificationKey]domain.NotificationState
	subscribers   map[string]domain.Subscriber
	watchlists    map[string][]domain.WatchlistEntry
	runs          []domain.RunReport
	now           func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:         make(map[domain.CacheKey]domain.CacheEntry),
		notifications: make(map[domain.NotificationKey]domain.NotificationState),
		subscribers:   make(map[string]domain.Subscriber),
		watchlists:    make(map[string][]domain.WatchlistEntry),
		now:           time.Now,
	}
}

// Migrate is a no-op.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() {}

// GetCacheEntry returns the entry for key or ErrNotFound.
func (s *MemoryStore) GetCacheEntry(_ context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.cache[key]
	if !ok {
		return nil, ErrNotFound
	}
	e.Offers = slices.Clone(e.Offers)
	return &e, nil
}

// PutCacheEntry replaces the entry for e.Key.
func (s *MemoryStore) PutCacheEntry(_ context.Context, e *domain.CacheEntry) error {
	if !e.ValidUntil.After(e.FetchedAt) {
		return fmt.Errorf("cache entry %s: valid_until must be after fetched_at", e.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := *e
	c.Offers = slices.Clone(e.Offers)
	s.cache[e.Key] = c
	return nil
}

// ListCacheEntries returns all entries ordered by key.
func (s *MemoryStore) ListCacheEntries(context.Context) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CacheEntry, 0, len(s.cache))
	for _, e := range s.cache {
		e.Offers = slices.Clone(e.Offers)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out, nil
}

// ClearCacheEntries removes every entry and returns how many were removed.
func (s *MemoryStore) ClearCacheEntries(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.cache)
	s.cache = make(map[domain.CacheKey]domain.CacheEntry)
	return n, nil
}

// ListNotificationStates returns the states for one subscriber and title.
func (s *MemoryStore) ListNotificationStates(
	_ context.Context,
	subscriberID string,
	canonicalTitle string,
) ([]domain.NotificationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.NotificationState
	for k, st := range s.notifications {
		if k.SubscriberID == subscriberID && k.CanonicalTitle == canonicalTitle {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.EditionName < b.EditionName
	})
	return out, nil
}

// PutNotificationStates upserts all states.
func (s *MemoryStore) PutNotificationStates(_ context.Context, states []domain.NotificationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range states {
		s.notifications[st.Key] = st
	}
	return nil
}

// UpsertSubscriber inserts or replaces a subscriber.
func (s *MemoryStore) UpsertSubscriber(_ context.Context, sub *domain.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if prev, ok := s.subscribers[sub.ID]; ok {
		sub.CreatedAt = prev.CreatedAt
		if sub.LastCheckedAt == nil {
			sub.LastCheckedAt = prev.LastCheckedAt
		}
	} else {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	c := *sub
	c.Labels = slices.Clone(sub.Labels)
	s.subscribers[sub.ID] = c
	return nil
}

// GetSubscriber returns a subscriber or ErrNotFound.
func (s *MemoryStore) GetSubscriber(_ context.Context, id string) (*domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return nil, ErrNotFound
	}
	sub.Labels = slices.Clone(sub.Labels)
	return &sub, nil
}

// ListActiveSubscribers returns active subscribers ordered by ID.
func (s *MemoryStore) ListActiveSubscribers(context.Context) ([]domain.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Subscriber
	for _, sub := range s.subscribers {
		if sub.Active {
			sub.Labels = slices.Clone(sub.Labels)
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateSubscriberLastChecked records when a subscriber was last checked.
func (s *MemoryStore) UpdateSubscriberLastChecked(_ context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscribers[id]
	if !ok {
		return ErrNotFound
	}
	t = t.UTC()
	sub.LastCheckedAt = &t
	s.subscribers[id] = sub
	return nil
}

// ListWatchlistEntries returns a subscriber's watchlist in sync order.
func (s *MemoryStore) ListWatchlistEntries(_ context.Context, subscriberID string) ([]domain.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.watchlists[subscriberID]), nil
}

// ReplaceWatchlist supersedes a subscriber's watchlist.
func (s *MemoryStore) ReplaceWatchlist(
	_ context.Context,
	subscriberID string,
	entries []domain.WatchlistEntry,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries = UniqueEntries(entries)
	out := make([]domain.WatchlistEntry, 0, len(entries))
	for _, e := range entries {
		e.SubscriberID = subscriberID
		out = append(out, e)
	}
	s.watchlists[subscriberID] = out
	return nil
}

// SaveRunReport stores a run report.
func (s *MemoryStore) SaveRunReport(_ context.Context, r *domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, *r)
	return nil
}

// LatestRunReport returns the most recently started run or ErrNotFound.
func (s *MemoryStore) LatestRunReport(context.Context) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return nil, ErrNotFound
	}
	latest := s.runs[0]
	for _, r := range s.runs[1:] {
		if !r.StartedAt.Before(latest.StartedAt) {
			latest = r
		}
	}
	return &latest, nil
}
