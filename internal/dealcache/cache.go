// Package dealcache caches extracted offers per (resolved title, label
// filter) with sale-aware validity and coalesced refreshes.
package dealcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
	"github.com/donaldgifford/film-deal-tracker/internal/store"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

const (
	// DefaultTTL is the validity of an entry when no sale window applies.
	DefaultTTL = 48 * time.Hour

	defaultRefreshTimeout = 2 * time.Minute
	minTTL                = time.Second
	tracerName            = "github.com/donaldgifford/film-deal-tracker/internal/dealcache"
)

// ErrPersistenceUnavailable is returned when the backing store cannot be
// read or written.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// ExtractFunc produces fresh offers for a key. Any error is treated as an
// extraction failure.
type ExtractFunc func(ctx context.Context) ([]domain.Offer, error)

// TTLPolicy computes how long offers from a vendor stay valid.
type TTLPolicy interface {
	EffectiveTTL(vendor string, at time.Time, defaultTTL time.Duration) time.Duration
}

// Result is the outcome of a lookup.
type Result struct {
	Offers     []domain.Offer
	Status     domain.CacheStatus
	FetchedAt  time.Time
	ValidUntil time.Time
}

// EntryState is the freshness of a stored entry at snapshot time.
type EntryState string

// EntryState constants.
const (
	EntryFresh EntryState = "fresh"
	EntryStale EntryState = "stale"
)

// EntryStatus describes one stored entry.
type EntryStatus struct {
	Key        domain.CacheKey `json:"key"`
	OfferCount int             `json:"offer_count"`
	FetchedAt  time.Time       `json:"fetched_at"`
	ValidUntil time.Time       `json:"valid_until"`
	State      EntryState      `json:"state"`
}

// Cache is the deal cache. It is safe for concurrent use.
type Cache struct {
	store          store.CacheStore
	ttl            TTLPolicy
	defaultTTL     time.Duration
	refreshTimeout time.Duration
	now            func() time.Time
	group          singleflight.Group
	log            *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTLPolicy sets the policy that shortens validity, typically a sale
// calendar.
func WithTTLPolicy(p TTLPolicy) Option {
	return func(c *Cache) {
		c.ttl = p
	}
}

// WithDefaultTTL sets the validity used when no sale window applies.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithRefreshTimeout bounds a single refresh, including all of its search
// calls.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.log = l
	}
}

// New creates a Cache over s.
func New(s store.CacheStore, opts ...Option) *Cache {
	c := &Cache{
		store:          s,
		defaultTTL:     DefaultTTL,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRefresh returns the offers for key, refreshing them through fn when
// the entry is missing or past its validity. Extraction failures never
// surface as errors: the last known offers are served as stale, or an empty
// result with status Unavailable when none exist. The returned error is
// ErrPersistenceUnavailable, or the context error when ctx ends while
// waiting on a refresh. A cancelled waiter does not cancel the refresh
// itself, which other callers may share.
func (c *Cache) GetOrRefresh(ctx context.Context, key domain.CacheKey, fn ExtractFunc) (*Result, error) {
	entry, err := c.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.IsFresh(c.now()) {
		return c.finish(resultFrom(entry, domain.CacheHitFresh)), nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), key, fn)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			metrics.CacheCoalescedTotal.Inc()
		}
		res, _ := r.Val.(*Result)
		return c.finish(res), nil
	}
}

func (c *Cache) refresh(ctx context.Context, key domain.CacheKey, fn ExtractFunc) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "dealcache.refresh")
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.resolved_title", key.ResolvedTitle),
		attribute.String("cache.label_filter", key.LabelFilter),
	)

	// Another flight may have refreshed the key since the caller looked.
	prev, err := c.load(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "loading entry")
		return nil, err
	}
	if prev != nil && prev.IsFresh(c.now()) {
		return resultFrom(prev, domain.CacheHitFresh), nil
	}

	extractCtx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	start := time.Now()
	offers, err := fn(extractCtx)
	metrics.CacheRefreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		if prev != nil {
			c.log.Warn("refresh failed, serving stale offers",
				"key", key.String(),
				"offers", len(prev.Offers),
				"error", err,
			)
			return resultFrom(prev, domain.CacheStaleServedAfterFailure), nil
		}
		c.log.Warn("refresh failed, no offers to serve",
			"key", key.String(),
			"error", err,
		)
		return &Result{Offers: []domain.Offer{}, Status: domain.CacheUnavailable}, nil
	}

	now := c.now()
	if offers == nil {
		offers = []domain.Offer{}
	}
	entry := &domain.CacheEntry{
		Key:        key,
		Offers:     offers,
		FetchedAt:  now,
		ValidUntil: now.Add(c.ttlFor(offers, now)),
	}
	if err := c.store.PutCacheEntry(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "writing entry")
		return nil, fmt.Errorf("writing cache entry %s: %w: %w", key, ErrPersistenceUnavailable, err)
	}

	span.SetAttributes(attribute.Int("cache.offers", len(offers)))
	c.log.Debug("cache refreshed",
		"key", key.String(),
		"offers", len(offers),
		"valid_until", entry.ValidUntil,
	)
	return resultFrom(entry, domain.CacheRefreshed), nil
}

// ttlFor is the shortest effective TTL across the vendors present. With no
// offers the vendor-agnostic TTL applies.
func (c *Cache) ttlFor(offers []domain.Offer, at time.Time) time.Duration {
	if c.ttl == nil {
		return c.defaultTTL
	}

	vendors := make([]string, 0, len(offers))
	for i := range offers {
		vendors = append(vendors, offers[i].Vendor)
	}
	if len(vendors) == 0 {
		vendors = append(vendors, "")
	}
	slices.Sort(vendors)
	vendors = slices.Compact(vendors)

	ttl := c.defaultTTL
	for i, v := range vendors {
		d := c.ttl.EffectiveTTL(v, at, c.defaultTTL)
		if i == 0 || d < ttl {
			ttl = d
		}
	}
	return max(ttl, minTTL)
}

func (c *Cache) load(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, error) {
	e, err := c.store.GetCacheEntry(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry %s: %w: %w", key, ErrPersistenceUnavailable, err)
	}
	return e, nil
}

// finish records the lookup and hands the caller its own copy of the offers.
func (c *Cache) finish(r *Result) *Result {
	metrics.CacheLookupsTotal.WithLabelValues(string(r.Status)).Inc()
	out := *r
	out.Offers = slices.Clone(r.Offers)
	if out.Offers == nil {
		out.Offers = []domain.Offer{}
	}
	return &out
}

// Snapshot lists every stored entry with its freshness.
func (c *Cache) Snapshot(ctx context.Context) ([]EntryStatus, error) {
	entries, err := c.store.ListCacheEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w: %w", ErrPersistenceUnavailable, err)
	}

	now := c.now()
	out := make([]EntryStatus, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		state := EntryStale
		if e.IsFresh(now) {
			state = EntryFresh
		}
		out = append(out, EntryStatus{
			Key:        e.Key,
			OfferCount: len(e.Offers),
			FetchedAt:  e.FetchedAt,
			ValidUntil: e.ValidUntil,
			State:      state,
		})
	}
	return out, nil
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	n, err := c.store.ClearCacheEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w: %w", ErrPersistenceUnavailable, err)
	}
	c.log.Info("cache cleared", "entries", n)
	return n, nil
}

func resultFrom(e *domain.CacheEntry, status domain.CacheStatus) *Result {
	return &Result{
		Offers:     e.Offers,
		Status:     status,
		FetchedAt:  e.FetchedAt,
		ValidUntil: e.ValidUntil,
	}
}
