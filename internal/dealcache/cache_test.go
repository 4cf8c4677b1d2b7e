package dealcache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/internal/dealcache"
	"github.com/donaldgifford/film-deal-tracker/internal/salecal"
	"github.com/donaldgifford/film-deal-tracker/internal/store"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

var errSearch = errors.New("search backend down")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 4, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func offer(vendor, price string) domain.Offer {
	return domain.Offer{
		Label:       domain.LabelCriterion,
		EditionName: "House Blu-ray",
		Format:      domain.FormatBluRay,
		Price:       decimal.RequireFromString(price),
		Currency:    "USD",
		Vendor:      vendor,
		URL:         "https://example.com/" + vendor,
	}
}

var houseKey = domain.CacheKey{ResolvedTitle: "House", LabelFilter: "*"}

func TestGetOrRefresh_FreshHitIsIdempotent(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := dealcache.New(store.NewMemoryStore(), dealcache.WithClock(clk.Now), dealcache.WithLogger(quietLogger()))

	var calls atomic.Int32
	fn := func(context.Context) ([]domain.Offer, error) {
		calls.Add(1)
		return []domain.Offer{offer("amazon", "24.99")}, nil
	}

	first, err := c.GetOrRefresh(context.Background(), houseKey, fn)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheRefreshed, first.Status)
	assert.Equal(t, clk.Now().Add(dealcache.DefaultTTL), first.ValidUntil)

	clk.Advance(time.Hour)
	second, err := c.GetOrRefresh(context.Background(), houseKey, fn)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheHitFresh, second.Status)
	assert.Equal(t, first.Offers, second.Offers)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrRefresh_RefreshesAfterExpiry(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := dealcache.New(store.NewMemoryStore(),
		dealcache.WithClock(clk.Now),
		dealcache.WithDefaultTTL(time.Hour),
		dealcache.WithLogger(quietLogger()),
	)

	price := "24.99"
	fn := func(context.Context) ([]domain.Offer, error) {
		return []domain.Offer{offer("amazon", price)}, nil
	}

	_, err := c.GetOrRefresh(context.Background(), houseKey, fn)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	price = "19.99"
	res, err := c.GetOrRefresh(context.Background(), houseKey, fn)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheRefreshed, res.Status)
	require.Len(t, res.Offers, 1)
	assert.True(t, res.Offers[0].Price.Equal(decimal.RequireFromString("19.99")))
}

func TestGetOrRefresh_SaleWindowShortensValidity(t *testing.T) {
	t.Parallel()

	clk := newClock()
	now := clk.Now()
	cal := salecal.New(salecal.WithWindows(
		domain.SaleWindow{
			Name:             "flash sale",
			VendorScope:      []string{"barnes"},
			StartsAt:         now.Add(-time.Hour),
			EndsAt:           now.Add(time.Hour),
			CacheTTLOverride: 2 * time.Hour,
		},
		domain.SaleWindow{
			Name:             "site-wide",
			StartsAt:         now.Add(-time.Hour),
			EndsAt:           now.Add(time.Hour),
			CacheTTLOverride: 6 * time.Hour,
		},
	))

	tests := []struct {
		name   string
		offers []domain.Offer
		want   time.Duration
	}{
		{
			name:   "shortest vendor window wins",
			offers: []domain.Offer{offer("amazon", "30"), offer("Barnes & Noble", "28")},
			want:   2 * time.Hour,
		},
		{
			name:   "unscoped window applies to other vendors",
			offers: []domain.Offer{offer("amazon", "30")},
			want:   6 * time.Hour,
		},
		{
			name:   "no offers uses vendor-agnostic ttl",
			offers: nil,
			want:   6 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := dealcache.New(store.NewMemoryStore(),
				dealcache.WithClock(clk.Now),
				dealcache.WithTTLPolicy(cal),
				dealcache.WithLogger(quietLogger()),
			)
			res, err := c.GetOrRefresh(context.Background(), houseKey,
				func(context.Context) ([]domain.Offer, error) { return tt.offers, nil })
			require.NoError(t, err)
			assert.Equal(t, now.Add(tt.want), res.ValidUntil)
			assert.NotNil(t, res.Offers)
		})
	}
}

func TestGetOrRefresh_FailureWithoutEntryIsUnavailable(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	c := dealcache.New(s, dealcache.WithLogger(quietLogger()))

	res, err := c.GetOrRefresh(context.Background(), houseKey, func(context.Context) ([]domain.Offer, error) {
		return nil, errSearch
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CacheUnavailable, res.Status)
	assert.Empty(t, res.Offers)

	_, err = s.GetCacheEntry(context.Background(), houseKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetOrRefresh_FailureServesStale(t *testing.T) {
	t.Parallel()

	clk := newClock()
	s := store.NewMemoryStore()
	c := dealcache.New(s,
		dealcache.WithClock(clk.Now),
		dealcache.WithDefaultTTL(time.Hour),
		dealcache.WithLogger(quietLogger()),
	)

	first, err := c.GetOrRefresh(context.Background(), houseKey, func(context.Context) ([]domain.Offer, error) {
		return []domain.Offer{offer("amazon", "24.99")}, nil
	})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	res, err := c.GetOrRefresh(context.Background(), houseKey, func(context.Context) ([]domain.Offer, error) {
		return nil, errSearch
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CacheStaleServedAfterFailure, res.Status)
	assert.Equal(t, first.Offers, res.Offers)
	assert.Equal(t, first.ValidUntil, res.ValidUntil)

	// The stale entry is left as it was.
	stored, err := s.GetCacheEntry(context.Background(), houseKey)
	require.NoError(t, err)
	assert.Equal(t, first.FetchedAt, stored.FetchedAt)
}

func TestGetOrRefresh_CoalescesConcurrentRefreshes(t *testing.T) {
	t.Parallel()

	c := dealcache.New(store.NewMemoryStore(), dealcache.WithLogger(quietLogger()))

	release := make(chan struct{})
	var calls atomic.Int32
	fn := func(context.Context) ([]domain.Offer, error) {
		calls.Add(1)
		<-release
		return []domain.Offer{offer("amazon", "24.99")}, nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]*dealcache.Result, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrRefresh(context.Background(), houseKey, fn)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		require.Len(t, results[i].Offers, 1)
		assert.True(t, results[i].Offers[0].Price.Equal(decimal.RequireFromString("24.99")))
	}
}

func TestGetOrRefresh_CancelledWaiterDoesNotCancelRefresh(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	c := dealcache.New(s, dealcache.WithLogger(quietLogger()))

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	fn := func(ctx context.Context) ([]domain.Offer, error) {
		close(started)
		<-release
		done <- ctx.Err()
		return []domain.Offer{offer("amazon", "24.99")}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrRefresh(ctx, houseKey, fn)
		errCh <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool {
		_, err := s.GetCacheEntry(context.Background(), houseKey)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) GetCacheEntry(context.Context, domain.CacheKey) (*domain.CacheEntry, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) ClearCacheEntries(context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func TestGetOrRefresh_PersistenceFailure(t *testing.T) {
	t.Parallel()

	c := dealcache.New(failingStore{store.NewMemoryStore()}, dealcache.WithLogger(quietLogger()))

	var calls atomic.Int32
	_, err := c.GetOrRefresh(context.Background(), houseKey, func(context.Context) ([]domain.Offer, error) {
		calls.Add(1)
		return nil, nil
	})
	require.ErrorIs(t, err, dealcache.ErrPersistenceUnavailable)
	assert.Zero(t, calls.Load())

	_, err = c.Clear(context.Background())
	assert.ErrorIs(t, err, dealcache.ErrPersistenceUnavailable)
}

func TestSnapshotAndClear(t *testing.T) {
	t.Parallel()

	clk := newClock()
	c := dealcache.New(store.NewMemoryStore(),
		dealcache.WithClock(clk.Now),
		dealcache.WithDefaultTTL(time.Hour),
		dealcache.WithLogger(quietLogger()),
	)
	ctx := context.Background()

	old := domain.CacheKey{ResolvedTitle: "Hausu", LabelFilter: "criterion"}
	_, err := c.GetOrRefresh(ctx, old, func(context.Context) ([]domain.Offer, error) {
		return []domain.Offer{offer("amazon", "20"), offer("target", "21")}, nil
	})
	require.NoError(t, err)

	clk.Advance(90 * time.Minute)
	_, err = c.GetOrRefresh(ctx, houseKey, func(context.Context) ([]domain.Offer, error) {
		return nil, nil
	})
	require.NoError(t, err)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, old, snap[0].Key)
	assert.Equal(t, dealcache.EntryStale, snap[0].State)
	assert.Equal(t, 2, snap[0].OfferCount)
	assert.Equal(t, houseKey, snap[1].Key)
	assert.Equal(t, dealcache.EntryFresh, snap[1].State)
	assert.Zero(t, snap[1].OfferCount)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap, err = c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)
}
