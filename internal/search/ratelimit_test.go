package search_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/internal/search"
)

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rate    float64
		burst   int
		daily   int64
		calls   int
		wantErr bool
	}{
		{name: "allows calls within rate", rate: 100, burst: 10, daily: 250, calls: 3},
		{name: "allows burst", rate: 100, burst: 5, daily: 250, calls: 5},
		{name: "rejects when daily limit reached", rate: 100, burst: 10, daily: 2, calls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rl := search.NewRateLimiter(tt.rate, tt.burst, tt.daily)

			var lastErr error
			for range tt.calls {
				if lastErr = rl.Wait(context.Background()); lastErr != nil {
					break
				}
			}

			if tt.wantErr {
				require.ErrorIs(t, lastErr, search.ErrDailyLimitReached)
				return
			}
			require.NoError(t, lastErr)
		})
	}
}

func TestRateLimiter_CountsAndRemaining(t *testing.T) {
	t.Parallel()

	rl := search.NewRateLimiter(100, 10, 3)
	assert.Equal(t, int64(0), rl.DailyCount())
	assert.Equal(t, int64(3), rl.Remaining())

	for range 3 {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.Equal(t, int64(3), rl.DailyCount())
	assert.Equal(t, int64(0), rl.Remaining())
}

func TestRateLimiter_WindowResets(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2026, 11, 27, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	rl := search.NewRateLimiter(100, 10, 1, search.WithRateLimiterNowFunc(clock))
	require.NoError(t, rl.Wait(context.Background()))
	require.ErrorIs(t, rl.Wait(context.Background()), search.ErrDailyLimitReached)
	assert.Equal(t, now.Add(24*time.Hour), rl.ResetAt())

	mu.Lock()
	now = now.Add(25 * time.Hour)
	mu.Unlock()

	require.NoError(t, rl.Wait(context.Background()))
	assert.Equal(t, int64(1), rl.DailyCount())
}

func TestRateLimiter_ContextCanceled(t *testing.T) {
	t.Parallel()

	rl := search.NewRateLimiter(0.001, 1, 100)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rl.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter wait")
}
