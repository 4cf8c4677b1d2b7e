package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/film-deal-tracker/pkg/logger"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func TestNoOpNotifier_Dispatch(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(logger.Discard())
	err := n.Dispatch(context.Background(), "sub-1", []domain.Deal{
		testDeal(domain.LabelCriterion, "24.99"),
		testDeal(domain.LabelArrow, "19.99"),
	})
	require.NoError(t, err)
}

func TestNoOpNotifier_DispatchEmpty(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(logger.Discard())
	require.NoError(t, n.Dispatch(context.Background(), "sub-1", nil))
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Dispatch(context.Context, string, []domain.Deal) error {
	s.calls++
	return s.err
}

func TestFanout_Dispatch(t *testing.T) {
	t.Parallel()

	ok := &stubNotifier{}
	bad := &stubNotifier{err: errors.New("webhook gone")}

	f := NewFanout(Sink{Name: "discord", Notifier: ok}, Sink{Name: "telegram", Notifier: bad})
	err := f.Dispatch(context.Background(), "sub-1", []domain.Deal{testDeal(domain.LabelArrow, "20")})

	require.ErrorIs(t, err, ErrDispatchFailed)
	assert.Contains(t, err.Error(), "telegram: webhook gone")
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)

	require.NoError(t, f.Dispatch(context.Background(), "sub-1", nil))
	assert.Equal(t, 1, ok.calls)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		currency string
		want     string
	}{
		{currency: "USD", want: "$24.50"},
		{currency: "GBP", want: "£24.50"},
		{currency: "EUR", want: "€24.50"},
		{currency: "CAD", want: "CAD 24.50"},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			t.Parallel()
			d := testDeal(domain.LabelCriterion, "24.5")
			d.Offer.Currency = tt.currency
			assert.Equal(t, tt.want, FormatPrice(&d.Offer))
		})
	}
}

// compile-time interface checks.
var (
	_ Notifier = (*NoOpNotifier)(nil)
	_ Notifier = (*DiscordNotifier)(nil)
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*Fanout)(nil)
)
