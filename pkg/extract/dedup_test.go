package extract

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func offer(label domain.Label, edition, vendor, url, price string, observed time.Time) domain.Offer {
	return domain.Offer{
		Label:       label,
		EditionName: edition,
		Price:       decimal.RequireFromString(price),
		Currency:    "USD",
		Vendor:      vendor,
		URL:         url,
		ObservedAt:  observed,
	}
}

func TestDedupe_SameListingKeepsLatest(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	got := Dedupe([]domain.Offer{
		offer(domain.LabelCriterion, "House", "Criterion", "https://c/house", "30.00", t0),
		offer(domain.LabelCriterion, "House", "Criterion", "https://c/house", "25.00", t0.Add(time.Minute)),
	})

	require.Len(t, got, 1)
	assert.Equal(t, "25", got[0].Price.String())
	assert.Equal(t, t0.Add(time.Minute), got[0].ObservedAt)
}

func TestDedupe_SameEditionAtVendorKeepsLowest(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	got := Dedupe([]domain.Offer{
		offer(domain.LabelArrow, "Audition LE", "Arrow", "https://a/1", "40.00", t0),
		offer(domain.LabelArrow, "Audition LE", "Arrow", "https://a/2", "35.00", t0),
		offer(domain.LabelArrow, "Audition LE", "Amazon", "https://z/1", "38.00", t0),
	})

	require.Len(t, got, 2)
	assert.Equal(t, "35", got[0].Price.String())
	assert.Equal(t, "Arrow", got[0].Vendor)
	assert.Equal(t, "38", got[1].Price.String())
}

func TestSortOffers(t *testing.T) {
	t.Parallel()

	t0 := time.Now()
	offers := []domain.Offer{
		offer(domain.LabelKinoLorber, "Cure", "B", "u3", "20.00", t0),
		offer(domain.LabelArrow, "Cure", "A", "u2", "20.00", t0),
		offer(domain.LabelCriterion, "Cure", "A", "u1", "15.00", t0),
	}
	SortOffers(offers)

	assert.Equal(t, "u1", offers[0].URL)
	assert.Equal(t, "u2", offers[1].URL)
	assert.Equal(t, "u3", offers[2].URL)
}
