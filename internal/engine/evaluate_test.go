package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

var evalNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testEntry() domain.WatchlistEntry {
	return domain.WatchlistEntry{SubscriberID: "sub-1", CanonicalTitle: "House", ReleaseYear: 1977}
}

func testOffer(label domain.Label, edition, vendor, price string) domain.Offer {
	return domain.Offer{
		Label:           label,
		EditionName:     edition,
		Format:          domain.FormatBluRay,
		Price:           decimal.RequireFromString(price),
		Currency:        "USD",
		Vendor:          vendor,
		URL:             "https://example.com/" + vendor,
		AliasConfidence: 1,
	}
}

func dollars(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dealPrices(deals []domain.Deal) []string {
	out := make([]string, 0, len(deals))
	for i := range deals {
		out = append(out, deals[i].Offer.Price.StringFixed(2))
	}
	return out
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	criterionKey := domain.NotificationKey{
		SubscriberID:   "sub-1",
		CanonicalTitle: "House",
		Label:          domain.LabelCriterion,
		EditionName:    "House",
	}

	tests := []struct {
		name       string
		offers     []domain.Offer
		ceiling    string
		currency   string
		states     map[domain.NotificationKey]domain.NotificationState
		wantPrices []string
		wantVendor []string
	}{
		{
			name: "duplicate edition under ceiling collapses to one deal",
			offers: []domain.Offer{
				testOffer(domain.LabelCriterion, "House", "Barnes & Noble", "28.00"),
				testOffer(domain.LabelCriterion, "House", "Amazon", "28.00"),
				testOffer(domain.LabelArrow, "House Limited", "Arrow Store", "35.00"),
			},
			ceiling:    "30",
			wantPrices: []string{"28.00"},
			wantVendor: []string{"Amazon"},
		},
		{
			name: "price equal to ceiling is a deal",
			offers: []domain.Offer{
				testOffer(domain.LabelCriterion, "House", "Amazon", "30.00"),
			},
			ceiling:    "30",
			wantPrices: []string{"30.00"},
			wantVendor: []string{"Amazon"},
		},
		{
			name: "other currencies are skipped",
			offers: []domain.Offer{
				testOffer(domain.LabelCriterion, "House", "Amazon", "20.00"),
				func() domain.Offer {
					o := testOffer(domain.LabelArrow, "House", "Zavvi", "10.00")
					o.Currency = "GBP"
					return o
				}(),
			},
			ceiling:    "30",
			wantPrices: []string{"20.00"},
			wantVendor: []string{"Amazon"},
		},
		{
			name: "explicit currency matches case-insensitively",
			offers: []domain.Offer{
				func() domain.Offer {
					o := testOffer(domain.LabelArrow, "House", "Zavvi", "10.00")
					o.Currency = "gbp"
					return o
				}(),
			},
			ceiling:    "30",
			currency:   "GBP",
			wantPrices: []string{"10.00"},
			wantVendor: []string{"Zavvi"},
		},
		{
			name: "equal to lowest notified does not re-emit",
			offers: []domain.Offer{
				testOffer(domain.LabelCriterion, "House", "Amazon", "24.00"),
			},
			ceiling: "30",
			states: map[domain.NotificationKey]domain.NotificationState{
				criterionKey: {Key: criterionKey, LowestPriceNotified: dollars("24.00")},
			},
		},
		{
			name: "cheaper than lowest notified re-emits",
			offers: []domain.Offer{
				testOffer(domain.LabelCriterion, "House", "Amazon", "23.99"),
			},
			ceiling: "30",
			states: map[domain.NotificationKey]domain.NotificationState{
				criterionKey: {Key: criterionKey, LowestPriceNotified: dollars("24.00")},
			},
			wantPrices: []string{"23.99"},
			wantVendor: []string{"Amazon"},
		},
		{
			name: "ties prefer higher alias confidence",
			offers: []domain.Offer{
				func() domain.Offer {
					o := testOffer(domain.LabelCriterion, "House", "Amazon", "20.00")
					o.AliasConfidence = 0.6
					return o
				}(),
				testOffer(domain.LabelCriterion, "House", "Criterion Store", "20.00"),
			},
			ceiling:    "30",
			wantPrices: []string{"20.00"},
			wantVendor: []string{"Criterion Store"},
		},
		{
			name: "ordered by price then label name",
			offers: []domain.Offer{
				testOffer(domain.LabelVinegarSyndrome, "House", "VS", "19.99"),
				testOffer(domain.LabelArrow, "House", "Arrow Store", "19.99"),
				testOffer(domain.LabelCriterion, "House", "Amazon", "14.99"),
			},
			ceiling:    "30",
			wantPrices: []string{"14.99", "19.99", "19.99"},
			wantVendor: []string{"Amazon", "Arrow Store", "VS"},
		},
		{
			name:    "no offers",
			ceiling: "30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ev := Evaluate(testEntry(), tt.offers, dollars(tt.ceiling), tt.currency, tt.states, evalNow)

			require.Len(t, ev.Deals, len(tt.wantPrices))
			require.Len(t, ev.Staged, len(tt.wantPrices))
			if len(tt.wantPrices) == 0 {
				return
			}
			assert.Equal(t, tt.wantPrices, dealPrices(ev.Deals))
			vendors := make([]string, 0, len(ev.Deals))
			for i := range ev.Deals {
				vendors = append(vendors, ev.Deals[i].Offer.Vendor)
			}
			assert.Equal(t, tt.wantVendor, vendors)
			for _, st := range ev.Staged {
				assert.Equal(t, evalNow, st.LastNotifiedAt)
				assert.Equal(t, "sub-1", st.Key.SubscriberID)
			}
		})
	}
}

func TestEvaluate_MonotonicNotification(t *testing.T) {
	t.Parallel()

	states := make(map[domain.NotificationKey]domain.NotificationState)
	var emitted []string

	for i, price := range []string{"15", "12", "12", "13", "9"} {
		offers := []domain.Offer{testOffer(domain.LabelCriterion, "House", "Amazon", price)}
		ev := Evaluate(testEntry(), offers, dollars("30"), "USD", states, evalNow.Add(time.Duration(i)*time.Hour))
		for _, st := range ev.Staged {
			states[st.Key] = st
		}
		emitted = append(emitted, dealPrices(ev.Deals)...)
	}

	assert.Equal(t, []string{"15.00", "12.00", "9.00"}, emitted)
}

func TestEvaluate_StagedMatchesDeals(t *testing.T) {
	t.Parallel()

	offers := []domain.Offer{
		testOffer(domain.LabelArrow, "House Limited", "Arrow Store", "25.00"),
		testOffer(domain.LabelArrow, "House Limited", "Amazon", "22.50"),
	}
	ev := Evaluate(testEntry(), offers, dollars("30"), "", nil, evalNow)

	require.Len(t, ev.Staged, 1)
	assert.True(t, dollars("22.50").Equal(ev.Staged[0].LowestPriceNotified))
	assert.Equal(t, domain.LabelArrow, ev.Staged[0].Key.Label)
	assert.Equal(t, "House Limited", ev.Staged[0].Key.EditionName)
	assert.Equal(t, "House", ev.Deals[0].Entry.CanonicalTitle)
}

func TestMergeEvaluations(t *testing.T) {
	t.Parallel()

	entry := testEntry()
	first := Evaluate(entry, []domain.Offer{
		testOffer(domain.LabelCriterion, "Suspiria", "Criterion", "20.00"),
		testOffer(domain.LabelArrow, "Suspiria", "Arrow Store", "25.00"),
	}, dollars("30"), "USD", nil, evalNow)
	second := Evaluate(entry, []domain.Offer{
		testOffer(domain.LabelCriterion, "Suspiria", "Amazon", "18.00"),
	}, dollars("30"), "USD", nil, evalNow)

	merged := mergeEvaluations([]Evaluation{first, second})

	require.Len(t, merged.Deals, 2)
	assert.Equal(t, []string{"18.00", "25.00"}, dealPrices(merged.Deals))
	assert.Equal(t, "Amazon", merged.Deals[0].Offer.Vendor)

	require.Len(t, merged.Staged, 2)
	for _, st := range merged.Staged {
		if st.Key.Label == domain.LabelCriterion {
			assert.True(t, dollars("18").Equal(st.LowestPriceNotified))
		}
	}
}
