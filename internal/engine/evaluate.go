package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donaldgifford/film-deal-tracker/pkg/extract"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Evaluation is the outcome of evaluating one watchlist entry's offers.
// Staged holds the notification states to commit once Deals are delivered.
type Evaluation struct {
	Deals  []domain.Deal
	Staged []domain.NotificationState
}

// Evaluate selects the offers that are new deals for the entry's
// subscriber: at or under the ceiling, in the ceiling's currency, and either
// never notified or strictly cheaper than the lowest price already notified.
// Offers sharing a notification key collapse to the cheapest one first.
func Evaluate(
	entry domain.WatchlistEntry,
	offers []domain.Offer,
	ceiling decimal.Decimal,
	currency string,
	states map[domain.NotificationKey]domain.NotificationState,
	now time.Time,
) Evaluation {
	if currency == "" {
		currency = extract.DefaultCurrency
	}

	best := make(map[domain.NotificationKey]domain.Offer)
	for i := range offers {
		o := offers[i]
		if !strings.EqualFold(o.Currency, currency) || o.Price.GreaterThan(ceiling) {
			continue
		}
		key := notificationKey(&entry, &o)
		if cur, ok := best[key]; !ok || preferOffer(&o, &cur) {
			best[key] = o
		}
	}

	var ev Evaluation
	for key, o := range best {
		if prev, ok := states[key]; ok && !o.Price.LessThan(prev.LowestPriceNotified) {
			continue
		}
		ev.Deals = append(ev.Deals, domain.Deal{Entry: entry, Offer: o})
		ev.Staged = append(ev.Staged, domain.NotificationState{
			Key:                 key,
			LowestPriceNotified: o.Price,
			LastNotifiedAt:      now,
		})
	}

	ev.order()
	return ev
}

// mergeEvaluations combines one subscriber's per-entry evaluations into a
// single dispatch batch. Deals sharing a notification key, as happens when a
// title appears twice on a watchlist, collapse to the preferred offer.
func mergeEvaluations(evs []Evaluation) Evaluation {
	type pick struct {
		deal  domain.Deal
		state domain.NotificationState
	}
	picks := make(map[domain.NotificationKey]pick)
	for _, ev := range evs {
		states := make(map[domain.NotificationKey]domain.NotificationState, len(ev.Staged))
		for _, st := range ev.Staged {
			states[st.Key] = st
		}
		for _, d := range ev.Deals {
			key := notificationKey(&d.Entry, &d.Offer)
			if cur, ok := picks[key]; ok && !preferOffer(&d.Offer, &cur.deal.Offer) {
				continue
			}
			picks[key] = pick{deal: d, state: states[key]}
		}
	}

	var out Evaluation
	for _, p := range picks {
		out.Deals = append(out.Deals, p.deal)
		out.Staged = append(out.Staged, p.state)
	}
	out.order()
	return out
}

// order sorts deals by price, label, edition and vendor, and staged states
// by key.
func (ev *Evaluation) order() {
	sort.Slice(ev.Deals, func(i, j int) bool {
		a, b := &ev.Deals[i], &ev.Deals[j]
		if dealLess(&a.Offer, &b.Offer) {
			return true
		}
		if dealLess(&b.Offer, &a.Offer) {
			return false
		}
		return a.Entry.CanonicalTitle < b.Entry.CanonicalTitle
	})
	sort.Slice(ev.Staged, func(i, j int) bool {
		a, b := ev.Staged[i].Key, ev.Staged[j].Key
		if a.CanonicalTitle != b.CanonicalTitle {
			return a.CanonicalTitle < b.CanonicalTitle
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.EditionName < b.EditionName
	})
}

func notificationKey(entry *domain.WatchlistEntry, o *domain.Offer) domain.NotificationKey {
	return domain.NotificationKey{
		SubscriberID:   entry.SubscriberID,
		CanonicalTitle: entry.CanonicalTitle,
		Label:          o.Label,
		EditionName:    o.EditionName,
	}
}

// preferOffer reports whether a beats b for the same notification key:
// lower price, then higher alias confidence, then vendor name.
func preferOffer(a, b *domain.Offer) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	if a.AliasConfidence != b.AliasConfidence {
		return a.AliasConfidence > b.AliasConfidence
	}
	return a.Vendor < b.Vendor
}

func dealLess(a, b *domain.Offer) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	if an, bn := a.Label.DisplayName(), b.Label.DisplayName(); an != bn {
		return an < bn
	}
	if a.EditionName != b.EditionName {
		return a.EditionName < b.EditionName
	}
	return a.Vendor < b.Vendor
}
