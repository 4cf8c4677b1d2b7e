package extract

import (
	"sort"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Dedupe collapses duplicate offers. Offers with the same vendor and URL
// keep the most recent observation; offers with the same label, edition and
// vendor keep the lowest price. The result is ordered by price, then label,
// vendor and URL.
func Dedupe(offers []domain.Offer) []domain.Offer {
	type listingKey struct{ vendor, url string }
	byListing := make(map[listingKey]int, len(offers))
	latest := make([]domain.Offer, 0, len(offers))
	for _, o := range offers {
		k := listingKey{o.Vendor, o.URL}
		if i, ok := byListing[k]; ok {
			if o.ObservedAt.After(latest[i].ObservedAt) {
				latest[i] = o
			}
			continue
		}
		byListing[k] = len(latest)
		latest = append(latest, o)
	}

	type editionKey struct {
		label   domain.Label
		edition string
		vendor  string
	}
	byEdition := make(map[editionKey]int, len(latest))
	out := make([]domain.Offer, 0, len(latest))
	for _, o := range latest {
		k := editionKey{o.Label, o.EditionName, o.Vendor}
		if i, ok := byEdition[k]; ok {
			if o.Price.LessThan(out[i].Price) {
				out[i] = o
			}
			continue
		}
		byEdition[k] = len(out)
		out = append(out, o)
	}

	SortOffers(out)
	return out
}

// SortOffers orders offers by ascending price, then label, vendor and URL.
func SortOffers(offers []domain.Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c < 0
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if a.Vendor != b.Vendor {
			return a.Vendor < b.Vendor
		}
		return a.URL < b.URL
	})
}
