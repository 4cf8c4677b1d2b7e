// Package domain defines the core business types for the film deal tracker.
package domain

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Label identifies a boutique physical-media publisher.
type Label string

// Label constants.
const (
	LabelCriterion       Label = "criterion"
	LabelArrow           Label = "arrow"
	LabelVinegarSyndrome Label = "vinegar_syndrome"
	LabelKinoLorber      Label = "kino_lorber"
	LabelShoutFactory    Label = "shout_factory"
	LabelOther           Label = "other"
)

// Labels lists the boutique labels in display order. LabelOther is excluded.
var Labels = []Label{
	LabelCriterion,
	LabelArrow,
	LabelVinegarSyndrome,
	LabelKinoLorber,
	LabelShoutFactory,
}

// DisplayName returns the human-readable label name.
func (l Label) DisplayName() string {
	switch l {
	case LabelCriterion:
		return "Criterion"
	case LabelArrow:
		return "Arrow"
	case LabelVinegarSyndrome:
		return "Vinegar Syndrome"
	case LabelKinoLorber:
		return "Kino Lorber"
	case LabelShoutFactory:
		return "Shout Factory"
	default:
		return "Other"
	}
}

// ParseLabel converts a string into a Label. Unknown values map to LabelOther
// and ok is false.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Labels, l) {
		return l, true
	}
	return LabelOther, l == LabelOther
}

// Format is the physical media format of an edition.
type Format string

// Format constants.
const (
	Format4K      Format = "4k_uhd"
	FormatBluRay  Format = "blu_ray"
	FormatDVD     Format = "dvd"
	FormatUnknown Format = "unknown"
)

// WatchlistEntry is a single film on a subscriber's watchlist.
type WatchlistEntry struct {
	SubscriberID   string `json:"subscriber_id"`
	CanonicalTitle string `json:"canonical_title"`
	ReleaseYear    int    `json:"release_year,omitempty"`
}

// Alias is an alternate title under which a film may be listed.
type Alias struct {
	SourceTitle   string  `json:"source_title"`
	ResolvedTitle string  `json:"resolved_title"`
	Confidence    float64 `json:"confidence"`
}

// Offer is a single purchasable edition observed at a vendor.
type Offer struct {
	Label           Label           `json:"label"`
	EditionName     string          `json:"edition_name"`
	Format          Format          `json:"format"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	Vendor          string          `json:"vendor"`
	URL             string          `json:"url"`
	ObservedAt      time.Time       `json:"observed_at"`
	AliasConfidence float64         `json:"alias_confidence"`
}

// LabelFilter restricts results to a set of labels. An empty filter
// matches every label, including LabelOther. A non-empty filter never
// matches LabelOther.
type LabelFilter []Label

// Matches reports whether l passes the filter.
func (f LabelFilter) Matches(l Label) bool {
	if len(f) == 0 {
		return true
	}
	return l != LabelOther && slices.Contains(f, l)
}

// String returns the canonical serialization: sorted comma-joined labels,
// or "*" for the empty filter.
func (f LabelFilter) String() string {
	if len(f) == 0 {
		return "*"
	}
	parts := make([]string, 0, len(f))
	for _, l := range f {
		if !slices.Contains(parts, string(l)) {
			parts = append(parts, string(l))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// ParseLabelFilter parses the serialization produced by LabelFilter.String.
func ParseLabelFilter(s string) LabelFilter {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return nil
	}
	var f LabelFilter
	for _, part := range strings.Split(s, ",") {
		if l, ok := ParseLabel(part); ok && l != LabelOther {
			f = append(f, l)
		}
	}
	return f
}

// CacheKey identifies a cached search result.
type CacheKey struct {
	ResolvedTitle string `json:"resolved_title"`
	LabelFilter   string `json:"label_filter"`
}

// String returns "title|filter".
func (k CacheKey) String() string {
	return k.ResolvedTitle + "|" + k.LabelFilter
}

// CacheEntry is a stored set of offers for a CacheKey. Entries are replaced
// wholesale on refresh and ValidUntil is always after FetchedAt.
type CacheEntry struct {
	Key        CacheKey  `json:"key"`
	Offers     []Offer   `json:"offers"`
	FetchedAt  time.Time `json:"fetched_at"`
	ValidUntil time.Time `json:"valid_until"`
}

// IsFresh reports whether the entry may be served at the given time.
func (e *CacheEntry) IsFresh(at time.Time) bool {
	return at.Before(e.ValidUntil)
}

// CacheStatus describes how a cache lookup was satisfied.
type CacheStatus string

// CacheStatus constants.
const (
	CacheRefreshed               CacheStatus = "refreshed"
	CacheHitFresh                CacheStatus = "hit_fresh"
	CacheStaleServedAfterFailure CacheStatus = "stale_served_after_failure"
	CacheUnavailable             CacheStatus = "unavailable"
)

// NotificationKey identifies what a subscriber has already been told about.
type NotificationKey struct {
	SubscriberID   string `json:"subscriber_id"`
	CanonicalTitle string `json:"canonical_title"`
	Label          Label  `json:"label"`
	EditionName    string `json:"edition_name"`
}

// NotificationState records the lowest price already notified for a key.
type NotificationState struct {
	Key                 NotificationKey `json:"key"`
	LowestPriceNotified decimal.Decimal `json:"lowest_price_notified"`
	LastNotifiedAt      time.Time       `json:"last_notified_at"`
}

// Deal is an offer that passed the ceiling and novelty checks.
type Deal struct {
	Entry WatchlistEntry `json:"entry"`
	Offer Offer          `json:"offer"`
}

// CheckFrequency controls how often a subscriber's watchlist is checked by
// scheduled runs.
type CheckFrequency string

// CheckFrequency constants.
const (
	FrequencyDaily   CheckFrequency = "daily"
	FrequencyWeekly  CheckFrequency = "weekly"
	FrequencyMonthly CheckFrequency = "monthly"
)

// ParseCheckFrequency converts a string into a CheckFrequency. An empty
// string is daily.
func ParseCheckFrequency(s string) (CheckFrequency, bool) {
	switch f := CheckFrequency(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FrequencyDaily, true
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, true
	default:
		return "", false
	}
}

// Interval returns the minimum time between scheduled checks.
func (f CheckFrequency) Interval() time.Duration {
	switch f {
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Subscriber holds deal preferences for one watchlist owner.
type Subscriber struct {
	ID             string          `json:"id"`
	MaxPrice       decimal.Decimal `json:"max_price"`
	Currency       string          `json:"currency"`
	Labels         LabelFilter     `json:"labels,omitempty"`
	CheckFrequency CheckFrequency  `json:"check_frequency"`
	Active         bool            `json:"active"`
	LastCheckedAt  *time.Time      `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsDue reports whether a scheduled check should run for the subscriber.
// A subscriber that has never been checked is always due.
func (s *Subscriber) IsDue(now time.Time) bool {
	if s.LastCheckedAt == nil {
		return true
	}
	return !now.Before(s.LastCheckedAt.Add(s.CheckFrequency.Interval()))
}

// SaleWindow is a promotional period that shortens cache validity for the
// vendors in scope.
type SaleWindow struct {
	Name             string        `json:"name"`
	VendorScope      []string      `json:"vendor_scope,omitempty"`
	StartsAt         time.Time     `json:"starts_at"`
	EndsAt           time.Time     `json:"ends_at"`
	CacheTTLOverride time.Duration `json:"cache_ttl_override"`
}

// Contains reports whether at falls within [StartsAt, EndsAt).
func (w *SaleWindow) Contains(at time.Time) bool {
	return !at.Before(w.StartsAt) && at.Before(w.EndsAt)
}

// CoversVendor reports whether the vendor is within the window's scope.
// An empty scope or "*" covers every vendor.
func (w *SaleWindow) CoversVendor(vendor string) bool {
	if len(w.VendorScope) == 0 {
		return true
	}
	v := strings.ToLower(strings.TrimSpace(vendor))
	for _, s := range w.VendorScope {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "*" {
			return true
		}
		if s != "" && v != "" && strings.Contains(v, s) {
			return true
		}
	}
	return false
}

// RunStatus is the outcome of a check run for one subscriber.
type RunStatus string

// RunStatus constants.
const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// SubscriberReport summarizes one subscriber's part of a run.
type SubscriberReport struct {
	SubscriberID    string    `json:"subscriber_id"`
	Status          RunStatus `json:"status"`
	EntriesChecked  int       `json:"entries_checked"`
	EntriesFailed   int       `json:"entries_failed"`
	DealsFound      int       `json:"deals_found"`
	DealsDispatched int       `json:"deals_dispatched"`
	Errors          []string  `json:"errors,omitempty"`
}

// RunReport is the aggregate outcome of a check run.
type RunReport struct {
	ID          string              `json:"id"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	Subscribers []SubscriberReport  `json:"subscribers"`
	CacheStats  map[CacheStatus]int `json:"cache_stats"`
}

// Failed reports whether any subscriber in the run failed outright.
func (r *RunReport) Failed() bool {
	for i := range r.Subscribers {
		if r.Subscribers[i].Status == RunStatusFailed {
			return true
		}
	}
	return false
}
