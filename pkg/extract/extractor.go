package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

const (
	defaultSearchTimeout = 20 * time.Second
	defaultMaxAliases    = 4
)

// ListingExtractor implements Extractor over a Searcher.
type ListingExtractor struct {
	searcher   Searcher
	timeout    time.Duration
	maxAliases int
	now        func() time.Time
	log        *slog.Logger
}

// ListingExtractorOption configures the ListingExtractor.
type ListingExtractorOption func(*ListingExtractor)

// WithTimeout bounds each search call. Non-positive durations are ignored.
func WithTimeout(d time.Duration) ListingExtractorOption {
	return func(e *ListingExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxAliases caps the number of aliases searched per extraction.
func WithMaxAliases(n int) ListingExtractorOption {
	return func(e *ListingExtractor) {
		e.maxAliases = n
	}
}

// WithClock sets the clock used to stamp observations.
func WithClock(now func() time.Time) ListingExtractorOption {
	return func(e *ListingExtractor) {
		e.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ListingExtractorOption {
	return func(e *ListingExtractor) {
		e.log = l
	}
}

// NewListingExtractor creates a new ListingExtractor.
func NewListingExtractor(s Searcher, opts ...ListingExtractorOption) *ListingExtractor {
	e := &ListingExtractor{
		searcher:   s,
		timeout:    defaultSearchTimeout,
		maxAliases: defaultMaxAliases,
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildQuery returns the search query for one alias.
func BuildQuery(title string, releaseYear int) string {
	var b strings.Builder
	b.WriteString(strconv.Quote(title))
	if releaseYear > 0 {
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(releaseYear))
	}
	b.WriteString(` (blu-ray OR 4K) (criterion OR arrow OR "shout factory" OR "vinegar syndrome" OR kino)`)
	return b.String()
}

// Extract searches every alias and merges the resulting offers. Any failed
// search fails the whole extraction with ErrExtractionFailed so a partial
// result is never mistaken for a complete one.
func (e *ListingExtractor) Extract(ctx context.Context, req Request) (*Result, error) {
	if len(req.Aliases) == 0 {
		return nil, fmt.Errorf("%w: no aliases", ErrExtractionFailed)
	}

	aliases := req.Aliases
	if e.maxAliases > 0 && len(aliases) > e.maxAliases {
		aliases = aliases[:e.maxAliases]
	}

	res := &Result{Skipped: make(map[SkipReason]int)}
	var offers []domain.Offer

	for _, a := range aliases {
		listings, err := e.searchAlias(ctx, a, req.ReleaseYear)
		res.Queries++
		if err != nil {
			return nil, err
		}

		observed := e.now()
		for _, l := range listings {
			o, reason := e.toOffer(l, req, a.Confidence, observed)
			if reason != "" {
				res.Skipped[reason]++
				continue
			}
			offers = append(offers, o)
		}
	}

	res.Offers = Dedupe(offers)
	return res, nil
}

func (e *ListingExtractor) searchAlias(
	ctx context.Context,
	a domain.Alias,
	releaseYear int,
) ([]RawListing, error) {
	query := BuildQuery(a.ResolvedTitle, releaseYear)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.searcher.Search(callCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: search for %q timed out: %w", ErrExtractionFailed, a.ResolvedTitle, err)
		}
		return nil, fmt.Errorf("%w: searching %q: %w", ErrExtractionFailed, a.ResolvedTitle, err)
	}

	switch p := DecodePayload(raw).(type) {
	case ShoppingPayload:
		return p.Listings, nil
	case OrganicPayload:
		return p.Listings, nil
	case ErrorPayload:
		return nil, fmt.Errorf("%w: provider error for %q: %s", ErrExtractionFailed, a.ResolvedTitle, p.Message)
	case UnrecognizedPayload:
		return nil, fmt.Errorf(
			"%w: unrecognized payload for %q (keys: %s)",
			ErrExtractionFailed, a.ResolvedTitle, strings.Join(p.Keys, ","),
		)
	default:
		return nil, fmt.Errorf("%w: unhandled payload kind %q", ErrExtractionFailed, p.Kind())
	}
}

func (e *ListingExtractor) toOffer(
	l RawListing,
	req Request,
	confidence float64,
	observed time.Time,
) (domain.Offer, SkipReason) {
	if Excluded(l.Title) {
		return domain.Offer{}, SkipExcluded
	}
	if !YearMatches(l.Title, req.ReleaseYear) {
		return domain.Offer{}, SkipYear
	}
	if !TitleMatches(l.Title, req.Aliases) {
		return domain.Offer{}, SkipTitle
	}

	label := Classify(l.Title, l.Vendor, l.URL)
	if !req.Filter.Matches(label) {
		return domain.Offer{}, SkipLabel
	}

	price, currency, err := ParsePrice(l.PriceText)
	if err != nil {
		e.log.Debug("skipping listing", "title", l.Title, "price", l.PriceText, "error", err)
		return domain.Offer{}, SkipPrice
	}

	return domain.Offer{
		Label:           label,
		EditionName:     strings.Join(strings.Fields(l.Title), " "),
		Format:          DetectFormat(l.Title),
		Price:           price,
		Currency:        currency,
		Vendor:          l.Vendor,
		URL:             l.URL,
		ObservedAt:      observed,
		AliasConfidence: confidence,
	}, ""
}
