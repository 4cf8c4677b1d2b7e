// Package extract turns raw search payloads into structured boutique
// edition offers, abstracted behind interfaces for testability.
package extract

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// ErrExtractionFailed is returned when a search call fails, times out or
// yields a payload that cannot be read. Callers treat it as "no fresh data"
// rather than "no listings".
var ErrExtractionFailed = errors.New("extraction failed")

// Searcher is the external search capability.
type Searcher interface {
	Search(ctx context.Context, query string) ([]byte, error)
}

// Request describes one extraction: the aliases to search for and the
// labels of interest.
type Request struct {
	Aliases     []domain.Alias
	Filter      domain.LabelFilter
	ReleaseYear int
}

// SkipReason explains why a listing was dropped.
type SkipReason string

// SkipReason constants.
const (
	SkipPrice    SkipReason = "price"
	SkipLabel    SkipReason = "label"
	SkipExcluded SkipReason = "excluded"
	SkipYear     SkipReason = "year"
	SkipTitle    SkipReason = "title"
)

// Result holds the offers from a successful extraction and counts of the
// listings dropped along the way.
type Result struct {
	Offers  []domain.Offer
	Skipped map[SkipReason]int
	Queries int
}

// Extractor defines the interface for extracting offers for a title.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}
