// Package resolve maps canonical film titles to the alternate and
// international titles a vendor may list them under.
package resolve

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Mapping lists the alternate titles of one film. Year 0 applies to any
// release of the title.
type Mapping struct {
	Title      string      `yaml:"title"`
	Year       int         `yaml:"year"`
	Alternates []Alternate `yaml:"alternates"`
}

// Alternate is one alternate title with the confidence that a listing under
// it is the same film.
type Alternate struct {
	Title      string  `yaml:"title"`
	Confidence float64 `yaml:"confidence"`
}

type lookupKey struct {
	title string
	year  int
}

// Resolver resolves canonical titles against a static mapping. It is safe
// for concurrent use once constructed.
type Resolver struct {
	mappings map[lookupKey][]Alternate
	custom   []Mapping
	builtins bool
	log      *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMappings adds mappings. Later mappings replace earlier ones, including
// built-ins, for the same title and year.
func WithMappings(m []Mapping) Option {
	return func(r *Resolver) {
		r.custom = append(r.custom, m...)
	}
}

// WithoutBuiltins drops the built-in mapping table.
func WithoutBuiltins() Option {
	return func(r *Resolver) {
		r.builtins = false
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = l
	}
}

// NewResolver creates a Resolver seeded with the built-in mapping table
// unless WithoutBuiltins is given.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		mappings: make(map[lookupKey][]Alternate),
		builtins: true,
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.builtins {
		for _, mp := range builtinMappings {
			r.add(mp)
		}
	}
	for _, mp := range r.custom {
		r.add(mp)
	}
	return r
}

func (r *Resolver) add(m Mapping) {
	key := lookupKey{title: Key(m.Title), year: m.Year}
	if key.title == "" {
		return
	}
	r.mappings[key] = append([]Alternate(nil), m.Alternates...)
}

// Resolve returns the aliases for a title. The first alias is always the
// canonical title with confidence 1.0; mapped alternates follow in
// descending confidence. A year-specific mapping is preferred over an
// any-year mapping. Unmapped titles resolve to the canonical title alone.
func (r *Resolver) Resolve(canonicalTitle string, releaseYear int) []domain.Alias {
	canonical := Normalize(canonicalTitle)
	aliases := []domain.Alias{{
		SourceTitle:   canonicalTitle,
		ResolvedTitle: canonical,
		Confidence:    1.0,
	}}

	key := Key(canonical)
	alternates, ok := r.mappings[lookupKey{title: key, year: releaseYear}]
	if !ok && releaseYear != 0 {
		alternates, ok = r.mappings[lookupKey{title: key}]
	}
	if !ok {
		r.log.Debug("no alias mapping", "title", canonical, "year", releaseYear)
		return aliases
	}

	seen := map[string]bool{key: true}
	extra := make([]domain.Alias, 0, len(alternates))
	for _, alt := range alternates {
		resolved := Normalize(alt.Title)
		k := Key(resolved)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		extra = append(extra, domain.Alias{
			SourceTitle:   canonicalTitle,
			ResolvedTitle: resolved,
			Confidence:    clampConfidence(alt.Confidence),
		})
	}
	sort.SliceStable(extra, func(i, j int) bool {
		return extra[i].Confidence > extra[j].Confidence
	})

	return append(aliases, extra...)
}

// Normalize trims a title and collapses internal whitespace.
func Normalize(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Key returns the case-, punctuation- and diacritic-insensitive form of a
// title used for lookups and matching.
func Key(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, title)
	if err != nil {
		stripped = title
	}
	folded := cases.Fold().String(stripped)

	var b strings.Builder
	space := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

func clampConfidence(c float64) float64 {
	switch {
	case c <= 0:
		return romanizedConfidence
	case c > 1:
		return 1
	default:
		return c
	}
}

func isLatin(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return true
}
