package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/donaldgifford/film-deal-tracker/pkg/resolve"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// excludePatterns drop listings that are not new physical boutique editions.
var excludePatterns = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	`standard edition`, `regular edition`,
	`digital (code|copy|download)`, `digital only`, `streaming`,
	`rental`, `ex-?\s?rental`, `previously viewed`, `used`, `pre-owned`,
	`vhs`, `videotape`, `laserdisc`, `hd[\s-]?dvd`,
	`bootleg`, `unauthorized`, `import copy`,
}, "|") + `)\b`)

var yearRe = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// Excluded reports whether a listing title names an unwanted edition or
// format. A title whose best format is DVD is excluded.
func Excluded(title string) bool {
	if excludePatterns.MatchString(title) {
		return true
	}
	return DetectFormat(title) == domain.FormatDVD
}

// YearMatches reports whether the years mentioned in a listing title are
// compatible with the release year. Titles without a year, and entries
// without a known release year, always match.
func YearMatches(title string, releaseYear int) bool {
	if releaseYear == 0 {
		return true
	}
	found := yearRe.FindAllString(title, -1)
	if len(found) == 0 {
		return true
	}
	for _, y := range found {
		n, err := strconv.Atoi(y)
		if err != nil {
			continue
		}
		if n-releaseYear <= 1 && releaseYear-n <= 1 {
			return true
		}
	}
	return false
}

// TitleMatches reports whether a listing title refers to any of the
// aliases. Multi-word aliases match when every word is present. Short
// single-word aliases must open the title or appear in brackets so that
// "House" does not match "House of Mortal Sin".
func TitleMatches(title string, aliases []domain.Alias) bool {
	lower := strings.ToLower(title)
	key := " " + resolve.Key(title) + " "

	for _, a := range aliases {
		ak := resolve.Key(a.ResolvedTitle)
		if ak == "" {
			continue
		}
		words := strings.Fields(ak)
		if len(words) == 1 && len(ak) <= 10 {
			if shortTitleMatches(lower, strings.ToLower(resolve.Normalize(a.ResolvedTitle))) {
				return true
			}
			continue
		}
		all := true
		for _, w := range words {
			if !strings.Contains(key, " "+w+" ") {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func shortTitleMatches(lower, alias string) bool {
	q := regexp.QuoteMeta(alias)
	lead := regexp.MustCompile(`^` + q + `(\s*[\[\(\-:]|\s+blu|\s+4k|\s+uhd|\s*$)`)
	if lead.MatchString(lower) {
		return true
	}
	bracketed := regexp.MustCompile(`[\[\(]` + q + `[\]\)]`)
	return bracketed.MatchString(lower)
}
