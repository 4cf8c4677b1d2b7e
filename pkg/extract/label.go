package extract

import (
	"regexp"
	"strings"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

type labelPattern struct {
	label domain.Label
	re    *regexp.Regexp
}

// labelPatterns is checked in order; the first match wins. More specific
// imprint names come before the bare publisher name.
var labelPatterns = []labelPattern{
	{domain.LabelCriterion, regexp.MustCompile(`(?i)\bcriterion(\s+collection)?\b|criterion\.com`)},
	{domain.LabelVinegarSyndrome, regexp.MustCompile(`(?i)\bvinegar\s+syndrome\b|vinegarsyndrome\.com`)},
	{domain.LabelArrow, regexp.MustCompile(`(?i)\barrow\s+(video|academy|films|limited)\b|arrowfilms\.com|arrowvideo\.com`)},
	{domain.LabelKinoLorber, regexp.MustCompile(`(?i)\bkino\s+(lorber|classics|cult)\b|kinolorber\.com`)},
	{domain.LabelShoutFactory, regexp.MustCompile(`(?i)\bshout!?\s+(factory|select)\b|\bscream\s+factory\b|shoutfactory\.com`)},
}

// Classify maps listing text to a boutique label using curated patterns.
// Text is typically the listing title, vendor and URL joined together.
// Unmatched text classifies as LabelOther.
func Classify(texts ...string) domain.Label {
	joined := strings.Join(texts, " ")
	for _, p := range labelPatterns {
		if p.re.MatchString(joined) {
			return p.label
		}
	}
	return domain.LabelOther
}

var formatPatterns = []struct {
	format domain.Format
	re     *regexp.Regexp
}{
	{domain.Format4K, regexp.MustCompile(`(?i)\b4k\b|\bultra\s*hd\b|\buhd\b`)},
	{domain.FormatBluRay, regexp.MustCompile(`(?i)\bblu-?\s?ray\b|\bbd\b`)},
	{domain.FormatDVD, regexp.MustCompile(`(?i)\bdvd\b`)},
}

// DetectFormat returns the highest-definition format named in the title.
func DetectFormat(title string) domain.Format {
	for _, p := range formatPatterns {
		if p.re.MatchString(title) {
			return p.format
		}
	}
	return domain.FormatUnknown
}
