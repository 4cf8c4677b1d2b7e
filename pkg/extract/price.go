package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrPriceParse is returned when a price string has no usable amount.
var ErrPriceParse = errors.New("price parse error")

// ErrPriceAmbiguous is returned when a price string names more than one
// currency or more than one distinct amount.
var ErrPriceAmbiguous = fmt.Errorf("%w: ambiguous price", ErrPriceParse)

// DefaultCurrency is assumed when a price string names no currency.
const DefaultCurrency = "USD"

var currencySymbols = map[string]string{
	"$":   "USD",
	"US$": "USD",
	"£":   "GBP",
	"€":   "EUR",
	"¥":   "JPY",
	"C$":  "CAD",
	"CA$": "CAD",
	"A$":  "AUD",
	"AU$": "AUD",
}

var (
	currencyCodeRe   = regexp.MustCompile(`\b(USD|GBP|EUR|JPY|CAD|AUD)\b`)
	currencySymbolRe = regexp.MustCompile(`(US\$|CA\$|AU\$|C\$|A\$|\$|£|€|¥)`)
	amountRe         = regexp.MustCompile(`[-−]?\d[\d,]*(\.\d+)?`)
	signedPrefixRe   = regexp.MustCompile(`(^|\s)[-−]\s*(US\$|CA\$|AU\$|C\$|A\$|\$|£|€|¥|USD|GBP|EUR|JPY|CAD|AUD)`)
	embeddedPriceRe  = regexp.MustCompile(`(US\$|CA\$|AU\$|C\$|A\$|\$|£|€)\s?\d[\d,]*(\.\d{1,2})?`)
)

// ParsePrice parses a single price with an optional currency symbol or code
// and optional leading words ("From $15.00", "USD 19.99"). It rejects
// strings without digits, negative amounts, multiple currencies and multiple
// distinct amounts.
func ParsePrice(text string) (decimal.Decimal, string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return decimal.Zero, "", fmt.Errorf("%w: empty", ErrPriceParse)
	}

	currencies := map[string]bool{}
	for _, m := range currencySymbolRe.FindAllString(s, -1) {
		currencies[currencySymbols[m]] = true
	}
	for _, m := range currencyCodeRe.FindAllString(strings.ToUpper(s), -1) {
		currencies[m] = true
	}
	if len(currencies) > 1 {
		return decimal.Zero, "", fmt.Errorf("%w: multiple currencies in %q", ErrPriceAmbiguous, text)
	}
	currency := DefaultCurrency
	for c := range currencies {
		currency = c
	}

	matches := amountRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return decimal.Zero, "", fmt.Errorf("%w: no amount in %q", ErrPriceParse, text)
	}

	var amount decimal.Decimal
	for i, m := range matches {
		if strings.Contains(m, ",") && !thousandsGrouped(m) {
			return decimal.Zero, "", fmt.Errorf("%w: decimal comma in %q", ErrPriceAmbiguous, text)
		}
		m = strings.ReplaceAll(strings.ReplaceAll(m, ",", ""), "−", "-")
		d, err := decimal.NewFromString(m)
		if err != nil {
			return decimal.Zero, "", fmt.Errorf("%w: %q: %w", ErrPriceParse, text, err)
		}
		if i == 0 {
			amount = d
			continue
		}
		if !d.Equal(amount) {
			return decimal.Zero, "", fmt.Errorf("%w: multiple amounts in %q", ErrPriceAmbiguous, text)
		}
	}

	if amount.IsNegative() || signedPrefixRe.MatchString(strings.ToUpper(s)) {
		return decimal.Zero, "", fmt.Errorf("%w: negative amount in %q", ErrPriceParse, text)
	}
	return amount, currency, nil
}

// thousandsGrouped reports whether every comma in an amount separates a
// group of exactly three digits.
func thousandsGrouped(amount string) bool {
	intPart, _, _ := strings.Cut(amount, ".")
	groups := strings.Split(strings.TrimLeft(intPart, "-−"), ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// FindPrice returns the first currency-prefixed amount embedded in free
// text such as a search snippet, or "" when there is none.
func FindPrice(text string) string {
	return embeddedPriceRe.FindString(text)
}
