package extract

import (
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// RawListing is a listing as it appears in a search payload, before price
// parsing and classification.
type RawListing struct {
	Title     string
	PriceText string
	Vendor    string
	URL       string
}

// Payload is a decoded search response. The concrete type records which
// shape was recognized: ShoppingPayload, OrganicPayload, ErrorPayload or
// UnrecognizedPayload.
type Payload interface {
	// Kind returns a short name for the shape, used in logs and metrics.
	Kind() string
}

// ShoppingPayload is a product search result list.
type ShoppingPayload struct {
	Listings []RawListing
}

// OrganicPayload is a web search result list whose prices are embedded in
// snippets.
type OrganicPayload struct {
	Listings []RawListing
}

// ErrorPayload is a response in which the provider reported an error.
type ErrorPayload struct {
	Message string
}

// UnrecognizedPayload is any response that matches no known shape.
type UnrecognizedPayload struct {
	Keys []string
}

func (ShoppingPayload) Kind() string     { return "shopping" }
func (OrganicPayload) Kind() string      { return "organic" }
func (ErrorPayload) Kind() string        { return "error" }
func (UnrecognizedPayload) Kind() string { return "unrecognized" }

// Providers report a query without hits as an error message rather than an
// empty list.
var noResultsMarkers = []string{
	"hasn't returned any results",
	"no results",
}

// DecodePayload classifies a raw search response by shape.
func DecodePayload(raw []byte) Payload {
	if !gjson.ValidBytes(raw) {
		return UnrecognizedPayload{}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return UnrecognizedPayload{}
	}

	if e := root.Get("error"); e.Exists() {
		msg := e.String()
		lower := strings.ToLower(msg)
		for _, m := range noResultsMarkers {
			if strings.Contains(lower, m) {
				return ShoppingPayload{}
			}
		}
		return ErrorPayload{Message: msg}
	}

	if r := root.Get("shopping_results"); r.IsArray() {
		return ShoppingPayload{Listings: decodeShopping(r)}
	}
	if r := root.Get("organic_results"); r.IsArray() {
		return OrganicPayload{Listings: decodeOrganic(r)}
	}

	var keys []string
	root.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	sort.Strings(keys)
	return UnrecognizedPayload{Keys: keys}
}

func decodeShopping(results gjson.Result) []RawListing {
	var out []RawListing
	for _, item := range results.Array() {
		link := item.Get("product_link").String()
		if link == "" {
			link = item.Get("link").String()
		}
		price := item.Get("price").String()
		if price == "" {
			if ep := item.Get("extracted_price"); ep.Exists() {
				price = ep.Raw
			}
		}
		vendor := item.Get("source").String()
		if vendor == "" {
			vendor = hostVendor(link)
		}
		out = append(out, RawListing{
			Title:     strings.TrimSpace(item.Get("title").String()),
			PriceText: price,
			Vendor:    strings.TrimSpace(vendor),
			URL:       link,
		})
	}
	return out
}

func decodeOrganic(results gjson.Result) []RawListing {
	var out []RawListing
	for _, item := range results.Array() {
		link := item.Get("link").String()
		price := FindPrice(item.Get("snippet").String())
		if price == "" {
			if ep := item.Get("rich_snippet.bottom.detected_extensions.price"); ep.Exists() {
				price = "$" + ep.Raw
			}
		}
		out = append(out, RawListing{
			Title:     strings.TrimSpace(item.Get("title").String()),
			PriceText: price,
			Vendor:    hostVendor(link),
			URL:       link,
		})
	}
	return out
}

func hostVendor(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
