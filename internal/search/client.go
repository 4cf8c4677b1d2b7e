// Package search implements the shopping search capability used by the
// listing extractor.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/donaldgifford/film-deal-tracker/internal/metrics"
)

const (
	defaultBaseURL    = "https://serpapi.com/search.json"
	defaultEngine     = "google_shopping"
	defaultCountry    = "us"
	defaultLanguage   = "en"
	defaultNumResults = 20
	maxErrorBody      = 512
)

// ErrMissingAPIKey is returned when the client has no API key.
var ErrMissingAPIKey = errors.New("search API key is required")

// Client queries SerpAPI's Google Shopping engine and returns the raw JSON
// payload.
type Client struct {
	apiKey      string
	baseURL     string
	engine      string
	country     string
	language    string
	numResults  int
	client      *http.Client
	rateLimiter *RateLimiter
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the default endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithEngine overrides the search engine parameter.
func WithEngine(e string) Option {
	return func(c *Client) {
		c.engine = e
	}
}

// WithLocale sets the country and language parameters.
func WithLocale(country, language string) Option {
	return func(c *Client) {
		c.country = country
		c.language = language
	}
}

// WithNumResults sets how many results are requested per query.
func WithNumResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.numResults = n
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRateLimiter routes every Search call through Wait first.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = r
	}
}

// NewClient creates a new search client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		engine:     defaultEngine,
		country:    defaultCountry,
		language:   defaultLanguage,
		numResults: defaultNumResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one query and returns the response body. A 200 response is
// returned as-is even when it carries an error object; decoding is the
// caller's concern.
func (c *Client) Search(ctx context.Context, query string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.SearchDailyLimitHits.Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.SearchDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}
	metrics.SearchAPICallsTotal.Inc()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *Client) buildURL(query string) string {
	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", query)
	params.Set("gl", c.country)
	params.Set("hl", c.language)
	params.Set("num", strconv.Itoa(c.numResults))
	params.Set("api_key", c.apiKey)
	return c.baseURL + "?" + params.Encode()
}
