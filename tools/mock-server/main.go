// Package main implements a mock shopping search API server for local
// development. It serves canned results from a JSON fixture in the same
// shape as the real search API, so the deal tracker can run without an API
// key or daily quota.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type searchResponse struct {
	SearchMetadata  map[string]string `json:"search_metadata"`
	ShoppingResults []json.RawMessage `json:"shopping_results"`
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/search_response.json", "path to search response fixture")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(fixture.ShoppingResults))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search.json", searchHandler(logger, fixture))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock search server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*searchResponse, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &resp, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The api_key parameter is never logged.
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "q", r.URL.Query().Get("q"))
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

// queryTerms returns the lowercase words a listing title must contain. A
// quoted phrase, as the tracker sends, is matched on its own; otherwise
// every word except format hints must appear.
func queryTerms(q string) []string {
	q = strings.ToLower(q)
	if start := strings.IndexByte(q, '"'); start >= 0 {
		if end := strings.IndexByte(q[start+1:], '"'); end > 0 {
			return strings.Fields(q[start+1 : start+1+end])
		}
	}

	var terms []string
	for _, f := range strings.Fields(q) {
		switch f {
		case "blu-ray", "bluray", "4k", "uhd", "dvd", "or":
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func searchHandler(logger *slog.Logger, fixture *searchResponse) http.HandlerFunc {
	type indexedItem struct {
		raw   json.RawMessage
		title string
	}
	items := make([]indexedItem, 0, len(fixture.ShoppingResults))
	for _, raw := range fixture.ShoppingResults {
		items = append(items, indexedItem{
			raw:   raw,
			title: strings.ToLower(gjson.GetBytes(raw, "title").String()),
		})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		if params.Get("api_key") == "" {
			logger.Warn("search request missing api_key")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key",
			})
			return
		}

		terms := queryTerms(params.Get("q"))
		if len(terms) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing query `q` parameter."})
			return
		}

		num := 20
		if v, err := strconv.Atoi(params.Get("num")); err == nil && v > 0 {
			num = v
		}

		var matched []json.RawMessage
		for _, item := range items {
			if matchesAll(item.title, terms) {
				matched = append(matched, item.raw)
			}
		}
		total := len(matched)
		if len(matched) > num {
			matched = matched[:num]
		}

		if len(matched) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{
				"search_metadata": map[string]string{"status": "Success"},
				"error":           "Google hasn't returned any results for this query.",
			})
			logger.Info("search", "q", params.Get("q"), "matched", 0)
			return
		}

		writeJSON(w, http.StatusOK, searchResponse{
			SearchMetadata:  map[string]string{"status": "Success"},
			ShoppingResults: matched,
		})
		logger.Info("search", "q", params.Get("q"), "matched", total, "returned", len(matched))
	}
}

func matchesAll(title string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(title, t) {
			return false
		}
	}
	return true
}
