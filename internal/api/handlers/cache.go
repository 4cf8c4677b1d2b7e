package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/film-deal-tracker/internal/dealcache"
)

// CacheAdmin inspects and clears the deal cache.
type CacheAdmin interface {
	CacheStatus(ctx context.Context) ([]dealcache.EntryStatus, error)
	ClearCache(ctx context.Context) (int, error)
}

// CacheHandler handles deal cache administration.
type CacheHandler struct {
	cache CacheAdmin
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(c CacheAdmin) *CacheHandler {
	return &CacheHandler{cache: c}
}

// CacheStatusOutput is the response for GET /api/v1/cache.
type CacheStatusOutput struct {
	Body struct {
		Entries []dealcache.EntryStatus `json:"entries"`
		Fresh   int                     `json:"fresh"`
		Stale   int                     `json:"stale"`
	}
}

// ClearCacheOutput is the response for DELETE /api/v1/cache.
type ClearCacheOutput struct {
	Body struct {
		Cleared int `json:"cleared" doc:"Number of entries removed"`
	}
}

// Status returns every cached entry with its freshness.
func (h *CacheHandler) Status(ctx context.Context, _ *struct{}) (*CacheStatusOutput, error) {
	entries, err := h.cache.CacheStatus(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("reading cache: " + err.Error())
	}

	resp := &CacheStatusOutput{}
	resp.Body.Entries = entries
	if resp.Body.Entries == nil {
		resp.Body.Entries = []dealcache.EntryStatus{}
	}
	for i := range entries {
		if entries[i].State == dealcache.EntryFresh {
			resp.Body.Fresh++
		} else {
			resp.Body.Stale++
		}
	}
	return resp, nil
}

// Clear removes every cached entry.
func (h *CacheHandler) Clear(ctx context.Context, _ *struct{}) (*ClearCacheOutput, error) {
	n, err := h.cache.ClearCache(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("clearing cache: " + err.Error())
	}
	resp := &ClearCacheOutput{}
	resp.Body.Cleared = n
	return resp, nil
}

// RegisterCacheRoutes registers cache endpoints with the Huma API.
func RegisterCacheRoutes(api huma.API, h *CacheHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-cache-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/cache",
		Summary:     "Get deal cache status",
		Tags:        []string{"cache"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Status)

	huma.Register(api, huma.Operation{
		OperationID: "clear-cache",
		Method:      http.MethodDelete,
		Path:        "/api/v1/cache",
		Summary:     "Clear the deal cache",
		Description: "Removes every cached entry; the next check refreshes from search.",
		Tags:        []string{"cache"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.Clear)
}
