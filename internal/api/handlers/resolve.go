package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// TitleResolver maps a canonical title to search aliases.
type TitleResolver interface {
	Resolve(canonicalTitle string, releaseYear int) []domain.Alias
}

// ResolveHandler exposes title resolution.
type ResolveHandler struct {
	resolver TitleResolver
}

// NewResolveHandler creates a new ResolveHandler.
func NewResolveHandler(r TitleResolver) *ResolveHandler {
	return &ResolveHandler{resolver: r}
}

// ResolveInput is the request for GET /api/v1/resolve.
type ResolveInput struct {
	Title string `query:"title" required:"true" doc:"Canonical film title"`
	Year  int    `query:"year" minimum:"0" doc:"Release year; 0 when unknown"`
}

// ResolveOutput is the response for GET /api/v1/resolve.
type ResolveOutput struct {
	Body struct {
		Aliases []domain.Alias `json:"aliases"`
	}
}

// Resolve returns the aliases searched for a title.
func (h *ResolveHandler) Resolve(_ context.Context, in *ResolveInput) (*ResolveOutput, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, huma.Error400BadRequest("title is required")
	}
	resp := &ResolveOutput{}
	resp.Body.Aliases = h.resolver.Resolve(in.Title, in.Year)
	return resp, nil
}

// RegisterResolveRoutes registers the resolve endpoint with the Huma API.
func RegisterResolveRoutes(api huma.API, h *ResolveHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-title",
		Method:      http.MethodGet,
		Path:        "/api/v1/resolve",
		Summary:     "Resolve a title to search aliases",
		Tags:        []string{"resolve"},
		Errors:      []int{http.StatusBadRequest},
	}, h.Resolve)
}
