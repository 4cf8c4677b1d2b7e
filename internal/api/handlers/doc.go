// Package handlers implements HTTP handlers for the film-deal-tracker admin
// API.
package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/film-deal-tracker/internal/store"
)

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// storeError maps store errors onto HTTP errors.
func storeError(msg string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return huma.Error404NotFound(msg + ": not found")
	}
	return huma.Error500InternalServerError(msg + ": " + err.Error())
}
