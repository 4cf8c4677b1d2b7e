package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// SaleCalendar lists the sale windows active at a time.
type SaleCalendar interface {
	ActiveWindows(at time.Time) []domain.SaleWindow
}

// SalesHandler exposes the sale calendar.
type SalesHandler struct {
	calendar SaleCalendar
	now      func() time.Time
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(c SaleCalendar, now func() time.Time) *SalesHandler {
	if now == nil {
		now = time.Now
	}
	return &SalesHandler{calendar: c, now: now}
}

// ActiveSalesInput is the request for GET /api/v1/sales/active.
type ActiveSalesInput struct {
	At string `query:"at" doc:"RFC 3339 instant; defaults to now"`
}

// ActiveSalesOutput is the response for GET /api/v1/sales/active.
type ActiveSalesOutput struct {
	Body struct {
		At      time.Time           `json:"at"`
		Windows []domain.SaleWindow `json:"windows"`
	}
}

// Active returns the sale windows containing the requested instant.
func (h *SalesHandler) Active(_ context.Context, in *ActiveSalesInput) (*ActiveSalesOutput, error) {
	at := h.now()
	if in.At != "" {
		t, err := time.Parse(time.RFC3339, in.At)
		if err != nil {
			return nil, huma.Error400BadRequest("at must be an RFC 3339 time")
		}
		at = t
	}

	resp := &ActiveSalesOutput{}
	resp.Body.At = at
	resp.Body.Windows = h.calendar.ActiveWindows(at)
	if resp.Body.Windows == nil {
		resp.Body.Windows = []domain.SaleWindow{}
	}
	return resp, nil
}

// RegisterSalesRoutes registers sale calendar endpoints with the Huma API.
func RegisterSalesRoutes(api huma.API, h *SalesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-active-sales",
		Method:      http.MethodGet,
		Path:        "/api/v1/sales/active",
		Summary:     "List active sale windows",
		Tags:        []string{"sales"},
		Errors:      []int{http.StatusBadRequest},
	}, h.Active)
}
