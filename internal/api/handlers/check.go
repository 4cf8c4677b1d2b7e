package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/film-deal-tracker/internal/engine"
	"github.com/donaldgifford/film-deal-tracker/internal/store"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// CheckRunner runs a deal check.
type CheckRunner interface {
	RunCheck(ctx context.Context, req engine.CheckRequest) (*domain.RunReport, error)
}

// RunReader returns the latest run report.
type RunReader interface {
	LatestRun(ctx context.Context) (*domain.RunReport, error)
}

// CheckHandler triggers checks and reports on them.
type CheckHandler struct {
	runner CheckRunner
	runs   RunReader
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(runner CheckRunner, runs RunReader) *CheckHandler {
	return &CheckHandler{runner: runner, runs: runs}
}

// CheckInput is the request for POST /api/v1/check.
type CheckInput struct {
	Body struct {
		SubscriberID string `json:"subscriber_id,omitempty" doc:"Check only this subscriber; empty checks every due subscriber"`
		Force        bool   `json:"force,omitempty" doc:"Also check subscribers that are not yet due"`
	}
}

// RunReportOutput wraps a run report.
type RunReportOutput struct {
	Body *domain.RunReport
}

// Check runs a check synchronously and returns its report.
func (h *CheckHandler) Check(ctx context.Context, in *CheckInput) (*RunReportOutput, error) {
	report, err := h.runner.RunCheck(ctx, engine.CheckRequest{
		SubscriberID: in.Body.SubscriberID,
		Force:        in.Body.Force,
		Trigger:      engine.TriggerManual,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, huma.Error404NotFound("subscriber " + in.Body.SubscriberID + " not found")
		}
		return nil, huma.Error500InternalServerError("check failed: " + err.Error())
	}
	return &RunReportOutput{Body: report}, nil
}

// Latest returns the most recent run report.
func (h *CheckHandler) Latest(ctx context.Context, _ *struct{}) (*RunReportOutput, error) {
	report, err := h.runs.LatestRun(ctx)
	if err != nil {
		return nil, storeError("latest run", err)
	}
	return &RunReportOutput{Body: report}, nil
}

// RegisterCheckRoutes registers check endpoints with the Huma API.
func RegisterCheckRoutes(api huma.API, h *CheckHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "run-check",
		Method:      http.MethodPost,
		Path:        "/api/v1/check",
		Summary:     "Run a deal check",
		Description: "Resolves, searches and evaluates watchlists, dispatches new deals, " +
			"and returns the run report.",
		Tags:   []string{"check"},
		Errors: []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.Check)

	huma.Register(api, huma.Operation{
		OperationID: "get-latest-run",
		Method:      http.MethodGet,
		Path:        "/api/v1/runs/latest",
		Summary:     "Get the latest run report",
		Tags:        []string{"check"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.Latest)
}
