package main

import "errors"

// KnownMetrics is the set of metric names exported by film-deal-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"fdt_http_request_duration_seconds": true,
	"fdt_http_requests_total":           true,

	// Health metrics.
	"fdt_healthz_up": true,
	"fdt_readyz_up":  true,

	// Run metrics.
	"fdt_run_duration_seconds":        true,
	"fdt_runs_total":                  true,
	"fdt_subscribers_processed_total": true,
	"fdt_entries_processed_total":     true,
	"fdt_entries_failed_total":        true,

	// Deal cache metrics.
	"fdt_cache_lookups_total":            true,
	"fdt_cache_refresh_duration_seconds": true,
	"fdt_cache_coalesced_total":          true,

	// Extraction metrics.
	"fdt_extraction_duration_seconds": true,
	"fdt_extraction_failures_total":   true,
	"fdt_offers_extracted_total":      true,
	"fdt_listings_skipped_total":      true,

	// Search API metrics.
	"fdt_search_api_calls_total":        true,
	"fdt_search_daily_usage":            true,
	"fdt_search_daily_limit_hits_total": true,

	// Deal and notification metrics.
	"fdt_deals_emitted_total":           true,
	"fdt_notification_duration_seconds": true,
	"fdt_notifications_sent_total":      true,
	"fdt_notification_failures_total":   true,

	// Recording rules.
	"fdt:http_requests:rate5m":         true,
	"fdt:http_errors:rate5m":           true,
	"fdt:cache_lookups:rate5m":         true,
	"fdt:entries_failed:rate5m":        true,
	"fdt:extraction_failures:rate5m":   true,
	"fdt:search_api_calls:rate5m":      true,
	"fdt:notification_duration:p95_5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
