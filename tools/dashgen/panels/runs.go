package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RunDuration returns a timeseries panel showing check run duration
// percentiles.
func RunDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Run Duration").
		Description("Check run wall time percentiles").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(Quantile(0.50, "fdt_run_duration_seconds"), "p50", "A")).
		WithTarget(PromQuery(Quantile(0.95, "fdt_run_duration_seconds"), "p95", "B")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SubscriberOutcomes returns a timeseries panel showing subscriber runs by
// outcome.
func SubscriberOutcomes() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Subscriber Outcomes").
		Description("Subscriber runs per second by status").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum by (status) (rate(`+Sel("fdt_subscribers_processed_total")+`[5m]))`,
			"{{status}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// EntryFailures returns a timeseries panel showing the watchlist entry
// failure rate.
func EntryFailures() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Entry Failures").
		Description("Watchlist entries whose lookup failed, per second").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`fdt:entries_failed:rate5m`, "failures/s", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}
