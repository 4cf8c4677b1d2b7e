package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ExtractionDuration returns a timeseries panel showing p50 and p95
// listing extraction latencies across all aliases of a title.
func ExtractionDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Extraction Duration").
		Description("Listing extraction duration percentiles").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(Quantile(0.50, "fdt_extraction_duration_seconds"), "p50", "A")).
		WithTarget(PromQuery(Quantile(0.95, "fdt_extraction_duration_seconds"), "p95", "B")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ExtractionFailures returns a timeseries panel showing the extraction
// failure rate.
func ExtractionFailures() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Extraction Failures").
		Description("Extraction failure rate per second").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`fdt:extraction_failures:rate5m`, "failures/s", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// OffersByLabel returns a timeseries panel showing extracted offers per
// boutique label.
func OffersByLabel() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Offers by Label").
		Description("Offers extracted per second, by label").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`sum by (label) (rate(`+Sel("fdt_offers_extracted_total")+`[5m]))`,
			"{{label}}", "A",
		)).
		FillOpacity(20).
		LineWidth(1).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ListingsSkipped returns a timeseries panel showing listings dropped during
// extraction, by reason.
func ListingsSkipped() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Listings Skipped").
		Description("Listings dropped per second, by reason").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`sum by (reason) (rate(`+Sel("fdt_listings_skipped_total")+`[5m]))`,
			"{{reason}}", "A",
		)).
		FillOpacity(20).
		LineWidth(1).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}
