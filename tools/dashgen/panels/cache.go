package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CacheLookups returns a timeseries panel showing deal cache lookups by
// result status.
func CacheLookups() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Cache Lookups").
		Description("Deal cache lookups per second by status").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`fdt:cache_lookups:rate5m`, "{{status}}", "A")).
		FillOpacity(20).
		LineWidth(1).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CacheHitRatio returns a stat panel showing the share of lookups served
// from a fresh entry.
func CacheHitRatio() *stat.PanelBuilder {
	expr := `sum(fdt:cache_lookups:rate5m{status="hit_fresh"}) / sum(fdt:cache_lookups:rate5m) * 100`
	return stat.NewPanelBuilder().
		Title("Fresh Hit Ratio").
		Description("Percentage of lookups answered without a search").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(expr, "", "A")).
		Unit("percent").
		Thresholds(ThresholdsRedGreen(50)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// CacheRefreshDuration returns a timeseries panel showing p50 and p95
// refresh latency.
func CacheRefreshDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Refresh Duration").
		Description("Deal cache refresh latency percentiles").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(Quantile(0.50, "fdt_cache_refresh_duration_seconds"), "p50", "A")).
		WithTarget(PromQuery(Quantile(0.95, "fdt_cache_refresh_duration_seconds"), "p95", "B")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CoalescedLookups returns a timeseries panel showing lookups that joined
// an in-flight refresh.
func CoalescedLookups() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Coalesced Lookups").
		Description("Lookups that waited on another caller's refresh").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`rate(`+Sel("fdt_cache_coalesced_total")+`[5m])`, "coalesced/s", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
