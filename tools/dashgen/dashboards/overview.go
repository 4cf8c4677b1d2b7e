// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/film-deal-tracker/tools/dashgen/panels"
)

// OverviewUID is the stable dashboard UID used for provisioning.
const OverviewUID = "fdt-overview"

// BuildOverview constructs the FDT Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("FDT Overview").
		Uid(OverviewUID).
		Tags([]string{"fdt", "film-deal-tracker"}).
		Refresh("1m").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QuotaGauge()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Search API").
		WithPanel(panels.SearchCallsRate()).
		WithPanel(panels.DailyUsage()).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Runs").
		WithPanel(panels.RunDuration()).
		WithPanel(panels.SubscriberOutcomes()).
		WithPanel(panels.EntryFailures()))

	b.WithRow(dashboard.NewRowBuilder("Deal Cache").
		WithPanel(panels.CacheLookups()).
		WithPanel(panels.CacheHitRatio()).
		WithPanel(panels.CacheRefreshDuration()).
		WithPanel(panels.CoalescedLookups()))

	b.WithRow(dashboard.NewRowBuilder("Extraction").
		WithPanel(panels.ExtractionDuration()).
		WithPanel(panels.ExtractionFailures()).
		WithPanel(panels.OffersByLabel()).
		WithPanel(panels.ListingsSkipped()))

	b.WithRow(dashboard.NewRowBuilder("Deals").
		WithPanel(panels.DealsRate()).
		WithPanel(panels.NotificationsSent()).
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
