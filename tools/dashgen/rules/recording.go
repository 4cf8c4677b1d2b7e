package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata:   metadata("fdt-recording-rules"),
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "fdt-recording",
					Rules: []Rule{
						{
							Record: "fdt:http_requests:rate5m",
							Expr:   `sum(rate(fdt_http_requests_total[5m]))`,
						},
						{
							Record: "fdt:http_errors:rate5m",
							Expr:   `sum(rate(fdt_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "fdt:cache_lookups:rate5m",
							Expr:   `sum by (status) (rate(fdt_cache_lookups_total[5m]))`,
						},
						{
							Record: "fdt:entries_failed:rate5m",
							Expr:   `rate(fdt_entries_failed_total[5m])`,
						},
						{
							Record: "fdt:extraction_failures:rate5m",
							Expr:   `rate(fdt_extraction_failures_total[5m])`,
						},
						{
							Record: "fdt:search_api_calls:rate5m",
							Expr:   `rate(fdt_search_api_calls_total[5m])`,
						},
						{
							Record: "fdt:notification_duration:p95_5m",
							Expr:   `histogram_quantile(0.95, sum(rate(fdt_notification_duration_seconds_bucket[5m])) by (le))`,
						},
					},
				},
			},
		},
	}
}

func metadata(name string) PrometheusRuleMetadata {
	return PrometheusRuleMetadata{
		Name: name,
		Labels: map[string]string{
			"prometheus": "system-rules-prometheus",
		},
	}
}
