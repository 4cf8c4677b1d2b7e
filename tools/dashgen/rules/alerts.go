package rules

import "fmt"

// searchQuotaWarn is 80% of the default daily search budget.
const searchQuotaWarn = 200

// AlertRules returns a PrometheusRule CR containing alert rules for
// film-deal-tracker operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata:   metadata("fdt-alerts"),
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "fdt-alerts",
					Rules: []Rule{
						alert("FdtDown", `absent(up{job="film-deal-tracker"})`, "2m", "critical",
							"Film Deal Tracker is down",
							"The film-deal-tracker job has been absent for more than 2 minutes."),
						alert("FdtReadinessDown", `fdt_readyz_up == 0`, "2m", "critical",
							"Film Deal Tracker readiness check is failing",
							"The store has been unreachable from the readiness probe for more than 2 minutes."),
						alert("FdtHighErrorRate", `fdt:http_errors:rate5m / fdt:http_requests:rate5m > 0.05`, "5m", "warning",
							"High HTTP error rate on Film Deal Tracker",
							"More than 5% of admin API requests are returning 5xx errors over the last 5 minutes."),
						alert("FdtEntryFailures", `fdt:entries_failed:rate5m > 0`, "15m", "warning",
							"Watchlist entry lookups are failing",
							"Check runs have been recording failed watchlist entries for more than 15 minutes."),
						alert("FdtExtractionFailures", `fdt:extraction_failures:rate5m > 0.1`, "5m", "warning",
							"Listing extraction failure rate is elevated",
							"Extraction failures are occurring at more than 0.1/s for the last 5 minutes."),
						alert("FdtStaleCacheServed", `increase(fdt_cache_lookups_total{status="stale_served_after_failure"}[15m]) > 0`, "15m", "warning",
							"Deal cache is serving stale offers",
							"Refreshes have been failing and stale entries were served for more than 15 minutes."),
						alert("FdtSearchQuotaHigh", fmt.Sprintf(`fdt_search_daily_usage > %d`, searchQuotaWarn), "5m", "warning",
							"Search API daily usage is above 80% of the budget",
							fmt.Sprintf("Rolling 24h search usage has exceeded %d calls.", searchQuotaWarn)),
						alert("FdtSearchLimitReached", `increase(fdt_search_daily_limit_hits_total[5m]) > 0`, "0m", "critical",
							"Search API daily budget has been exhausted",
							"Searches are refused until the rolling window frees capacity. Cached entries are served stale."),
						alert("FdtNotificationFailures", `sum(increase(fdt_notification_failures_total[5m])) > 0`, "1m", "warning",
							"Deal notification delivery failures detected",
							"One or more Discord or Telegram deal notifications have failed to send."),
					},
				},
			},
		},
	}
}

func alert(name, expr, forDur, severity, summary, description string) Rule {
	return Rule{
		Alert: name,
		Expr:  expr,
		For:   forDur,
		Labels: map[string]string{
			"severity": severity,
		},
		Annotations: map[string]string{
			"summary":     summary,
			"description": description,
		},
	}
}
