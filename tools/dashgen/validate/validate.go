// Package validate checks generated dashboards and rule files for PromQL
// syntax errors and references to metrics the service does not export.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/film-deal-tracker/tools/dashgen/rules"
)

// histogramSuffixes are the series Prometheus derives from a histogram.
var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

// Result collects problems found during validation. Errors fail generation;
// warnings are reported but do not.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were recorded.
func (r Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge appends other's findings to r.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Metrics parses expr and returns the metric names it selects.
func Metrics(expr string) ([]string, error) {
	parsed, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, err
	}
	var names []string
	parser.Inspect(parsed, func(node parser.Node, _ []parser.Node) error {
		if vs, ok := node.(*parser.VectorSelector); ok && vs.Name != "" {
			names = append(names, vs.Name)
		}
		return nil
	})
	return names, nil
}

// Known reports whether name is in known, directly or as a derived
// histogram series.
func Known(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, suffix := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && known[base] {
			return true
		}
	}
	return false
}

func checkExpr(r *Result, where, expr string, known map[string]bool) {
	if strings.TrimSpace(expr) == "" {
		r.warnf("%s: empty expression", where)
		return
	}
	names, err := Metrics(expr)
	if err != nil {
		r.errorf("%s: invalid PromQL %q: %v", where, expr, err)
		return
	}
	for _, name := range names {
		if !Known(name, known) {
			r.errorf("%s: unknown metric %q", where, name)
		}
	}
}

type panelJSON struct {
	Title   string       `json:"title"`
	Type    string       `json:"type"`
	Targets []targetJSON `json:"targets"`
	Panels  []panelJSON  `json:"panels"`
}

type targetJSON struct {
	RefID string `json:"refId"`
	Expr  string `json:"expr"`
}

// Dashboard validates every Prometheus target in dash, including panels
// nested in rows.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) Result {
	var r Result

	data, err := json.Marshal(dash)
	if err != nil {
		r.errorf("marshaling dashboard: %v", err)
		return r
	}
	var doc struct {
		Panels []panelJSON `json:"panels"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		r.errorf("decoding dashboard: %v", err)
		return r
	}

	titles := make(map[string]bool)
	var walk func(panels []panelJSON)
	walk = func(panels []panelJSON) {
		for _, p := range panels {
			if p.Type == "row" {
				walk(p.Panels)
				continue
			}
			if titles[p.Title] {
				r.warnf("panel %q: duplicate title", p.Title)
			}
			titles[p.Title] = true
			if len(p.Targets) == 0 {
				r.warnf("panel %q: no targets", p.Title)
			}
			for _, t := range p.Targets {
				checkExpr(&r, fmt.Sprintf("panel %q target %s", p.Title, t.RefID), t.Expr, known)
			}
		}
	}
	walk(doc.Panels)
	return r
}

// Rules validates a PrometheusRule CR. Recording rule names defined in the
// CR count as known for the rules that follow them.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var r Result

	names := make(map[string]bool, len(known))
	for k, v := range known {
		names[k] = v
	}
	seen := make(map[string]bool)

	for _, g := range cr.Spec.Groups {
		if len(g.Rules) == 0 {
			r.warnf("group %q: no rules", g.Name)
		}
		for _, rule := range g.Rules {
			id := rule.Record
			if id == "" {
				id = rule.Alert
			}
			switch {
			case id == "":
				r.errorf("group %q: rule without record or alert name", g.Name)
				continue
			case rule.Record != "" && rule.Alert != "":
				r.errorf("rule %q: both record and alert set", id)
			case seen[id]:
				r.errorf("rule %q: duplicate name", id)
			}
			seen[id] = true

			checkExpr(&r, "rule "+id, rule.Expr, names)
			if rule.Record != "" {
				names[rule.Record] = true
				continue
			}
			if rule.Labels["severity"] == "" {
				r.errorf("alert %q: missing severity label", id)
			}
			if rule.Annotations["summary"] == "" {
				r.warnf("alert %q: missing summary annotation", id)
			}
		}
	}
	return r
}
