package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

const timeLayout = "2006-01-02 15:04"

// newTable returns a table that renders to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func row(cells ...any) table.Row {
	return table.Row(cells)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return "-"
	}
	return strings.Join(errs, "; ")
}

// formatCacheStats renders cache outcomes in a stable order, e.g.
// "hit_fresh=3 refreshed=1".
func formatCacheStats(stats map[domain.CacheStatus]int) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, stats[domain.CacheStatus(k)]))
	}
	return strings.Join(parts, " ")
}
