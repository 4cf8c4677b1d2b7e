package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/film-deal-tracker/internal/api/client"
)

func cacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the deal cache",
	}

	cache.AddCommand(
		&cobra.Command{
			Use:     "status",
			Short:   "List cached entries and their freshness",
			Example: `  fdt cache status`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				status, err := newClient().CacheStatus(cmd.Context())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), status, func(w io.Writer) error {
					return printCacheStatus(w, status)
				})
			},
		},
		&cobra.Command{
			Use:     "clear",
			Short:   "Remove every cached entry",
			Example: `  fdt cache clear`,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := newClient().ClearCache(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput() {
					return outputJSON(cmd.OutOrStdout(), map[string]int{"cleared": n})
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cache entries.\n", n)
				return err
			},
		},
	)
	return cache
}

func printCacheStatus(w io.Writer, s *apiclient.CacheStatus) error {
	if len(s.Entries) == 0 {
		_, err := fmt.Fprintln(w, "Cache is empty.")
		return err
	}

	t := newTable(w)
	t.AppendHeader(row("TITLE", "LABELS", "OFFERS", "FETCHED", "VALID UNTIL", "STATE"))
	for i := range s.Entries {
		e := &s.Entries[i]
		t.AppendRow(row(
			e.Key.ResolvedTitle,
			e.Key.LabelFilter,
			e.OfferCount,
			e.FetchedAt.Format(timeLayout),
			e.ValidUntil.Format(timeLayout),
			e.State,
		))
	}
	t.AppendFooter(row("", "", "", "", "FRESH/STALE", fmt.Sprintf("%d/%d", s.Fresh, s.Stale)))
	t.Render()
	return nil
}
