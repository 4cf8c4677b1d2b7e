package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func checkCmd() *cobra.Command {
	var (
		subscriberID string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a deal check now",
		Long: "Run a deal check synchronously. Without --subscriber every subscriber\n" +
			"that is due is checked; --force also checks subscribers that are not due.",
		Example: `  fdt check
  fdt check --subscriber alice --force
  fdt check --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := newClient().RunCheck(cmd.Context(), subscriberID, force)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), report, func(w io.Writer) error {
				return printRunReport(w, report)
			})
		},
	}

	cmd.Flags().StringVar(&subscriberID, "subscriber", "", "check only this subscriber")
	cmd.Flags().BoolVar(&force, "force", false, "check subscribers that are not yet due")
	return cmd
}

func runsCmd() *cobra.Command {
	runs := &cobra.Command{
		Use:   "runs",
		Short: "Inspect check runs",
	}

	runs.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Show the most recent run report",
		Example: `  fdt runs latest
  fdt runs latest --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := newClient().LatestRun(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), report, func(w io.Writer) error {
				return printRunReport(w, report)
			})
		},
	})
	return runs
}

func printRunReport(w io.Writer, r *domain.RunReport) error {
	if _, err := fmt.Fprintf(w, "Run %s  %s -> %s\n",
		r.ID,
		r.StartedAt.Format(timeLayout),
		r.CompletedAt.Format(timeLayout),
	); err != nil {
		return err
	}
	if len(r.Subscribers) == 0 {
		_, err := fmt.Fprintln(w, "No subscribers checked.")
		return err
	}

	t := newTable(w)
	t.AppendHeader(row("SUBSCRIBER", "STATUS", "ENTRIES", "FAILED", "DEALS", "SENT", "ERRORS"))
	for i := range r.Subscribers {
		s := &r.Subscribers[i]
		t.AppendRow(row(
			s.SubscriberID,
			s.Status,
			s.EntriesChecked,
			s.EntriesFailed,
			s.DealsFound,
			s.DealsDispatched,
			truncate(joinErrors(s.Errors), 60),
		))
	}
	if len(r.CacheStats) > 0 {
		t.AppendFooter(row("CACHE", formatCacheStats(r.CacheStats)))
	}
	t.Render()
	return nil
}
