package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func salesCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List active sale windows",
		Long: "List the sale windows active now, or at --at. Cached offers from vendors\n" +
			"in an active window expire sooner.",
		Example: `  fdt sales
  fdt sales --at 2026-11-27T12:00:00Z`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var when time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be an RFC 3339 time: %w", err)
				}
				when = t
			}

			windows, err := newClient().ActiveSales(cmd.Context(), when)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), windows, func(w io.Writer) error {
				return printSaleWindows(w, windows)
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant to evaluate (default now)")
	return cmd
}

func printSaleWindows(w io.Writer, windows []domain.SaleWindow) error {
	if len(windows) == 0 {
		_, err := fmt.Fprintln(w, "No active sales.")
		return err
	}

	t := newTable(w)
	t.AppendHeader(row("SALE", "VENDORS", "STARTS", "ENDS", "CACHE TTL"))
	for i := range windows {
		sw := &windows[i]
		vendors := strings.Join(sw.VendorScope, ", ")
		if vendors == "" {
			vendors = "*"
		}
		t.AppendRow(row(
			sw.Name,
			vendors,
			sw.StartsAt.Format(timeLayout),
			sw.EndsAt.Format(timeLayout),
			sw.CacheTTLOverride,
		))
	}
	t.Render()
	return nil
}
