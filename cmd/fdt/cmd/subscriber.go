package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/film-deal-tracker/internal/api/client"
)

func subscriberCmd() *cobra.Command {
	sub := &cobra.Command{
		Use:     "subscriber",
		Aliases: []string{"sub"},
		Short:   "Manage subscriber preferences",
	}
	sub.AddCommand(subscriberGetCmd(), subscriberSetCmd())
	return sub
}

func subscriberGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>",
		Short:   "Show a subscriber",
		Args:    cobra.ExactArgs(1),
		Example: `  fdt subscriber get alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newClient().GetSubscriber(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s, func(w io.Writer) error {
				return printSubscriber(w, s)
			})
		},
	}
}

func subscriberSetCmd() *cobra.Command {
	var (
		req      apiclient.SubscriberRequest
		labels   string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Create or update a subscriber",
		Args:  cobra.ExactArgs(1),
		Example: `  fdt subscriber set alice --max-price 30
  fdt subscriber set bob --max-price 25.50 --labels criterion,arrow --frequency weekly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if labels != "" {
				for l := range strings.SplitSeq(labels, ",") {
					if l = strings.TrimSpace(l); l != "" {
						req.Labels = append(req.Labels, l)
					}
				}
			}
			if cmd.Flags().Changed("inactive") {
				active := !inactive
				req.Active = &active
			}

			s, err := newClient().UpsertSubscriber(cmd.Context(), args[0], &req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), s, func(w io.Writer) error {
				return printSubscriber(w, s)
			})
		},
	}

	cmd.Flags().StringVar(&req.MaxPrice, "max-price", "", "price ceiling, e.g. 30 or 24.99")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "ISO currency code (default USD)")
	cmd.Flags().StringVar(&labels, "labels", "", "comma-separated labels to watch (default all)")
	cmd.Flags().StringVar(&req.CheckFrequency, "frequency", "", "daily, weekly or monthly (default daily)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "pause scheduled checks for this subscriber")
	cobra.CheckErr(cmd.MarkFlagRequired("max-price"))
	return cmd
}

func printSubscriber(w io.Writer, s *apiclient.Subscriber) error {
	labels := strings.Join(s.Labels, ", ")
	if labels == "" {
		labels = "all"
	}
	lastChecked := "never"
	if s.LastCheckedAt != nil {
		lastChecked = s.LastCheckedAt.Format(timeLayout)
	}

	t := newTable(w)
	t.AppendRows([]table.Row{
		row("ID", s.ID),
		row("Max price", fmt.Sprintf("%s %s", s.MaxPrice, s.Currency)),
		row("Labels", labels),
		row("Frequency", s.CheckFrequency),
		row("Active", s.Active),
		row("Last checked", lastChecked),
	})
	t.Render()
	return nil
}
