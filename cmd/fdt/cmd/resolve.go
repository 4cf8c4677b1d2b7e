package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

func resolveCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Show the aliases searched for a title",
		Args:  cobra.MinimumNArgs(1),
		Example: `  fdt resolve House --year 1977
  fdt resolve "The Beyond"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			aliases, err := newClient().Resolve(cmd.Context(), title, year)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), aliases, func(w io.Writer) error {
				return printAliases(w, aliases)
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "release year")
	return cmd
}

func printAliases(w io.Writer, aliases []domain.Alias) error {
	t := newTable(w)
	t.AppendHeader(row("ALIAS", "CONFIDENCE"))
	for _, a := range aliases {
		t.AppendRow(row(a.ResolvedTitle, fmt.Sprintf("%.2f", a.Confidence)))
	}
	t.Render()
	return nil
}
