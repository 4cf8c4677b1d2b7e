package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/film-deal-tracker/internal/api/client"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// yearSuffix matches a trailing "(1977)" on a watchlist line.
var yearSuffix = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)\s*$`)

func watchlistCmd() *cobra.Command {
	wl := &cobra.Command{
		Use:   "watchlist",
		Short: "Manage subscriber watchlists",
	}
	wl.AddCommand(watchlistGetCmd(), watchlistSetCmd())
	return wl
}

func watchlistGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <subscriber>",
		Short:   "Show a subscriber's watchlist",
		Args:    cobra.ExactArgs(1),
		Example: `  fdt watchlist get alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := newClient().Watchlist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), entries, func(w io.Writer) error {
				return printWatchlist(w, entries)
			})
		},
	}
}

func watchlistSetCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set <subscriber> [title...]",
		Short: "Replace a subscriber's watchlist",
		Long: "Replace a subscriber's watchlist with the given titles, or with one title\n" +
			"per line from --file (\"-\" reads stdin). A trailing \"(YYYY)\" sets the\n" +
			"release year. The new list supersedes the old one entirely.",
		Args: cobra.MinimumNArgs(1),
		Example: `  fdt watchlist set alice "House (1977)" "Suspiria (1977)" Possession
  fdt watchlist set alice --file letterboxd.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := args[1:]
			if file != "" {
				fromFile, err := readLines(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				lines = append(lines, fromFile...)
			}

			entries, err := newClient().ReplaceWatchlist(cmd.Context(), args[0], parseWatchlist(lines))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), entries, func(w io.Writer) error {
				return printWatchlist(w, entries)
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "read titles from a file, one per line")
	return cmd
}

// parseWatchlist turns "Title (YYYY)" lines into watchlist items. Blank
// lines and lines starting with # are ignored.
func parseWatchlist(lines []string) []apiclient.WatchlistItem {
	items := make([]apiclient.WatchlistItem, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		item := apiclient.WatchlistItem{Title: line}
		if m := yearSuffix.FindStringSubmatch(line); m != nil && m[1] != "" {
			year, _ := strconv.Atoi(m[2])
			item = apiclient.WatchlistItem{Title: m[1], Year: year}
		}
		items = append(items, item)
	}
	return items
}

func readLines(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("opening watchlist file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading watchlist: %w", err)
	}
	return lines, nil
}

func printWatchlist(w io.Writer, entries []domain.WatchlistEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Watchlist is empty.")
		return err
	}

	t := newTable(w)
	t.AppendHeader(row("TITLE", "YEAR"))
	for _, e := range entries {
		year := "-"
		if e.ReleaseYear > 0 {
			year = strconv.Itoa(e.ReleaseYear)
		}
		t.AppendRow(row(e.CanonicalTitle, year))
	}
	t.Render()
	return nil
}
