package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/poetcard/internal/history"
)

// NewHistoryCommand creates the "history" subcommand for browsing the
// local generation history
func NewHistoryCommand(flags *Flags) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse locally recorded generations",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent generations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, func(store *history.Store) error {
				return listHistory(cmd.OutOrStdout(), store, limit, offset)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")

	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, flags, func(store *history.Store) error {
				return showHistory(cmd.OutOrStdout(), store, id)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, flags, func(store *history.Store) error {
				if err := store.Delete(id); err != nil {
					return describeLookup(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %d\n", id)
				return nil
			})
		},
	}

	historyCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return historyCmd
}

func withStore(cmd *cobra.Command, flags *Flags, fn func(*history.Store) error) error {
	ApplyConfig(cmd, flags)

	store, err := history.Open(flags.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

func listHistory(w io.Writer, store *history.Store, limit, offset int) error {
	records, err := store.List(limit, offset)
	if err != nil {
		return err
	}

	total, err := store.Count()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No generations recorded yet")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE\tINPUT")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			rec.Title,
			truncate(rec.UserInput, 30),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nShowing %d of %d\n", len(records), total)
	return nil
}

func showHistory(w io.Writer, store *history.Store, id int64) error {
	rec, err := store.Get(id)
	if err != nil {
		return describeLookup(id, err)
	}

	fmt.Fprintf(w, "%s\n\n%s\n", rec.Title, rec.Content)
	if rec.Comment != "" {
		fmt.Fprintf(w, "\n【注释】%s\n", rec.Comment)
	}
	fmt.Fprintf(w, "\nInput:   %s\n", rec.UserInput)
	fmt.Fprintf(w, "Image:   %s\n", rec.ImageURL)
	fmt.Fprintf(w, "Card:    %t\n", rec.CardComposed)
	fmt.Fprintf(w, "Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid history ID %q", arg)
	}
	return id, nil
}

func describeLookup(id int64, err error) error {
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no history entry with ID %d", id)
	}
	return err
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
