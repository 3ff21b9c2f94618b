package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect the collectible item catalog",
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the item categories served by the backend",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("backend"); err != nil {
			return err
		}

		items, err := initBackend().ListItems(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "items list")
		}

		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No items found.")
			return nil
		}

		formatItemsList(os.Stdout, items)
		return nil
	},
}

func init() {
	itemsCmd.AddCommand(itemsListCmd)
	rootCmd.AddCommand(itemsCmd)
}

// formatItemsList writes a tabular list of categories to w.
func formatItemsList(out io.Writer, items []model.Category) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tIMAGE")
	_, _ = fmt.Fprintln(w, "--\t-----\t-----")
	for _, it := range items {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", it.ID, it.Title, it.ImageURL)
	}
	_ = w.Flush()
}
