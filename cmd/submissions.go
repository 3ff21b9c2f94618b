package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
	"github.com/giovannicarmo/ecoleta-ui/internal/store"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Inspect the submission journal",
	Long:  "Commands for listing and viewing recorded collection point submissions.",
}

// -- submissions list --

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded submissions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		subs, err := st.ListSubmissions(ctx, store.SubmissionFilter{
			Status: model.SubmissionStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "submissions list")
		}

		if len(subs) == 0 && output == "table" {
			fmt.Fprintln(os.Stderr, "No submissions found.")
			return nil
		}

		return writeSubmissions(os.Stdout, subs, output)
	},
}

// -- submissions show --

var submissionsShowCmd = &cobra.Command{
	Use:   "show <submission-id>",
	Short: "Show the full payload of a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sub, err := st.GetSubmission(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "submissions show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	},
}

func init() {
	submissionsListCmd.Flags().String("status", "", "filter by status (pending, created, failed)")
	submissionsListCmd.Flags().Int("limit", 50, "max number of submissions to display")
	submissionsListCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")

	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsShowCmd)
	rootCmd.AddCommand(submissionsCmd)
}

// writeSubmissions renders subs in the requested format.
func writeSubmissions(out io.Writer, subs []model.Submission, format string) error {
	switch format {
	case "table", "":
		formatSubmissionsList(out, subs)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(subs)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(subs); err != nil {
			return eris.Wrap(err, "submissions: encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}

// formatSubmissionsList writes a tabular list of submissions to w.
func formatSubmissionsList(out io.Writer, subs []model.Submission) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tUF\tCITY\tITEMS\tSTATUS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t--\t----\t-----\t------\t-------")

	for _, s := range subs {
		name := s.Payload.Name
		if r := []rune(name); len(r) > 30 {
			name = string(r[:27]) + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(s.ID),
			name,
			s.Payload.UF,
			s.Payload.City,
			len(s.Payload.Items),
			s.Status,
			s.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
