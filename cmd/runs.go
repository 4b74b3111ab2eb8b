package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/regdesk/circular-cli/internal/model"
	"github.com/regdesk/circular-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ingestion run history",
	Long:  "Commands for listing, viewing, clearing, and summarizing ingestion runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingestion runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs clear --

var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete finished runs and their documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.ClearRuns(ctx)
		if err != nil {
			return eris.Wrap(err, "runs clear")
		}

		fmt.Printf("Cleared %d finished run(s).\n", n)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stats, err := st.RunStats(ctx)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPAGES\tSTATUS\tSTAGE\tERRORS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-----\t------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(r.ID),
			len(r.Pages),
			r.Status,
			r.CurrentStage,
			len(r.Errors),
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s *store.RunStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.TotalRuns)
	_, _ = fmt.Fprintf(w, "  Complete:\t%d\n", s.ByStatus[model.RunStatusComplete])
	_, _ = fmt.Fprintf(w, "  Failed:\t%d\n", s.ByStatus[model.RunStatusFailed])
	_, _ = fmt.Fprintf(w, "  Running:\t%d\n", s.ByStatus[model.RunStatusRunning])
	_, _ = fmt.Fprintf(w, "  Queued:\t%d\n", s.ByStatus[model.RunStatusQueued])
	_, _ = fmt.Fprintf(w, "Documents:\t%d\n", s.Documents)
	_, _ = fmt.Fprintf(w, "Actionable items:\t%d\n", s.ActionableItems)
	_, _ = fmt.Fprintf(w, "Team assignments:\t%d\n", s.Assignments)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
