package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runPages   []int
	runDir     string
	runPersist bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline for the given listing pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runPersist {
			cfg.Pipeline.Persist = true
		}

		dir := runDir
		if dir == "" {
			dir = cfg.Download.Dir
		}

		env, err := initPipeline(ctx, dir)
		if err != nil {
			return err
		}
		defer env.Close()

		state, err := env.Pipeline.Run(ctx, runPages, dir)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		report := state.FinalReport()
		if report == nil {
			return eris.New("run finished without a final report")
		}
		zap.L().Info("ingestion complete",
			zap.String("run_id", state.RunID),
			zap.String("status", report.FinalStatus),
			zap.Int("errors", report.ErrorsEncountered),
		)

		// Print the final report JSON to stdout.
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().IntSliceVar(&runPages, "pages", []int{1}, "listing page numbers to scrape")
	runCmd.Flags().StringVar(&runDir, "dir", "", "download directory (default from config)")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "persist analyzed documents and team assignments")
	rootCmd.AddCommand(runCmd)
}
