package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/collector"
	"github.com/regdesk/circular-cli/internal/export"
)

var (
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's documents to a spreadsheet or JSON file",
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
			return eris.Wrap(err, "export")
		}

		docs, err := st.ListDocuments(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "export: list documents")
		}

		bundle := &export.Bundle{Run: run, Documents: docs}

		// The scrape manifest is best-effort: export works without it.
		if m, err := collector.LoadManifest(run.DownloadDir); err == nil {
			bundle.Manifest = m
		} else {
			zap.L().Debug("export: no manifest found",
				zap.String("dir", run.DownloadDir),
				zap.Error(err))
		}

		out := exportOut
		if out == "" {
			ext := "xlsx"
			if exportFormat == "json" {
				ext = "json"
			}
			out = fmt.Sprintf("run_%s.%s", truncateID(run.ID), ext)
		}

		switch exportFormat {
		case "xlsx", "":
			err = export.WriteWorkbook(out, bundle)
		case "json":
			err = export.WriteJSON(out, bundle)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d document(s) to %s\n", len(docs), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx or json")
	rootCmd.AddCommand(exportCmd)
}
