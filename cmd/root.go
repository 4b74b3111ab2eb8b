package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/regdesk/circular-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "circular-cli",
	Short: "Regulatory circular ingestion pipeline",
	Long:  "Scrapes regulatory circulars from the securities regulator, extracts text from PDF attachments, classifies them via Claude, and persists documents with team routing suggestions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
