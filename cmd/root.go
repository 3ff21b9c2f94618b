package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/giovannicarmo/ecoleta-ui/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ecoleta-ui",
	Short: "Collection point registration web app",
	Long:  "Serves the Ecoleta page that registers waste collection points, with IBGE state and city lookup, a map picker and item selection.",
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
