package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/config"
)

var cfg *config.Config

// planPathFlag overrides cfg.Plan.Path for every command.
var planPathFlag string

var rootCmd = &cobra.Command{
	Use:   "rankrent-cli",
	Short: "Keyword research and clustering for rank-and-rent sites",
	Long:  "Imports or researches keywords for a local service niche, scores and filters them, clusters them into service and blog pages with an LLM, and writes the project plan consumed by the site generator.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if planPathFlag != "" {
			cfg.Plan.Path = planPathFlag
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&planPathFlag, "plan", "", "plan file path (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
