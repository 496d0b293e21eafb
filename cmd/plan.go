package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/config"
	"github.com/sells-group/rankrent-cli/internal/importer"
	"github.com/sells-group/rankrent-cli/internal/plan"
)

var (
	planFlags      requestFlags
	planInputFile  string
	planFormatFlag string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build the project plan from a keyword file",
	Long:  "Imports keywords from a CSV, text, JSON or XLSX export, then scores, filters and clusters them and writes the plan. Competitor discovery is skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(config.FlowPlan)
		if err != nil {
			return err
		}
		defer env.Tracker.Log()

		kws, err := importer.ImportFile(planInputFile, importOptions(cfg, importer.Format(planFormatFlag)))
		if err != nil {
			return err
		}
		if len(kws) == 0 {
			return fmt.Errorf("no keywords found in %s", planInputFile)
		}

		asm, err := newAssembler(env, false)
		if err != nil {
			return err
		}

		p, err := asm.Manual(ctx, planFlags.request(), kws)
		if err != nil {
			return err
		}
		if err := plan.Save(cfg.Plan.Path, p); err != nil {
			return err
		}

		zap.L().Info("plan complete",
			zap.String("input", planInputFile),
			zap.String("plan", cfg.Plan.Path),
			zap.Int("imported", len(kws)),
			zap.Int("keywords", p.KeywordCount()),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "plan written to %s: %d service and %d blog clusters\n", cfg.Plan.Path, len(p.Services), len(p.Blog))
		return nil
	},
}

func init() {
	planFlags.register(planCmd)
	planCmd.Flags().StringVarP(&planInputFile, "file", "f", "", "keyword file (csv, txt, json or xlsx)")
	planCmd.Flags().StringVar(&planFormatFlag, "format", "", "input format: csv, text, json or xlsx (default from extension)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}
