package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/config"
	"github.com/sells-group/rankrent-cli/internal/plan"
)

var researchFlags requestFlags

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Research keywords for a niche and city and build the project plan",
	Long:  "Runs deep research, LLM keyword ideas, competitor discovery through DataForSEO and competitor page scraping, then scores, filters and clusters the keywords and writes the plan.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(config.FlowResearch)
		if err != nil {
			return err
		}
		defer env.Tracker.Log()

		asm, err := newAssembler(env, true)
		if err != nil {
			return err
		}

		p, err := asm.Automated(ctx, researchFlags.request())
		if err != nil {
			return err
		}
		if err := plan.Save(cfg.Plan.Path, p); err != nil {
			return err
		}

		zap.L().Info("research complete",
			zap.String("plan", cfg.Plan.Path),
			zap.Int("services", len(p.Services)),
			zap.Int("blog", len(p.Blog)),
			zap.Int("keywords", p.KeywordCount()),
			zap.Int("competitors", len(p.RawData.Competitors)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "plan written to %s: %d service and %d blog clusters\n", cfg.Plan.Path, len(p.Services), len(p.Blog))
		return nil
	},
}

func init() {
	researchFlags.register(researchCmd)
	rootCmd.AddCommand(researchCmd)
}
