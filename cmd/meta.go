package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/rankrent-cli/internal/config"
	"github.com/sells-group/rankrent-cli/internal/meta"
	"github.com/sells-group/rankrent-cli/internal/model"
)

var metaCluster string

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Manage page metadata suggestions",
}

var metaRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Regenerate the H1, SEO title and description suggestions of one cluster",
	Example: `  rankrent-cli meta regenerate --cluster "service:Reparación de calderas"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := model.ParseClusterRef(metaCluster)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(config.FlowMeta)
		if err != nil {
			return err
		}
		defer env.Tracker.Log()

		p, err := regenerateMeta(ctx, env.Meta, cfg.Plan.Path, ref)
		if err != nil {
			return err
		}
		c, _ := p.Cluster(ref)
		for i, s := range c.MetaSuggestions {
			fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s | %s | %s\n", i, s.H1, s.SEOTitle, s.SEODescription)
		}
		return nil
	},
}

var metaFillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Generate suggestions for every cluster that has none",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(config.FlowMeta)
		if err != nil {
			return err
		}
		defer env.Tracker.Log()

		filled, err := fillMeta(ctx, env.Meta, cfg.Plan.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "filled %d clusters\n", filled)
		return nil
	},
}

// regenerateMeta replaces one cluster's suggestions and saves the plan. The
// model call runs on a snapshot without holding planMu.
func regenerateMeta(ctx context.Context, mg *meta.Generator, path string, ref model.ClusterRef) (*model.Plan, error) {
	snapshot, err := readPlan(path)
	if err != nil {
		return nil, err
	}
	req, err := meta.RequestFor(snapshot, ref)
	if err != nil {
		return nil, err
	}
	suggestions, err := mg.Suggest(ctx, req)
	if err != nil {
		return nil, err
	}
	return editPlan(path, func(p *model.Plan) error {
		return p.SetMetaSuggestions(ref, suggestions)
	})
}

// fillMeta generates suggestions for every cluster without any, then stores
// them on the clusters that still exist and are still empty.
func fillMeta(ctx context.Context, mg *meta.Generator, path string) (int, error) {
	snapshot, err := readPlan(path)
	if err != nil {
		return 0, err
	}
	suggestions, err := mg.SuggestMissing(ctx, snapshot)
	if err != nil {
		return 0, err
	}
	if len(suggestions) == 0 {
		return 0, nil
	}
	var filled int
	if _, err := editPlan(path, func(p *model.Plan) error {
		filled = meta.ApplyMissing(p, suggestions)
		return nil
	}); err != nil {
		return 0, err
	}
	return filled, nil
}

func init() {
	metaRegenerateCmd.Flags().StringVar(&metaCluster, "cluster", "", "cluster to regenerate, as type:name")
	_ = metaRegenerateCmd.MarkFlagRequired("cluster")

	metaCmd.AddCommand(metaRegenerateCmd)
	metaCmd.AddCommand(metaFillCmd)
	rootCmd.AddCommand(metaCmd)
}
