package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/rankrent-cli/internal/model"
)

var (
	clusterKeyword  string
	clusterFrom     string
	clusterTo       string
	clusterType     string
	clusterName     string
	clusterKeywords []string
	clusterRef      string
	clusterMoveTo   string
	clusterIndex    int
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Edit the clusters of the project plan",
	Long:  "Explicit plan edits. Every edit keeps each keyword in exactly one cluster; an edit that would break that is rejected and nothing is written.",
}

var clusterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clusters with their keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readPlan(cfg.Plan.Path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range p.AllClusters() {
			fmt.Fprintf(out, "%s (volume %d, %d keywords)\n", c.Ref(), c.Volume, len(c.Keywords))
			for _, k := range c.Keywords {
				fmt.Fprintf(out, "  - %s (%d)\n", k.Keyword, k.Volume)
			}
		}
		return nil
	},
}

var clusterMoveCmd = &cobra.Command{
	Use:     "move",
	Short:   "Move a keyword from one cluster to another",
	Example: `  rankrent-cli cluster move --keyword "fontanero 24 horas" --from "service:Fontanero" --to "service:Urgencias"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := model.ParseClusterRef(clusterFrom)
		if err != nil {
			return err
		}
		to, err := model.ParseClusterRef(clusterTo)
		if err != nil {
			return err
		}
		if _, err := editPlan(cfg.Plan.Path, func(p *model.Plan) error {
			return p.MoveKeyword(from, to, clusterKeyword)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "moved %q from %s to %s\n", clusterKeyword, from, to)
		return nil
	},
}

var clusterAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a cluster from keywords already in the plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := model.ParseClusterType(clusterType)
		if err != nil {
			return err
		}
		if _, err := editPlan(cfg.Plan.Path, func(p *model.Plan) error {
			return p.AddCluster(typ, clusterName, clusterKeywords)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s with %d keywords\n", model.ClusterRef{Type: typ, Name: clusterName}, len(clusterKeywords))
		return nil
	},
}

var clusterDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a cluster, moving its keywords to another cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := model.ParseClusterRef(clusterRef)
		if err != nil {
			return err
		}
		var moveTo *model.ClusterRef
		if clusterMoveTo != "" {
			to, err := model.ParseClusterRef(clusterMoveTo)
			if err != nil {
				return err
			}
			moveTo = &to
		}
		if _, err := editPlan(cfg.Plan.Path, func(p *model.Plan) error {
			return p.DeleteCluster(ref, moveTo)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", ref)
		return nil
	},
}

var clusterSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Choose which meta suggestion a cluster uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := model.ParseClusterRef(clusterRef)
		if err != nil {
			return err
		}
		if _, err := editPlan(cfg.Plan.Path, func(p *model.Plan) error {
			return p.SelectSuggestion(ref, clusterIndex)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s now uses suggestion %d\n", ref, clusterIndex)
		return nil
	},
}

func init() {
	clusterMoveCmd.Flags().StringVar(&clusterKeyword, "keyword", "", "keyword to move")
	clusterMoveCmd.Flags().StringVar(&clusterFrom, "from", "", "source cluster, as type:name")
	clusterMoveCmd.Flags().StringVar(&clusterTo, "to", "", "target cluster, as type:name")
	_ = clusterMoveCmd.MarkFlagRequired("keyword")
	_ = clusterMoveCmd.MarkFlagRequired("from")
	_ = clusterMoveCmd.MarkFlagRequired("to")

	clusterAddCmd.Flags().StringVar(&clusterType, "type", "service", "cluster type: service or blog")
	clusterAddCmd.Flags().StringVar(&clusterName, "name", "", "cluster name")
	clusterAddCmd.Flags().StringSliceVar(&clusterKeywords, "keywords", nil, "keywords to move into the new cluster")
	_ = clusterAddCmd.MarkFlagRequired("name")
	_ = clusterAddCmd.MarkFlagRequired("keywords")

	clusterDeleteCmd.Flags().StringVar(&clusterRef, "cluster", "", "cluster to delete, as type:name")
	clusterDeleteCmd.Flags().StringVar(&clusterMoveTo, "move-to", "", "cluster that receives the keywords, as type:name")
	_ = clusterDeleteCmd.MarkFlagRequired("cluster")

	clusterSelectCmd.Flags().StringVar(&clusterRef, "cluster", "", "cluster, as type:name")
	clusterSelectCmd.Flags().IntVar(&clusterIndex, "index", 0, "suggestion index")
	_ = clusterSelectCmd.MarkFlagRequired("cluster")

	clusterCmd.AddCommand(clusterListCmd, clusterMoveCmd, clusterAddCmd, clusterDeleteCmd, clusterSelectCmd)
	rootCmd.AddCommand(clusterCmd)
}
