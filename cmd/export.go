package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/rankrent-cli/internal/plan"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the plan as YAML for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readPlan(cfg.Plan.Path)
		if err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plan %s is inconsistent: %w", cfg.Plan.Path, err)
		}

		out := exportOut
		if out == "" {
			out = plan.YAMLPath(cfg.Plan.Path)
		}
		if err := plan.ExportYAML(out, p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default: plan path with .yaml extension)")
	rootCmd.AddCommand(exportCmd)
}
