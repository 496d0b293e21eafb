package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sells-group/rankrent-cli/internal/generation"
)

var cacheLabel string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or invalidate the generation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts per label",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := generation.NewCache(cfg.LLM.CacheDir)
		if err != nil {
			return err
		}
		st, err := c.Stats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d entries, %d bytes\n", c.Dir(), st.Entries, st.Bytes)
		labels := make([]string, 0, len(st.ByLabel))
		for l := range st.ByLabel {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(out, "  %-28s %d\n", l, st.ByLabel[l])
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cache entries, all of them or one label",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := generation.NewCache(cfg.LLM.CacheDir)
		if err != nil {
			return err
		}
		n, err := c.Clear(cacheLabel)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheLabel, "label", "", "only clear entries with this label, e.g. meta or clustering")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
