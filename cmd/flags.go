package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/rankrent-cli/internal/plan"
)

// requestFlags are the business description flags shared by research and plan.
type requestFlags struct {
	niche       string
	city        string
	services    []string
	towns       []string
	designStyle string
	onePage     bool
	locations   bool
	deferMeta   bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.niche, "niche", "", "business niche, e.g. \"fontanero\" (required)")
	cmd.Flags().StringVar(&f.city, "city", "", "target city")
	cmd.Flags().StringSliceVar(&f.services, "services", nil, "specific services offered (comma-separated)")
	cmd.Flags().StringSliceVar(&f.towns, "towns", nil, "towns for location pages (default from config)")
	cmd.Flags().StringVar(&f.designStyle, "design-style", "modern", "design style recorded in the plan")
	cmd.Flags().BoolVar(&f.onePage, "one-page", false, "build a one-page site")
	cmd.Flags().BoolVar(&f.locations, "locations", false, "generate location pages")
	cmd.Flags().BoolVar(&f.deferMeta, "defer-meta", false, "skip metadata generation (run `meta fill` later)")
	_ = cmd.MarkFlagRequired("niche")
}

func (f *requestFlags) request() plan.Request {
	towns := f.towns
	if len(towns) == 0 {
		towns = cfg.Locations.Towns
	}
	return plan.Request{
		Niche:             f.niche,
		City:              f.city,
		Services:          f.services,
		Towns:             towns,
		DesignStyle:       f.designStyle,
		OnePageMode:       f.onePage,
		GenerateLocations: f.locations,
		DeferMeta:         f.deferMeta,
		SuggestionCount:   cfg.Research.SuggestionCount,
	}
}
