// Package filter deduplicates scored keywords and applies the research
// thresholds.
package filter

import (
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/model"
	"github.com/sells-group/rankrent-cli/internal/scorer"
)

// topResults is the SERP rank cut-off applied when Top10Filter is set.
const topResults = 10

// Options are the research thresholds. Bounds are inclusive.
type Options struct {
	Top10Filter          bool    `json:"top10Filter" mapstructure:"top10_filter"`
	MinRelevanceScore    float64 `json:"minRelevanceScore" mapstructure:"min_relevance_score"`
	MinSearchVolume      int     `json:"minSearchVolume" mapstructure:"min_search_volume"`
	IncludeInformational bool    `json:"includeInformational" mapstructure:"include_informational"`
}

// Report counts what each stage removed.
type Report struct {
	Input         int `json:"input"`
	Duplicates    int `json:"duplicates"`
	Informational int `json:"informational"`
	BelowScore    int `json:"below_score"`
	BelowVolume   int `json:"below_volume"`
	OutsideTop10  int `json:"outside_top10"`
	Output        int `json:"output"`
}

// Dedupe collapses keywords whose normalized text is equal, keeping the
// first occurrence's position and text. Records with empty keys are dropped.
func Dedupe(kws []model.Keyword) []model.Keyword {
	index := make(map[string]int, len(kws))
	out := make([]model.Keyword, 0, len(kws))
	for _, kw := range kws {
		key := kw.Key()
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			out[i] = model.MergeKeywords(out[i], kw.Clamp())
			continue
		}
		index[key] = len(out)
		out = append(out, kw.Clamp())
	}
	return out
}

// Apply deduplicates kws and drops those failing opts. Output keeps
// first-seen order.
func Apply(kws []model.Keyword, opts Options) ([]model.Keyword, Report) {
	rep := Report{Input: len(kws)}

	deduped := Dedupe(kws)
	rep.Duplicates = len(kws) - len(deduped)

	out := make([]model.Keyword, 0, len(deduped))
	for _, kw := range deduped {
		switch {
		case !opts.IncludeInformational && !isManual(kw) && scorer.IsPurelyInformational(kw.RelevanceReasons):
			rep.Informational++
		case kw.RelevanceScore < opts.MinRelevanceScore:
			rep.BelowScore++
		case kw.Volume < opts.MinSearchVolume:
			rep.BelowVolume++
		case opts.Top10Filter && outsideTop10(kw):
			rep.OutsideTop10++
		default:
			out = append(out, kw)
		}
	}
	rep.Output = len(out)

	zap.L().Info("filter: keywords filtered",
		zap.Int("input", rep.Input),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("informational", rep.Informational),
		zap.Int("below_score", rep.BelowScore),
		zap.Int("below_volume", rep.BelowVolume),
		zap.Int("outside_top10", rep.OutsideTop10),
		zap.Int("output", rep.Output),
	)
	return out, rep
}

// Filter is Apply without the report.
func Filter(kws []model.Keyword, opts Options) []model.Keyword {
	out, _ := Apply(kws, opts)
	return out
}

func isManual(kw model.Keyword) bool {
	if kw.Source.IsManual() {
		return true
	}
	for _, s := range kw.Sources {
		if s.IsManual() {
			return true
		}
	}
	return false
}

// outsideTop10 is true only for competitor-derived keywords with a known
// rank worse than 10. Unknown rank (0) is kept.
func outsideTop10(kw model.Keyword) bool {
	if kw.Position <= topResults {
		return false
	}
	if kw.Source == model.SourceCompetitorScrape {
		return true
	}
	for _, s := range kw.Sources {
		if s == model.SourceCompetitorScrape {
			return !isManual(kw)
		}
	}
	return false
}
