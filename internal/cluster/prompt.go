package cluster

import (
	"fmt"
	"strings"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// BuildPrompt renders the clustering prompt. Identical inputs render
// byte-identical prompts so the generation cache can serve re-runs.
func BuildPrompt(in Input, kws []model.Keyword) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Group the keywords below into topic clusters for a local %q business", in.Niche)
	if in.City != "" {
		fmt.Fprintf(&b, " in %s", in.City)
	}
	b.WriteString(".\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Each SERVICE cluster is one commercial service page; each BLOG cluster is one informational article.\n")
	b.WriteString("- Assign every keyword to exactly one cluster. Do not repeat a keyword in two clusters.\n")
	b.WriteString("- Copy keywords exactly as written. Do not translate or invent new ones.\n")
	b.WriteString("- Name each cluster in the language of its keywords, as a page title would read.\n")
	b.WriteString("- Prefer fewer, larger clusters over many clusters with one keyword.\n")
	if len(in.Services) > 0 {
		fmt.Fprintf(&b, "- The business offers these specific services; give each its own SERVICE cluster when keywords support it: %s.\n",
			strings.Join(in.Services, ", "))
	}
	b.WriteString("\n")

	if !in.RichContext.Empty() {
		writeContext(&b, in.RichContext)
	}

	b.WriteString("Keywords (monthly search volume):\n")
	for _, kw := range kws {
		fmt.Fprintf(&b, "- %s (%d)\n", kw.Keyword, kw.Volume)
	}

	b.WriteString("\nReturn JSON only, in this shape:\n")
	b.WriteString(`{"services":[{"name":"...","keywords":["..."]}],"blog":[{"name":"...","keywords":["..."]}]}`)
	b.WriteString("\n")
	return b.String()
}

func writeContext(b *strings.Builder, rc *model.RichContext) {
	b.WriteString("Background research:\n")
	writeList(b, "Main topics", rc.MainKeywords)
	writeList(b, "Customer pain points", rc.PainPoints)
	writeList(b, "Related entities", rc.SemanticEntities)
	if len(rc.FAQ) > 0 {
		qs := make([]string, 0, len(rc.FAQ))
		for _, f := range rc.FAQ {
			qs = append(qs, f.Question)
		}
		writeList(b, "Common questions", qs)
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(items, "; "))
}
