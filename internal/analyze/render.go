package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/malcamp/internal/model"
)

// Format selects an analysis renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Render writes the report in the given format.
func Render(w io.Writer, r *model.AnalysisReport, format Format) error {
	switch format {
	case FormatJSON, "":
		return RenderJSON(w, r)
	case FormatMarkdown, "md":
		return RenderMarkdown(w, r)
	}
	return fmt.Errorf("unknown format %q", format)
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, r *model.AnalysisReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderMarkdown writes the comparison table and skipped outputs.
func RenderMarkdown(w io.Writer, r *model.AnalysisReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# PfPR analysis: %s\n\n", r.ExperimentID)
	fmt.Fprintf(&b, "Generated %s from %d samples.\n\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"), len(r.Samples))

	if len(r.Comparisons) == 0 {
		b.WriteString("No samples.\n")
	} else {
		b.WriteString("| Site | Intervention | Coverage | Runs | Mean PfPR | Baseline | Reduction |\n")
		b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
		for _, c := range r.Comparisons {
			baseline, reduction := "n/a", "n/a"
			if c.HasBaseline {
				baseline = fmt.Sprintf("%.4f", c.BaselinePfPR)
				reduction = fmt.Sprintf("%.1f%%", c.RelativeReduction*100)
			}
			fmt.Fprintf(&b, "| %s | %s | %.2f | %d | %.4f | %s | %s |\n",
				c.Site, c.Intervention, c.Coverage, c.Samples, c.MeanPfPR, baseline, reduction)
		}
	}

	if len(r.Skipped) > 0 {
		b.WriteString("\n## Skipped\n\n")
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
