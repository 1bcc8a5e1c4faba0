package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mtnops/snowprobe/internal/model"
)

// typeLabels are the operator-facing names for the narrative document.
var typeLabels = map[model.SourceType]string{
	model.SourceScraper: "Resort websites",
	model.SourceNOAA:    "Government forecast",
	model.SourceSNOTEL:  "Snow telemetry",
	model.SourceMeteo:   "Global forecast",
	model.SourceWebcam:  "Webcams",
}

// Save writes the JSON and Markdown renderings into dir, named by run date.
// It returns the written paths.
func Save(r *model.Report, dir string) (jsonPath, mdPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	base := FileBase(r)
	jsonPath = filepath.Join(dir, base+".json")
	mdPath = filepath.Join(dir, base+".md")

	if err := WriteJSON(r, jsonPath); err != nil {
		return "", "", err
	}
	if err := WriteMarkdown(r, mdPath); err != nil {
		return "", "", err
	}
	return jsonPath, mdPath, nil
}

// WriteJSON writes the structured report.
func WriteJSON(r *model.Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteMarkdown writes the narrative document.
func WriteMarkdown(r *model.Report, path string) error {
	return os.WriteFile(path, []byte(Markdown(r)), 0o644)
}

// Markdown renders the narrative report: executive summary, per-type
// breakdown, error categories, recommendations, and full per-source detail
// grouped by type.
func Markdown(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Ski Data Source Verification\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "## Executive summary\n\n")
	fmt.Fprintf(&b, "- Sources checked: **%d**\n", r.Total)
	fmt.Fprintf(&b, "- Healthy: **%d**\n", r.Success)
	fmt.Fprintf(&b, "- Degraded: **%d**\n", r.Warnings)
	fmt.Fprintf(&b, "- Failing: **%d**\n\n", r.Errors)

	fmt.Fprintf(&b, "## By source type\n\n")
	fmt.Fprintf(&b, "| Source | Checked | Working | Broken |\n")
	fmt.Fprintf(&b, "|---|---:|---:|---:|\n")
	for _, st := range model.PhaseOrder {
		ts, ok := r.ByType[st]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", typeLabels[st], ts.Total, ts.Working, ts.Broken)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Error categories\n\n")
	for _, c := range model.AllErrorCategories() {
		if n := r.Histogram[c]; n > 0 {
			fmt.Fprintf(&b, "- `%s`: %d\n", c, n)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Recommendations\n\n")
	if len(r.Recommendations) == 0 {
		b.WriteString("Nothing to do: all sources verified clean.\n\n")
	}
	for _, rec := range sortedByPriority(r.Recommendations) {
		fmt.Fprintf(&b, "### [%s] %s\n\n", strings.ToUpper(string(rec.Priority)), rec.Category)
		fmt.Fprintf(&b, "%s\n\n", rec.Suggestion)
		fmt.Fprintf(&b, "Affected: %s\n\n", strings.Join(rec.Affected, ", "))
	}

	fmt.Fprintf(&b, "## Details\n\n")
	for _, st := range model.PhaseOrder {
		var lines []string
		for _, res := range r.Results {
			if res.SourceType != st {
				continue
			}
			line := fmt.Sprintf("- `%s` — %s (%dms)", res.SourceID(), res.Status, res.ResponseTime.Milliseconds())
			if res.Quality != "" {
				line += fmt.Sprintf(", quality %s", res.Quality)
			}
			if res.Message != "" {
				line += fmt.Sprintf(": %s", res.Message)
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", typeLabels[st])
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\n")
	}

	return b.String()
}

// PrintSummary writes the condensed console view: counts plus the top three
// recommendations. It is printed at every run end, failures included.
func PrintSummary(w io.Writer, r *model.Report) {
	fmt.Fprintf(w, "\nVerification finished at %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  checked: %d   healthy: %d   degraded: %d   failing: %d\n",
		r.Total, r.Success, r.Warnings, r.Errors)

	for _, st := range model.PhaseOrder {
		if ts, ok := r.ByType[st]; ok {
			fmt.Fprintf(w, "  %-20s %d/%d working\n", typeLabels[st]+":", ts.Working, ts.Total)
		}
	}

	recs := sortedByPriority(r.Recommendations)
	if len(recs) > 3 {
		recs = recs[:3]
	}
	if len(recs) > 0 {
		fmt.Fprintf(w, "\nTop recommendations:\n")
		for _, rec := range recs {
			fmt.Fprintf(w, "  [%s] %s (%d affected): %s\n",
				strings.ToUpper(string(rec.Priority)), rec.Category, len(rec.Affected), rec.Suggestion)
		}
	}
}

var priorityRank = map[model.Priority]int{
	model.PriorityHigh:   0,
	model.PriorityMedium: 1,
	model.PriorityLow:    2,
}

// sortedByPriority orders recommendations high to low, keeping the fixed
// rule order within a priority.
func sortedByPriority(recs []model.Recommendation) []model.Recommendation {
	out := make([]model.Recommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}
