// Package report aggregates a run's result list into counts, per-type
// summaries, an error histogram, and prioritized recommendations, and
// renders the same report as JSON, Markdown, and a console summary.
package report

import (
	"fmt"
	"time"

	"github.com/mtnops/snowprobe/internal/model"
)

// now is the report clock (injectable for tests).
var now = func() time.Time { return time.Now().UTC() }

// Generate builds a report from the complete result list. It is a pure
// function of its input: identical results produce identical counts,
// histograms, and recommendations.
func Generate(results []model.Result) *model.Report {
	r := &model.Report{
		GeneratedAt: now(),
		Total:       len(results),
		ByType:      make(map[model.SourceType]model.TypeSummary),
		Results:     results,
		Histogram:   make(map[model.ErrorCategory]int, 10),
	}

	for _, c := range model.AllErrorCategories() {
		r.Histogram[c] = 0
	}

	for _, res := range results {
		ts := r.ByType[res.SourceType]
		ts.Total++
		switch res.Status {
		case model.StatusSuccess:
			r.Success++
			ts.Working++
		case model.StatusWarning:
			r.Warnings++
			// Warnings count at the top level but are deliberately not
			// "broken" in the per-type view. See DESIGN.md.
		case model.StatusError:
			r.Errors++
			ts.Broken++
		}
		if res.ErrorCategory != "" {
			r.Histogram[res.ErrorCategory]++
		}
		r.ByType[res.SourceType] = ts
	}

	r.Recommendations = recommend(results, r.Histogram)
	return r
}

// recRule is one fixed recommendation rule. Rules are evaluated in order;
// a rule fires when its category has a non-zero histogram count.
type recRule struct {
	category model.ErrorCategory
	priority func(affected int) model.Priority
	suggest  string
}

func fixed(p model.Priority) func(int) model.Priority {
	return func(int) model.Priority { return p }
}

var recRules = []recRule{
	{model.CategoryBotProtection, fixed(model.PriorityHigh),
		"Resort sites are blocking automated requests. Rotate user agents, add randomized delays, or move the affected scrapes behind a rendering proxy."},
	{model.CategoryInvalidSelector, fixed(model.PriorityHigh),
		"Extraction patterns no longer match the page. Review the affected resort pages and update their scrape configurations."},
	{model.CategoryDynamicContent, fixed(model.PriorityMedium),
		"Pages are rendered client-side and arrive as empty shells. Switch the affected scrapes to a headless-rendering fetch."},
	{model.CategoryAPIError, func(affected int) model.Priority {
		if affected > 3 {
			return model.PriorityHigh
		}
		return model.PriorityMedium
	},
		"Upstream APIs are rejecting requests or failing. Check endpoint paths, station ids, and upstream status pages."},
	{model.CategoryStaleData, fixed(model.PriorityMedium),
		"Sources are reachable but their data is old. Confirm the upstream feeds are still being updated, or raise the staleness threshold if the lag is seasonal."},
	{model.CategoryHTTPError, fixed(model.PriorityLow),
		"Some endpoints return unexpected HTTP statuses. Spot-check the affected URLs manually."},
	{model.CategoryNetworkTimeout, fixed(model.PriorityLow),
		"Requests are timing out. Consider a longer per-attempt timeout or fewer retries during upstream incidents."},
}

func recommend(results []model.Result, histogram map[model.ErrorCategory]int) []model.Recommendation {
	var recs []model.Recommendation
	for _, rule := range recRules {
		if histogram[rule.category] == 0 {
			continue
		}
		var affected []string
		for _, res := range results {
			if res.ErrorCategory == rule.category {
				affected = append(affected, res.SourceID())
			}
		}
		recs = append(recs, model.Recommendation{
			Category:   rule.category,
			Priority:   rule.priority(len(affected)),
			Affected:   affected,
			Suggestion: rule.suggest,
		})
	}
	return recs
}

// FileBase returns the per-run file name stem, keyed by run date.
func FileBase(r *model.Report) string {
	return fmt.Sprintf("verification-%s", r.GeneratedAt.Format("2006-01-02"))
}
