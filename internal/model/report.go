package model

import "time"

// Report aggregates the full result list of one verification run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	Total    int `json:"total"`
	Success  int `json:"success"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`

	// ByType summarizes each verified source type. Broken counts hard
	// errors only; warnings appear in the top-level counter but not here.
	ByType map[SourceType]TypeSummary `json:"by_type"`

	Results []Result `json:"results"`

	// Histogram covers the full ErrorCategory set, zero-filled. Its values
	// sum to Errors + Warnings.
	Histogram map[ErrorCategory]int `json:"error_histogram"`

	Recommendations []Recommendation `json:"recommendations"`
}

// TypeSummary is the per-source-type breakdown.
type TypeSummary struct {
	Total   int `json:"total"`
	Working int `json:"working"` // success only
	Broken  int `json:"broken"`  // error only, warnings excluded
}

// Priority ranks a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a remediation suggestion derived from the error
// histogram. It names every source currently affected by its category.
type Recommendation struct {
	Category   ErrorCategory `json:"category"`
	Priority   Priority      `json:"priority"`
	Affected   []string      `json:"affected"`
	Suggestion string        `json:"suggestion"`
}
