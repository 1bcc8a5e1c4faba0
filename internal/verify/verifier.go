// Package verify contains the per-source-type verifiers and the agent that
// orchestrates them. A verifier never returns an error: every per-source
// failure, including registry-resolution gaps, is captured as a Result.
package verify

import (
	"context"
	"time"

	"github.com/mtnops/snowprobe/internal/categorize"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

// Verifier checks every source of one type for one mountain.
type Verifier interface {
	Type() model.SourceType
	Verify(ctx context.Context, m registry.Mountain) []model.Result
}

// now is the clock used for timestamps and staleness (injectable for tests).
var now = func() time.Time { return time.Now().UTC() }

func newResult(st model.SourceType, m registry.Mountain, target string) model.Result {
	return model.Result{
		SourceType:   st,
		MountainID:   m.ID,
		MountainName: m.Name,
		Target:       target,
		Timestamp:    now(),
	}
}

// missingData reports a registry-resolution gap. No network call happens.
func missingData(st model.SourceType, m registry.Mountain, target, message string) model.Result {
	r := newResult(st, m, target)
	r.Status = model.StatusError
	r.ErrorCategory = model.CategoryMissingData
	r.Message = message
	return r
}

// failed classifies err and fills the failure fields of a prepared result.
func failed(r model.Result, err error, body string, status int, elapsed time.Duration) model.Result {
	c := categorize.Categorize(r.SourceType, err, body, status)
	r.Status = model.StatusError
	r.ErrorCategory = c.Category
	r.Message = c.Message
	r.HTTPStatus = status
	r.ResponseTime = elapsed
	return r
}

// degraded marks a reachable-but-degraded source.
func degraded(r model.Result, category model.ErrorCategory, message string, elapsed time.Duration) model.Result {
	r.Status = model.StatusWarning
	r.ErrorCategory = category
	r.Message = message
	r.ResponseTime = elapsed
	return r
}

// succeeded finishes a healthy result.
func succeeded(r model.Result, quality model.QualityTier, elapsed time.Duration) model.Result {
	r.Status = model.StatusSuccess
	r.Quality = quality
	r.ResponseTime = elapsed
	return r
}
