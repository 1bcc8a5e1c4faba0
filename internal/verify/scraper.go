package verify

import (
	"context"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
	"github.com/mtnops/snowprobe/internal/scrape"
)

// ScraperVerifier exercises a mountain's resort-website scrape. The engine
// is a black box; this verifier only classifies its outcome and grades the
// extracted fields.
type ScraperVerifier struct {
	Engine scrape.Engine
	Retry  httpx.RetryConfig
}

func (v *ScraperVerifier) Type() model.SourceType { return model.SourceScraper }

func (v *ScraperVerifier) Verify(ctx context.Context, m registry.Mountain) []model.Result {
	if m.Scrape == nil || m.Scrape.URL == "" {
		return []model.Result{missingData(model.SourceScraper, m, "", "no scrape configuration for this mountain")}
	}

	r := newResult(model.SourceScraper, m, "")
	start := time.Now()
	var observed *scrape.Outcome // last response seen, kept across retries
	out, err := httpx.Do(ctx, v.Retry, func(ctx context.Context) (*scrape.Outcome, error) {
		o, err := v.Engine.Scrape(ctx, *m.Scrape)
		if o != nil {
			observed = o
		}
		return o, err
	})
	elapsed := time.Since(start)

	if err != nil {
		var body string
		var status int
		if observed != nil {
			body, status = observed.Body, observed.HTTPStatus
		}
		return []model.Result{failed(r, err, body, status, elapsed)}
	}

	f := out.Fields
	r.HTTPStatus = out.HTTPStatus
	r.Detail = model.ScrapeDetail{
		LiftsOpen:  f.LiftsOpen,
		LiftsTotal: f.LiftsTotal,
		RunsOpen:   f.RunsOpen,
		RunsTotal:  f.RunsTotal,
		Condition:  f.Status,
	}
	return []model.Result{succeeded(r, scrapeQuality(f), elapsed)}
}

// scrapeQuality grades extraction completeness: lift counts, run counts and
// open/closed status all present is excellent; status plus one count good;
// a count alone fair; nothing poor.
func scrapeQuality(f scrape.Fields) model.QualityTier {
	counts := 0
	if f.LiftsOpen != nil || f.LiftsTotal != nil {
		counts++
	}
	if f.RunsOpen != nil || f.RunsTotal != nil {
		counts++
	}
	hasStatus := f.Status != ""

	switch {
	case hasStatus && counts == 2:
		return model.QualityExcellent
	case hasStatus && counts >= 1:
		return model.QualityGood
	case counts >= 1 || hasStatus:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}
