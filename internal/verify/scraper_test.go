package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
	"github.com/mtnops/snowprobe/internal/scrape"
)

type fakeEngine struct {
	out   *scrape.Outcome
	err   error
	calls int
}

func (f *fakeEngine) Scrape(ctx context.Context, cfg registry.ScrapeConfig) (*scrape.Outcome, error) {
	f.calls++
	return f.out, f.err
}

func intp(v int) *int { return &v }

func scrapeMountain() registry.Mountain {
	return registry.Mountain{
		ID:     "palisades",
		Name:   "Palisades Tahoe",
		Scrape: &registry.ScrapeConfig{URL: "https://example.com/conditions"},
	}
}

func TestScraperVerifier_MissingConfig(t *testing.T) {
	engine := &fakeEngine{}
	v := &ScraperVerifier{Engine: engine, Retry: httpx.RetryConfig{MaxRetries: 1}}

	results := v.Verify(context.Background(), registry.Mountain{ID: "bare"})
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.Status != model.StatusError || r.ErrorCategory != model.CategoryMissingData {
		t.Errorf("result = %s/%s, want error/missing_data", r.Status, r.ErrorCategory)
	}
	if engine.calls != 0 {
		t.Errorf("engine calls = %d, want 0 for a registry gap", engine.calls)
	}
}

func TestScraperVerifier_QualityTiers(t *testing.T) {
	tests := []struct {
		name   string
		fields scrape.Fields
		want   model.QualityTier
	}{
		{"all fields", scrape.Fields{LiftsOpen: intp(10), RunsOpen: intp(40), Status: "Open"}, model.QualityExcellent},
		{"status plus lifts", scrape.Fields{LiftsOpen: intp(10), Status: "Open"}, model.QualityGood},
		{"runs only", scrape.Fields{RunsOpen: intp(40)}, model.QualityFair},
		{"status only", scrape.Fields{Status: "Closed"}, model.QualityFair},
		{"nothing", scrape.Fields{}, model.QualityPoor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{out: &scrape.Outcome{Fields: tt.fields, HTTPStatus: 200}}
			v := &ScraperVerifier{Engine: engine, Retry: httpx.RetryConfig{MaxRetries: 1}}

			results := v.Verify(context.Background(), scrapeMountain())
			r := results[0]
			if r.Status != model.StatusSuccess {
				t.Fatalf("status = %s, want success", r.Status)
			}
			if r.Quality != tt.want {
				t.Errorf("quality = %s, want %s", r.Quality, tt.want)
			}
			if r.ErrorCategory != "" {
				t.Errorf("success result carries category %s", r.ErrorCategory)
			}
		})
	}
}

func TestScraperVerifier_RobotsDenialIsBotProtection(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("https://example.com: %w", scrape.ErrRobotsDisallowed)}
	v := &ScraperVerifier{Engine: engine, Retry: httpx.RetryConfig{MaxRetries: 1}}

	r := v.Verify(context.Background(), scrapeMountain())[0]
	if r.Status != model.StatusError || r.ErrorCategory != model.CategoryBotProtection {
		t.Errorf("result = %s/%s, want error/bot_protection", r.Status, r.ErrorCategory)
	}
}

func TestScraperVerifier_ChallengePageFromFailedAttempt(t *testing.T) {
	engine := &fakeEngine{
		out: &scrape.Outcome{HTTPStatus: 503, Body: "<html>cf-challenge</html>"},
		err: &httpx.StatusError{Code: 503, Body: "<html>cf-challenge</html>"},
	}
	v := &ScraperVerifier{Engine: engine, Retry: httpx.RetryConfig{MaxRetries: 1}}

	r := v.Verify(context.Background(), scrapeMountain())[0]
	if r.ErrorCategory != model.CategoryBotProtection {
		t.Errorf("category = %s, want bot_protection from the challenge body", r.ErrorCategory)
	}
}

func TestScraperVerifier_SelectorMiss(t *testing.T) {
	engine := &fakeEngine{
		out: &scrape.Outcome{HTTPStatus: 200, Body: "<html><body>a long page with plenty of static text that is definitely rendered server side and simply does not carry the expected conditions markup anywhere on it, which is the selector-drift case rather than the client-side shell case, so the classifier must blame the configured patterns rather than dynamic rendering</body></html>"},
		err: errors.New(`selector patterns matched nothing on https://example.com/conditions`),
	}
	v := &ScraperVerifier{Engine: engine, Retry: httpx.RetryConfig{MaxRetries: 1}}

	r := v.Verify(context.Background(), scrapeMountain())[0]
	if r.ErrorCategory != model.CategoryInvalidSelector {
		t.Errorf("category = %s, want invalid_selector", r.ErrorCategory)
	}
}

func TestScraperVerifier_DynamicShell(t *testing.T) {
	shell := `<html><head><script src="/app.js"></script></head><body><div id="root"></div></body></html>`
	engine := &fakeEngine{
		out: &scrape.Outcome{HTTPStatus: 200, Body: shell},
		err: errors.New("selector patterns matched nothing on https://example.com/conditions"),
	}
	v := &ScraperVerifier{Engine: engine, Retry: httpx.RetryConfig{MaxRetries: 1}}

	r := v.Verify(context.Background(), scrapeMountain())[0]
	if r.ErrorCategory != model.CategoryDynamicContent {
		t.Errorf("category = %s, want dynamic_content for a script shell", r.ErrorCategory)
	}
}
