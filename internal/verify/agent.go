package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
	"github.com/mtnops/snowprobe/internal/scrape"
)

// Agent runs the verification phases in their fixed order: scraper,
// government forecast, station telemetry, global forecast, webcams.
// Execution is strictly sequential; the only concurrency primitives in play
// are the per-attempt deadline and the pacer's wait. A single source's
// failure is always captured as a result, while a fault in phase iteration
// itself aborts the whole run.
type Agent struct {
	cfg       model.Config
	reg       *registry.Registry
	verifiers []Verifier
	pacer     *Pacer
	log       *slog.Logger
}

// Option adjusts agent construction; used mainly by tests.
type Option func(*Agent)

// WithVerifiers replaces the built-in verifier set. Order is preserved.
func WithVerifiers(vs ...Verifier) Option {
	return func(a *Agent) { a.verifiers = vs }
}

// New wires an agent from one immutable config. A nil engine selects the
// built-in HTTP scrape engine; a nil logger discards logs.
func New(cfg model.Config, reg *registry.Registry, engine scrape.Engine, log *slog.Logger, opts ...Option) *Agent {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := httpx.NewClient(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy)
	retry := httpx.RetryConfig{
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
	}
	if engine == nil {
		engine = scrape.NewHTTPEngine(client, cfg.HTTP.UserAgent)
	}

	a := &Agent{
		cfg: cfg,
		reg: reg,
		verifiers: []Verifier{
			&ScraperVerifier{Engine: engine, Retry: retry},
			&NOAAVerifier{Client: client, UserAgent: cfg.HTTP.UserAgent, Retry: retry, StaleAfter: cfg.StaleThreshold},
			&SNOTELVerifier{Client: client, UserAgent: cfg.HTTP.UserAgent, Retry: retry, StaleAfter: cfg.StaleThreshold},
			&MeteoVerifier{Client: client, UserAgent: cfg.HTTP.UserAgent, Retry: retry},
			&WebcamVerifier{Client: client, UserAgent: cfg.HTTP.UserAgent, Retry: retry, StaleAfter: cfg.StaleThreshold},
		},
		pacer: NewPacer(cfg.DelayBetweenRequests),
		log:   log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the phases selected by the config's filters and returns the
// flat result list in visitation order. Results are complete even when
// every source fails; only a run-level fault returns an error.
func (a *Agent) Run(ctx context.Context) ([]model.Result, error) {
	return a.run(ctx, a.cfg.SourceTypes, a.cfg.MountainIDs)
}

// RunTypes verifies only the given source types, honoring the configured
// mountain filter.
func (a *Agent) RunTypes(ctx context.Context, types ...model.SourceType) ([]model.Result, error) {
	return a.run(ctx, types, a.cfg.MountainIDs)
}

// RunMountains verifies only the given mountains across the configured
// source types.
func (a *Agent) RunMountains(ctx context.Context, ids ...string) ([]model.Result, error) {
	return a.run(ctx, a.cfg.SourceTypes, ids)
}

// QuickCheck verifies every source type for a single mountain.
func (a *Agent) QuickCheck(ctx context.Context, id string) ([]model.Result, error) {
	if _, ok := a.reg.Get(id); !ok {
		return nil, fmt.Errorf("unknown mountain %q", id)
	}
	return a.run(ctx, nil, []string{id})
}

func (a *Agent) run(ctx context.Context, types []model.SourceType, ids []string) ([]model.Result, error) {
	if a.cfg.SaveToDB {
		a.log.Warn("database persistence is not implemented; results will not be stored")
	}
	if a.cfg.MaxConcurrent > 1 {
		a.log.Warn("max_concurrent is reserved and not enforced; running sequentially",
			"max_concurrent", a.cfg.MaxConcurrent)
	}

	wantType := func(t model.SourceType) bool {
		if len(types) == 0 {
			return true
		}
		for _, st := range types {
			if st == t {
				return true
			}
		}
		return false
	}

	mountains := a.reg.Filter(ids)
	var results []model.Result

	for _, v := range a.verifiers {
		if !wantType(v.Type()) {
			continue
		}
		a.log.Info("phase start", "type", v.Type(), "mountains", len(mountains))
		phaseStart := len(results)

		for _, m := range mountains {
			if err := a.pacer.Wait(ctx, string(v.Type())); err != nil {
				// Run-level fault: abort everything rather than emit a
				// partial picture of the pipeline.
				return nil, fmt.Errorf("phase %s aborted: %w", v.Type(), err)
			}
			results = append(results, v.Verify(ctx, m)...)
		}

		ok, warn, bad := 0, 0, 0
		for _, r := range results[phaseStart:] {
			switch r.Status {
			case model.StatusSuccess:
				ok++
			case model.StatusWarning:
				warn++
			default:
				bad++
			}
		}
		a.log.Info("phase done", "type", v.Type(), "success", ok, "warnings", warn, "errors", bad)
	}

	return results, nil
}
