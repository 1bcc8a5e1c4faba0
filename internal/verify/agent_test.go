package verify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

func testConfig() model.Config {
	cfg := model.DefaultConfig()
	cfg.DelayBetweenRequests = 0 // no pacing in tests
	cfg.MaxRetries = 1
	cfg.Timeout = 5 * time.Second
	return cfg
}

func threeMountainRegistry() *registry.Registry {
	grid := func(x int) *registry.Grid { return &registry.Grid{Office: "REV", X: x, Y: 1} }
	return registry.New([]registry.Mountain{
		{ID: "alpha", Name: "Alpha", Lat: 39.1, Lng: -120.1, Grid: grid(10)},
		{ID: "bravo", Name: "Bravo", Lat: 39.2, Lng: -120.2, Grid: grid(20)},
		{ID: "charlie", Name: "Charlie", Lat: 39.3, Lng: -120.3}, // no grid
	})
}

func TestAgent_ForecastPhaseOverMixedRegistry(t *testing.T) {
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	fixedNow(t, at)

	var requests atomic.Int64
	server := noaaServer(t, at.Add(-time.Hour), &requests)

	cfg := testConfig()
	cfg.SourceTypes = []model.SourceType{model.SourceNOAA}
	agent := New(cfg, threeMountainRegistry(), nil, nil,
		WithVerifiers(newNOAAVerifier(server, cfg.StaleThreshold)))

	results, err := agent.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2 configured mountains × 4 sub-endpoints hit the network; the third
	// yields 4 missing_data results without a single request.
	if len(results) != 12 {
		t.Fatalf("results = %d, want 12", len(results))
	}
	if got := requests.Load(); got != 8 {
		t.Errorf("requests = %d, want 8", got)
	}

	missing := 0
	for _, r := range results {
		if r.ErrorCategory == model.CategoryMissingData {
			missing++
			if r.MountainID != "charlie" {
				t.Errorf("missing_data on %s, want charlie only", r.MountainID)
			}
		}
	}
	if missing != 4 {
		t.Errorf("missing_data results = %d, want 4", missing)
	}
}

func TestAgent_FilterToUnconfiguredMountainIssuesNoRequests(t *testing.T) {
	var requests atomic.Int64
	server := noaaServer(t, time.Now(), &requests)

	cfg := testConfig()
	cfg.SourceTypes = []model.SourceType{model.SourceSNOTEL}
	cfg.MountainIDs = []string{"charlie"}
	agent := New(cfg, threeMountainRegistry(), nil, nil,
		WithVerifiers(newSNOTELVerifier(server, cfg.StaleThreshold)))

	results, err := agent.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want exactly 1", len(results))
	}
	if results[0].ErrorCategory != model.CategoryMissingData {
		t.Errorf("category = %s, want missing_data", results[0].ErrorCategory)
	}
	if got := requests.Load(); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

// orderVerifier records visitation order and emits one success per mountain.
type orderVerifier struct {
	st    model.SourceType
	visit *[]string
}

func (o *orderVerifier) Type() model.SourceType { return o.st }

func (o *orderVerifier) Verify(ctx context.Context, m registry.Mountain) []model.Result {
	*o.visit = append(*o.visit, string(o.st)+":"+m.ID)
	r := newResult(o.st, m, "")
	r.Status = model.StatusSuccess
	return []model.Result{r}
}

func TestAgent_PhaseOrderAndVisitationOrder(t *testing.T) {
	var visits []string
	agent := New(testConfig(), threeMountainRegistry(), nil, nil, WithVerifiers(
		&orderVerifier{model.SourceScraper, &visits},
		&orderVerifier{model.SourceNOAA, &visits},
		&orderVerifier{model.SourceWebcam, &visits},
	))

	results, err := agent.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"scraper:alpha", "scraper:bravo", "scraper:charlie",
		"noaa_forecast:alpha", "noaa_forecast:bravo", "noaa_forecast:charlie",
		"webcam:alpha", "webcam:bravo", "webcam:charlie",
	}
	if len(visits) != len(want) {
		t.Fatalf("visits = %v", visits)
	}
	for i := range want {
		if visits[i] != want[i] {
			t.Fatalf("visit %d = %s, want %s (order must be phases outer, mountains inner)", i, visits[i], want[i])
		}
	}

	// Results accumulate in the same visitation order.
	for i, r := range results {
		if got := string(r.SourceType) + ":" + r.MountainID; got != want[i] {
			t.Errorf("result %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestAgent_TypeFilterSkipsPhases(t *testing.T) {
	var visits []string
	cfg := testConfig()
	cfg.SourceTypes = []model.SourceType{model.SourceNOAA}
	agent := New(cfg, threeMountainRegistry(), nil, nil, WithVerifiers(
		&orderVerifier{model.SourceScraper, &visits},
		&orderVerifier{model.SourceNOAA, &visits},
	))

	if _, err := agent.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, v := range visits {
		if v[:4] == "scra" {
			t.Errorf("scraper phase ran despite type filter: %v", visits)
		}
	}
	if len(visits) != 3 {
		t.Errorf("visits = %v, want only the noaa phase", visits)
	}
}

func TestAgent_QuickCheck(t *testing.T) {
	var visits []string
	agent := New(testConfig(), threeMountainRegistry(), nil, nil, WithVerifiers(
		&orderVerifier{model.SourceScraper, &visits},
		&orderVerifier{model.SourceNOAA, &visits},
	))

	results, err := agent.QuickCheck(context.Background(), "bravo")
	if err != nil {
		t.Fatalf("QuickCheck: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want one per type", len(results))
	}
	for _, r := range results {
		if r.MountainID != "bravo" {
			t.Errorf("result for %s, want bravo only", r.MountainID)
		}
	}

	if _, err := agent.QuickCheck(context.Background(), "nonesuch"); err == nil {
		t.Error("expected error for unknown mountain")
	}
}

func TestAgent_CancelledContextAbortsRun(t *testing.T) {
	cfg := testConfig()
	cfg.DelayBetweenRequests = time.Hour // force the pacer to block
	var visits []string
	agent := New(cfg, threeMountainRegistry(), nil, nil, WithVerifiers(
		&orderVerifier{model.SourceScraper, &visits},
	))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if _, err := agent.Run(ctx); err == nil {
		t.Fatal("expected run-level abort from cancelled context")
	}
	if len(visits) > 1 {
		t.Errorf("visits = %v, want the run to stop at the pacer", visits)
	}
}

func TestPacer_FirstImmediateThenSpaced(t *testing.T) {
	p := NewPacer(50 * time.Millisecond)

	start := time.Now()
	if err := p.Wait(context.Background(), "noaa"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if d := time.Since(start); d > 20*time.Millisecond {
		t.Errorf("first wait took %v, want immediate", d)
	}

	start = time.Now()
	if err := p.Wait(context.Background(), "noaa"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if d := time.Since(start); d < 30*time.Millisecond {
		t.Errorf("second wait took %v, want ~50ms spacing", d)
	}

	// Independent keys do not share the interval.
	start = time.Now()
	if err := p.Wait(context.Background(), "webcam"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if d := time.Since(start); d > 20*time.Millisecond {
		t.Errorf("new key wait took %v, want immediate", d)
	}
}

func TestDefaultConfig_Invariants(t *testing.T) {
	cfg := model.DefaultConfig()
	if cfg.MaxRetries < 1 || cfg.DelayBetweenRequests <= 0 || cfg.StaleThreshold <= 0 {
		t.Errorf("defaults = %+v", cfg)
	}
	if !cfg.WantsType(model.SourceWebcam) {
		t.Error("empty type filter must select every type")
	}
	_ = httpx.RetryConfig{MaxRetries: cfg.MaxRetries, RetryDelay: cfg.RetryDelay, Timeout: cfg.Timeout}
}
