package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

func camServer(t *testing.T, contentType string, contentLength int64, lastModified *time.Time) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
		if lastModified != nil {
			w.Header().Set("Last-Modified", lastModified.UTC().Format(time.RFC1123))
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func camMountain(url string) registry.Mountain {
	return registry.Mountain{
		ID: "palisades", Name: "Palisades Tahoe",
		Webcams: []registry.Webcam{{ID: "kt22", Name: "KT-22 Base", URL: url}},
	}
}

func newWebcamVerifier(server *httptest.Server, staleAfter time.Duration) *WebcamVerifier {
	return &WebcamVerifier{
		Client:     server.Client(),
		UserAgent:  "snowprobe-test",
		Retry:      httpx.RetryConfig{MaxRetries: 1, Timeout: 5 * time.Second},
		StaleAfter: staleAfter,
	}
}

func TestWebcamVerifier_FreshImage(t *testing.T) {
	lm := time.Now().Add(-30 * time.Minute)
	server := camServer(t, "image/jpeg", 240_000, &lm)

	r := newWebcamVerifier(server, 48*time.Hour).Verify(context.Background(), camMountain(server.URL+"/cam.jpg"))[0]
	if r.Status != model.StatusSuccess {
		t.Fatalf("status = %s (%s), want success", r.Status, r.Message)
	}
	d, ok := r.Detail.(model.WebcamDetail)
	if !ok {
		t.Fatalf("detail = %T", r.Detail)
	}
	if d.Freshness != model.FreshnessFresh {
		t.Errorf("freshness = %s, want fresh", d.Freshness)
	}
	if r.Quality != model.QualityExcellent {
		t.Errorf("quality = %s, want excellent", r.Quality)
	}
}

func TestWebcamVerifier_FreshnessBuckets(t *testing.T) {
	tests := []struct {
		name      string
		age       time.Duration
		noHeader  bool
		threshold time.Duration
		want      model.Freshness
	}{
		{"just under six hours", 5*time.Hour + 59*time.Minute, false, 48 * time.Hour, model.FreshnessFresh},
		{"within a day", 23 * time.Hour, false, 48 * time.Hour, model.FreshnessModerate},
		{"within threshold", 40 * time.Hour, false, 48 * time.Hour, model.FreshnessModerate},
		{"beyond threshold", 49 * time.Hour, false, 48 * time.Hour, model.FreshnessStale},
		{"no header", 0, true, 48 * time.Hour, model.FreshnessUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lm *time.Time
			if !tt.noHeader {
				at := time.Now().Add(-tt.age)
				lm = &at
			}
			server := camServer(t, "image/jpeg", 240_000, lm)

			r := newWebcamVerifier(server, tt.threshold).Verify(context.Background(), camMountain(server.URL+"/cam.jpg"))[0]
			d, ok := r.Detail.(model.WebcamDetail)
			if !ok {
				t.Fatalf("detail = %T", r.Detail)
			}
			if d.Freshness != tt.want {
				t.Errorf("freshness = %s, want %s", d.Freshness, tt.want)
			}
			if tt.want == model.FreshnessStale {
				if r.Status != model.StatusWarning || r.ErrorCategory != model.CategoryStaleData {
					t.Errorf("stale image = %s/%s, want warning/stale_data", r.Status, r.ErrorCategory)
				}
			}
		})
	}
}

func TestWebcamVerifier_SuspiciouslySmallPayload(t *testing.T) {
	server := camServer(t, "image/jpeg", 500, nil)

	r := newWebcamVerifier(server, 48*time.Hour).Verify(context.Background(), camMountain(server.URL+"/cam.jpg"))[0]
	if r.Status != model.StatusWarning || r.ErrorCategory != model.CategoryValidationError {
		t.Fatalf("result = %s/%s, want warning/validation_error", r.Status, r.ErrorCategory)
	}
	if !strings.Contains(r.Message, "suspiciously small") {
		t.Errorf("message = %q, want undersized-payload wording", r.Message)
	}
}

func TestWebcamVerifier_NonImageContentType(t *testing.T) {
	server := camServer(t, "text/html", 5000, nil)

	r := newWebcamVerifier(server, 48*time.Hour).Verify(context.Background(), camMountain(server.URL+"/cam.jpg"))[0]
	if r.Status != model.StatusError || r.ErrorCategory != model.CategoryValidationError {
		t.Errorf("result = %s/%s, want error/validation_error", r.Status, r.ErrorCategory)
	}
}

func TestWebcamVerifier_ForbiddenIsBotProtection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	r := newWebcamVerifier(server, 48*time.Hour).Verify(context.Background(), camMountain(server.URL+"/cam.jpg"))[0]
	if r.ErrorCategory != model.CategoryBotProtection {
		t.Errorf("category = %s, want bot_protection for a webcam 403", r.ErrorCategory)
	}
}

func TestWebcamVerifier_ProbesBothRegistries(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "240000")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	m := registry.Mountain{
		ID:          "palisades",
		Webcams:     []registry.Webcam{{ID: "kt22", URL: server.URL + "/kt22.jpg"}},
		RoadWebcams: []registry.Webcam{{ID: "i80", URL: server.URL + "/i80.jpg"}},
	}
	results := newWebcamVerifier(server, 48*time.Hour).Verify(context.Background(), m)
	if len(results) != 2 {
		t.Fatalf("results = %d, want one per webcam", len(results))
	}
	if results[0].Target != "kt22" || results[1].Target != "i80" {
		t.Errorf("targets = %s, %s", results[0].Target, results[1].Target)
	}
	if len(paths) != 2 {
		t.Errorf("probes = %v, want both webcams probed", paths)
	}
}

func TestWebcamVerifier_NoWebcamsConfigured(t *testing.T) {
	v := &WebcamVerifier{Retry: httpx.RetryConfig{MaxRetries: 1}}
	r := v.Verify(context.Background(), registry.Mountain{ID: "bare"})[0]
	if r.ErrorCategory != model.CategoryMissingData {
		t.Errorf("category = %s, want missing_data", r.ErrorCategory)
	}
}
