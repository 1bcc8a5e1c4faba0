package verify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

// minImageBytes is the smallest content-length a plausible webcam frame has.
const minImageBytes = 1000

// WebcamVerifier probes every webcam (resort and road registries) with a
// metadata-only request; image bytes are never downloaded.
type WebcamVerifier struct {
	Client     *http.Client
	UserAgent  string
	Retry      httpx.RetryConfig
	StaleAfter time.Duration
}

func (v *WebcamVerifier) Type() model.SourceType { return model.SourceWebcam }

// probe is what a HEAD request reveals about the image resource.
type probe struct {
	status        int
	contentType   string
	contentLength int64
	lastModified  *time.Time
}

func (v *WebcamVerifier) Verify(ctx context.Context, m registry.Mountain) []model.Result {
	cams := make([]registry.Webcam, 0, len(m.Webcams)+len(m.RoadWebcams))
	cams = append(cams, m.Webcams...)
	cams = append(cams, m.RoadWebcams...)
	if len(cams) == 0 {
		return []model.Result{missingData(model.SourceWebcam, m, "", "no webcams configured for this mountain")}
	}

	results := make([]model.Result, 0, len(cams))
	for _, cam := range cams {
		results = append(results, v.check(ctx, m, cam))
	}
	return results
}

func (v *WebcamVerifier) check(ctx context.Context, m registry.Mountain, cam registry.Webcam) model.Result {
	r := newResult(model.SourceWebcam, m, cam.ID)

	start := time.Now()
	p, err := httpx.Do(ctx, v.Retry, func(ctx context.Context) (*probe, error) {
		return v.head(ctx, cam.URL)
	})
	elapsed := time.Since(start)
	if err != nil {
		return failed(r, err, "", statusOf(err), elapsed)
	}

	r.HTTPStatus = p.status
	freshness := bucketFreshness(p.lastModified, v.StaleAfter)
	detail := model.WebcamDetail{
		ContentType:   p.contentType,
		ContentLength: p.contentLength,
		LastModified:  p.lastModified,
		Freshness:     freshness,
	}
	r.Detail = detail

	if !isImageContentType(p.contentType) {
		r.ResponseTime = elapsed
		r.Status = model.StatusError
		r.ErrorCategory = model.CategoryValidationError
		r.Message = fmt.Sprintf("endpoint returned %q instead of an image", p.contentType)
		return r
	}
	if p.contentLength >= 0 && p.contentLength < minImageBytes {
		return degraded(r, model.CategoryValidationError,
			fmt.Sprintf("image payload is suspiciously small (%d bytes)", p.contentLength), elapsed)
	}
	if freshness == model.FreshnessStale {
		return degraded(r, model.CategoryStaleData,
			fmt.Sprintf("image was last updated %.0f hours ago", now().Sub(*p.lastModified).Hours()), elapsed)
	}

	return succeeded(r, webcamQuality(freshness), elapsed)
}

// head issues the metadata-only probe. Some webcam hosts reject HEAD, so a
// 405 falls back to a GET whose body is discarded unread.
func (v *WebcamVerifier) head(ctx context.Context, rawURL string) (*probe, error) {
	resp, err := v.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		_ = resp.Body.Close()
		resp, err = v.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1)) // let the connection be reused
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpx.StatusError{Code: resp.StatusCode}
	}

	p := &probe{
		status:        resp.StatusCode,
		contentType:   resp.Header.Get("Content-Type"),
		contentLength: resp.ContentLength,
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := time.Parse(time.RFC1123, lm); err == nil {
			utc := t.UTC()
			p.lastModified = &utc
		}
	}
	return p, nil
}

func (v *WebcamVerifier) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", v.UserAgent)
	return v.Client.Do(req)
}

// bucketFreshness buckets a Last-Modified age: ≤6h fresh, ≤24h or within
// the stale threshold moderate, beyond it stale, no header unknown.
func bucketFreshness(lastModified *time.Time, threshold time.Duration) model.Freshness {
	if lastModified == nil {
		return model.FreshnessUnknown
	}
	age := now().Sub(*lastModified)
	switch {
	case age <= 6*time.Hour:
		return model.FreshnessFresh
	case age <= 24*time.Hour || (threshold > 0 && age <= threshold):
		return model.FreshnessModerate
	default:
		return model.FreshnessStale
	}
}

func isImageContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.HasPrefix(ct, "image/") ||
		strings.HasPrefix(ct, "video/") ||
		strings.HasPrefix(ct, "application/octet-stream") ||
		strings.HasPrefix(ct, "binary/")
}

// webcamQuality grades a reachable webcam by image freshness.
func webcamQuality(f model.Freshness) model.QualityTier {
	switch f {
	case model.FreshnessFresh:
		return model.QualityExcellent
	case model.FreshnessModerate:
		return model.QualityGood
	case model.FreshnessUnknown:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}
