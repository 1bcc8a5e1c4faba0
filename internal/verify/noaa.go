package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

// DefaultNOAABaseURL is the production gridded-forecast API.
const DefaultNOAABaseURL = "https://api.weather.gov"

// NOAAVerifier checks the four government-forecast sub-endpoints for a
// mountain's grid cell: hourly forecast, daily forecast, nearest stations,
// and active point alerts.
type NOAAVerifier struct {
	Client     *http.Client
	BaseURL    string
	UserAgent  string
	Retry      httpx.RetryConfig
	StaleAfter time.Duration
}

func (v *NOAAVerifier) Type() model.SourceType { return model.SourceNOAA }

// forecastResponse is the shape shared by the hourly and daily endpoints.
type forecastResponse struct {
	Properties struct {
		UpdateTime string `json:"updateTime"`
		Periods    []struct {
			StartTime   string   `json:"startTime"`
			Temperature *float64 `json:"temperature"`
		} `json:"periods"`
	} `json:"properties"`
}

// featureResponse covers the stations and alerts endpoints; only the
// feature count matters here.
type featureResponse struct {
	Features []struct {
		ID string `json:"id"`
	} `json:"features"`
}

func (v *NOAAVerifier) Verify(ctx context.Context, m registry.Mountain) []model.Result {
	if m.Grid == nil {
		results := make([]model.Result, 0, 4)
		for _, target := range []string{"hourly", "daily", "stations", "alerts"} {
			results = append(results, missingData(model.SourceNOAA, m, target, "no forecast grid configured for this mountain"))
		}
		return results
	}

	base := v.BaseURL
	if base == "" {
		base = DefaultNOAABaseURL
	}
	gridPath := fmt.Sprintf("%s/gridpoints/%s/%d,%d", base, m.Grid.Office, m.Grid.X, m.Grid.Y)

	results := make([]model.Result, 0, 4)
	results = append(results, v.checkForecast(ctx, m, "hourly", gridPath+"/forecast/hourly"))
	results = append(results, v.checkForecast(ctx, m, "daily", gridPath+"/forecast"))
	results = append(results, v.checkFeatures(ctx, m, "stations", gridPath+"/stations", true))
	results = append(results, v.checkFeatures(ctx, m, "alerts",
		fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", base, m.Lat, m.Lng), false))
	return results
}

// checkForecast validates one forecast endpoint: at least one period with a
// temperature and a start time, and an update recent enough not to be stale.
func (v *NOAAVerifier) checkForecast(ctx context.Context, m registry.Mountain, target, url string) model.Result {
	r := newResult(model.SourceNOAA, m, target)

	start := time.Now()
	payload, err := httpx.Do(ctx, v.Retry, func(ctx context.Context) (*forecastResponse, error) {
		var fr forecastResponse
		if err := httpx.GetJSON(ctx, v.Client, url, v.UserAgent, "application/geo+json", &fr); err != nil {
			return nil, err
		}
		return &fr, nil
	})
	elapsed := time.Since(start)
	if err != nil {
		return failed(r, err, "", statusOf(err), elapsed)
	}

	valid := 0
	var latest time.Time
	for _, p := range payload.Properties.Periods {
		if p.Temperature == nil || p.StartTime == "" {
			continue
		}
		valid++
		if t, err := time.Parse(time.RFC3339, p.StartTime); err == nil && t.After(latest) {
			latest = t
		}
	}
	if valid == 0 {
		r.ResponseTime = elapsed
		r.Status = model.StatusError
		r.ErrorCategory = model.CategoryValidationError
		r.Message = "forecast has no periods with temperature and start time"
		return r
	}

	if t, err := time.Parse(time.RFC3339, payload.Properties.UpdateTime); err == nil {
		latest = t
	}

	detail := model.ForecastDetail{DataPoints: valid}
	if !latest.IsZero() {
		utc := latest.UTC()
		detail.LatestAt = &utc
	}

	if stale, age := isStale(latest, v.StaleAfter); stale {
		detail.Stale = true
		r.Detail = detail
		return degraded(r, model.CategoryStaleData,
			fmt.Sprintf("forecast data is %.0f hours old", age.Hours()), elapsed)
	}

	r.Detail = detail
	return succeeded(r, forecastQuality(valid), elapsed)
}

// checkFeatures validates a feature-collection endpoint. The stations list
// must be non-empty; an empty active-alerts list is a healthy answer.
func (v *NOAAVerifier) checkFeatures(ctx context.Context, m registry.Mountain, target, url string, requireFeatures bool) model.Result {
	r := newResult(model.SourceNOAA, m, target)

	start := time.Now()
	payload, err := httpx.Do(ctx, v.Retry, func(ctx context.Context) (*featureResponse, error) {
		var fr featureResponse
		if err := httpx.GetJSON(ctx, v.Client, url, v.UserAgent, "application/geo+json", &fr); err != nil {
			return nil, err
		}
		return &fr, nil
	})
	elapsed := time.Since(start)
	if err != nil {
		return failed(r, err, "", statusOf(err), elapsed)
	}

	count := len(payload.Features)
	if requireFeatures && count == 0 {
		r.ResponseTime = elapsed
		r.Status = model.StatusError
		r.ErrorCategory = model.CategoryValidationError
		r.Message = "no observation stations returned for this grid"
		return r
	}

	r.Detail = model.ForecastDetail{DataPoints: count}
	return succeeded(r, "", elapsed)
}

// forecastQuality grades forecast depth by period count.
func forecastQuality(points int) model.QualityTier {
	switch {
	case points >= 100:
		return model.QualityExcellent
	case points >= 24:
		return model.QualityGood
	default:
		return model.QualityFair
	}
}

// isStale reports whether a timestamp is older than the threshold, and by
// how much. Zero timestamps and future timestamps are never stale.
func isStale(t time.Time, threshold time.Duration) (bool, time.Duration) {
	if t.IsZero() || threshold <= 0 {
		return false, 0
	}
	age := now().Sub(t)
	return age > threshold, age
}

// statusOf pulls the HTTP status out of an error when one was observed.
func statusOf(err error) int {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
