package verify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

// DefaultMeteoBaseURL is the production global-forecast API.
const DefaultMeteoBaseURL = "https://api.open-meteo.com/v1"

// MeteoVerifier checks the global forecast for a mountain's coordinates.
// The provider is assumed fresh; only array shape is validated.
type MeteoVerifier struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	Retry     httpx.RetryConfig
}

func (v *MeteoVerifier) Type() model.SourceType { return model.SourceMeteo }

type meteoResponse struct {
	Hourly struct {
		Time        []string  `json:"time"`
		Temperature []float64 `json:"temperature_2m"`
		Snowfall    []float64 `json:"snowfall"`
	} `json:"hourly"`
	Daily struct {
		Time        []string  `json:"time"`
		SnowfallSum []float64 `json:"snowfall_sum"`
	} `json:"daily"`
}

func (v *MeteoVerifier) Verify(ctx context.Context, m registry.Mountain) []model.Result {
	if !m.HasCoordinates() {
		return []model.Result{missingData(model.SourceMeteo, m, "", "no coordinates configured for this mountain")}
	}

	base := v.BaseURL
	if base == "" {
		base = DefaultMeteoBaseURL
	}
	reqURL := fmt.Sprintf("%s/forecast?latitude=%.4f&longitude=%.4f&hourly=temperature_2m,snowfall&daily=snowfall_sum&timezone=UTC",
		base, m.Lat, m.Lng)

	r := newResult(model.SourceMeteo, m, "")
	start := time.Now()
	payload, err := httpx.Do(ctx, v.Retry, func(ctx context.Context) (*meteoResponse, error) {
		var mr meteoResponse
		if err := httpx.GetJSON(ctx, v.Client, reqURL, v.UserAgent, "application/json", &mr); err != nil {
			return nil, err
		}
		return &mr, nil
	})
	elapsed := time.Since(start)
	if err != nil {
		return []model.Result{failed(r, err, "", statusOf(err), elapsed)}
	}

	points := len(payload.Hourly.Time)
	temps := len(payload.Hourly.Temperature)
	r.Detail = model.GlobalForecastDetail{DataPoints: points}

	if points == 0 || temps == 0 {
		r.ResponseTime = elapsed
		r.Status = model.StatusError
		r.ErrorCategory = model.CategoryValidationError
		r.Message = "forecast response has empty hourly arrays"
		return []model.Result{r}
	}
	if temps != points {
		return []model.Result{degraded(r, model.CategoryValidationError,
			fmt.Sprintf("hourly arrays are misaligned: %d times vs %d temperatures", points, temps), elapsed)}
	}

	return []model.Result{succeeded(r, meteoQuality(points), elapsed)}
}

// meteoQuality grades forecast depth: a full 7-day hourly horizon (168
// points) is excellent.
func meteoQuality(points int) model.QualityTier {
	switch {
	case points >= 168:
		return model.QualityExcellent
	case points >= 72:
		return model.QualityGood
	default:
		return model.QualityFair
	}
}
