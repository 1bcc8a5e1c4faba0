package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
	"github.com/mtnops/snowprobe/internal/registry"
)

// DefaultSNOTELBaseURL is the production snow-telemetry REST API.
const DefaultSNOTELBaseURL = "https://wcc.sc.egov.usda.gov/awdbRestApi/services/v1"

// snotelElements are the daily series requested per station: snow depth,
// snow-water equivalent, and observed air temperature.
const snotelElements = "SNWD,WTEQ,TOBS"

// SNOTELVerifier checks one telemetry station per mountain: the station
// must report a current snow depth or snow-water equivalent value.
type SNOTELVerifier struct {
	Client     *http.Client
	BaseURL    string
	UserAgent  string
	Retry      httpx.RetryConfig
	StaleAfter time.Duration
}

func (v *SNOTELVerifier) Type() model.SourceType { return model.SourceSNOTEL }

// stationData is the per-station element series shape.
type stationData []struct {
	StationTriplet string `json:"stationTriplet"`
	Data           []struct {
		StationElement struct {
			ElementCode string `json:"elementCode"`
		} `json:"stationElement"`
		Values []struct {
			Date  string   `json:"date"`
			Value *float64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

func (v *SNOTELVerifier) Verify(ctx context.Context, m registry.Mountain) []model.Result {
	if m.Station == nil || m.Station.ID == "" {
		return []model.Result{missingData(model.SourceSNOTEL, m, "", "no telemetry station configured for this mountain")}
	}

	base := v.BaseURL
	if base == "" {
		base = DefaultSNOTELBaseURL
	}
	reqURL := fmt.Sprintf("%s/data?stationTriplets=%s&elements=%s&duration=DAILY&beginDate=%s&endDate=%s",
		base,
		url.QueryEscape(m.Station.ID),
		url.QueryEscape(snotelElements),
		now().AddDate(0, 0, -7).Format("2006-01-02"),
		now().Format("2006-01-02"),
	)

	r := newResult(model.SourceSNOTEL, m, m.Station.ID)
	start := time.Now()
	payload, err := httpx.Do(ctx, v.Retry, func(ctx context.Context) (stationData, error) {
		var sd stationData
		if err := httpx.GetJSON(ctx, v.Client, reqURL, v.UserAgent, "application/json", &sd); err != nil {
			return nil, err
		}
		return sd, nil
	})
	elapsed := time.Since(start)
	if err != nil {
		return []model.Result{failed(r, err, "", statusOf(err), elapsed)}
	}

	detail, ok := latestObservations(payload)
	if !ok {
		r.ResponseTime = elapsed
		r.Status = model.StatusError
		r.ErrorCategory = model.CategoryValidationError
		r.Message = "station reported no current snow depth or snow-water equivalent"
		return []model.Result{r}
	}

	if detail.LatestAt != nil {
		if stale, age := isStale(*detail.LatestAt, v.StaleAfter); stale {
			detail.Stale = true
			r.Detail = detail
			return []model.Result{degraded(r, model.CategoryStaleData,
				fmt.Sprintf("latest station observation is %.0f hours old", age.Hours()), elapsed)}
		}
	}

	r.Detail = detail
	return []model.Result{succeeded(r, stationQuality(detail), elapsed)}
}

// latestObservations pulls the most recent non-null value of each element.
// The station is valid only if snow depth or snow-water equivalent has a
// current value.
func latestObservations(payload stationData) (model.StationDetail, bool) {
	var detail model.StationDetail
	var latest time.Time

	for _, station := range payload {
		for _, series := range station.Data {
			for i := len(series.Values) - 1; i >= 0; i-- {
				val := series.Values[i]
				if val.Value == nil {
					continue
				}
				switch series.StationElement.ElementCode {
				case "SNWD":
					if detail.SnowDepthIn == nil {
						detail.SnowDepthIn = val.Value
					}
				case "WTEQ":
					if detail.SWEIn == nil {
						detail.SWEIn = val.Value
					}
				case "TOBS":
					if detail.AirTempF == nil {
						detail.AirTempF = val.Value
					}
				default:
					continue
				}
				if t, ok := parseObservationDate(val.Date); ok && t.After(latest) {
					latest = t
				}
				break
			}
		}
	}

	if !latest.IsZero() {
		utc := latest.UTC()
		detail.LatestAt = &utc
	}
	return detail, detail.SnowDepthIn != nil || detail.SWEIn != nil
}

func parseObservationDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stationQuality grades element completeness: all three elements reporting
// is excellent, both snow elements good, one fair.
func stationQuality(d model.StationDetail) model.QualityTier {
	n := 0
	for _, p := range []*float64{d.SnowDepthIn, d.SWEIn, d.AirTempF} {
		if p != nil {
			n++
		}
	}
	switch {
	case n >= 3:
		return model.QualityExcellent
	case n == 2:
		return model.QualityGood
	default:
		return model.QualityFair
	}
}
