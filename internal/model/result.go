package model

import (
	"strings"
	"time"
)

// SourceType identifies one of the five upstream feed categories.
type SourceType string

const (
	SourceScraper SourceType = "scraper"       // resort websites via the scrape engine
	SourceNOAA    SourceType = "noaa_forecast" // government gridded-forecast API
	SourceSNOTEL  SourceType = "snotel"        // snow-telemetry station API
	SourceMeteo   SourceType = "openmeteo"     // global forecast API
	SourceWebcam  SourceType = "webcam"        // mountain webcam image endpoints
)

// PhaseOrder is the fixed order in which the agent runs verification phases.
var PhaseOrder = []SourceType{SourceScraper, SourceNOAA, SourceSNOTEL, SourceMeteo, SourceWebcam}

// ParseSourceType maps a user-supplied name onto a SourceType.
func ParseSourceType(s string) (SourceType, bool) {
	switch SourceType(strings.ToLower(strings.TrimSpace(s))) {
	case SourceScraper:
		return SourceScraper, true
	case SourceNOAA:
		return SourceNOAA, true
	case SourceSNOTEL:
		return SourceSNOTEL, true
	case SourceMeteo:
		return SourceMeteo, true
	case SourceWebcam:
		return SourceWebcam, true
	}
	return "", false
}

// Status is the outcome class of a single verification.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning" // reachable but degraded, never a hard failure
	StatusError   Status = "error"
)

// ErrorCategory is the closed failure taxonomy. Every non-success result
// carries exactly one category; success results carry none.
type ErrorCategory string

const (
	CategoryBotProtection   ErrorCategory = "bot_protection"
	CategoryInvalidSelector ErrorCategory = "invalid_selector"
	CategoryDynamicContent  ErrorCategory = "dynamic_content"
	CategoryHTTPError       ErrorCategory = "http_error"
	CategoryStaleData       ErrorCategory = "stale_data"
	CategoryNetworkTimeout  ErrorCategory = "network_timeout"
	CategoryValidationError ErrorCategory = "validation_error"
	CategoryMissingData     ErrorCategory = "missing_data"
	CategoryAPIError        ErrorCategory = "api_error"
	CategoryUnknown         ErrorCategory = "unknown"
)

// AllErrorCategories returns the full category set, in a stable order,
// for zero-filled histograms.
func AllErrorCategories() []ErrorCategory {
	return []ErrorCategory{
		CategoryBotProtection,
		CategoryInvalidSelector,
		CategoryDynamicContent,
		CategoryHTTPError,
		CategoryStaleData,
		CategoryNetworkTimeout,
		CategoryValidationError,
		CategoryMissingData,
		CategoryAPIError,
		CategoryUnknown,
	}
}

// QualityTier summarizes completeness/freshness of a successfully fetched
// payload. Tiers are strictly ordered poor < fair < good < excellent and are
// always computed from measured data.
type QualityTier string

const (
	QualityPoor      QualityTier = "poor"
	QualityFair      QualityTier = "fair"
	QualityGood      QualityTier = "good"
	QualityExcellent QualityTier = "excellent"
)

// Freshness buckets a webcam image by Last-Modified age.
type Freshness string

const (
	FreshnessFresh    Freshness = "fresh"    // ≤ 6h
	FreshnessModerate Freshness = "moderate" // ≤ 24h or within the stale threshold
	FreshnessStale    Freshness = "stale"
	FreshnessUnknown  Freshness = "unknown" // no Last-Modified header
)

// Detail is the type-specific payload of a Result, discriminated by the
// result's SourceType. A type switch over Detail covers all five shapes.
type Detail interface {
	detail()
}

// ScrapeDetail holds fields extracted from a resort website.
type ScrapeDetail struct {
	LiftsOpen  *int   `json:"lifts_open,omitempty"`
	LiftsTotal *int   `json:"lifts_total,omitempty"`
	RunsOpen   *int   `json:"runs_open,omitempty"`
	RunsTotal  *int   `json:"runs_total,omitempty"`
	Condition  string `json:"condition,omitempty"` // open/closed status text
}

// ForecastDetail holds the outcome of one government-forecast sub-endpoint.
type ForecastDetail struct {
	DataPoints int        `json:"data_points"`
	LatestAt   *time.Time `json:"latest_at,omitempty"`
	Stale      bool       `json:"stale"`
}

// StationDetail holds the latest snow-telemetry observations.
type StationDetail struct {
	SnowDepthIn *float64   `json:"snow_depth_in,omitempty"`
	SWEIn       *float64   `json:"swe_in,omitempty"` // snow-water equivalent
	AirTempF    *float64   `json:"air_temp_f,omitempty"`
	LatestAt    *time.Time `json:"latest_at,omitempty"`
	Stale       bool       `json:"stale"`
}

// GlobalForecastDetail holds global-forecast array sizes.
type GlobalForecastDetail struct {
	DataPoints int `json:"data_points"`
}

// WebcamDetail holds webcam probe metadata.
type WebcamDetail struct {
	ContentType   string     `json:"content_type,omitempty"`
	ContentLength int64      `json:"content_length"`
	LastModified  *time.Time `json:"last_modified,omitempty"`
	Freshness     Freshness  `json:"freshness"`
}

func (ScrapeDetail) detail()         {}
func (ForecastDetail) detail()       {}
func (StationDetail) detail()        {}
func (GlobalForecastDetail) detail() {}
func (WebcamDetail) detail()         {}

// Result is the immutable outcome of verifying one source descriptor.
// Success results never carry an ErrorCategory; non-success results always do.
type Result struct {
	SourceType   SourceType    `json:"source_type"`
	MountainID   string        `json:"mountain_id"`
	MountainName string        `json:"mountain_name,omitempty"`
	Target       string        `json:"target,omitempty"` // endpoint kind, station id, or webcam id
	Status       Status        `json:"status"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`

	Quality       QualityTier   `json:"quality,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	Message       string        `json:"message,omitempty"`
	HTTPStatus    int           `json:"http_status,omitempty"`

	Detail Detail `json:"detail,omitempty"`
}

// SourceID identifies the checked source as "type:mountain[:target]".
func (r Result) SourceID() string {
	id := string(r.SourceType) + ":" + r.MountainID
	if r.Target != "" {
		id += ":" + r.Target
	}
	return id
}
