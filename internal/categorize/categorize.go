// Package categorize maps a failed (or suspicious) verification attempt
// onto the closed error taxonomy. Categorize is pure and total: it always
// returns a category and never panics.
package categorize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/model"
)

// Classification is the categorizer's verdict.
type Classification struct {
	Category model.ErrorCategory
	Message  string
}

// bodyRule matches a known challenge or block marker in a response body.
// Rules are ordered; the first match wins. Matching is case-insensitive.
type bodyRule struct {
	marker   string
	category model.ErrorCategory
	message  string
}

var bodyRules = []bodyRule{
	{"cf-browser-verification", model.CategoryBotProtection, "Cloudflare browser verification challenge"},
	{"cf-challenge", model.CategoryBotProtection, "Cloudflare challenge page"},
	{"challenge-platform", model.CategoryBotProtection, "Cloudflare challenge platform script"},
	{"just a moment...", model.CategoryBotProtection, "Cloudflare interstitial page"},
	{"attention required!", model.CategoryBotProtection, "Cloudflare block page"},
	{"verify you are human", model.CategoryBotProtection, "human verification challenge"},
	{"captcha", model.CategoryBotProtection, "CAPTCHA challenge detected"},
	{"access denied", model.CategoryBotProtection, "access denied block page"},
	{"request blocked", model.CategoryBotProtection, "request blocked by edge protection"},
}

// errRule matches known failure wording in an error message.
type errRule struct {
	marker   string
	category model.ErrorCategory
	message  string
}

var errRules = []errRule{
	{"selector", model.CategoryInvalidSelector, "configured selectors matched nothing; page structure likely changed"},
	{"robots.txt", model.CategoryBotProtection, "fetch disallowed by robots.txt"},
}

// minRenderedBody is the size below which a page that still references
// scripts is assumed to be client-side rendered.
const minRenderedBody = 500

// Categorize classifies one attempt. err may be nil (a transport-level
// success can still carry a challenge body or an unexpected status), body
// may be empty, and status may be zero when no response arrived.
func Categorize(st model.SourceType, err error, body string, status int) Classification {
	lowerBody := strings.ToLower(body)

	if err != nil {
		// Timeouts win over everything, including any status we saw.
		if httpx.IsTimeout(err) {
			return Classification{model.CategoryNetworkTimeout, "request timed out"}
		}

		var se *httpx.StatusError
		if errors.As(err, &se) {
			if c, ok := matchBody(strings.ToLower(se.Body)); ok {
				return c
			}
			return fromStatus(st, se.Code)
		}

		if c, ok := matchBody(lowerBody); ok {
			return c
		}
		if c, ok := matchDynamicShell(st, body, lowerBody); ok {
			return c
		}
		lowerErr := strings.ToLower(err.Error())
		for _, r := range errRules {
			if strings.Contains(lowerErr, r.marker) {
				return Classification{r.category, r.message}
			}
		}
		return Classification{model.CategoryUnknown, err.Error()}
	}

	if status != 0 && (status < 200 || status >= 300) {
		if c, ok := matchBody(lowerBody); ok {
			return c
		}
		return fromStatus(st, status)
	}

	// No error and a 2xx (or unreported) status: the body can still be a
	// challenge page or an unrendered client-side shell.
	if c, ok := matchBody(lowerBody); ok {
		return c
	}
	if c, ok := matchDynamicShell(st, body, lowerBody); ok {
		return c
	}

	return Classification{model.CategoryUnknown, "unclassified failure"}
}

// matchDynamicShell detects an unrendered client-side page: a minimal body
// that still references scripts. Applies to the scraper type only.
func matchDynamicShell(st model.SourceType, body, lowerBody string) (Classification, bool) {
	if st == model.SourceScraper && body != "" && len(body) < minRenderedBody && strings.Contains(lowerBody, "<script") {
		return Classification{model.CategoryDynamicContent, "page body is a client-side rendered shell"}, true
	}
	return Classification{}, false
}

func matchBody(lowerBody string) (Classification, bool) {
	if lowerBody == "" {
		return Classification{}, false
	}
	for _, r := range bodyRules {
		if strings.Contains(lowerBody, r.marker) {
			return Classification{r.category, r.message}, true
		}
	}
	return Classification{}, false
}

// fromStatus applies the per-source-type HTTP status rules.
func fromStatus(st model.SourceType, code int) Classification {
	switch {
	case code == 403:
		// Government and telemetry APIs do not run bot challenges; a 403
		// there is an API-side denial.
		if st == model.SourceNOAA || st == model.SourceSNOTEL {
			return Classification{model.CategoryAPIError, "access denied by API (403)"}
		}
		return Classification{model.CategoryBotProtection, "blocked by bot protection (403)"}
	case code == 404 && st == model.SourceNOAA:
		return Classification{model.CategoryAPIError, "forecast endpoint not found (404); grid coordinates may be wrong"}
	case code == 404 && st == model.SourceSNOTEL:
		return Classification{model.CategoryAPIError, "station not found (404); station id may be wrong"}
	case code >= 500:
		return Classification{model.CategoryAPIError, fmt.Sprintf("upstream server error (%d)", code)}
	default:
		return Classification{model.CategoryHTTPError, fmt.Sprintf("unexpected HTTP status %d", code)}
	}
}
