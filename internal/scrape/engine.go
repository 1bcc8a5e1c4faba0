// Package scrape defines the boundary to the document-scraping engine. The
// verifier treats the engine as a black box: it hands over a mountain's
// scrape configuration and gets back extracted fields or an error. The
// production extraction pipeline lives behind the Engine interface; HTTPEngine
// is the built-in implementation.
package scrape

import (
	"context"
	"errors"

	"github.com/mtnops/snowprobe/internal/registry"
)

// ErrRobotsDisallowed reports that the target's robots.txt forbids the fetch.
var ErrRobotsDisallowed = errors.New("fetch disallowed by robots.txt")

// Fields are the conditions values the engine tries to extract from a
// resort page. A nil pointer means the field was not found.
type Fields struct {
	LiftsOpen  *int
	LiftsTotal *int
	RunsOpen   *int
	RunsTotal  *int
	Status     string // open/closed wording as published
}

// Outcome carries the engine's raw observation alongside the extraction so
// failures can be classified without refetching.
type Outcome struct {
	Fields     Fields
	HTTPStatus int
	Body       string // bounded; may be empty on transport failure
}

// Engine scrapes one configured resort page. Implementations return an
// Outcome whenever a response was observed, even when err is non-nil.
type Engine interface {
	Scrape(ctx context.Context, cfg registry.ScrapeConfig) (*Outcome, error)
}
