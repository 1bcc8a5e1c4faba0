package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html"

	"github.com/mtnops/snowprobe/internal/httpx"
	"github.com/mtnops/snowprobe/internal/registry"
)

const (
	maxPageBytes  = 2 << 20
	errBodyBytes  = 4096
	robotsTTL     = 30 * time.Minute
	robotsCleanup = 10 * time.Minute
)

// HTTPEngine is the built-in scrape engine: a polite plain-HTTP fetch with
// pattern-based extraction over the rendered page text. Resort pages that
// need JavaScript rendering come back as a shell, which the categorizer
// reports as dynamic_content.
type HTTPEngine struct {
	client    *http.Client
	userAgent string
	robots    *gocache.Cache // host -> *robotstxt.RobotsData
}

// NewHTTPEngine builds the default engine.
func NewHTTPEngine(client *http.Client, userAgent string) *HTTPEngine {
	return &HTTPEngine{
		client:    client,
		userAgent: userAgent,
		robots:    gocache.New(robotsTTL, robotsCleanup),
	}
}

// Scrape fetches the configured page and applies its extraction patterns.
func (e *HTTPEngine) Scrape(ctx context.Context, cfg registry.ScrapeConfig) (*Outcome, error) {
	allowed, err := e.allowedByRobots(ctx, cfg.URL)
	if err == nil && !allowed {
		return nil, fmt.Errorf("%s: %w", cfg.URL, ErrRobotsDisallowed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	body := string(raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		out := &Outcome{HTTPStatus: resp.StatusCode, Body: truncate(body, errBodyBytes)}
		return out, &httpx.StatusError{Code: resp.StatusCode, Body: out.Body}
	}

	text := visibleText(body)
	fields, matched := extractFields(text, cfg.Patterns)
	out := &Outcome{Fields: fields, HTTPStatus: resp.StatusCode, Body: truncate(body, errBodyBytes)}
	if matched == 0 {
		return out, fmt.Errorf("selector patterns matched nothing on %s", cfg.URL)
	}
	return out, nil
}

// allowedByRobots checks the host's robots.txt, caching the parsed rules.
// An unreachable robots.txt allows the fetch.
func (e *HTTPEngine) allowedByRobots(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}

	var data *robotstxt.RobotsData
	if cached, ok := e.robots.Get(parsed.Host); ok {
		data = cached.(*robotstxt.RobotsData)
	} else {
		robotsURL := fmt.Sprintf("%s://%s/robots.txt", parsed.Scheme, parsed.Host)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return true, nil
		}
		req.Header.Set("User-Agent", e.userAgent)
		resp, err := e.client.Do(req)
		if err != nil {
			return true, nil
		}
		defer func() { _ = resp.Body.Close() }()
		data, err = robotstxt.FromResponse(resp)
		if err != nil {
			return true, nil
		}
		e.robots.Set(parsed.Host, data, gocache.DefaultExpiration)
	}

	return data.TestAgent(parsed.Path, e.userAgent), nil
}

// visibleText flattens an HTML document to its rendered text, skipping
// script and style subtrees.
func visibleText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// extractFields applies each configured pattern to the page text. Numeric
// fields take the first capture group as an integer; the status field keeps
// the matched text.
func extractFields(text string, patterns map[string]string) (Fields, int) {
	var f Fields
	matched := 0

	capture := func(name string) (string, bool) {
		expr, ok := patterns[name]
		if !ok || expr == "" {
			return "", false
		}
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return "", false
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			return m[1], true
		}
		return m[0], true
	}

	num := func(name string) *int {
		s, ok := capture(name)
		if !ok {
			return nil
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		matched++
		return &v
	}

	f.LiftsOpen = num("lifts_open")
	f.LiftsTotal = num("lifts_total")
	f.RunsOpen = num("runs_open")
	f.RunsTotal = num("runs_total")
	if s, ok := capture("status"); ok {
		f.Status = strings.TrimSpace(s)
		matched++
	}
	return f, matched
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
