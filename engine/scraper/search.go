// Package scraper acquires the web corpus for a destination: it issues
// searches, fetches pages politely, strips boilerplate, and hands cleaned
// text to the ingestion pipeline. Every network failure here is soft; a
// source that cannot be fetched is skipped, never fatal.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/voyago/voyago-mvp/engine/domain"
	"github.com/voyago/voyago-mvp/pkg/resilience"
)

// BlockedDomains lists sites known to reliably block automated access.
// Matching URLs are skipped before any request is made.
var BlockedDomains = []string{
	"tripadvisor.com", "expedia.com", "booking.com",
	"travelweekly.com", "hotels.com",
}

// SearchClient issues web searches. Implementations fail soft: any provider
// error yields an empty slice, never an error to the caller.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) []domain.SearchHit
}

// DDGClient searches via the DuckDuckGo HTML endpoint. No auth required.
// A circuit breaker guards the endpoint so a dead or rate-limiting provider
// is probed instead of hammered for every sub-query.
type DDGClient struct {
	client  *http.Client
	baseURL string
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// NewDDGClient creates a search client with a bounded timeout.
func NewDDGClient(logger *slog.Logger) *DDGClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DDGClient{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://html.duckduckgo.com/html/",
		breaker: resilience.NewBreaker(resilience.BreakerOpts{FailThreshold: 3, Timeout: time.Minute}),
		logger:  logger,
	}
}

// NewDDGClientWithBase creates a search client against a custom endpoint.
// Used in tests to point at a local fake.
func NewDDGClientWithBase(baseURL string, client *http.Client, logger *slog.Logger) *DDGClient {
	c := NewDDGClient(logger)
	c.baseURL = baseURL
	if client != nil {
		c.client = client
	}
	return c
}

// Result anchors and snippets in the DDG HTML serp.
var (
	resultLink    = regexp.MustCompile(`(?is)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	resultSnippet = regexp.MustCompile(`(?is)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
)

// Search returns up to maxResults hits for the query. Provider errors and
// non-200 responses are logged and yield an empty slice.
func (c *DDGClient) Search(ctx context.Context, query string, maxResults int) []domain.SearchHit {
	if maxResults <= 0 {
		maxResults = 10
	}

	var body []byte
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		searchURL := c.baseURL + "?" + url.Values{"q": {query}}.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return fmt.Errorf("search: build request: %w", err)
		}
		req.Header.Set("User-Agent", randomUserAgent())

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("search: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search: unexpected status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
		if err != nil {
			return fmt.Errorf("search: read body: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("search: provider circuit open, skipping", "query", query)
		} else {
			c.logger.Warn("search failed", "query", query, "err", err)
		}
		return nil
	}

	hits := parseSerp(string(body), maxResults)
	c.logger.Info("search done", "query", query, "hits", len(hits))
	return hits
}

// parseSerp extracts (title, url, snippet) triples from the DDG HTML page.
func parseSerp(page string, maxResults int) []domain.SearchHit {
	links := resultLink.FindAllStringSubmatch(page, maxResults)
	snippets := resultSnippet.FindAllStringSubmatch(page, maxResults)

	hits := make([]domain.SearchHit, 0, len(links))
	for i, m := range links {
		href := decodeDDGHref(m[1])
		if href == "" {
			continue
		}
		hit := domain.SearchHit{
			Title: cleanFragment(m[2]),
			URL:   href,
		}
		if i < len(snippets) {
			hit.Snippet = cleanFragment(snippets[i][1])
		}
		hits = append(hits, hit)
	}
	return hits
}

// decodeDDGHref unwraps DDG redirect links (//duckduckgo.com/l/?uddg=...)
// into the target URL; plain links pass through.
func decodeDDGHref(href string) string {
	href = html.UnescapeString(href)
	if u, err := url.Parse(href); err == nil {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return ""
}

func cleanFragment(s string) string {
	s = allTags.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// IsBlockedDomain reports whether the URL belongs to a known anti-scraping
// domain and should be skipped before fetching.
func IsBlockedDomain(rawURL string) bool {
	for _, d := range BlockedDomains {
		if strings.Contains(rawURL, d) {
			return true
		}
	}
	return false
}

// FilterBlocked drops hits on blocked domains, logging each skip.
func FilterBlocked(hits []domain.SearchHit, logger *slog.Logger) []domain.SearchHit {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]domain.SearchHit, 0, len(hits))
	for _, h := range hits {
		if IsBlockedDomain(h.URL) {
			logger.Info("skipping blocked domain", "url", h.URL)
			continue
		}
		out = append(out, h)
	}
	return out
}
