package scraper

import (
	"context"
	"html"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/voyago/voyago-mvp/pkg/cache"
	"github.com/voyago/voyago-mvp/pkg/fn"
	"github.com/voyago/voyago-mvp/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxChars bounds the cleaned text kept per page.
	DefaultMaxChars = 4000
	// fetchTimeout bounds a single page request.
	fetchTimeout = 12 * time.Second
)

// userAgents is a rotation of realistic browser header values. Pages served
// to obvious bots are often stubs or blocks.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// Fetcher retrieves and cleans page content with caching and politeness.
type Fetcher struct {
	client  *http.Client
	cache   cache.Store
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Registry

	// maxJitter is an extra randomized delay before each network fetch,
	// on top of the rate limiter. Zero in tests.
	maxJitter time.Duration
	retry     fn.RetryOpts
}

// FetcherOpts configures a Fetcher. Zero values get defaults.
type FetcherOpts struct {
	Client    *http.Client
	Cache     cache.Store // nil disables the page cache
	Limiter   *rate.Limiter
	Logger    *slog.Logger
	Metrics   *metrics.Registry
	MaxJitter time.Duration
	Retry     fn.RetryOpts
}

// NewFetcher creates a Fetcher. By default fetches are limited to one every
// two seconds with a small burst, mirroring a careful human reader.
func NewFetcher(opts FetcherOpts) *Fetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: fetchTimeout}
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(2*time.Second), 2)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = fn.RetryOpts{
			MaxAttempts: 2,
			InitialWait: 2 * time.Second,
			MaxWait:     10 * time.Second,
			Jitter:      true,
		}
	}
	return &Fetcher{
		client:    opts.Client,
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		maxJitter: opts.MaxJitter,
		retry:     opts.Retry,
	}
}

// Fetch returns cleaned page text truncated to maxChars, or "" on any
// failure. Cached non-expired content is returned without a request;
// fresh content is written through to the cache.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	if f.cache != nil {
		if content, ok := f.cache.Get(rawURL); ok {
			f.logger.Info("using cached content", "url", rawURL)
			f.count("scraper_cache_hits_total")
			return truncate(content, maxChars)
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return ""
	}
	if f.maxJitter > 0 {
		delay := time.Duration(rand.Int63n(int64(f.maxJitter)))
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(delay):
		}
	}

	start := time.Now()
	content := f.fetchWithRetry(ctx, rawURL)
	if f.metrics != nil {
		f.metrics.Histogram("scraper_fetch_duration_seconds", "Page fetch latency", nil).Since(start)
	}
	if content == "" {
		f.count("scraper_fetch_failures_total")
		return ""
	}
	f.count("scraper_pages_fetched_total")

	if f.cache != nil {
		if err := f.cache.Put(rawURL, content); err != nil {
			f.logger.Warn("cache write failed", "url", rawURL, "err", err)
		}
	}
	return truncate(content, maxChars)
}

// fetchWithRetry runs the request with backoff on rate limiting and server
// errors. A 403 means the site blocks scraping; skip without retrying.
func (f *Fetcher) fetchWithRetry(ctx context.Context, rawURL string) string {
	result := fn.Retry(ctx, f.retry, func(ctx context.Context) fn.Result[string] {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fn.Ok("") // malformed URL, nothing to retry
		}
		setBrowserHeaders(req)

		resp, err := f.client.Do(req)
		if err != nil {
			return fn.Errf[string]("get %s: %w", rawURL, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
			if err != nil {
				return fn.Errf[string]("read %s: %w", rawURL, err)
			}
			return fn.Ok(ExtractText(string(body)))
		case resp.StatusCode == http.StatusForbidden:
			f.logger.Info("source forbids scraping, skipping", "url", rawURL)
			return fn.Ok("")
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fn.Errf[string]("status %d from %s", resp.StatusCode, rawURL)
		default:
			f.logger.Info("unusable response, skipping", "url", rawURL, "status", resp.StatusCode)
			return fn.Ok("")
		}
	})

	content, err := result.Unwrap()
	if err != nil {
		f.logger.Warn("fetch failed", "url", rawURL, "err", err)
		return ""
	}
	return content
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func (f *Fetcher) count(name string) {
	if f.metrics != nil {
		f.metrics.Counter(name, "").Inc()
	}
}

// Pre-compiled patterns for boilerplate removal.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag  = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	navTag       = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	headerTag    = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	footerTag    = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	asideTag     = regexp.MustCompile(`(?is)<aside[^>]*>.*?</aside>`)
	svgTag       = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	allTags      = regexp.MustCompile(`<[^>]+>`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// ExtractText strips boilerplate elements and tags from HTML and collapses
// whitespace, leaving the visible body text.
func ExtractText(page string) string {
	for _, re := range []*regexp.Regexp{
		htmlComments, scriptTag, styleTag, noscriptTag, headTag,
		navTag, headerTag, footerTag, asideTag, svgTag,
	} {
		page = re.ReplaceAllString(page, " ")
	}
	page = allTags.ReplaceAllString(page, " ")
	page = html.UnescapeString(page)
	return strings.TrimSpace(multiSpace.ReplaceAllString(page, " "))
}

func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	return s[:maxChars]
}
