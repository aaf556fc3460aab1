package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voyago/voyago-mvp/engine/domain"
)

// DefaultMaxSources caps distinct pages per logical request. Three good
// sources keep latency and downstream token volume bounded.
const DefaultMaxSources = 3

// Gatherer assembles a corpus of cleaned source documents for a query or a
// destination by combining search and fetch.
type Gatherer struct {
	search     SearchClient
	fetcher    *Fetcher
	maxSources int
	maxChars   int
	logger     *slog.Logger
}

// GathererOpts configures a Gatherer.
type GathererOpts struct {
	Search     SearchClient
	Fetcher    *Fetcher
	MaxSources int
	MaxChars   int
	Logger     *slog.Logger
}

// NewGatherer creates a Gatherer.
func NewGatherer(opts GathererOpts) *Gatherer {
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultMaxSources
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gatherer{
		search:     opts.Search,
		fetcher:    opts.Fetcher,
		maxSources: opts.MaxSources,
		maxChars:   opts.MaxChars,
		logger:     opts.Logger,
	}
}

// GatherCorpus returns up to maxSources cleaned documents for one query.
// Individual source failures are skipped; zero usable sources returns
// domain.ErrNoCorpus.
func (g *Gatherer) GatherCorpus(ctx context.Context, query string) ([]domain.SourceDoc, error) {
	hits := FilterBlocked(g.search.Search(ctx, query, 10), g.logger)

	var docs []domain.SourceDoc
	for _, hit := range hits {
		if len(docs) >= g.maxSources {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}
		text := g.fetcher.Fetch(ctx, hit.URL, g.maxChars)
		if text == "" {
			continue
		}
		docs = append(docs, domain.SourceDoc{URL: hit.URL, Title: hit.Title, Text: text})
		g.logger.Info("fetched source", "url", hit.URL, "chars", len(text))
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("gather %q: %w", query, domain.ErrNoCorpus)
	}
	return docs, nil
}

// DestinationQueries returns the search query variants used to cover a
// destination from several angles.
func DestinationQueries(destination string, year int) []string {
	return []string{
		fmt.Sprintf("%s travel guide %d", destination, year),
		fmt.Sprintf("%s attractions hotels restaurants", destination),
		fmt.Sprintf("%s tourism official website", destination),
		fmt.Sprintf("%s travel blog", destination),
		fmt.Sprintf("things to do in %s", destination),
		fmt.Sprintf("%s local food culture", destination),
	}
}

// GatherDestination runs the destination query variants until maxSources
// distinct pages have been fetched. Sources already collected under one
// query are not refetched for the next.
func (g *Gatherer) GatherDestination(ctx context.Context, destination string, year int) ([]domain.SourceDoc, error) {
	seen := make(map[string]bool)
	var docs []domain.SourceDoc

	for _, query := range DestinationQueries(destination, year) {
		if len(docs) >= g.maxSources {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}

		hits := FilterBlocked(g.search.Search(ctx, query, 3), g.logger)
		for _, hit := range hits {
			if len(docs) >= g.maxSources {
				break
			}
			if seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true

			text := g.fetcher.Fetch(ctx, hit.URL, g.maxChars)
			if text == "" {
				continue
			}
			docs = append(docs, domain.SourceDoc{URL: hit.URL, Title: hit.Title, Text: text})
			g.logger.Info("fetched source", "destination", destination, "url", hit.URL)
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("gather destination %q: %w", destination, domain.ErrNoCorpus)
	}
	return docs, nil
}
