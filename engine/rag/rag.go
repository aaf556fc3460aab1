// Package rag orchestrates retrieval for itinerary generation. It fans a
// trip request out into topical sub-queries, searches the vector store for
// each, then merges, deduplicates, score-filters, and bounds the hits into
// one evidence block for the downstream prompt builder.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/voyago/voyago-mvp/engine/domain"
	"github.com/voyago/voyago-mvp/engine/semantic"
	"github.com/voyago/voyago-mvp/pkg/fn"
	"github.com/voyago/voyago-mvp/pkg/metrics"
)

// Options configures retrieval behaviour. The score floor and chunk budget
// depend on the embedding model's score distribution, so they are tunable
// rather than constants.
type Options struct {
	KPerQuery  int
	ScoreFloor float32
	MaxChunks  int
	Year       int
}

// DefaultOptions returns the retrieval defaults.
func DefaultOptions() Options {
	return Options{
		KPerQuery:  3,
		ScoreFloor: 0.6,
		MaxChunks:  15,
		Year:       time.Now().Year(),
	}
}

// Service is the retrieval orchestrator.
type Service struct {
	store   semantic.Store
	index   fn.Stage[string, int] // ingest pipeline; nil for retrieval-only use
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Registry
}

// New creates a retrieval Service. Zero option fields fall back to defaults.
func New(store semantic.Store, index fn.Stage[string, int], opts Options, logger *slog.Logger, reg *metrics.Registry) *Service {
	def := DefaultOptions()
	if opts.KPerQuery <= 0 {
		opts.KPerQuery = def.KPerQuery
	}
	if opts.ScoreFloor <= 0 {
		opts.ScoreFloor = def.ScoreFloor
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = def.MaxChunks
	}
	if opts.Year <= 0 {
		opts.Year = def.Year
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		index:   index,
		opts:    opts,
		logger:  logger,
		metrics: reg,
	}
}

// Context runs every sub-query for the request and assembles the evidence
// block. Individual query failures are logged and skipped; an empty string
// means no context is available, which the caller must treat as a normal
// outcome rather than an error.
func (s *Service) Context(ctx context.Context, req domain.TripRequest) string {
	queries := BuildQueries(req, s.opts.Year)

	var merged []semantic.SearchResult
	for _, query := range queries {
		if ctx.Err() != nil {
			break
		}
		results, err := s.store.Search(ctx, query, s.opts.KPerQuery)
		if err != nil {
			s.logger.Warn("rag: sub-query failed, skipping", "query", query, "err", err)
			s.count("rag_query_failures_total")
			continue
		}
		merged = append(merged, results...)
	}
	s.count("rag_queries_total")

	unique := fn.UniqueBy(merged, func(r semantic.SearchResult) string { return r.Text })
	kept := fn.Filter(unique, func(r semantic.SearchResult) bool { return r.Score >= s.opts.ScoreFloor })
	if len(kept) > s.opts.MaxChunks {
		kept = kept[:s.opts.MaxChunks]
	}

	s.logger.Info("rag: context assembled",
		"destination", req.Destination,
		"queries", len(queries),
		"hits", len(merged),
		"kept", len(kept),
	)

	texts := fn.Map(kept, func(r semantic.SearchResult) string { return r.Text })
	return strings.Join(texts, "\n\n")
}

// Retrieve returns the evidence block for a request, falling back to a
// general-knowledge notice when retrieval produced nothing.
func (s *Service) Retrieve(ctx context.Context, req domain.TripRequest) string {
	if block := s.Context(ctx, req); block != "" {
		return block
	}
	s.count("rag_fallbacks_total")
	return FallbackContext(req.Destination)
}

// FallbackContext is returned when no current information could be gathered.
func FallbackContext(destination string) string {
	return fmt.Sprintf("Could not retrieve current information about %s. Using general knowledge.", destination)
}

// ProcessDestination validates the request, runs the ingest pipeline for its
// destination, and returns the assembled evidence block. Ingest failures are
// soft: retrieval still runs against whatever the store already holds.
func (s *Service) ProcessDestination(ctx context.Context, req domain.TripRequest) (string, error) {
	if err := domain.ValidateTripRequest(req); err != nil {
		return "", fmt.Errorf("rag: %w", err)
	}

	if s.index != nil {
		if n, err := s.index(ctx, req.Destination).Unwrap(); err != nil {
			s.logger.Warn("rag: ingest failed, retrieving from existing knowledge", "destination", req.Destination, "err", err)
		} else {
			s.logger.Info("rag: destination indexed", "destination", req.Destination, "chunks", n)
			if s.metrics != nil {
				s.metrics.Gauge("rag_indexed_chunks", "Chunks indexed by the last ingest run").Set(int64(n))
			}
		}
	}

	return s.Retrieve(ctx, req), nil
}

// KnowledgePath maps a destination to its persisted store path under dir.
func KnowledgePath(dir, destination string) string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(destination), " ", "_"))
	return filepath.Join(dir, name)
}

// SaveKnowledge persists the store's index for a destination.
func (s *Service) SaveKnowledge(dir, destination string) error {
	return s.store.Save(KnowledgePath(dir, destination))
}

// LoadKnowledge restores a previously saved index for a destination. A failed
// load leaves the store empty; retrieval then yields the fallback context.
func (s *Service) LoadKnowledge(dir, destination string) error {
	return s.store.Load(KnowledgePath(dir, destination))
}

func (s *Service) count(name string) {
	if s.metrics != nil {
		s.metrics.Counter(name, "").Inc()
	}
}
