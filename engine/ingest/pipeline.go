package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voyago/voyago-mvp/engine/domain"
	"github.com/voyago/voyago-mvp/engine/semantic"
	"github.com/voyago/voyago-mvp/pkg/fn"
)

// CorpusGatherer gathers cleaned source documents for a destination.
// Satisfied by scraper.Gatherer.
type CorpusGatherer interface {
	GatherDestination(ctx context.Context, destination string, year int) ([]domain.SourceDoc, error)
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Gatherer     CorpusGatherer
	Store        semantic.Store
	Year         int
	WindowWords  int
	OverlapWords int
	Logger       *slog.Logger
}

// GatheredCorpus is the output of the gather stage.
type GatheredCorpus struct {
	Destination string
	Docs        []domain.SourceDoc
}

// ChunkedCorpus is the output of the chunk stage.
type ChunkedCorpus struct {
	Destination string
	Chunks      []domain.Chunk
}

// --- Pipeline Stages ---

// Validate rejects destinations that fail domain validation.
var Validate fn.Stage[string, string] = func(_ context.Context, destination string) fn.Result[string] {
	if err := domain.ValidateDestination(destination); err != nil {
		return fn.Err[string](err)
	}
	return fn.Ok(destination)
}

// NewGather creates the stage that assembles the web corpus for a destination.
func NewGather(gatherer CorpusGatherer, year int) fn.Stage[string, GatheredCorpus] {
	return func(ctx context.Context, destination string) fn.Result[GatheredCorpus] {
		docs, err := gatherer.GatherDestination(ctx, destination, year)
		if err != nil {
			return fn.Err[GatheredCorpus](fmt.Errorf("ingest: gather: %w", err))
		}
		return fn.Ok(GatheredCorpus{Destination: destination, Docs: docs})
	}
}

// NewChunk creates the stage that cuts gathered documents into overlapping
// word windows.
func NewChunk(window, overlap int) fn.Stage[GatheredCorpus, ChunkedCorpus] {
	return func(_ context.Context, corpus GatheredCorpus) fn.Result[ChunkedCorpus] {
		chunks := ChunkCorpus(corpus.Destination, corpus.Docs, window, overlap)
		if len(chunks) == 0 {
			return fn.Err[ChunkedCorpus](fmt.Errorf("ingest: chunk %q: %w", corpus.Destination, domain.ErrNoCorpus))
		}
		return fn.Ok(ChunkedCorpus{Destination: corpus.Destination, Chunks: chunks})
	}
}

// NewIndex creates the stage that adds chunks to the vector store and builds
// the index. Returns how many chunks were indexed.
func NewIndex(store semantic.Store) fn.Stage[ChunkedCorpus, int] {
	return func(ctx context.Context, corpus ChunkedCorpus) fn.Result[int] {
		if err := store.Add(ctx, corpus.Chunks); err != nil {
			return fn.Err[int](fmt.Errorf("ingest: index add: %w", err))
		}
		if err := store.Build(ctx); err != nil {
			return fn.Err[int](fmt.Errorf("ingest: index build: %w", err))
		}
		return fn.Ok(len(corpus.Chunks))
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Info("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Info("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline wires Validate → Gather → Chunk → Index for one destination,
// with tracing spans and log taps around each stage. The returned stage
// yields the number of chunks indexed.
func NewPipeline(deps Deps) fn.Stage[string, int] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	window := deps.WindowWords
	if window <= 0 {
		window = DefaultWindowWords
	}
	overlap := deps.OverlapWords
	if overlap <= 0 {
		overlap = DefaultOverlapWords
	}

	validated := fn.Then(LoggedTap[string]("validate", log), Validate)
	gathered := fn.Then(validated, fn.TracedStage("ingest.gather", NewGather(deps.Gatherer, deps.Year)))
	chunked := fn.Then(gathered, fn.TracedStage("ingest.chunk", NewChunk(window, overlap)))
	indexed := fn.Then(chunked, fn.TracedStage("ingest.index", NewIndex(deps.Store)))

	return fn.Then(indexed, fn.TapStage(func(_ context.Context, n int) {
		log.Info("ingest: indexed", "chunks", n)
	}))
}
