// Package main implements a one-shot retrieval run: gather a destination's
// corpus, index it, and print the assembled evidence block.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/voyago/voyago-mvp/engine/domain"
	"github.com/voyago/voyago-mvp/engine/ingest"
	"github.com/voyago/voyago-mvp/engine/rag"
	"github.com/voyago/voyago-mvp/engine/scraper"
	"github.com/voyago/voyago-mvp/engine/semantic"
	"github.com/voyago/voyago-mvp/pkg/cache"
	"github.com/voyago/voyago-mvp/pkg/config"
	"github.com/voyago/voyago-mvp/pkg/metrics"
	"github.com/voyago/voyago-mvp/pkg/ollama"
	"github.com/voyago/voyago-mvp/pkg/openai"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "config file path")
		dest       = flag.String("dest", "", "destination (required)")
		origin     = flag.String("origin", "", "trip origin")
		interests  = flag.String("interests", "", "comma-separated interests")
		style      = flag.String("style", "", "accommodation style")
		accTypes   = flag.String("types", "", "comma-separated accommodation types")
		prefs      = flag.String("prefs", "", "free-text preferences")
		save       = flag.Bool("save", true, "persist the index after the run")
		timeout    = flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *dest == "" {
		fmt.Fprintln(os.Stderr, "usage: retrieve -dest <destination> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger, runArgs{
		dest:      *dest,
		origin:    *origin,
		interests: splitList(*interests),
		style:     *style,
		accTypes:  splitList(*accTypes),
		prefs:     *prefs,
		save:      *save,
		timeout:   *timeout,
	}); err != nil {
		logger.Error("retrieve failed", "err", err)
		os.Exit(1)
	}
}

type runArgs struct {
	dest      string
	origin    string
	interests []string
	style     string
	accTypes  []string
	prefs     string
	save      bool
	timeout   time.Duration
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func buildEmbedder(cfg *config.AppConfig) (semantic.Embedder, error) {
	switch cfg.Embedder.Type {
	case "ollama":
		o := cfg.Embedder.Ollama
		return ollama.NewEmbedder(ollama.Options{
			BaseURL:   o.BaseURL,
			Model:     o.Model,
			Dimension: o.Dimension,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
		}), nil
	case "openai":
		o := cfg.Embedder.OpenAI
		return openai.NewEmbedder(openai.Options{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			Dimension: o.Dimension,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger, args runArgs) error {
	ctx, cancel := context.WithTimeout(context.Background(), args.timeout)
	defer cancel()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	storeCfg := semantic.StoreConfig{Backend: cfg.VectorStore.Type}
	if q := cfg.VectorStore.Qdrant; q != nil {
		storeCfg.Addr = q.Addr
		storeCfg.Collection = q.Collection
	}
	store, err := semantic.NewStore(storeCfg, embedder, logger)
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	pageCache := cache.NewFileCache(cfg.Scraper.CachePath, time.Duration(cfg.Scraper.CacheTTLHours)*time.Hour, logger)
	fetcher := scraper.NewFetcher(scraper.FetcherOpts{
		Cache:     pageCache,
		Limiter:   rate.NewLimiter(rate.Limit(cfg.Scraper.RatePerSec), 2),
		Logger:    logger,
		Metrics:   metrics.New(),
		MaxJitter: 2 * time.Second,
	})
	gatherer := scraper.NewGatherer(scraper.GathererOpts{
		Search:     scraper.NewDDGClient(logger),
		Fetcher:    fetcher,
		MaxSources: cfg.Scraper.MaxSources,
		MaxChars:   cfg.Scraper.MaxChars,
		Logger:     logger,
	})

	pipeline := ingest.NewPipeline(ingest.Deps{
		Gatherer:     gatherer,
		Store:        store,
		Year:         time.Now().Year(),
		WindowWords:  cfg.Chunker.WindowWords,
		OverlapWords: cfg.Chunker.OverlapWords,
		Logger:       logger,
	})

	ragSvc := rag.New(store, pipeline, rag.Options{
		KPerQuery:  cfg.Retrieval.KPerQuery,
		ScoreFloor: cfg.Retrieval.ScoreFloor,
		MaxChunks:  cfg.Retrieval.MaxChunks,
	}, logger, nil)

	if cfg.VectorStore.Type == semantic.BackendMemory {
		if err := ragSvc.LoadKnowledge(cfg.VectorStore.Path, args.dest); err != nil {
			logger.Info("no saved knowledge, gathering fresh", "destination", args.dest)
		}
	}

	trip := domain.TripRequest{
		Destination:        args.dest,
		Origin:             args.origin,
		Interests:          args.interests,
		AccommodationStyle: args.style,
		AccommodationTypes: args.accTypes,
		Preferences:        args.prefs,
	}

	block, err := ragSvc.ProcessDestination(ctx, trip)
	if err != nil {
		return err
	}

	if args.save && cfg.VectorStore.Type == semantic.BackendMemory {
		if err := ragSvc.SaveKnowledge(cfg.VectorStore.Path, args.dest); err != nil {
			logger.Warn("knowledge save failed", "err", err)
		}
	}

	fmt.Println(block)
	return nil
}
