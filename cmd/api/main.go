// Package main implements the Voyago retrieval API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
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
	"github.com/voyago/voyago-mvp/pkg/mid"
	"github.com/voyago/voyago-mvp/pkg/ollama"
	"github.com/voyago/voyago-mvp/pkg/openai"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
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

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

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
		Metrics:   reg,
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
	}, logger, reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/context", handleContext(ragSvc, cfg, logger))
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.OTel("voyago-api"),
		mid.CORS(envOr("CORS_ORIGIN", "*")),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ContextRequest is the JSON body for POST /api/context.
type ContextRequest struct {
	Destination        string   `json:"destination"`
	Origin             string   `json:"origin,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	AccommodationStyle string   `json:"accommodation_style,omitempty"`
	AccommodationTypes []string `json:"accommodation_types,omitempty"`
	Preferences        string   `json:"preferences,omitempty"`
}

// ContextResponse is the JSON response for POST /api/context.
type ContextResponse struct {
	Destination string `json:"destination"`
	Context     string `json:"context"`
}

func handleContext(ragSvc *rag.Service, cfg *config.AppConfig, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ContextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		trip := domain.TripRequest{
			Destination:        req.Destination,
			Origin:             req.Origin,
			Interests:          req.Interests,
			AccommodationStyle: req.AccommodationStyle,
			AccommodationTypes: req.AccommodationTypes,
			Preferences:        req.Preferences,
		}

		block, err := ragSvc.ProcessDestination(r.Context(), trip)
		if err != nil {
			logger.Warn("context request rejected", "err", err)
			http.Error(w, `{"error":"invalid destination"}`, http.StatusBadRequest)
			return
		}

		if cfg.VectorStore.Type == semantic.BackendMemory {
			if err := ragSvc.SaveKnowledge(cfg.VectorStore.Path, trip.Destination); err != nil {
				logger.Warn("knowledge save failed", "destination", trip.Destination, "err", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ContextResponse{
			Destination: trip.Destination,
			Context:     block,
		})
	}
}
