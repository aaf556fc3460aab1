// Package config loads the application configuration from YAML, falling
// back to defaults when the file is absent. Secrets stay out of the file:
// API keys are referenced by environment variable name.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OllamaEmbedderConfig configures the local Ollama embedder.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"` // "ollama" or "openai"
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"` // "memory" or "qdrant"
	Path   string        `yaml:"path"` // artifact dir for the memory backend
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// ScraperConfig tunes corpus gathering.
type ScraperConfig struct {
	MaxSources    int     `yaml:"max_sources"`
	MaxChars      int     `yaml:"max_chars"`
	CachePath     string  `yaml:"cache_path"`
	CacheTTLHours int     `yaml:"cache_ttl_hours"`
	RatePerSec    float64 `yaml:"rate_per_sec"`
}

// ChunkerConfig tunes the word-window chunker.
type ChunkerConfig struct {
	WindowWords  int `yaml:"window_words"`
	OverlapWords int `yaml:"overlap_words"`
}

// RetrievalConfig tunes the orchestrator. Floor and budget track the
// embedding model's score distribution, so they live here rather than in
// code.
type RetrievalConfig struct {
	KPerQuery  int     `yaml:"k_per_query"`
	ScoreFloor float32 `yaml:"score_floor"`
	MaxChunks  int     `yaml:"max_chunks"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Scraper     ScraperConfig     `yaml:"scraper"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Server      ServerConfig      `yaml:"server"`
}

// Load reads the config at path. A missing file yields defaults; a present
// but malformed file is an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ollama"
	}
	if cfg.Embedder.Type == "ollama" {
		if cfg.Embedder.Ollama == nil {
			cfg.Embedder.Ollama = &OllamaEmbedderConfig{}
		}
		o := cfg.Embedder.Ollama
		if o.BaseURL == "" {
			o.BaseURL = "http://localhost:11434"
		}
		if o.Model == "" {
			o.Model = "nomic-embed-text"
		}
		if o.Dimension == 0 {
			o.Dimension = 768
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.Dimension == 0 {
			o.Dimension = 1536
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "data/vector_stores"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.Addr == "" {
			q.Addr = "localhost:6334"
		}
		if q.Collection == "" {
			q.Collection = "travel_chunks"
		}
	}

	if cfg.Scraper.MaxSources == 0 {
		cfg.Scraper.MaxSources = 3
	}
	if cfg.Scraper.MaxChars == 0 {
		cfg.Scraper.MaxChars = 4000
	}
	if cfg.Scraper.CachePath == "" {
		cfg.Scraper.CachePath = "data/page_cache.json"
	}
	if cfg.Scraper.CacheTTLHours == 0 {
		cfg.Scraper.CacheTTLHours = 24
	}
	if cfg.Scraper.RatePerSec == 0 {
		cfg.Scraper.RatePerSec = 0.5
	}

	if cfg.Chunker.WindowWords == 0 {
		cfg.Chunker.WindowWords = 220
	}
	if cfg.Chunker.OverlapWords == 0 {
		cfg.Chunker.OverlapWords = 40
	}

	if cfg.Retrieval.KPerQuery == 0 {
		cfg.Retrieval.KPerQuery = 3
	}
	if cfg.Retrieval.ScoreFloor == 0 {
		cfg.Retrieval.ScoreFloor = 0.6
	}
	if cfg.Retrieval.MaxChunks == 0 {
		cfg.Retrieval.MaxChunks = 15
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
