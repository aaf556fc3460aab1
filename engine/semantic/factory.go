package semantic

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// StoreConfig selects and parameterizes a Store backend.
type StoreConfig struct {
	Backend    string
	Addr       string // qdrant gRPC address
	Collection string // qdrant collection name
}

// NewStore builds the configured backend. An empty backend defaults to the
// in-process store.
func NewStore(cfg StoreConfig, embedder Embedder, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(embedder, logger), nil
	case BackendQdrant:
		if cfg.Addr == "" {
			return nil, fmt.Errorf("semantic: qdrant backend needs an address")
		}
		collection := cfg.Collection
		if collection == "" {
			collection = "travel_chunks"
		}
		return NewQdrantStore(cfg.Addr, collection, embedder, logger)
	default:
		return nil, fmt.Errorf("semantic: unknown store backend %q", cfg.Backend)
	}
}
