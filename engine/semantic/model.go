// Package semantic owns vector indexing and similarity search over document
// chunks. One Store interface, two backends: an in-process store persisted
// to flat files, and Qdrant for deployments that already run one. The
// backend is a configuration choice, not a code fork.
package semantic

import (
	"context"

	"github.com/voyago/voyago-mvp/engine/domain"
)

// Embedder turns text into fixed-dimension vectors. Indexing and querying
// must use the same embedder; the persisted dimension guards against mixing.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// SearchResult is a single similarity hit. Score is cosine similarity on
// unit vectors: higher is more similar, 1.0 is identical direction.
type SearchResult struct {
	Text      string            `json:"text"`
	SourceURL string            `json:"source_url"`
	Score     float32           `json:"score"`
	Meta      map[string]string `json:"meta"`
}

// Store indexes chunks and answers top-k similarity queries.
//
// Lifecycle: Add accumulates items; nothing is guaranteed searchable until
// Build. Search on an unbuilt or empty store returns an empty slice, never
// an error. Add after Build requires another Build over the full item set.
type Store interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	Build(ctx context.Context) error
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
	Save(path string) error
	Load(path string) error
	Len() int
}
