package semantic

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/voyago/voyago-mvp/engine/domain"
)

// EmbedBatchSize caps chunks per embedding call.
const EmbedBatchSize = 64

// vecMagic marks the vector artifact format.
const vecMagic uint32 = 0x56474f31 // "VGO1"

// MemoryStore is the in-process Store backend. Vectors are unit-normalized
// at insert so similarity is a dot product. Chunks, metadata, and vectors
// stay index-aligned at all times; Save/Load persist both sides together
// and reject any mismatch.
type MemoryStore struct {
	embedder Embedder
	logger   *slog.Logger

	vectors [][]float32
	chunks  []domain.Chunk
	built   bool
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(embedder Embedder, logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{embedder: embedder, logger: logger}
}

// Len returns the number of indexed items.
func (s *MemoryStore) Len() int { return len(s.chunks) }

// Add embeds chunks in batches and appends them. Items are not searchable
// until the next Build.
func (s *MemoryStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += EmbedBatchSize {
		end := start + EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("semantic: embed batch: %w", err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("semantic: embedder returned %d vectors for %d texts", len(vecs), len(texts))
		}
		for i, v := range vecs {
			if len(v) != s.embedder.Dimension() {
				return fmt.Errorf("semantic: vector dimension %d, embedder reports %d", len(v), s.embedder.Dimension())
			}
			s.vectors = append(s.vectors, normalize(v))
			s.chunks = append(s.chunks, chunks[start+i])
		}
	}

	s.built = false
	return nil
}

// Build finalizes the index over everything added so far. Building an empty
// store is a no-op that leaves it unsearchable; rebuilding an unchanged
// built store is a no-op too.
func (s *MemoryStore) Build(_ context.Context) error {
	if len(s.chunks) == 0 {
		return nil
	}
	if s.built {
		return nil
	}
	s.built = true
	s.logger.Info("vector index built", "items", len(s.chunks))
	return nil
}

// Search embeds the query and returns up to k hits sorted by descending
// similarity. An unbuilt or empty store yields an empty result.
func (s *MemoryStore) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if !s.built || len(s.chunks) == 0 || k <= 0 {
		return nil, nil
	}

	vecs, err := s.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != s.embedder.Dimension() {
		return nil, fmt.Errorf("semantic: bad query embedding")
	}
	qv := normalize(vecs[0])

	type scored struct {
		idx   int
		score float32
	}
	scores := make([]scored, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = scored{idx: i, score: dot(qv, v)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]SearchResult, k)
	for i := 0; i < k; i++ {
		c := s.chunks[scores[i].idx]
		results[i] = SearchResult{
			Text:      c.Text,
			SourceURL: c.SourceURL,
			Score:     scores[i].score,
			Meta:      c.Meta,
		}
	}
	return results, nil
}

// metaFile is the JSON artifact holding the aligned chunk array.
type metaFile struct {
	Dimension int            `json:"dimension"`
	Chunks    []domain.Chunk `json:"chunks"`
}

// Save persists the store as two artifacts: <path>.vec (vectors) and
// <path>.json (chunks, metadata, dimension). Both are written via a temp
// file and rename so a crash leaves no half-written pair behind. Saving an
// unbuilt or empty store is a no-op.
func (s *MemoryStore) Save(path string) error {
	if !s.built || len(s.chunks) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("semantic: mkdir: %w", err)
	}

	dim := s.embedder.Dimension()
	vecBuf := make([]byte, 12+4*dim*len(s.vectors))
	binary.LittleEndian.PutUint32(vecBuf[0:], vecMagic)
	binary.LittleEndian.PutUint32(vecBuf[4:], uint32(dim))
	binary.LittleEndian.PutUint32(vecBuf[8:], uint32(len(s.vectors)))
	off := 12
	for _, v := range s.vectors {
		for _, x := range v {
			binary.LittleEndian.PutUint32(vecBuf[off:], math.Float32bits(x))
			off += 4
		}
	}
	if err := writeAtomic(path+".vec", vecBuf); err != nil {
		return err
	}

	meta, err := json.Marshal(metaFile{Dimension: dim, Chunks: s.chunks})
	if err != nil {
		return fmt.Errorf("semantic: marshal metadata: %w", err)
	}
	if err := writeAtomic(path+".json", meta); err != nil {
		return err
	}

	s.logger.Info("vector store saved", "path", path, "items", len(s.chunks))
	return nil
}

// Load restores a saved store. Any corruption, count mismatch between the
// two artifacts, or dimension mismatch against the active embedder resets
// the store to empty and returns the error; the files are left in place.
func (s *MemoryStore) Load(path string) error {
	if err := s.load(path); err != nil {
		s.reset()
		s.logger.Warn("vector store load failed, starting empty", "path", path, "err", err)
		return err
	}
	s.logger.Info("vector store loaded", "path", path, "items", len(s.chunks))
	return nil
}

func (s *MemoryStore) load(path string) error {
	metaRaw, err := os.ReadFile(path + ".json")
	if err != nil {
		return fmt.Errorf("semantic: read metadata: %w", err)
	}
	var meta metaFile
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return fmt.Errorf("semantic: decode metadata: %w", err)
	}
	if meta.Dimension != s.embedder.Dimension() {
		return fmt.Errorf("semantic: stored dimension %d, embedder dimension %d", meta.Dimension, s.embedder.Dimension())
	}

	vecRaw, err := os.ReadFile(path + ".vec")
	if err != nil {
		return fmt.Errorf("semantic: read vectors: %w", err)
	}
	if len(vecRaw) < 12 {
		return fmt.Errorf("semantic: vector file truncated")
	}
	if binary.LittleEndian.Uint32(vecRaw[0:]) != vecMagic {
		return fmt.Errorf("semantic: vector file has wrong magic")
	}
	dim := int(binary.LittleEndian.Uint32(vecRaw[4:]))
	count := int(binary.LittleEndian.Uint32(vecRaw[8:]))
	if dim != meta.Dimension {
		return fmt.Errorf("semantic: vector dimension %d, metadata dimension %d", dim, meta.Dimension)
	}
	if count != len(meta.Chunks) {
		return fmt.Errorf("semantic: %d vectors but %d chunks", count, len(meta.Chunks))
	}
	if len(vecRaw) != 12+4*dim*count {
		return fmt.Errorf("semantic: vector file size mismatch")
	}

	vectors := make([][]float32, count)
	off := 12
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecRaw[off:]))
			off += 4
		}
		vectors[i] = v
	}

	s.vectors = vectors
	s.chunks = meta.Chunks
	s.built = true
	return nil
}

func (s *MemoryStore) reset() {
	s.vectors = nil
	s.chunks = nil
	s.built = false
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("semantic: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("semantic: rename %s: %w", path, err)
	}
	return nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
