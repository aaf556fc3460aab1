package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.Type != "ollama" {
		t.Errorf("default embedder: %q", cfg.Embedder.Type)
	}
	if cfg.VectorStore.Type != "memory" {
		t.Errorf("default store: %q", cfg.VectorStore.Type)
	}
	if cfg.Retrieval.ScoreFloor != 0.6 || cfg.Retrieval.MaxChunks != 15 || cfg.Retrieval.KPerQuery != 3 {
		t.Errorf("default retrieval tunables: %+v", cfg.Retrieval)
	}
	if cfg.Chunker.WindowWords != 220 || cfg.Chunker.OverlapWords != 40 {
		t.Errorf("default chunker tunables: %+v", cfg.Chunker)
	}
}

func TestLoadOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
embedder:
  type: openai
  openai:
    model: text-embedding-3-large
    dimension: 3072
vector_store:
  type: qdrant
retrieval:
  score_floor: 0.5
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedder.OpenAI.Model != "text-embedding-3-large" || cfg.Embedder.OpenAI.Dimension != 3072 {
		t.Errorf("overrides lost: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.Embedder.OpenAI.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("gap not filled: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.VectorStore.Qdrant == nil || cfg.VectorStore.Qdrant.Addr != "localhost:6334" {
		t.Errorf("qdrant defaults not applied: %+v", cfg.VectorStore.Qdrant)
	}
	if cfg.Retrieval.ScoreFloor != 0.5 {
		t.Errorf("floor override lost: %v", cfg.Retrieval.ScoreFloor)
	}
	if cfg.Retrieval.MaxChunks != 15 {
		t.Errorf("budget default lost: %v", cfg.Retrieval.MaxChunks)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embedder: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
