package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voyago/voyago-mvp/engine/domain"
	"github.com/voyago/voyago-mvp/engine/rag"
	"github.com/voyago/voyago-mvp/engine/semantic"
	"github.com/voyago/voyago-mvp/pkg/config"
)

type stubStore struct {
	results []semantic.SearchResult
	saved   []string
}

func (s *stubStore) Add(context.Context, []domain.Chunk) error { return nil }
func (s *stubStore) Build(context.Context) error               { return nil }
func (s *stubStore) Search(_ context.Context, _ string, k int) ([]semantic.SearchResult, error) {
	if k < len(s.results) {
		return s.results[:k], nil
	}
	return s.results, nil
}
func (s *stubStore) Save(path string) error { s.saved = append(s.saved, path); return nil }
func (s *stubStore) Load(string) error      { return nil }
func (s *stubStore) Len() int               { return len(s.results) }

func testService(store *stubStore) *rag.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rag.New(store, nil, rag.Options{}, logger, nil)
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handleHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestHandleContext(t *testing.T) {
	store := &stubStore{results: []semantic.SearchResult{
		{Text: "The Alfama district is best explored on foot.", Score: 0.9},
	}}
	cfg := config.Default()
	cfg.VectorStore.Path = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handleContext(testService(store), cfg, logger)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/context",
		strings.NewReader(`{"destination":"Lisbon","interests":["food"]}`))
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ContextResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Destination != "Lisbon" {
		t.Errorf("destination = %q", resp.Destination)
	}
	if !strings.Contains(resp.Context, "Alfama") {
		t.Errorf("context missing retrieved text: %q", resp.Context)
	}
	if len(store.saved) != 1 || !strings.HasSuffix(store.saved[0], "lisbon") {
		t.Errorf("knowledge not saved for destination: %v", store.saved)
	}
}

func TestHandleContext_NoHitsYieldsFallback(t *testing.T) {
	cfg := config.Default()
	cfg.VectorStore.Path = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handleContext(testService(&stubStore{}), cfg, logger)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/context",
		strings.NewReader(`{"destination":"Reykjavik"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ContextResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Context != rag.FallbackContext("Reykjavik") {
		t.Errorf("context = %q", resp.Context)
	}
}

func TestHandleContext_BadRequests(t *testing.T) {
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handleContext(testService(&stubStore{}), cfg, logger)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{destination}`},
		{"blank destination", `{"destination":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodPost, "/api/context", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestBuildEmbedder(t *testing.T) {
	cfg := config.Default()
	if _, err := buildEmbedder(cfg); err != nil {
		t.Fatalf("default (ollama) embedder: %v", err)
	}

	cfg.Embedder.Type = "sentencepiece"
	if _, err := buildEmbedder(cfg); err == nil {
		t.Fatal("unknown embedder type should error")
	}
}
