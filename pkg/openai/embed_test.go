package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voyago/voyago-mvp/pkg/fn"
)

func fastRetry() fn.RetryOpts {
	return fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
}

func TestEmbedBatch(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("wrong path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("wrong auth header %q", got)
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected batched input, got %v", req.Input)
		}
		// Out-of-order indices must still land in input order.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	e, err := NewEmbedder(Options{BaseURL: srv.URL, Dimension: 2, Retry: fastRetry()})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"old town", "harbour"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("embeddings not ordered by index: %v", vecs)
	}
}

func TestEmbedBatchRetriesServerError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	e, err := NewEmbedder(Options{BaseURL: srv.URL, Retry: fastRetry()})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if len(vecs) != 1 {
		t.Fatalf("unexpected vecs: %v", vecs)
	}
}

func TestEmbedBatchCountMismatch(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	}))
	defer srv.Close()

	e, err := NewEmbedder(Options{BaseURL: srv.URL, Retry: fastRetry()})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	if _, err := e.EmbedBatch(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	e, err := NewEmbedder(Options{BaseURL: "http://unused.invalid", Retry: fastRetry()})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Fatalf("empty input must be a no-op, got %v, %v", vecs, err)
	}
}

func TestNewEmbedderMissingKey(t *testing.T) {
	t.Setenv("VOYAGO_TEST_KEY", "")
	if _, err := NewEmbedder(Options{APIKeyEnv: "VOYAGO_TEST_KEY"}); err == nil {
		t.Fatal("expected error for missing key")
	}
}
