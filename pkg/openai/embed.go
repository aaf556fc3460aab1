// Package openai provides a text embedder for OpenAI-compatible embedding
// endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/voyago/voyago-mvp/pkg/fn"
)

// Embedder calls the /embeddings endpoint of an OpenAI-compatible API.
// The endpoint accepts a batch of inputs natively, so one request embeds
// a whole chunk batch.
type Embedder struct {
	baseURL   string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
	retry     fn.RetryOpts
}

// Options configures an Embedder. The API key is read from the environment
// variable named by APIKeyEnv so it never appears in config files.
type Options struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
	Timeout   time.Duration
	Client    *http.Client // overrides Timeout when set
	Retry     fn.RetryOpts
}

// NewEmbedder creates an OpenAI-compatible embedding client.
func NewEmbedder(opts Options) (*Embedder, error) {
	if opts.APIKeyEnv == "" {
		opts.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(opts.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("openai: missing API key in env %s", opts.APIKeyEnv)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "text-embedding-3-small"
	}
	if opts.Dimension == 0 {
		opts.Dimension = 1536
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = fn.RetryOpts{MaxAttempts: 3, InitialWait: 500 * time.Millisecond, MaxWait: 5 * time.Second, Jitter: true}
	}
	return &Embedder{
		baseURL:   opts.BaseURL,
		apiKey:    key,
		model:     opts.Model,
		dimension: opts.Dimension,
		client:    client,
		retry:     retry,
	}, nil
}

// Dimension returns the configured embedding width.
func (e *Embedder) Dimension() int { return e.dimension }

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds all texts in one request, retrying on 429 and 5xx.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := fn.Retry(ctx, e.retry, func(ctx context.Context) fn.Result[embedResponse] {
		body, _ := json.Marshal(embedRequest{Input: texts, Model: e.model})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return fn.Err[embedResponse](err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			return fn.Errf[embedResponse]("openai embed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fn.Errf[embedResponse]("openai embed: status %d", resp.StatusCode)
		}

		var out embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fn.Errf[embedResponse]("openai embed decode: %w", err)
		}
		return fn.Ok(out)
	})

	out, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: %d embeddings for %d inputs", len(out.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("openai embed: index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
