package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// OllamaEmbedder generates embeddings using Ollama's local HTTP API. It
// satisfies the Embedder contract by reporting a profile with
// Backend: "ollama" and populating EmbedderMetadata.Provider.
type OllamaEmbedder struct {
	client *http.Client
	config OllamaConfig

	mu   sync.RWMutex
	dims uint32
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama-backed embedder. If cfg.Dimensions
// is 0, the dimension is auto-detected from the first Embed call.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = OllamaPoolSize
	}
	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}
	return &OllamaEmbedder{
		client: &http.Client{Transport: transport},
		config: cfg,
		dims:   cfg.Dimensions,
	}
}

// Profile implements Embedder.
func (e *OllamaEmbedder) Profile() EmbeddingProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return EmbeddingProfile{Backend: "ollama", Model: e.config.Model, Dim: e.dims, OutputNorm: OutputNormNone}
}

// Metadata implements Embedder.
func (e *OllamaEmbedder) Metadata() EmbedderMetadata {
	return EmbedderMetadata{Provider: "ollama", ProviderAPIBase: e.config.Host, ProviderModel: e.config.Model}
}

// Embed implements Embedder, calling Ollama's /api/embed endpoint. A
// non-200 response, an undecodable body or a transport failure is an
// IO-family error (§7);
// retry policy is the caller's responsibility via RetryingEmbedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: inputs})
	if err != nil {
		return nil, agerrors.IOError(e.config.Host, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, agerrors.IOError(e.config.Host, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, agerrors.IOError(e.config.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, agerrors.IOError(e.config.Host, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, body))
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, agerrors.IOError(e.config.Host, err)
	}
	if len(parsed.Embeddings) != len(inputs) {
		return nil, agerrors.IOError(e.config.Host,
			fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(inputs)))
	}

	out := make([][]float32, len(parsed.Embeddings))
	for i, row := range parsed.Embeddings {
		vec := make([]float32, len(row))
		for j, v := range row {
			vec[j] = float32(v)
		}
		out[i] = vec
	}

	e.mu.Lock()
	if e.dims == 0 && len(out) > 0 {
		e.dims = uint32(len(out[0]))
	}
	e.mu.Unlock()

	return out, nil
}
