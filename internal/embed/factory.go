package embed

import (
	"log/slog"
	"os"
	"strconv"
)

// BackendName is the closed set of Embedder backends this module
// constructs directly; any other implementation (remote API, local
// inference) can still be supplied by hand-constructing an Embedder.
type BackendName string

const (
	BackendHash   BackendName = "hash"
	BackendOllama BackendName = "ollama"
)

// Options configures NewEmbedder's backend selection and wrapping.
type Options struct {
	Backend    BackendName
	Dim        uint32
	Ollama     OllamaConfig
	Cache      bool
	CacheSize  int
	Retry      bool
	RetryCfg   RetryConfig
}

// DefaultOptions returns the hash baseline with caching enabled, the
// configuration every CLI command falls back to absent an explicit
// --embedder flag or AGENTSDB_EMBEDDER environment variable.
func DefaultOptions(dim uint32) Options {
	return Options{
		Backend:   BackendHash,
		Dim:       dim,
		Cache:     true,
		CacheSize: DefaultEmbeddingCacheSize,
		RetryCfg:  DefaultRetryConfig(),
	}
}

// NewEmbedder constructs an Embedder per opts, optionally wrapping it
// with retry (network backends only) and an LRU cache.
//
// AGENTSDB_EMBEDDER overrides opts.Backend when set, matching the way
// the other example backends in this module read their configuration
// from the environment (the core itself never reads env vars, per §6).
func NewEmbedder(opts Options, logger *slog.Logger) Embedder {
	backend := opts.Backend
	if v := os.Getenv("AGENTSDB_EMBEDDER"); v != "" {
		backend = BackendName(v)
	}
	if v := os.Getenv("AGENTSDB_EMBED_DIM"); v != "" {
		if d, err := strconv.ParseUint(v, 10, 32); err == nil {
			opts.Dim = uint32(d)
		}
	}

	var inner Embedder
	switch backend {
	case BackendOllama:
		cfg := opts.Ollama
		if cfg.Dimensions == 0 {
			cfg.Dimensions = opts.Dim
		}
		ollama := NewOllamaEmbedder(cfg)
		if opts.Retry {
			retryCfg := opts.RetryCfg
			if retryCfg.MaxRetries == 0 {
				retryCfg = DefaultRetryConfig()
			}
			inner = NewRetryingEmbedder(ollama, retryCfg)
		} else {
			inner = ollama
		}
	default:
		inner = NewHashEmbedder(opts.Dim)
	}

	if opts.Cache {
		inner = NewCachedEmbedder(inner, opts.CacheSize)
	}
	if logger != nil {
		logger.Debug("embedder constructed", "backend", backend, "dim", opts.Dim)
	}
	return inner
}
