// Package embed provides the Embedder contract: a polymorphic producer
// of deterministic, fixed-dimension vectors with a declared profile and
// metadata, plus the concrete backends (hash, Ollama) and the cross-
// cutting wrappers (cache, retry) that compose on top of any of them.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single Embed call against a network-backed
	// backend.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for a
	// network-backed embedder.
	DefaultMaxRetries = 3
)

// OutputNorm declares whether Embed's returned vectors must already be
// L2-normalized.
type OutputNorm string

const (
	OutputNormNone OutputNorm = ""
	OutputNormL2   OutputNorm = "l2"
)

// EmbeddingProfile identifies a vector space. Two layers are compatible
// iff their profiles are equal (§3, §4.3).
type EmbeddingProfile struct {
	Backend    string     `json:"backend"`
	Model      string     `json:"model,omitempty"`
	Revision   string     `json:"revision,omitempty"`
	Dim        uint32     `json:"dim"`
	OutputNorm OutputNorm `json:"output_norm"`
}

// Equal reports whether two profiles identify the same vector space.
func (p EmbeddingProfile) Equal(o EmbeddingProfile) bool {
	return p.Backend == o.Backend && p.Model == o.Model &&
		p.Revision == o.Revision && p.Dim == o.Dim && p.OutputNorm == o.OutputNorm
}

// EmbedderMetadata carries optional, backend-specific provenance that
// rides alongside the profile in the layer-metadata blob. Every field is
// optional; a hash-based embedder populates none of them.
type EmbedderMetadata struct {
	Provider               string            `json:"provider,omitempty"`
	ProviderAPIBase        string            `json:"provider_api_base,omitempty"`
	ProviderModel          string            `json:"provider_model,omitempty"`
	ProviderModelRevision  string            `json:"provider_model_revision,omitempty"`
	Runtime                string            `json:"runtime,omitempty"`
	RuntimeVersion         string            `json:"runtime_version,omitempty"`
	ProviderResponseHeaders map[string]string `json:"provider_response_headers,omitempty"`
	ModelSha256            string            `json:"model_sha256,omitempty"`
	Notes                  string            `json:"notes,omitempty"`
}

// Embedder is the polymorphic capability at the heart of C2: given a
// profile and a set of inputs, produce deterministic fixed-dimension
// vectors. Embed must be deterministic for a given (Profile, input); if
// Profile().OutputNorm == OutputNormL2, returned vectors must already be
// L2-normalized.
type Embedder interface {
	Profile() EmbeddingProfile
	Metadata() EmbedderMetadata
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// normalizeVector L2-normalizes v in place conceptually, returning a new
// slice; a zero vector is returned unchanged (its norm is 0, not 1, by
// the hash-embed testable property in §8).
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
