package embed

import (
	"context"
	"strings"
)

const fnvOffsetBasis32 = 2166136261
const fnvPrime32 = 16777619

// fnv1a32 hashes s with 32-bit FNV-1a.
func fnv1a32(s string) uint32 {
	h := uint32(fnvOffsetBasis32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// HashEmbedder is the required deterministic baseline embedder: tokenize
// by whitespace, hash each token with 32-bit FNV-1a, fold into dim
// buckets with sign taken from the hash's high bit, then L2-normalize.
// This algorithm is fully specified and must be bit-reproducible across
// implementations, so it is ported directly from the reference
// implementation rather than from any richer tokenizer.
type HashEmbedder struct {
	dim uint32
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder constructs a HashEmbedder for the given output dimension.
func NewHashEmbedder(dim uint32) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Profile implements Embedder.
func (e *HashEmbedder) Profile() EmbeddingProfile {
	return EmbeddingProfile{Backend: "hash", Dim: e.dim, OutputNorm: OutputNormNone}
}

// Metadata implements Embedder. The hash embedder carries no
// backend-specific provenance.
func (e *HashEmbedder) Metadata() EmbedderMetadata {
	return EmbedderMetadata{}
}

// Embed implements Embedder.
func (e *HashEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = HashEmbed(s, e.dim)
	}
	return out, nil
}

// HashEmbed is the bit-reproducible hash-embedding function itself,
// exposed standalone so callers (and tests) can invoke it without
// constructing an Embedder. HashEmbed(s, 0) == nil for any s.
func HashEmbed(s string, dim uint32) []float32 {
	if dim == 0 {
		return nil
	}
	vec := make([]float32, dim)
	for _, tok := range strings.Fields(s) {
		h := fnv1a32(tok)
		idx := h % dim
		if h&0x80000000 != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return normalizeVector(vec)
}
