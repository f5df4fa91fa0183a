package layermeta

import (
	"testing"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/agentsdb/agentsdb-go/internal/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripJSON(t *testing.T) {
	m := New(embed.EmbeddingProfile{Backend: "hash", Dim: 8}).WithTool("agentsdb", "0.1.0")
	b, err := m.ToJSONBytes()
	require.NoError(t, err)

	got, err := FromJSONBytes(b, "")
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestEnsureCompatibleWithEmbedderNilBytesAlwaysPasses(t *testing.T) {
	e := embed.NewHashEmbedder(8)
	assert.NoError(t, EnsureCompatibleWithEmbedder(nil, e, "x"))
}

func TestEnsureCompatibleWithEmbedderMismatchFails(t *testing.T) {
	m := New(embed.EmbeddingProfile{Backend: "hash", Dim: 8})
	b, err := m.ToJSONBytes()
	require.NoError(t, err)

	e := embed.NewHashEmbedder(16)
	err = EnsureCompatibleWithEmbedder(b, e, "AGENTS.user.db")
	require.Error(t, err)
	assert.Equal(t, agerrors.CodeSchemaMismatch, agerrors.GetCode(err))
}

func TestEnsureCompatibleWithEmbedderMatchPasses(t *testing.T) {
	m := New(embed.EmbeddingProfile{Backend: "hash", Dim: 8})
	b, err := m.ToJSONBytes()
	require.NoError(t, err)

	e := embed.NewHashEmbedder(8)
	assert.NoError(t, EnsureCompatibleWithEmbedder(b, e, "AGENTS.user.db"))
}

func TestUnsupportedVersionRejected(t *testing.T) {
	_, err := FromJSONBytes([]byte(`{"v":2,"embedding_profile":{"backend":"hash","dim":8,"output_norm":""},"cache_key_alg":"x"}`), "x")
	require.Error(t, err)
}
