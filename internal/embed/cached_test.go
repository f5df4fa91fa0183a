package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEmbedder struct {
	calls   atomic.Int64
	profile EmbeddingProfile
}

func (m *mockEmbedder) Profile() EmbeddingProfile   { return m.profile }
func (m *mockEmbedder) Metadata() EmbedderMetadata  { return EmbedderMetadata{} }
func (m *mockEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	m.calls.Add(1)
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = HashEmbed(s, m.profile.Dim)
	}
	return out, nil
}

func TestCachedEmbedderServesRepeatedInputFromCache(t *testing.T) {
	inner := &mockEmbedder{profile: EmbeddingProfile{Backend: "mock", Dim: 8}}
	c := NewCachedEmbedder(inner, 16)

	v1, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	v2, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedEmbedderOnlyCallsInnerForMisses(t *testing.T) {
	inner := &mockEmbedder{profile: EmbeddingProfile{Backend: "mock", Dim: 8}}
	c := NewCachedEmbedder(inner, 16)

	_, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.calls.Load())

	_, err = c.Embed(context.Background(), []string{"a", "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedderKeysByProfile(t *testing.T) {
	innerA := &mockEmbedder{profile: EmbeddingProfile{Backend: "mock", Dim: 8}}
	innerB := &mockEmbedder{profile: EmbeddingProfile{Backend: "mock", Dim: 16}}
	cA := NewCachedEmbedder(innerA, 16)
	cB := NewCachedEmbedder(innerB, 16)

	_, err := cA.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	_, err = cB.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), innerA.calls.Load())
	assert.Equal(t, int64(1), innerB.calls.Load())
}
