package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedZeroDimIsEmpty(t *testing.T) {
	assert.Nil(t, HashEmbed("hello world", 0))
}

func TestHashEmbedNormIsZeroOrOne(t *testing.T) {
	cases := []string{"", "   ", "hello world", "the quick brown fox jumps over the lazy dog"}
	for _, s := range cases {
		v := HashEmbed(s, 16)
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		norm = math.Sqrt(norm)
		if norm != 0 {
			assert.InDelta(t, 1.0, norm, 1e-5, "input %q", s)
		}
	}
}

func TestHashEmbedIsDeterministic(t *testing.T) {
	a := HashEmbed("hello world", 32)
	b := HashEmbed("hello world", 32)
	assert.Equal(t, a, b)
}

func TestHashEmbedderProfile(t *testing.T) {
	e := NewHashEmbedder(8)
	p := e.Profile()
	assert.Equal(t, "hash", p.Backend)
	assert.Equal(t, uint32(8), p.Dim)
	assert.Equal(t, OutputNormNone, p.OutputNorm)
}

func TestHashEmbedderEmbedBatch(t *testing.T) {
	e := NewHashEmbedder(8)
	vecs, err := e.Embed(context.Background(), []string{"hello world", "goodbye"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
	assert.NotEqual(t, vecs[0], vecs[1])
}
