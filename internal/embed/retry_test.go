package embed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	calls    atomic.Int64
	fatal    bool
}

func (f *flakyEmbedder) Profile() EmbeddingProfile  { return EmbeddingProfile{Backend: "flaky", Dim: 4} }
func (f *flakyEmbedder) Metadata() EmbedderMetadata { return EmbedderMetadata{} }
func (f *flakyEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	n := f.calls.Add(1)
	if int(n) <= f.failures {
		if f.fatal {
			return nil, agerrors.New(agerrors.CodeSchemaMismatch, "boom", "")
		}
		return nil, agerrors.IOError("", errors.New("connection refused"))
	}
	return [][]float32{{1, 2, 3, 4}}, nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetryingEmbedderRetriesIOErrors(t *testing.T) {
	inner := &flakyEmbedder{failures: 2}
	r := NewRetryingEmbedder(inner, fastRetryConfig())

	vecs, err := r.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3, 4}}, vecs)
	assert.Equal(t, int64(3), inner.calls.Load())
}

func TestRetryingEmbedderDoesNotRetryFatalErrors(t *testing.T) {
	inner := &flakyEmbedder{failures: 5, fatal: true}
	r := NewRetryingEmbedder(inner, fastRetryConfig())

	_, err := r.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestRetryingEmbedderGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flakyEmbedder{failures: 100}
	r := NewRetryingEmbedder(inner, fastRetryConfig())

	_, err := r.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, int64(4), inner.calls.Load())
}
