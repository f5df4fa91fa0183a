package embed

import (
	"context"
	"time"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// RetryConfig configures exponential backoff for a network-backed embedder.
type RetryConfig struct {
	MaxRetries   int           // Maximum number of retry attempts (not including initial attempt)
	InitialDelay time.Duration // Delay before first retry
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig returns sensible defaults for a local HTTP backend.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: 1 * time.Second,
		MaxDelay:     16 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryingEmbedder wraps a network-backed Embedder with bounded
// exponential-backoff retry. Only IO-family errors are retried; a
// Format/Schema/Permission error from the inner embedder (e.g. a
// profile mismatch) is fatal per §7 and returned
// immediately without retrying.
type RetryingEmbedder struct {
	inner Embedder
	cfg   RetryConfig
}

var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps inner with cfg's retry policy.
func NewRetryingEmbedder(inner Embedder, cfg RetryConfig) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, cfg: cfg}
}

// Profile implements Embedder (passthrough to inner).
func (r *RetryingEmbedder) Profile() EmbeddingProfile { return r.inner.Profile() }

// Metadata implements Embedder (passthrough to inner).
func (r *RetryingEmbedder) Metadata() EmbedderMetadata { return r.inner.Metadata() }

// Embed implements Embedder, retrying IO-family failures with
// exponential backoff and returning fatal failures immediately.
func (r *RetryingEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	delay := r.cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vecs, err := r.inner.Embed(ctx, inputs)
		if err == nil {
			return vecs, nil
		}
		if agerrors.IsFormat(err) || agerrors.IsSchema(err) || agerrors.IsPermission(err) {
			return nil, err
		}
		lastErr = err
		if attempt >= r.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
	return nil, lastErr
}
