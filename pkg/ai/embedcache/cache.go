// Package embedcache caches embedding vectors in Redis in front of an ai.Embedder.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/focusflow/pkg/ai"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/observability"
)

// DefaultTTL is how long cached vectors are kept.
const DefaultTTL = 7 * 24 * time.Hour

// Redis key prefixes
const (
	keyPrefixEmbedding = "focusflow:emb:" // Vector bytes by model and text hash
)

// Cache is an ai.Embedder that serves repeated texts from Redis. Redis
// failures are logged and the request falls through to the wrapped embedder.
type Cache struct {
	client  redis.Cmdable
	next    ai.Embedder
	model   string
	ttl     time.Duration
	logger  logging.Logger
	metrics *observability.Metrics
}

// Option configures the cache.
type Option func(*Cache)

// WithTTL sets the expiry of cached vectors.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics records hits and misses.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New wraps next. model is part of every key so that switching embedding
// models never serves stale vectors.
func New(client redis.Cmdable, next ai.Embedder, model string, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		next:   next,
		model:  model,
		ttl:    DefaultTTL,
		logger: logging.MustGlobal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logging.F("component", "embedcache"))
	return c
}

// Embed returns cached vectors where present and embeds the rest in one call
// to the wrapped embedder, preserving input order.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	out := make([][]float32, len(texts))
	var missing []int

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("Embedding cache lookup failed", logging.Err(err))
		values = nil
	}
	for i := range texts {
		if i < len(values) {
			if s, ok := values[i].(string); ok {
				if vec, err := decodeVector([]byte(s)); err == nil {
					out[i] = vec
					continue
				}
			}
		}
		missing = append(missing, i)
	}
	c.metrics.RecordCacheLookup(len(texts)-len(missing), len(missing))

	if len(missing) == 0 {
		return out, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	vecs, err := c.next.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(pending) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", len(vecs), len(pending))
	}

	pipe := c.client.TxPipeline()
	for j, i := range missing {
		out[i] = vecs[j]
		pipe.Set(ctx, keys[i], encodeVector(vecs[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("Embedding cache store failed", logging.Err(err), logging.F("count", len(missing)))
	}
	return out, nil
}

func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return keyPrefixEmbedding + hex.EncodeToString(sum[:])
}

// encodeVector packs float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
