// Package embedcache wraps an AI client with a Redis cache for embedding
// vectors. Question bank reference answers are embedded over and over; caching
// them keeps repeat evaluations cheap and deterministic.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const keyPrefix = "embed:"

// Client decorates a domain.AIClient. Chat calls pass through; embedding
// calls are served from Redis when possible. Cache failures degrade to the
// upstream client, never to an error.
type Client struct {
	next  domain.AIClient
	redis redis.UniversalClient
	model string
	ttl   time.Duration
}

// New wraps next with a cache. The model name is part of the cache key so a
// model switch does not serve stale vectors.
func New(next domain.AIClient, rdb redis.UniversalClient, model string, ttl time.Duration) *Client {
	return &Client{next: next, redis: rdb, model: model, ttl: ttl}
}

// ChatJSON passes through to the wrapped client.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.next.ChatJSON(ctx, systemPrompt, userPrompt)
}

// Embed serves cached vectors and fetches only the misses upstream. The
// returned slice preserves input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		v, ok := c.get(ctx, t)
		if ok {
			vecs[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return vecs, nil
	}
	fetched, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missTexts) {
		return nil, fmt.Errorf("op=embedcache.Embed: %w: expected %d vectors, got %d", domain.ErrSchemaInvalid, len(missTexts), len(fetched))
	}
	for j, i := range missIdx {
		vecs[i] = fetched[j]
		c.put(ctx, texts[i], fetched[j])
	}
	return vecs, nil
}

func (c *Client) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *Client) get(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.redis.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("embed cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	var v []float32
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("embed cache entry corrupt, ignoring", slog.Any("error", err))
		return nil, false
	}
	return v, true
}

func (c *Client) put(ctx context.Context, text string, vec []float32) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.key(text), raw, c.ttl).Err(); err != nil {
		slog.Warn("embed cache write failed", slog.Any("error", err))
	}
}
