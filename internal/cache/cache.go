// Package cache is a best-effort Redis layer over search responses and
// search contexts. Every failure mode degrades to a miss or a no-op: the
// search path must behave identically with the cache disabled.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/rueidis"

	"github.com/gitmatch-ai/gitmatch/internal/model"
)

// TTL applied to every cache entry.
const TTL = 5 * time.Minute

// Key prefixes. Responses and contexts share fingerprints but live under
// separate namespaces so they can be invalidated together or read apart.
const (
	searchPrefix    = "search:"
	searchCtxPrefix = "searchctx:"
)

// Cache wraps a rueidis client. A nil *Cache is valid and behaves as a
// permanently-empty cache, which is how a missing Redis URL is handled.
type Cache struct {
	client rueidis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// New connects to Redis at the given URL. An empty URL returns a nil cache.
func New(url string, logger *slog.Logger) (*Cache, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := rueidis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.DisableCache = true
	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client rueidis.Client, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger, ttl: TTL}
}

// Close releases the underlying client.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.client.Close()
}

// GetSearch returns the cached response for a request fingerprint.
// The second return is false on miss, malformed entry, or store failure.
func (c *Cache) GetSearch(ctx context.Context, fingerprint string) (*model.SearchResponse, bool) {
	var resp model.SearchResponse
	if !c.get(ctx, searchPrefix+fingerprint, &resp) {
		return nil, false
	}
	return &resp, true
}

// SetSearch stores a response under the request fingerprint.
func (c *Cache) SetSearch(ctx context.Context, fingerprint string, resp *model.SearchResponse) {
	c.set(ctx, searchPrefix+fingerprint, resp)
}

// GetContext returns the cached search context for a search ID.
func (c *Cache) GetContext(ctx context.Context, searchID string) (*model.SearchContext, bool) {
	var sc model.SearchContext
	if !c.get(ctx, searchCtxPrefix+searchID, &sc) {
		return nil, false
	}
	return &sc, true
}

// SetContext stores the ranking context under the search ID.
func (c *Cache) SetContext(ctx context.Context, searchID string, sc *model.SearchContext) {
	c.set(ctx, searchCtxPrefix+searchID, sc)
}

// Invalidate removes every search and context entry. Called after bulk
// corpus changes (ingestion batches, janitor runs) so cached totals and
// orderings do not outlive the rows behind them.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	for _, prefix := range []string{searchPrefix, searchCtxPrefix} {
		c.deleteByPrefix(ctx, prefix)
	}
}

func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry malformed, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed, skipping write", "key", key, "error", err)
		return
	}
	cmd := c.client.B().Set().Key(key).Value(rueidis.BinaryString(data)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("cache write failed, skipping", "key", key, "error", err)
	}
}

func (c *Cache) deleteByPrefix(ctx context.Context, prefix string) {
	var cursor uint64
	for {
		scan, err := c.client.Do(ctx,
			c.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(256).Build(),
		).AsScanEntry()
		if err != nil {
			c.logger.Warn("cache scan failed, invalidation incomplete", "prefix", prefix, "error", err)
			return
		}
		if len(scan.Elements) > 0 {
			cmd := c.client.B().Del().Key(scan.Elements...).Build()
			if err := c.client.Do(ctx, cmd).Error(); err != nil {
				c.logger.Warn("cache delete failed, invalidation incomplete", "prefix", prefix, "error", err)
				return
			}
		}
		cursor = scan.Cursor
		if cursor == 0 {
			return
		}
	}
}
