package searchcache

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/querysift/querysift/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss is the sentinel for "nothing usable stored". Callers
// treat any non-hit, including internal errors, as "must search".
var ErrCacheMiss = errors.New("cache miss")

// Entry is one cached search result. Mutated in place on every hit
// (hit count, last access) under the cache lock.
type Entry struct {
	Query        string                `json:"query"`
	Result       string                `json:"result"`
	Sources      int                   `json:"sources"`
	ScrapedSites int                   `json:"scraped_sites"`
	Intensity    types.SearchIntensity `json:"search_intensity"`
	Tags         []string              `json:"tags,omitempty"`
	TTLCategory  string                `json:"ttl_category"`
	CreatedAt    time.Time             `json:"created_at"`
	ExpiresAt    time.Time             `json:"expires_at"`
	HitCount     int                   `json:"hit_count"`
	LastAccessed time.Time             `json:"last_accessed"`

	normalized string
}

func (e *Entry) expired(now time.Time) bool { return now.After(e.ExpiresAt) }

// Config tunes the cache.
type Config struct {
	// MaxEntries caps the table size; eviction runs on Set.
	MaxEntries int `yaml:"max_entries"`
	// EvictFraction is the share of least-recently-accessed entries
	// removed when the table is full after an expiry purge.
	EvictFraction float64 `yaml:"evict_fraction"`
	// SimilarityThreshold is the default minimum similarity score for
	// a non-exact hit.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// SweepInterval drives the background expiry sweep; zero disables
	// it (expiry is still enforced on access).
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// RedisKeyPrefix namespaces the optional Redis tier.
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	TTL     TTLConfig         `yaml:"ttl"`
	Weights SimilarityWeights `yaml:"similarity_weights"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries:          500,
		EvictFraction:       0.2,
		SimilarityThreshold: 0.8,
		SweepInterval:       time.Minute,
		RedisKeyPrefix:      "querysift:search:",
		TTL:                 DefaultTTLConfig(),
		Weights:             DefaultSimilarityWeights(),
	}
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	Entries        int     `json:"entries"`
	Hits           int64   `json:"hits"`
	SimilarityHits int64   `json:"similarity_hits"`
	Misses         int64   `json:"misses"`
	Evictions      int64   `json:"evictions"`
	ExpiredPurged  int64   `json:"expired_purged"`
	HitRate        float64 `json:"hit_rate"`
}

// Cache is a TTL- and similarity-aware store of prior search results.
// Safe for concurrent use. The optional Redis tier is best effort:
// its errors are logged and treated as misses.
type Cache struct {
	config Config
	logger *zap.Logger
	rdb    *redis.Client

	mu      sync.Mutex
	entries map[string]*Entry

	hits           int64
	similarityHits int64
	misses         int64
	evictions      int64
	expiredPurged  int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures optional cache collaborators.
type Option func(*Cache)

// WithRedis attaches a Redis tier that survives process restarts and
// is shared across replicas.
func WithRedis(rdb *redis.Client) Option {
	return func(c *Cache) { c.rdb = rdb }
}

// New creates a Cache. A zero-valued config field falls back to its
// default.
func New(config Config, logger *zap.Logger, opts ...Option) *Cache {
	def := DefaultConfig()
	if config.MaxEntries <= 0 {
		config.MaxEntries = def.MaxEntries
	}
	if config.EvictFraction <= 0 || config.EvictFraction >= 1 {
		config.EvictFraction = def.EvictFraction
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = def.SimilarityThreshold
	}
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = def.RedisKeyPrefix
	}
	if config.TTL == (TTLConfig{}) {
		config.TTL = def.TTL
	}
	if config.Weights == (SimilarityWeights{}) {
		config.Weights = def.Weights
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{
		config:  config,
		logger:  logger.With(zap.String("component", "searchcache")),
		entries: make(map[string]*Entry),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a search result under the normalized query. TTL is
// resolved from content category first, then intensity.
func (c *Cache) Set(ctx context.Context, query, result string, intensity types.SearchIntensity, sources, scraped int) {
	normalized := normalize(query)
	if normalized == "" {
		return
	}
	now := time.Now()
	category, ttl := c.config.TTL.TTLFor(normalized, intensity)

	entry := &Entry{
		Query:        query,
		Result:       result,
		Sources:      sources,
		ScrapedSites: scraped,
		Intensity:    intensity,
		Tags:         deriveTags(normalized),
		TTLCategory:  category,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastAccessed: now,
		normalized:   normalized,
	}

	key := cacheKey(normalized)

	c.mu.Lock()
	if len(c.entries) >= c.config.MaxEntries {
		c.makeRoomLocked(now)
	}
	c.entries[key] = entry
	c.mu.Unlock()

	c.logger.Debug("cache set",
		zap.String("ttl_category", category),
		zap.Duration("ttl", ttl),
		zap.Strings("tags", entry.Tags),
	)

	if c.rdb != nil {
		c.setRedis(ctx, key, entry, ttl)
	}
}

// Get returns the cached result for the query, or ErrCacheMiss. An
// exact normalized-key match is tried first; on miss, live entries are
// scanned for the best similarity score at or above threshold.
// threshold <= 0 uses the configured default. maxAge > 0 rejects
// entries older than maxAge even if their TTL has not elapsed.
func (c *Cache) Get(ctx context.Context, query string, threshold float64, maxAge time.Duration) (*Entry, error) {
	normalized := normalize(query)
	if normalized == "" {
		return nil, ErrCacheMiss
	}
	if threshold <= 0 {
		threshold = c.config.SimilarityThreshold
	}
	now := time.Now()
	key := cacheKey(normalized)

	c.mu.Lock()

	if e, ok := c.entries[key]; ok {
		if e.expired(now) {
			delete(c.entries, key)
			c.expiredPurged++
		} else if !tooOld(e, now, maxAge) {
			e.HitCount++
			e.LastAccessed = now
			c.hits++
			snapshot := *e
			c.mu.Unlock()
			return &snapshot, nil
		}
	}

	// Similarity scan over live entries.
	tokens := tokenSet(normalized)
	tags := toSet(deriveTags(normalized))
	var best *Entry
	var bestScore float64
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			c.expiredPurged++
			continue
		}
		if tooOld(e, now, maxAge) {
			continue
		}
		score := c.config.Weights.score(tokens, tags, len(normalized), e)
		if score >= threshold && score > bestScore {
			best, bestScore = e, score
		}
	}
	if best != nil {
		best.HitCount++
		best.LastAccessed = now
		c.similarityHits++
		snapshot := *best
		c.mu.Unlock()
		c.logger.Debug("similarity hit", zap.Float64("score", bestScore))
		return &snapshot, nil
	}

	c.mu.Unlock()

	// Redis tier, exact key only.
	if c.rdb != nil {
		if e, ok := c.getRedis(ctx, key, now, maxAge); ok {
			return e, nil
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, ErrCacheMiss
}

func tooOld(e *Entry, now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(e.CreatedAt) > maxAge
}

// makeRoomLocked purges expired entries; if the table is still full it
// evicts the least-recently-accessed fraction.
func (c *Cache) makeRoomLocked(now time.Time) {
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			c.expiredPurged++
		}
	}
	if len(c.entries) < c.config.MaxEntries {
		return
	}

	type keyed struct {
		key  string
		last time.Time
	}
	byAccess := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		byAccess = append(byAccess, keyed{k, e.LastAccessed})
	}
	sort.Slice(byAccess, func(i, j int) bool { return byAccess[i].last.Before(byAccess[j].last) })

	n := int(float64(len(byAccess)) * c.config.EvictFraction)
	if n < 1 {
		n = 1
	}
	for _, k := range byAccess[:n] {
		delete(c.entries, k.key)
		c.evictions++
	}
	c.logger.Debug("evicted least-recently-accessed entries", zap.Int("count", n))
}

// InvalidateByTag removes every live entry carrying the tag and
// returns the count.
func (c *Cache) InvalidateByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		for _, t := range e.Tags {
			if t == tag {
				delete(c.entries, k)
				removed++
				break
			}
		}
	}
	c.logger.Info("invalidated by tag", zap.String("tag", tag), zap.Int("removed", removed))
	return removed
}

// InvalidateByPattern removes every entry whose original query matches
// the pattern and returns the count.
func (c *Cache) InvalidateByPattern(re *regexp.Regexp) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if re.MatchString(e.Query) {
			delete(c.entries, k)
			removed++
		}
	}
	c.logger.Info("invalidated by pattern", zap.String("pattern", re.String()), zap.Int("removed", removed))
	return removed
}

// Clear drops every entry in the local tier and, when configured, the
// Redis tier.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	if c.rdb != nil {
		c.clearRedis(ctx)
	}
	c.logger.Info("cache cleared")
}

// GetStats returns a snapshot of cache counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.similarityHits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits+c.similarityHits) / float64(total)
	}
	return Stats{
		Entries:        len(c.entries),
		Hits:           c.hits,
		SimilarityHits: c.similarityHits,
		Misses:         c.misses,
		Evictions:      c.evictions,
		ExpiredPurged:  c.expiredPurged,
		HitRate:        rate,
	}
}

// Start launches the periodic expiry sweep. It returns immediately;
// the sweep stops when ctx is done or Stop is called. A zero
// SweepInterval disables the loop (expiry still holds on access).
func (c *Cache) Start(ctx context.Context) {
	if c.config.SweepInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// Stop terminates the background sweep. Idempotent.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			c.expiredPurged++
			removed++
		}
	}
	c.mu.Unlock()
	if removed > 0 {
		c.logger.Debug("sweep removed expired entries", zap.Int("count", removed))
	}
}

// Redis tier helpers. All best effort.

func (c *Cache) redisKey(key string) string { return c.config.RedisKeyPrefix + key }

func (c *Cache) setRedis(ctx context.Context, key string, entry *Entry, ttl time.Duration) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.redisKey(key), data, ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.Error(err))
	}
}

func (c *Cache) getRedis(ctx context.Context, key string, now time.Time, maxAge time.Duration) (*Entry, bool) {
	data, err := c.rdb.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.Error(err))
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	entry.normalized = normalize(entry.Query)
	if entry.expired(now) || tooOld(&entry, now, maxAge) {
		return nil, false
	}
	entry.HitCount++
	entry.LastAccessed = now

	// Backfill the local tier.
	c.mu.Lock()
	local := entry
	c.entries[key] = &local
	c.hits++
	c.mu.Unlock()

	c.logger.Debug("redis tier hit")
	snapshot := entry
	return &snapshot, true
}

func (c *Cache) clearRedis(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.config.RedisKeyPrefix+"*", 100).Result()
		if err != nil {
			c.logger.Warn("redis scan failed", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("redis del failed", zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
