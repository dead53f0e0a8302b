package cache

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/models"
)

const generationKey = "search:generation"

// SearchCache keeps search results in a local LRU and, when a memcached
// host is configured, in memcached so that several server instances share
// results. Keys embed a generation number; Invalidate bumps it.
type SearchCache struct {
	local      *ccache.Cache[[]models.PropertyListing]
	remote     *memcache.Client
	ttl        time.Duration
	generation atomic.Uint64
	logger     *logrus.Logger
}

// NewSearchCache creates a cache. memcachedHost may be empty.
func NewSearchCache(maxSize int64, ttl time.Duration, memcachedHost string, logger *logrus.Logger) *SearchCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	c := &SearchCache{
		local:  ccache.New(ccache.Configure[[]models.PropertyListing]().MaxSize(maxSize)),
		ttl:    ttl,
		logger: logger,
	}
	if memcachedHost != "" {
		c.remote = memcache.New(memcachedHost)
		logger.WithField("host", memcachedHost).Info("Search cache backed by memcached")
	}
	return c
}

// Key derives the cache key for a fingerprint of the request. The
// fingerprint is hashed so the key stays within memcached's charset and
// length limits.
func (c *SearchCache) Key(fingerprint string) string {
	hash := md5.Sum([]byte(fingerprint))
	return fmt.Sprintf("search:%d:%x", c.currentGeneration(), hash)
}

// Get returns the cached listings for key.
func (c *SearchCache) Get(key string) ([]models.PropertyListing, bool) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), true
	}
	if c.remote == nil {
		return nil, false
	}

	item, err := c.remote.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			c.logger.WithError(err).WithField("key", key).Warn("Failed to read search cache from memcached")
		}
		return nil, false
	}

	var listings []models.PropertyListing
	if err := json.Unmarshal(item.Value, &listings); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to decode cached search results")
		return nil, false
	}
	c.local.Set(key, listings, c.ttl)
	return listings, true
}

// Set stores listings under key in every configured level.
func (c *SearchCache) Set(key string, listings []models.PropertyListing) {
	c.local.Set(key, listings, c.ttl)
	if c.remote == nil {
		return
	}

	data, err := json.Marshal(listings)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode search results for memcached")
		return
	}
	err = c.remote.Set(&memcache.Item{Key: key, Value: data, Expiration: int32(c.ttl / time.Second)})
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write search cache to memcached")
	}
}

// Invalidate drops every cached result.
func (c *SearchCache) Invalidate() {
	c.generation.Add(1)
	c.local.Clear()
	if c.remote == nil {
		return
	}

	if _, err := c.remote.Increment(generationKey, 1); err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			c.logger.WithError(err).Warn("Failed to bump search cache generation in memcached")
			return
		}
		gen := strconv.FormatUint(c.generation.Load(), 10)
		if err := c.remote.Set(&memcache.Item{Key: generationKey, Value: []byte(gen)}); err != nil {
			c.logger.WithError(err).Warn("Failed to seed search cache generation in memcached")
		}
	}
}

func (c *SearchCache) currentGeneration() uint64 {
	if c.remote == nil {
		return c.generation.Load()
	}
	item, err := c.remote.Get(generationKey)
	if err != nil {
		return c.generation.Load()
	}
	gen, err := strconv.ParseUint(string(item.Value), 10, 64)
	if err != nil {
		return c.generation.Load()
	}
	return gen
}

// Close stops the local cache's background worker.
func (c *SearchCache) Close() {
	c.local.Stop()
}
