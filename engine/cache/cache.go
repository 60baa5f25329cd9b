// Package cache stores completed readings keyed by request identity. A NATS
// JetStream KV bucket is the primary store; an in-process LRU serves reads
// while the bucket is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/pkg/resilience"
)

// DefaultTTL is how long a cached reading stays valid.
const DefaultTTL = 48 * time.Hour

// KV is the key-value surface the cache needs from a JetStream bucket.
type KV interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
}

// Opts configures a Cache.
type Opts struct {
	LRUSize int
	TTL     time.Duration
	Breaker resilience.BreakerOpts
}

// DefaultOpts match the production deployment.
var DefaultOpts = Opts{
	LRUSize: 500,
	TTL:     DefaultTTL,
	Breaker: resilience.BreakerOpts{
		FailThreshold: 3,
		Timeout:       30 * time.Second,
	},
}

// Cache is the two-tier reading cache.
type Cache struct {
	kv      KV
	local   *lru
	breaker *resilience.Breaker
	log     *slog.Logger
}

// New wires a cache over a KV bucket. kv may be nil, in which case only the
// local tier is used. logger may be nil.
func New(kv KV, opts Opts, logger *slog.Logger) *Cache {
	if opts.LRUSize <= 0 {
		opts.LRUSize = DefaultOpts.LRUSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOpts.TTL
	}
	if opts.Breaker.FailThreshold <= 0 {
		opts.Breaker = DefaultOpts.Breaker
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		kv:      kv,
		local:   newLRU(opts.LRUSize, opts.TTL),
		breaker: resilience.NewBreaker(opts.Breaker),
		log:     logger,
	}
}

// EnsureBucket returns the named KV bucket, creating it with the TTL when it
// does not exist yet.
func EnsureBucket(nc *nats.Conn, bucket string, ttl time.Duration) (nats.KeyValue, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	kv, err := js.KeyValue(bucket)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
}

// Get returns the cached reading for a key. A KV outage falls back to the
// local tier; a miss in both is not an error.
func (c *Cache) Get(ctx context.Context, key string) (domain.Reading, bool) {
	if c.kv != nil {
		var data []byte
		err := c.breaker.Call(ctx, func(context.Context) error {
			entry, err := c.kv.Get(key)
			if errors.Is(err, nats.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			data = entry.Value()
			return nil
		})
		switch {
		case err == nil && data != nil:
			var r domain.Reading
			if jerr := json.Unmarshal(data, &r); jerr == nil {
				c.local.Set(key, data)
				return r, true
			}
			c.log.Warn("cached reading undecodable", "key", key)
		case err == nil:
			// KV miss; readings written during an outage may still be local.
		case errors.Is(err, resilience.ErrCircuitOpen):
		default:
			c.log.Warn("cache kv read failed", "key", key, "err", err)
		}
	}

	data, ok := c.local.Get(key)
	if !ok {
		return domain.Reading{}, false
	}
	var r domain.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Reading{}, false
	}
	return r, true
}

// Set stores a reading under a key. Degraded readings are never cached so a
// later identical request gets a full retry.
func (c *Cache) Set(ctx context.Context, key string, r domain.Reading) {
	if r.Degraded {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}

	c.local.Set(key, data)

	if c.kv == nil {
		return
	}
	err = c.breaker.Call(ctx, func(context.Context) error {
		_, perr := c.kv.Put(key, data)
		return perr
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.log.Warn("cache kv write failed", "key", key, "err", err)
	}
}

// BreakerState exposes the KV breaker state for health reporting.
func (c *Cache) BreakerState() resilience.State {
	return c.breaker.State()
}
