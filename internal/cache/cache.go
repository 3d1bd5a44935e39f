// Package cache is the process-wide shared cache and rate-limit
// bucket spec §5 calls out as the only mutable state shared across
// signal-pipeline workers. Grounded on
// koshedutech-binance-trading-app/internal/cache's CacheService:
// Redis-backed, degrades to a circuit-broken "unhealthy" state rather
// than panicking when Redis is unreachable, and callers fall back to
// re-fetching on a cache miss or a degraded cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"signalforge/internal/logx"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by Redis-backed operations while the
// circuit breaker is open, mirroring the teacher's "redis unavailable
// (circuit breaker open)" degraded-mode error.
var ErrUnavailable = errors.New("cache: backend unavailable (circuit breaker open)")

// ErrMiss is returned on a cache miss, distinguishing "not found" from
// a backend failure the way the teacher's Get distinguishes redis.Nil
// from a real error.
var ErrMiss = errors.New("cache: key not found")

// Backend is the pluggable store spec §5 calls for: an in-memory
// default plus a Redis-backed implementation, selected at
// construction time rather than compiled in.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// RedisBackend wraps a redis.Client with the teacher's
// failure-counting circuit breaker: after maxFailures consecutive
// errors the backend reports itself unhealthy for checkInterval before
// probing again, so a flaky Redis degrades providers to
// re-fetch-on-miss instead of blocking every call on a dead
// connection.
type RedisBackend struct {
	client *redis.Client
	log    *logx.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// RedisOptions configures a RedisBackend.
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MaxFailures  int
	CheckEvery   time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisOptions mirrors the teacher's NewCacheService defaults.
func DefaultRedisOptions(addr string) RedisOptions {
	return RedisOptions{
		Addr:         addr,
		PoolSize:     10,
		MaxFailures:  3,
		CheckEvery:   30 * time.Second,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisBackend connects to Redis and probes it once; a failed
// probe returns a backend in degraded mode rather than an error, so
// the provider above it can still run against an empty cache until
// Redis comes back.
func NewRedisBackend(opts RedisOptions) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 2,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	rb := &RedisBackend{
		client:        client,
		log:           logx.Default().WithComponent("cache"),
		maxFailures:   opts.MaxFailures,
		checkInterval: opts.CheckEvery,
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		rb.log.WithError(err).Warnf("initial redis connection failed, starting degraded")
		return rb
	}
	rb.healthy = true
	rb.lastCheck = time.Now()
	return rb
}

func (rb *RedisBackend) isHealthy() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.healthy
}

func (rb *RedisBackend) recordFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.failureCount++
	if rb.failureCount >= rb.maxFailures && rb.healthy {
		rb.log.Warnf("circuit breaker open after %d consecutive failures", rb.failureCount)
		rb.healthy = false
		rb.lastCheck = time.Now()
	}
}

func (rb *RedisBackend) recordSuccess() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.healthy {
		rb.log.Infof("circuit breaker closed, redis recovered")
	}
	rb.healthy = true
	rb.failureCount = 0
	rb.lastCheck = time.Now()
}

func (rb *RedisBackend) maybeProbe(ctx context.Context) {
	rb.mu.Lock()
	shouldProbe := !rb.healthy && time.Since(rb.lastCheck) >= rb.checkInterval
	if shouldProbe {
		rb.lastCheck = time.Now()
	}
	rb.mu.Unlock()
	if !shouldProbe {
		return
	}
	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rb.client.Ping(pingCtx).Err(); err == nil {
			rb.recordSuccess()
		}
	}()
}

// Get returns ErrMiss on a cache miss and ErrUnavailable while the
// circuit breaker is open.
func (rb *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	rb.maybeProbe(ctx)
	if !rb.isHealthy() {
		return "", ErrUnavailable
	}
	val, err := rb.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		rb.recordFailure()
		return "", err
	}
	rb.recordSuccess()
	return val, nil
}

func (rb *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	rb.maybeProbe(ctx)
	if !rb.isHealthy() {
		return ErrUnavailable
	}
	if err := rb.client.Set(ctx, key, value, ttl).Err(); err != nil {
		rb.recordFailure()
		return err
	}
	rb.recordSuccess()
	return nil
}

func (rb *RedisBackend) Delete(ctx context.Context, key string) error {
	rb.maybeProbe(ctx)
	if !rb.isHealthy() {
		return ErrUnavailable
	}
	if err := rb.client.Del(ctx, key).Err(); err != nil {
		rb.recordFailure()
		return err
	}
	rb.recordSuccess()
	return nil
}

func (rb *RedisBackend) Close() error { return rb.client.Close() }

// IncrCounter atomically increments key, setting ttl only on the
// counter's first increment — mirrors the teacher's
// IncrementDailySequence (used there for clientOrderId sequences).
// Nothing in this package calls it; HostLimiter in ratelimit.go is an
// in-process token bucket.
func (rb *RedisBackend) IncrCounter(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	rb.maybeProbe(ctx)
	if !rb.isHealthy() {
		return 0, ErrUnavailable
	}
	val, err := rb.client.Incr(ctx, key).Result()
	if err != nil {
		rb.recordFailure()
		return 0, err
	}
	if val == 1 {
		rb.client.Expire(ctx, key, ttl)
	}
	rb.recordSuccess()
	return val, nil
}

// JSONCache wraps any Backend with JSON marshal/unmarshal convenience
// methods, mirroring the teacher's GetJSON/SetJSON.
type JSONCache struct {
	Backend Backend
}

func (c JSONCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.Backend.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (c JSONCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Backend.Set(ctx, key, string(data), ttl)
}
