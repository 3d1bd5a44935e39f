// Package market implements spec §4.B: fetching an immutable OHLCV
// Series for one (symbol, interval) window, with a TTL cache keyed by
// (symbol, interval), mirroring the trading bot's cache-first Binance
// client (internal/binance/futures_client_cached.go) generalized to
// any HTTP OHLCV source behind the Fetcher interface.
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/metrics"
	"signalforge/internal/signalerr"
)

// Fetcher is the upstream HTTP boundary: one exchange/data-API client
// implements this to plug into Provider. Implementations are expected
// to return a *signalerr.Error of kind NetworkError, RateLimited,
// UpstreamMalformed, or InputInvalid (unknown symbol) on failure.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol string, interval candle.Timeframe, count int) ([]candle.Candle, error)
}

type cacheEntry struct {
	series    candle.Series
	fetchedAt time.Time
}

// CacheStats mirrors the trading bot's KlineCacheStats so cache
// presence is observable (hits/misses/evictions), per the Design
// Notes on bounding thread-local/singleton caches.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Provider serves get_candles(symbol, interval, count) with an
// in-memory TTL cache. Safe for concurrent use by multiple workers
// (spec §5).
type Provider struct {
	fetcher Fetcher
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
	stats CacheStats
}

// New builds a Provider. ttl <= 0 disables caching (every call hits
// the Fetcher); this is typically used for historical backfills per
// spec §4.B ("unbounded for historical backfills" is modeled by the
// caller simply not re-requesting the same window).
func New(fetcher Fetcher, ttl time.Duration) *Provider {
	return &Provider{fetcher: fetcher, ttl: ttl, cache: make(map[string]cacheEntry)}
}

func key(symbol string, interval candle.Timeframe) string {
	return symbol + "|" + string(interval)
}

// GetCandles returns exactly count bars for (symbol, interval),
// ordered, the last bar being the most recently closed. Returns a
// signalerr.Error wrapping the upstream failure if the Fetcher errors,
// or KindUpstreamMalformed if fewer bars than requested come back.
func (p *Provider) GetCandles(ctx context.Context, symbol string, interval candle.Timeframe, count int) (candle.Series, error) {
	k := key(symbol, interval)

	if p.ttl > 0 {
		p.mu.Lock()
		entry, ok := p.cache[k]
		if ok && time.Since(entry.fetchedAt) < p.ttl && entry.series.Len() >= count {
			p.stats.Hits++
			p.mu.Unlock()
			metrics.CacheHits.WithLabelValues("market").Inc()
			return entry.series.Tail(count), nil
		}
		if ok {
			p.stats.Evictions++
			metrics.CacheEvictions.WithLabelValues("market").Inc()
		}
		p.stats.Misses++
		metrics.CacheMisses.WithLabelValues("market").Inc()
		p.mu.Unlock()
	}

	bars, err := p.fetcher.FetchCandles(ctx, symbol, interval, count)
	if err != nil {
		if se, ok := err.(*signalerr.Error); ok {
			return candle.Series{}, se
		}
		return candle.Series{}, signalerr.WrapRetryable(signalerr.KindNetworkError, fmt.Sprintf("fetch candles %s %s", symbol, interval), err)
	}
	if len(bars) < count {
		return candle.Series{}, signalerr.New(signalerr.KindUpstreamMalformed, fmt.Sprintf("upstream truncated series: wanted %d got %d", count, len(bars)))
	}

	series, err := candle.NewSeries(symbol, interval, bars)
	if err != nil {
		return candle.Series{}, signalerr.Wrap(signalerr.KindInputInvalid, "series validation failed", err)
	}

	if p.ttl > 0 {
		p.mu.Lock()
		p.cache[k] = cacheEntry{series: series, fetchedAt: time.Now()}
		p.mu.Unlock()
	}

	return series.Tail(count), nil
}

// UpdateLastBar refreshes or extends the cached series for (symbol,
// interval) with a single freshly-closed bar, without going through
// Fetcher. A streaming source (internal/provider/stream) calls this to
// keep the cache warm between REST polls: if bar closes later than the
// cached tail it is appended, otherwise it replaces the tail (the
// still-forming bar the exchange keeps revising until close).
func (p *Provider) UpdateLastBar(symbol string, interval candle.Timeframe, bar candle.Candle) {
	k := key(symbol, interval)

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.cache[k]
	if !ok || entry.series.Len() == 0 {
		return
	}

	bars := entry.series.Bars
	last := bars[len(bars)-1]
	switch {
	case bar.Timestamp.After(last.Timestamp):
		bars = append(bars[1:], bar)
	case bar.Timestamp.Equal(last.Timestamp):
		bars[len(bars)-1] = bar
	default:
		return
	}

	series, err := candle.NewSeries(symbol, interval, bars)
	if err != nil {
		return
	}
	p.cache[k] = cacheEntry{series: series, fetchedAt: time.Now()}
}

// Stats returns a snapshot of the cache counters.
func (p *Provider) Stats() CacheStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
