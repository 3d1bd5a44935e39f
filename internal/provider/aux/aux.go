// Package aux implements spec §4.C: fetching funding rate, open
// interest, BTC dominance, ETH/BTC ratio, fear/greed, and recent news
// headlines, where any single sub-fetch failure sets that field to
// absent rather than failing the whole call. Grounded on the funding
// rate / OI / dominance fetch pattern in poorman-SynapseStrike's
// market/data.go, generalized behind per-field fetcher interfaces.
package aux

import (
	"context"
	"sync"
	"time"
)

// NewsItem is one headline from an RSS/news feed.
type NewsItem struct {
	Title     string
	Source    string
	Published time.Time
}

// Context is spec's AuxiliaryContext: every field is a pointer/slice
// so "absent" is representable without sentinel values.
type Context struct {
	FundingRate     *float64
	OpenInterestUSD *float64
	BTCDominancePct *float64
	ETHBTCRatio     *float64
	FearGreedScore  *int
	NewsItems       []NewsItem
}

// FundingRateFetcher, OpenInterestFetcher, etc. are the per-field
// upstream boundaries. Each carries its own timeout (<=5s per spec)
// enforced by the context passed in.
type FundingRateFetcher interface {
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
}
type OpenInterestFetcher interface {
	FetchOpenInterestUSD(ctx context.Context, symbol string) (float64, error)
}
type DominanceFetcher interface {
	FetchBTCDominancePct(ctx context.Context) (float64, error)
	FetchETHBTCRatio(ctx context.Context) (float64, error)
}
type FearGreedFetcher interface {
	FetchFearGreedScore(ctx context.Context) (int, error)
}
type NewsFetcher interface {
	FetchRecentNews(ctx context.Context, symbol string) ([]NewsItem, error)
}

// Provider aggregates the independent sub-fetchers. Any may be nil,
// in which case that field stays absent.
type Provider struct {
	Funding     FundingRateFetcher
	OI          OpenInterestFetcher
	Dominance   DominanceFetcher
	FearGreed   FearGreedFetcher
	News        NewsFetcher
	SubTimeout  time.Duration // default 5s, per spec
}

// New builds a Provider with the spec-mandated 5s per-sub-fetch
// timeout unless overridden.
func New() *Provider {
	return &Provider{SubTimeout: 5 * time.Second}
}

// GetAux fetches every configured field independently and
// concurrently; a failing or timed-out sub-fetch leaves its field
// absent rather than failing the call. The provider itself is
// side-effect-free beyond network I/O.
func (p *Provider) GetAux(ctx context.Context, symbol string) Context {
	var out Context
	var wg sync.WaitGroup
	timeout := p.SubTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if p.Funding != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if v, err := p.Funding.FetchFundingRate(cctx, symbol); err == nil {
				out.FundingRate = &v
			}
		}()
	}
	if p.OI != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if v, err := p.OI.FetchOpenInterestUSD(cctx, symbol); err == nil {
				out.OpenInterestUSD = &v
			}
		}()
	}
	if p.Dominance != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if v, err := p.Dominance.FetchBTCDominancePct(cctx); err == nil {
				out.BTCDominancePct = &v
			}
			if v, err := p.Dominance.FetchETHBTCRatio(cctx); err == nil {
				out.ETHBTCRatio = &v
			}
		}()
	}
	if p.FearGreed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if v, err := p.FearGreed.FetchFearGreedScore(cctx); err == nil {
				out.FearGreedScore = &v
			}
		}()
	}
	if p.News != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if v, err := p.News.FetchRecentNews(cctx, symbol); err == nil {
				out.NewsItems = v
			}
		}()
	}

	wg.Wait()
	return out
}
