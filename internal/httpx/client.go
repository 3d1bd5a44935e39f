// Package httpx is the shared outbound HTTP boundary for every
// provider that fetches market or auxiliary data over REST. Grounded
// on koshedutech-binance-trading-app/internal/binance's
// FuturesClientImpl retry loop (internal/binance/futures_client.go:
// maxRetries=3, baseRetryDelay=500ms, maxRetryDelay=5s, exponential
// backoff with jitter, retry on 429/5xx) — reworked from that
// hand-rolled per-call retry loop onto github.com/hashicorp/go-retryablehttp
// so every caller gets the same policy without copy-pasting the loop,
// and onto github.com/hashicorp/go-cleanhttp for a pooled transport
// instead of the teacher's bare &http.Client{Timeout: ...}.
package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"signalforge/internal/logx"
	"signalforge/internal/signalerr"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Config tunes the retry policy. Zero value resolves to the teacher's
// original constants.
type Config struct {
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// DefaultConfig mirrors futures_client.go's maxRetries/baseRetryDelay/
// maxRetryDelay constants.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		Timeout:      15 * time.Second,
	}
}

// Client wraps a retryablehttp.Client with signalerr-typed error
// translation so every provider fetcher built on it returns errors the
// rest of the pipeline already knows how to classify.
type Client struct {
	rc  *retryablehttp.Client
	log *logx.Logger
}

// New builds a Client. A zero-value Config resolves to DefaultConfig.
func New(cfg Config) *Client {
	if cfg.MaxRetries == 0 && cfg.RetryWaitMin == 0 && cfg.RetryWaitMax == 0 && cfg.Timeout == 0 {
		cfg = DefaultConfig()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: cleanhttp.DefaultPooledTransport(),
	}
	rc.Logger = nil
	// Hand the last response back once retries run out, so Get can
	// classify 429/5xx by status instead of a generic give-up error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	log := logx.Default().WithComponent("httpx")
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.WithFields(map[string]interface{}{"url": req.URL.String(), "attempt": attempt}).Warnf("retrying request")
		}
	}
	return &Client{rc: rc, log: log}
}

// Get issues a GET request and returns the response body, translating
// failures into signalerr kinds: network/timeout failures and 5xx
// become retryable NetworkError, 429 becomes RateLimited, any other
// non-2xx becomes UpstreamMalformed carrying the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, signalerr.Wrap(signalerr.KindInputInvalid, "httpx: build request", err)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, signalerr.Wrap(signalerr.KindDeadline, "httpx: request cancelled or deadline exceeded", err)
		}
		return nil, signalerr.WrapRetryable(signalerr.KindNetworkError, "httpx: request failed after retries", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, signalerr.WrapRetryable(signalerr.KindNetworkError, "httpx: read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, signalerr.WrapRetryable(signalerr.KindRateLimited, "httpx: rate limited", errFromBody(body))
	case resp.StatusCode >= 500:
		return nil, signalerr.WrapRetryable(signalerr.KindNetworkError, "httpx: upstream server error", errFromBody(body))
	case resp.StatusCode >= 400:
		return nil, signalerr.Wrap(signalerr.KindUpstreamMalformed, "httpx: upstream rejected request", errFromBody(body))
	}
	return body, nil
}

type bodyError struct{ body string }

func (e bodyError) Error() string { return e.body }

func errFromBody(body []byte) error { return bodyError{body: string(body)} }
