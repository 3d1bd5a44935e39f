package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"signalforge/internal/signalerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *Client {
	return New(Config{MaxRetries: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: 5 * time.Millisecond, Timeout: time.Second})
}

func TestGetReturnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := testClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetRetriesThenSucceeds(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.GreaterOrEqual(t, atomic.LoadInt64(&attempts), int64(2))
}

func TestGetRateLimitedReturnsRateLimitedKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := New(Config{MaxRetries: 0, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, Timeout: time.Second})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindRateLimited))
}

func TestGetClientErrorReturnsUpstreamMalformedKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c := New(Config{MaxRetries: 0, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, Timeout: time.Second})
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindUpstreamMalformed))
}

func TestGetContextDeadlineReturnsDeadlineKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("too late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	c := New(Config{MaxRetries: 0, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond, Timeout: time.Second})
	_, err := c.Get(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindDeadline))
}
