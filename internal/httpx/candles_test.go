package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/signalerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCandlesParsesKlinesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[1700000000000,"100.0","101.5","99.5","100.8","1234.5",0,"0",0,"0","0","0"],
			[1700003600000,"100.8","102.0","100.0","101.2","987.6",0,"0",0,"0","0","0"]
		]`))
	}))
	defer srv.Close()

	fetcher := NewExchangeCandleFetcher(testClient(), srv.URL)
	bars, err := fetcher.FetchCandles(context.Background(), "BTCUSDT", candle.H1, 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 101.2, bars[1].Close)
	assert.True(t, bars[1].Timestamp.After(bars[0].Timestamp))
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), bars[0].Timestamp)
}

func TestFetchCandlesRejectsUnknownTimeframe(t *testing.T) {
	fetcher := NewExchangeCandleFetcher(testClient(), "http://unused")
	_, err := fetcher.FetchCandles(context.Background(), "BTCUSDT", candle.Timeframe("W1"), 10)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindInputInvalid))
}

func TestFetchCandlesRejectsTruncatedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1700000000000,"100.0"]]`))
	}))
	defer srv.Close()

	fetcher := NewExchangeCandleFetcher(testClient(), srv.URL)
	_, err := fetcher.FetchCandles(context.Background(), "BTCUSDT", candle.H1, 1)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindUpstreamMalformed))
}
