package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/signalerr"
)

// intervalCode maps spec §3's canonical Timeframe tags onto the
// exchange's kline interval strings, following the teacher's
// GetKlines(symbol, interval string, limit int) convention
// (internal/binance/client.go) rather than inventing a new format.
var intervalCode = map[candle.Timeframe]string{
	candle.M15: "15m",
	candle.H1:  "1h",
	candle.H4:  "4h",
	candle.D1:  "1d",
}

// ExchangeCandleFetcher implements market.Fetcher against a
// Binance-shaped REST klines endpoint, reusing the teacher's
// GetKlines raw-array response shape (internal/binance/client.go's
// Kline/rawKlines handling) but parsed directly into candle.Candle
// instead of an intermediate Kline struct.
type ExchangeCandleFetcher struct {
	client  *Client
	baseURL string
}

// NewExchangeCandleFetcher builds a fetcher against baseURL (e.g.
// "https://api.binance.com").
func NewExchangeCandleFetcher(client *Client, baseURL string) *ExchangeCandleFetcher {
	return &ExchangeCandleFetcher{client: client, baseURL: baseURL}
}

// FetchCandles satisfies market.Fetcher.
func (f *ExchangeCandleFetcher) FetchCandles(ctx context.Context, symbol string, interval candle.Timeframe, count int) ([]candle.Candle, error) {
	code, ok := intervalCode[interval]
	if !ok {
		return nil, signalerr.New(signalerr.KindInputInvalid, fmt.Sprintf("httpx: unsupported timeframe %q", interval))
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", code)
	params.Set("limit", strconv.Itoa(count))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", f.baseURL, params.Encode())

	body, err := f.client.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, signalerr.Wrap(signalerr.KindUpstreamMalformed, "httpx: malformed klines payload", err)
	}

	bars := make([]candle.Candle, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, signalerr.New(signalerr.KindUpstreamMalformed, fmt.Sprintf("httpx: kline row %d has %d fields, want >= 6", i, len(row)))
		}
		openMs, ok := row[0].(float64)
		if !ok {
			return nil, signalerr.New(signalerr.KindUpstreamMalformed, "httpx: kline open time not numeric")
		}
		bars[i] = candle.Candle{
			Timestamp: time.UnixMilli(int64(openMs)).UTC(),
			Open:      parseFloatField(row[1]),
			High:      parseFloatField(row[2]),
			Low:       parseFloatField(row[3]),
			Close:     parseFloatField(row[4]),
			Volume:    parseFloatField(row[5]),
		}
	}
	return bars, nil
}

// parseFloatField mirrors the teacher's parseFloat helper
// (internal/binance/client.go): klines encode OHLCV fields as JSON
// strings, not numbers.
func parseFloatField(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	default:
		return 0
	}
}
