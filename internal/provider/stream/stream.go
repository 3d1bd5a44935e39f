// Package stream keeps a market.Provider's cache warm between REST
// polls using a websocket kline feed, instead of re-polling the REST
// endpoint every few seconds. Grounded on the trading bot's
// UserDataStream (internal/binance/user_data_stream.go): the same
// connect-with-backoff / readLoop / JSON-dispatch shape, adapted from
// account/order events to OHLCV kline events and from a REST client's
// cache to market.Provider's.
package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/logx"

	"github.com/gorilla/websocket"
)

// CacheUpdater is the subset of market.Provider this package depends
// on, so tests can substitute a fake without dialing a socket.
type CacheUpdater interface {
	UpdateLastBar(symbol string, interval candle.Timeframe, bar candle.Candle)
}

// KlineStream dials a single exchange kline websocket stream and
// forwards each closed candle to a CacheUpdater. One KlineStream
// instance covers one (symbol, interval) pair, mirroring the
// teacher's one-stream-per-listen-key design.
type KlineStream struct {
	url      string
	symbol   string
	interval candle.Timeframe
	cache    CacheUpdater
	log      *logx.Logger

	mu        sync.Mutex
	running   bool
	reconnect int
}

// NewKlineStream builds a stream that will dial wsURL once Run is
// called. wsURL is the full kline stream URL (e.g.
// "wss://stream.binance.com:9443/ws/btcusdt@kline_1h"); callers
// compose it since the path format is exchange-specific.
func NewKlineStream(wsURL, symbol string, interval candle.Timeframe, cache CacheUpdater) *KlineStream {
	return &KlineStream{
		url:      wsURL,
		symbol:   symbol,
		interval: interval,
		cache:    cache,
		log:      logx.Default().WithComponent("stream"),
	}
}

// klineMessage is the subset of Binance's combined kline payload this
// stream needs: the 'k' object carries the bar itself and whether it
// has closed.
type klineMessage struct {
	Kline struct {
		OpenTime int64  `json:"t"`
		Open     string `json:"o"`
		High     string `json:"h"`
		Low      string `json:"l"`
		Close    string `json:"c"`
		Volume   string `json:"v"`
		IsClosed bool   `json:"x"`
	} `json:"k"`
}

// Run connects and reconnects until ctx is cancelled, per reconnect
// a fresh dial after a fixed backoff — the teacher's connect() loop
// uses 5s on dial failure and 3s after a clean disconnect; this keeps
// both rather than unifying them, since a dial failure usually means
// the endpoint is unreachable (worth waiting longer) while a mid-
// stream drop is often transient.
func (s *KlineStream) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			s.log.Warnf("dial %s: %v, retrying in 5s", s.symbol, err)
			s.mu.Lock()
			s.reconnect++
			s.mu.Unlock()
			if !sleepOrDone(ctx, 5*time.Second) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.reconnect = 0
		s.mu.Unlock()
		s.log.Infof("connected %s %s stream", s.symbol, s.interval)

		s.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.log.Warnf("%s stream disconnected, reconnecting in 3s", s.symbol)
		if !sleepOrDone(ctx, 3*time.Second) {
			return
		}
	}
}

func (s *KlineStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg klineMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warnf("malformed kline message for %s: %v", s.symbol, err)
			continue
		}
		if !msg.Kline.IsClosed {
			continue
		}

		bar, err := msg.toCandle()
		if err != nil {
			s.log.Warnf("invalid kline payload for %s: %v", s.symbol, err)
			continue
		}
		s.cache.UpdateLastBar(s.symbol, s.interval, bar)
	}
}

func (m klineMessage) toCandle() (candle.Candle, error) {
	open, err := parseFloat(m.Kline.Open)
	if err != nil {
		return candle.Candle{}, err
	}
	high, err := parseFloat(m.Kline.High)
	if err != nil {
		return candle.Candle{}, err
	}
	low, err := parseFloat(m.Kline.Low)
	if err != nil {
		return candle.Candle{}, err
	}
	closePrice, err := parseFloat(m.Kline.Close)
	if err != nil {
		return candle.Candle{}, err
	}
	volume, err := parseFloat(m.Kline.Volume)
	if err != nil {
		return candle.Candle{}, err
	}
	return candle.Candle{
		Timestamp: time.UnixMilli(m.Kline.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// sleepOrDone waits for d or ctx cancellation, whichever comes first,
// returning false if ctx was the reason it woke up.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
