package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"signalforge/internal/candle"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdater struct {
	mu      sync.Mutex
	updates []candle.Candle
}

func (f *fakeUpdater) UpdateLastBar(symbol string, interval candle.Timeframe, bar candle.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, bar)
}

func (f *fakeUpdater) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func TestKlineStreamForwardsClosedCandlesOnly(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"k":{"t":1700000000000,"o":"100","h":"110","l":"90","c":"105","v":"10","x":false}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"k":{"t":1700000000000,"o":"100","h":"112","l":"90","c":"108","v":"12","x":true}}`))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	updater := &fakeUpdater{}
	s := NewKlineStream(wsURL, "BTCUSDT", candle.H1, updater)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	require.Equal(t, 1, updater.count())
	assert.Equal(t, 108.0, updater.updates[0].Close)
}
