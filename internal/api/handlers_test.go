package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/execplan"
	"signalforge/internal/filter"
	"signalforge/internal/filter/criteria"
	"signalforge/internal/provider/aux"
	"signalforge/internal/provider/mtf"
	"signalforge/internal/signal"
	"signalforge/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendSeries(tf candle.Timeframe, n int, start, step float64, interval time.Duration) candle.Series {
	bars := make([]candle.Candle, n)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		bars[i] = candle.Candle{Timestamp: t0.Add(time.Duration(i) * interval), Open: price, High: price + 5, Low: price - 5, Close: price, Volume: 1000}
		price += step
	}
	s, err := candle.NewSeries("BTCUSDT", tf, bars)
	if err != nil {
		panic(err)
	}
	return s
}

type fakeSource struct{}

func (fakeSource) GetCandles(ctx context.Context, symbol string, interval candle.Timeframe, count int) (candle.Series, error) {
	switch interval {
	case candle.M15:
		return trendSeries(candle.M15, 260, 10000, 5, 15*time.Minute), nil
	case candle.H1:
		return trendSeries(candle.H1, 260, 10000, 20, time.Hour), nil
	case candle.H4:
		return trendSeries(candle.H4, 260, 10000, 80, 4*time.Hour), nil
	default:
		return trendSeries(candle.D1, 260, 10000, 480, 24*time.Hour), nil
	}
}

func alwaysPass() criteria.Criterion {
	return criteria.Criterion{Name: "always_pass", Evaluate: func(criteria.Input) criteria.Result {
		return criteria.Result{Name: "always_pass", Passed: true}
	}}
}

func newTestServer(t *testing.T) (*Server, *JWTManager) {
	t.Helper()
	f := &filter.Filter{Tier: "test", Criteria: []criteria.Criterion{alwaysPass()}, Threshold: 1}
	pipeline := &signal.Pipeline{
		MTF:        mtf.New(fakeSource{}),
		Aux:        aux.New(),
		Filter:     f,
		Profile:    criteria.DefaultSymbolProfile(),
		ExecConfig: execplan.DefaultConfig(),
		Clock:      func() time.Time { return time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC) },
	}

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	auth := NewJWTManager("test-secret", time.Hour)
	return NewServer(pipeline, st, auth, nil), auth
}

func bearerToken(t *testing.T, mgr *JWTManager, canBacktest bool) string {
	t.Helper()
	tok, err := mgr.GenerateToken("test-client", canBacktest)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHandleGenerateSignalRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/signals/BTCUSDT", bytes.NewBufferString(`{"direction":"BUY"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGenerateSignalReturnsSignal(t *testing.T) {
	srv, mgr := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/signals/BTCUSDT", bytes.NewBufferString(`{"direction":"BUY"}`))
	req.Header.Set("Authorization", bearerToken(t, mgr, false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var sig signal.Signal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sig))
	assert.Equal(t, "BTCUSDT", sig.Symbol)
}

func TestHandleRunBacktestRequiresBacktestScope(t *testing.T) {
	srv, mgr := newTestServer(t)
	body, _ := json.Marshal(runBacktestRequest{
		Symbol:   "BTCUSDT",
		Interval: "H1",
		Bars:     trendSeries(candle.H1, 120, 10000, 15, time.Hour).Bars,
	})
	req := httptest.NewRequest(http.MethodPost, "/backtests", bytes.NewBuffer(body))
	req.Header.Set("Authorization", bearerToken(t, mgr, false))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleRunBacktestAndFetchTearsheet(t *testing.T) {
	srv, mgr := newTestServer(t)
	token := bearerToken(t, mgr, true)

	body, _ := json.Marshal(runBacktestRequest{
		Symbol:   "BTCUSDT",
		Interval: "H1",
		Bars:     trendSeries(candle.H1, 200, 10000, 15, time.Hour).Bars,
	})
	req := httptest.NewRequest(http.MethodPost, "/backtests", bytes.NewBuffer(body))
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Greater(t, created.ID, int64(0))

	tsReq := httptest.NewRequest(http.MethodGet, "/backtests/1/tearsheet", nil)
	tsReq.Header.Set("Authorization", token)
	tsRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(tsRec, tsReq)
	assert.Equal(t, http.StatusOK, tsRec.Code)
}

func TestHandleGetTearsheetMissingRunReturns404(t *testing.T) {
	srv, mgr := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/backtests/999/tearsheet", nil)
	req.Header.Set("Authorization", bearerToken(t, mgr, true))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
