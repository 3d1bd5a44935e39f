// Command signalctl is the CLI entry point wiring internal/signal,
// internal/backtest, internal/analytics, and internal/api together,
// matching the teacher's cmd/ convention of small, focused binaries
// built on top of the same internal packages the main service uses.
// There is no subcommand framework in any example in this tree, so
// subcommands are dispatched by hand off os.Args[1] with a
// flag.FlagSet per subcommand, the same stdlib-only shape the
// teacher's own cmd/ tools use for their own argument handling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	osignal "os/signal"
	"syscall"
	"time"

	"signalforge/config"
	"signalforge/internal/analytics"
	"signalforge/internal/api"
	"signalforge/internal/backtest"
	"signalforge/internal/candle"
	"signalforge/internal/execplan"
	"signalforge/internal/filter"
	"signalforge/internal/filter/criteria"
	"signalforge/internal/httpx"
	"signalforge/internal/logx"
	"signalforge/internal/provider/aux"
	"signalforge/internal/provider/market"
	"signalforge/internal/provider/mtf"
	"signalforge/internal/signal"
	"signalforge/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: load config: %v\n", err)
		os.Exit(1)
	}

	logx.SetDefault(logx.New(logx.Config{
		Level:      logx.ParseLevel(cfg.LoggingConfig.Level),
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "signalctl",
	}))

	switch os.Args[1] {
	case "serve":
		runServe(cfg, os.Args[2:])
	case "generate-signal":
		runGenerateSignal(cfg, os.Args[2:])
	case "run-backtest":
		runBacktest(cfg, os.Args[2:])
	case "tearsheet":
		runTearsheet(cfg, os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "signalctl: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `signalctl — multi-asset signal and backtest engine CLI

Usage:
  signalctl serve [-port N]
  signalctl generate-signal -symbol SYMBOL -direction BUY|SELL
  signalctl run-backtest -symbol SYMBOL -interval H1 -bars path/to/bars.json
  signalctl tearsheet -id N [-format json|csv|html]`)
}

func newPipeline(cfg *config.Config) *signal.Pipeline {
	httpClient := httpx.New(httpx.DefaultConfig())
	fetcher := httpx.NewExchangeCandleFetcher(httpClient, cfg.DataProviderConfig.BaseURL)

	marketProvider := market.New(fetcher, cfg.DataProviderConfig.CacheTTL)

	profile := criteria.DefaultSymbolProfile()
	profile.RiskATRMultiple = cfg.RiskConfig.RiskATRMultiple
	profile.RewardATRMultiple = cfg.RiskConfig.RewardATRMultiple

	var tierFilter *filter.Filter
	if cfg.PipelineConfig.Tier == "ULTRA" {
		tierFilter = filter.NewUltra()
	} else {
		tierFilter = filter.NewElite()
	}

	return &signal.Pipeline{
		MTF:        mtf.New(marketProvider),
		Aux:        aux.New(),
		Filter:     tierFilter,
		Profile:    profile,
		ExecConfig: execplan.DefaultConfig(),
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.PersistenceConfig.Driver == "postgres" {
		return store.OpenPostgres(context.Background(), store.PostgresConfig{
			Host:     cfg.PersistenceConfig.PostgresHost,
			Port:     cfg.PersistenceConfig.PostgresPort,
			User:     cfg.PersistenceConfig.PostgresUser,
			Password: cfg.PersistenceConfig.PostgresPass,
			Database: cfg.PersistenceConfig.PostgresDB,
			SSLMode:  cfg.PersistenceConfig.PostgresSSL,
		})
	}
	return store.OpenSQLite(cfg.PersistenceConfig.SQLitePath)
}

func runServe(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.ServerConfig.Port, "HTTP port")
	fs.Parse(args)

	log := logx.Default().WithComponent("serve")

	pipeline := newPipeline(cfg)
	st, err := openStore(cfg)
	if err != nil {
		log.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	if cfg.AuthConfig.JWTSecret == "" {
		log.Warnf("AUTH_JWT_SECRET is empty; generating an ephemeral secret for this process only")
		secret, genErr := api.GenerateAPIKeySecret()
		if genErr != nil {
			log.Errorf("generate ephemeral secret: %v", genErr)
			os.Exit(1)
		}
		cfg.AuthConfig.JWTSecret = secret
	}
	authMgr := api.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenDuration)

	server := api.NewServer(pipeline, st, authMgr, nil)
	addr := fmt.Sprintf("%s:%d", cfg.ServerConfig.Host, *port)
	log.Infof("listening on %s", addr)
	if err := httpServe(addr, server, time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}

// httpServe runs the API server until SIGINT/SIGTERM, then gives
// in-flight requests cfg.ServerConfig.ShutdownTimeout to finish before
// returning, matching the graceful-shutdown shape the teacher's own
// main() uses around its HTTP listener.
func httpServe(addr string, server *api.Server, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCtx, stop := osignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func runGenerateSignal(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("generate-signal", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading symbol, e.g. BTCUSDT")
	direction := fs.String("direction", "BUY", "BUY or SELL")
	fs.Parse(args)

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "signalctl: -symbol is required")
		os.Exit(1)
	}

	pipeline := newPipeline(cfg)
	dir := criteria.Buy
	if *direction == "SELL" {
		dir = criteria.Sell
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sig, err := pipeline.Generate(ctx, *symbol, dir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: generate signal: %v\n", err)
		os.Exit(1)
	}
	printJSON(sig)
}

func runBacktest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("run-backtest", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading symbol")
	interval := fs.String("interval", "H1", "candle timeframe")
	barsPath := fs.String("bars", "", "path to a JSON array of candles")
	fs.Parse(args)

	if *symbol == "" || *barsPath == "" {
		fmt.Fprintln(os.Stderr, "signalctl: -symbol and -bars are required")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*barsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: read bars: %v\n", err)
		os.Exit(1)
	}
	var bars []candle.Candle
	if err := json.Unmarshal(raw, &bars); err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: parse bars: %v\n", err)
		os.Exit(1)
	}

	series, err := candle.NewSeries(*symbol, candle.Timeframe(*interval), bars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: build series: %v\n", err)
		os.Exit(1)
	}

	btCfg := backtest.Config{
		InitialCapital:        cfg.BacktestConfig.InitialCapital,
		RiskPerTrade:          cfg.BacktestConfig.RiskPerTrade,
		SlippageBase:          cfg.BacktestConfig.SlippageBase,
		BidAskSpread:          cfg.BacktestConfig.BidAskSpread,
		FeeEntry:              cfg.BacktestConfig.FeeEntry,
		FeeExit:               cfg.BacktestConfig.FeeExit,
		VolatilityLookback:    20,
		MaxConcurrentTrades:   cfg.BacktestConfig.MaxConcurrentTrades,
		MaxPositionsPerSymbol: cfg.BacktestConfig.MaxPositionsPerSymbol,
		MaxDailyLossPct:       cfg.BacktestConfig.MaxDailyLossPct,
		MaxDrawdownPct:        cfg.BacktestConfig.MaxDrawdownPct,
	}

	engine := backtest.New(btCfg)
	result, err := engine.Run(series, api.EMACrossoverStrategy())
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: run backtest: %v\n", err)
		os.Exit(1)
	}

	const tradingBarsPerYear = 252 * 24
	metrics := analytics.Compute(result, btCfg.InitialCapital, tradingBarsPerYear)

	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	id, err := st.SaveBacktestRun(context.Background(), store.BacktestRun{
		Symbol:   *symbol,
		Interval: *interval,
		Result:   result,
		Metrics:  metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: save backtest run: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("saved backtest run %d\n", id)
	printJSON(metrics)
}

func runTearsheet(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("tearsheet", flag.ExitOnError)
	id := fs.Int64("id", 0, "backtest run id")
	format := fs.String("format", "json", "json, csv, or html")
	fs.Parse(args)

	if *id == 0 {
		fmt.Fprintln(os.Stderr, "signalctl: -id is required")
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	run, err := st.GetBacktestRun(context.Background(), *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signalctl: get backtest run: %v\n", err)
		os.Exit(1)
	}

	switch *format {
	case "csv":
		analytics.WriteCSV(os.Stdout, run.Metrics)
	case "html":
		analytics.WriteHTML(os.Stdout, run.Metrics)
	default:
		analytics.WriteJSON(os.Stdout, run.Metrics)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
