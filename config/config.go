// Package config assembles the root Config from a JSON file plus
// environment overrides, following the teacher's config/config.go
// pattern: nested structs per concern, a base file loaded first, env
// vars taking precedence, and sane defaults so the service runs with
// nothing configured at all.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the root configuration object, one section per concern
// SPEC_FULL.md's ambient and domain stacks name.
type Config struct {
	DataProviderConfig DataProviderConfig `json:"data_provider"`
	PipelineConfig     PipelineConfig     `json:"pipeline"`
	BacktestConfig     BacktestConfig     `json:"backtest"`
	RiskConfig         RiskConfig         `json:"risk"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	PersistenceConfig  PersistenceConfig  `json:"persistence"`
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	CacheConfig        CacheConfig        `json:"cache"`
}

// DataProviderConfig configures internal/provider/market and
// internal/httpx: upstream base URL, optional API credentials, and
// the per-provider cache TTL. MockMode mirrors the teacher's
// BinanceConfig.MockMode flag, letting the pipeline run against
// simulated candles when no upstream is reachable.
type DataProviderConfig struct {
	BaseURL       string        `json:"base_url"`
	APIKey        string        `json:"api_key"`
	SecretKey     string        `json:"secret_key"`
	MockMode      bool          `json:"mock_mode"`
	CacheTTL      time.Duration `json:"cache_ttl"`
	RateLimitPerSec int         `json:"rate_limit_per_sec"`
	RequestTimeout  time.Duration `json:"request_timeout"`
}

// PipelineConfig configures internal/signal's Pipeline: which tier of
// internal/filter to run (ULTRA requires all 20 criteria, ELITE >=
// 17/20) and which timeframes internal/provider/mtf loads.
type PipelineConfig struct {
	Tier       string   `json:"tier"` // "ULTRA" or "ELITE"
	Timeframes []string `json:"timeframes"`
}

// BacktestConfig mirrors backtest.Config's fields so it can be loaded
// from JSON/env rather than only constructed in code; spec §4.J.1's
// defaults table is backtest.DefaultConfig.
type BacktestConfig struct {
	InitialCapital        float64 `json:"initial_capital"`
	RiskPerTrade          float64 `json:"risk_per_trade"`
	SlippageBase          float64 `json:"slippage_base"`
	BidAskSpread          float64 `json:"bid_ask_spread"`
	FeeEntry              float64 `json:"fee_entry"`
	FeeExit               float64 `json:"fee_exit"`
	MaxConcurrentTrades   int     `json:"max_concurrent_trades"`
	MaxPositionsPerSymbol int     `json:"max_positions_per_symbol"`
	MaxDailyLossPct       float64 `json:"max_daily_loss_pct"`
	MaxDrawdownPct        float64 `json:"max_drawdown_pct"`
}

// RiskConfig holds the portfolio-level risk limits
// internal/execplan and internal/backtest enforce.
type RiskConfig struct {
	MaxRiskPerTrade  float64 `json:"max_risk_per_trade"`
	MaxDailyDrawdown float64 `json:"max_daily_drawdown"`
	MaxOpenPositions int     `json:"max_open_positions"`
	RiskATRMultiple  float64 `json:"risk_atr_multiple"`
	RewardATRMultiple float64 `json:"reward_atr_multiple"`
}

// LoggingConfig configures internal/logx.
type LoggingConfig struct {
	Level       string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`      // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`
	IncludeFile bool   `json:"include_file"`
}

// PersistenceConfig selects and configures internal/store's backend.
type PersistenceConfig struct {
	Driver       string `json:"driver"` // "sqlite" or "postgres"
	SQLitePath   string `json:"sqlite_path"`
	PostgresHost string `json:"postgres_host"`
	PostgresPort int    `json:"postgres_port"`
	PostgresUser string `json:"postgres_user"`
	PostgresPass string `json:"postgres_pass"`
	PostgresDB   string `json:"postgres_db"`
	PostgresSSL  string `json:"postgres_ssl"`
}

// ServerConfig configures internal/api's HTTP surface.
type ServerConfig struct {
	Enabled         bool   `json:"enabled"`
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

// AuthConfig configures internal/api's JWTManager.
type AuthConfig struct {
	JWTSecret      string        `json:"jwt_secret"`
	TokenDuration  time.Duration `json:"token_duration"`
}

// CacheConfig configures internal/cache's Redis-backed backend and
// circuit breaker. Enabled=false falls back to an in-process
// MemoryBackend, which is the default so the service runs with no
// external dependencies.
type CacheConfig struct {
	Enabled           bool          `json:"enabled"`
	Address           string        `json:"address"`
	Password          string        `json:"password"`
	DB                int           `json:"db"`
	MaxFailures       int           `json:"max_failures"`
	HealthCheckPeriod time.Duration `json:"health_check_period"`
}

// Load reads config.json if present, then applies environment
// overrides on top, matching the teacher's Load/applyEnvOverrides
// split so either source alone is enough to run.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.DataProviderConfig.BaseURL = getEnvOrDefault("PROVIDER_BASE_URL", orDefault(cfg.DataProviderConfig.BaseURL, "https://api.binance.com"))
	cfg.DataProviderConfig.APIKey = getEnvOrDefault("PROVIDER_API_KEY", cfg.DataProviderConfig.APIKey)
	cfg.DataProviderConfig.SecretKey = getEnvOrDefault("PROVIDER_SECRET_KEY", cfg.DataProviderConfig.SecretKey)
	cfg.DataProviderConfig.MockMode = getEnvOrDefault("PROVIDER_MOCK_MODE", boolDefault(cfg.DataProviderConfig.MockMode)) == "true"
	cfg.DataProviderConfig.CacheTTL = getEnvDurationOrDefault("PROVIDER_CACHE_TTL", orDurationDefault(cfg.DataProviderConfig.CacheTTL, 30*time.Second))
	cfg.DataProviderConfig.RateLimitPerSec = getEnvIntOrDefault("PROVIDER_RATE_LIMIT_PER_SEC", orIntDefault(cfg.DataProviderConfig.RateLimitPerSec, 20))
	cfg.DataProviderConfig.RequestTimeout = getEnvDurationOrDefault("PROVIDER_REQUEST_TIMEOUT", orDurationDefault(cfg.DataProviderConfig.RequestTimeout, 15*time.Second))

	cfg.PipelineConfig.Tier = getEnvOrDefault("PIPELINE_TIER", orDefault(cfg.PipelineConfig.Tier, "ELITE"))
	if len(cfg.PipelineConfig.Timeframes) == 0 {
		cfg.PipelineConfig.Timeframes = []string{"M15", "H1", "H4", "D1"}
	}

	cfg.BacktestConfig.InitialCapital = getEnvFloatOrDefault("BACKTEST_INITIAL_CAPITAL", orFloatDefault(cfg.BacktestConfig.InitialCapital, 10_000))
	cfg.BacktestConfig.RiskPerTrade = getEnvFloatOrDefault("BACKTEST_RISK_PER_TRADE", orFloatDefault(cfg.BacktestConfig.RiskPerTrade, 0.01))
	cfg.BacktestConfig.SlippageBase = getEnvFloatOrDefault("BACKTEST_SLIPPAGE_BASE", orFloatDefault(cfg.BacktestConfig.SlippageBase, 0.0005))
	cfg.BacktestConfig.BidAskSpread = getEnvFloatOrDefault("BACKTEST_BID_ASK_SPREAD", orFloatDefault(cfg.BacktestConfig.BidAskSpread, 0.0002))
	cfg.BacktestConfig.FeeEntry = getEnvFloatOrDefault("BACKTEST_FEE_ENTRY", orFloatDefault(cfg.BacktestConfig.FeeEntry, 0.0004))
	cfg.BacktestConfig.FeeExit = getEnvFloatOrDefault("BACKTEST_FEE_EXIT", orFloatDefault(cfg.BacktestConfig.FeeExit, 0.0004))
	cfg.BacktestConfig.MaxConcurrentTrades = getEnvIntOrDefault("BACKTEST_MAX_CONCURRENT_TRADES", orIntDefault(cfg.BacktestConfig.MaxConcurrentTrades, 5))
	cfg.BacktestConfig.MaxPositionsPerSymbol = getEnvIntOrDefault("BACKTEST_MAX_POSITIONS_PER_SYMBOL", orIntDefault(cfg.BacktestConfig.MaxPositionsPerSymbol, 1))
	cfg.BacktestConfig.MaxDailyLossPct = getEnvFloatOrDefault("BACKTEST_MAX_DAILY_LOSS_PCT", orFloatDefault(cfg.BacktestConfig.MaxDailyLossPct, 5.0))
	cfg.BacktestConfig.MaxDrawdownPct = getEnvFloatOrDefault("BACKTEST_MAX_DRAWDOWN_PCT", orFloatDefault(cfg.BacktestConfig.MaxDrawdownPct, 20.0))

	cfg.RiskConfig.MaxRiskPerTrade = getEnvFloatOrDefault("RISK_MAX_PER_TRADE", orFloatDefault(cfg.RiskConfig.MaxRiskPerTrade, 1.0))
	cfg.RiskConfig.MaxDailyDrawdown = getEnvFloatOrDefault("RISK_MAX_DAILY_DRAWDOWN", orFloatDefault(cfg.RiskConfig.MaxDailyDrawdown, 5.0))
	cfg.RiskConfig.MaxOpenPositions = getEnvIntOrDefault("RISK_MAX_OPEN_POSITIONS", orIntDefault(cfg.RiskConfig.MaxOpenPositions, 5))
	cfg.RiskConfig.RiskATRMultiple = getEnvFloatOrDefault("RISK_ATR_MULTIPLE", orFloatDefault(cfg.RiskConfig.RiskATRMultiple, 1.5))
	cfg.RiskConfig.RewardATRMultiple = getEnvFloatOrDefault("RISK_REWARD_ATR_MULTIPLE", orFloatDefault(cfg.RiskConfig.RewardATRMultiple, 3.0))

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", orDefault(cfg.LoggingConfig.Level, "INFO"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", orDefault(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", boolDefault(cfg.LoggingConfig.IncludeFile)) == "true"

	cfg.PersistenceConfig.Driver = getEnvOrDefault("PERSISTENCE_DRIVER", orDefault(cfg.PersistenceConfig.Driver, "sqlite"))
	cfg.PersistenceConfig.SQLitePath = getEnvOrDefault("PERSISTENCE_SQLITE_PATH", orDefault(cfg.PersistenceConfig.SQLitePath, "signalctl.db"))
	cfg.PersistenceConfig.PostgresHost = getEnvOrDefault("PERSISTENCE_POSTGRES_HOST", cfg.PersistenceConfig.PostgresHost)
	cfg.PersistenceConfig.PostgresPort = getEnvIntOrDefault("PERSISTENCE_POSTGRES_PORT", orIntDefault(cfg.PersistenceConfig.PostgresPort, 5432))
	cfg.PersistenceConfig.PostgresUser = getEnvOrDefault("PERSISTENCE_POSTGRES_USER", cfg.PersistenceConfig.PostgresUser)
	cfg.PersistenceConfig.PostgresPass = getEnvOrDefault("PERSISTENCE_POSTGRES_PASS", cfg.PersistenceConfig.PostgresPass)
	cfg.PersistenceConfig.PostgresDB = getEnvOrDefault("PERSISTENCE_POSTGRES_DB", cfg.PersistenceConfig.PostgresDB)
	cfg.PersistenceConfig.PostgresSSL = getEnvOrDefault("PERSISTENCE_POSTGRES_SSL", orDefault(cfg.PersistenceConfig.PostgresSSL, "disable"))

	cfg.ServerConfig.Enabled = getEnvOrDefault("SERVER_ENABLED", boolDefault(cfg.ServerConfig.Enabled)) == "true"
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", orIntDefault(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", orDefault(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", orDefault(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", orIntDefault(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", orIntDefault(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", orIntDefault(cfg.ServerConfig.ShutdownTimeout, 10))

	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.TokenDuration = getEnvDurationOrDefault("AUTH_TOKEN_DURATION", orDurationDefault(cfg.AuthConfig.TokenDuration, 24*time.Hour))

	cfg.CacheConfig.Enabled = getEnvOrDefault("CACHE_ENABLED", boolDefault(cfg.CacheConfig.Enabled)) == "true"
	cfg.CacheConfig.Address = getEnvOrDefault("CACHE_ADDRESS", orDefault(cfg.CacheConfig.Address, "localhost:6379"))
	cfg.CacheConfig.Password = getEnvOrDefault("CACHE_PASSWORD", cfg.CacheConfig.Password)
	cfg.CacheConfig.DB = getEnvIntOrDefault("CACHE_DB", cfg.CacheConfig.DB)
	cfg.CacheConfig.MaxFailures = getEnvIntOrDefault("CACHE_MAX_FAILURES", orIntDefault(cfg.CacheConfig.MaxFailures, 3))
	cfg.CacheConfig.HealthCheckPeriod = getEnvDurationOrDefault("CACHE_HEALTH_CHECK_PERIOD", orDurationDefault(cfg.CacheConfig.HealthCheckPeriod, 30*time.Second))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orIntDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloatDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDurationDefault(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func boolDefault(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig writes a sample config.json with sensible
// defaults, matching the teacher's GenerateSampleConfig helper used
// by its CLI bootstrapping.
func GenerateSampleConfig(filename string) error {
	cfg := Config{
		DataProviderConfig: DataProviderConfig{
			BaseURL:         "https://api.binance.com",
			MockMode:        false,
			CacheTTL:        30 * time.Second,
			RateLimitPerSec: 20,
			RequestTimeout:  15 * time.Second,
		},
		PipelineConfig: PipelineConfig{
			Tier:       "ELITE",
			Timeframes: []string{"M15", "H1", "H4", "D1"},
		},
		BacktestConfig: BacktestConfig{
			InitialCapital:        10_000,
			RiskPerTrade:          0.01,
			SlippageBase:          0.0005,
			BidAskSpread:          0.0002,
			FeeEntry:              0.0004,
			FeeExit:               0.0004,
			MaxConcurrentTrades:   5,
			MaxPositionsPerSymbol: 1,
			MaxDailyLossPct:       5.0,
			MaxDrawdownPct:        20.0,
		},
		RiskConfig: RiskConfig{
			MaxRiskPerTrade:   1.0,
			MaxDailyDrawdown:  5.0,
			MaxOpenPositions:  5,
			RiskATRMultiple:   1.5,
			RewardATRMultiple: 3.0,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		PersistenceConfig: PersistenceConfig{
			Driver:     "sqlite",
			SQLitePath: "signalctl.db",
		},
		ServerConfig: ServerConfig{
			Enabled:         false,
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		AuthConfig: AuthConfig{
			TokenDuration: 24 * time.Hour,
		},
		CacheConfig: CacheConfig{
			Enabled:           false,
			Address:           "localhost:6379",
			MaxFailures:       3,
			HealthCheckPeriod: 30 * time.Second,
		},
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
