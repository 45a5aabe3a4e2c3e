package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Exchange Exchange `yaml:"exchange"`
	Trading  Trading  `yaml:"trading"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
	Schedule struct {
		CycleCron         string `yaml:"cycle_cron"`
		PositionCheckCron string `yaml:"position_check_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	State struct {
		File string `yaml:"file"`
	} `yaml:"state"`
	Log     Log `yaml:"log"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Exchange selects the market data / order adapter.
type Exchange struct {
	Name       string `yaml:"name"` // binance, yahoo or mock
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	Sandbox    bool   `yaml:"sandbox"`
	Interval   string `yaml:"interval"`
	Limit      int    `yaml:"limit"`
	QuoteAsset string `yaml:"quote_asset"`
}

// Trading holds the traded universe and account mode.
type Trading struct {
	Pairs          []string `yaml:"pairs"`
	Simulate       bool     `yaml:"simulate"`
	InitialBalance float64  `yaml:"initial_balance"`
	MaxConcurrency int      `yaml:"max_concurrency"`
}

// Log configures the zerolog outputs.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// Load reads .env and the YAML file, then applies environment overrides and defaults.
// A missing file is not an error; every field has a default.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	// Simulation is the safe default; a YAML value overrides it.
	cfg.Trading.Simulate = true
	cfg.Exchange.Sandbox = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EXCHANGE_NAME"); v != "" {
		cfg.Exchange.Name = strings.ToLower(v)
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v, ok := envBool("SANDBOX_MODE"); ok {
		cfg.Exchange.Sandbox = v
	}
	if v := os.Getenv("TRADING_PAIRS"); v != "" {
		cfg.Trading.Pairs = splitPairs(v)
	}
	if v, ok := envBool("SIMULATE_TRADING"); ok {
		cfg.Trading.Simulate = v
	}
	if v, ok := envFloat("INITIAL_BALANCE"); ok {
		cfg.Trading.InitialBalance = v
	}
	if v := os.Getenv("RSI_PERIOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Strategy.RSIPeriod = n
		}
	}
	if v, ok := envFloat("RSI_OVERSOLD"); ok {
		cfg.Strategy.Oversold = v
	}
	if v, ok := envFloat("RSI_OVERBOUGHT"); ok {
		cfg.Strategy.Overbought = v
	}
	if v, ok := envFloat("MIN_DIVERGENCE_STRENGTH"); ok {
		cfg.Strategy.MinDivergenceStrength = v
	}
	if v, ok := envFloat("MAX_POSITION_SIZE"); ok {
		cfg.Risk.MaxPositionFraction = v
	}
	// Percentages, as in the legacy .env files.
	if v, ok := envFloat("STOP_LOSS_PERCENTAGE"); ok {
		cfg.Risk.StopLossPct = v / 100
	}
	if v, ok := envFloat("TAKE_PROFIT_PERCENTAGE"); ok && cfg.Risk.StopLossPct > 0 {
		cfg.Risk.RewardRiskRatio = (v / 100) / cfg.Risk.StopLossPct
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_CYCLE"); v != "" {
		cfg.Schedule.CycleCron = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Exchange.Name == "" {
		cfg.Exchange.Name = "binance"
	}
	if cfg.Exchange.Interval == "" {
		cfg.Exchange.Interval = "1h"
	}
	if cfg.Exchange.Limit == 0 {
		cfg.Exchange.Limit = 100
	}
	if cfg.Exchange.QuoteAsset == "" {
		cfg.Exchange.QuoteAsset = "USDT"
	}
	if len(cfg.Trading.Pairs) == 0 {
		cfg.Trading.Pairs = []string{"BTCUSDT"}
	}
	if cfg.Trading.InitialBalance == 0 {
		cfg.Trading.InitialBalance = 1000
	}
	if cfg.Trading.MaxConcurrency == 0 {
		cfg.Trading.MaxConcurrency = 4
	}
	cfg.Strategy.applyDefaults()
	cfg.Risk.applyDefaults()
	if cfg.Schedule.CycleCron == "" {
		cfg.Schedule.CycleCron = "0 0 * * * *"
	}
	if cfg.Schedule.PositionCheckCron == "" {
		cfg.Schedule.PositionCheckCron = "0 * * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/divergence_sentinel.db"
	}
	if cfg.State.File == "" {
		cfg.State.File = "data/positions.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks cross-field constraints. Errors wrap model.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	switch c.Exchange.Name {
	case "binance", "yahoo", "mock":
	default:
		return invalid("exchange.name %q is not supported", c.Exchange.Name)
	}
	if len(c.Trading.Pairs) == 0 {
		return invalid("at least one trading pair must be specified")
	}
	if !c.Trading.Simulate {
		if c.Exchange.Name != "binance" {
			return invalid("live trading requires exchange.name binance")
		}
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return invalid("api_key and api_secret are required for live trading")
		}
	}
	if c.Trading.InitialBalance <= 0 {
		return invalid("trading.initial_balance must be positive")
	}
	if c.Exchange.Limit < c.Strategy.MinBars() {
		return invalid("exchange.limit %d is below the %d bars the strategy needs", c.Exchange.Limit, c.Strategy.MinBars())
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	return c.Risk.Validate()
}

func splitPairs(v string) []string {
	var pairs []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			pairs = append(pairs, p)
		}
	}
	return pairs
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
