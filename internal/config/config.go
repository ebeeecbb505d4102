// Package config exposes strongly typed application configuration loaded from
// YAML with environment overrides. The configuration is read-only after
// startup.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-signals/internal/clock"
	"github.com/rxtech-lab/argo-signals/internal/types"
	"github.com/rxtech-lab/argo-signals/pkg/errors"
)

// Bus configures the event bus buffer.
type Bus struct {
	Capacity int `yaml:"capacity" json:"capacity" validate:"gte=0"`
}

// MarketData selects and authenticates the market data provider.
type MarketData struct {
	// Provider selects the market data backend.
	Provider         string `yaml:"provider" json:"provider" validate:"required,oneof=polygon binance"`
	PolygonAPIKey    string `yaml:"polygon_api_key" json:"polygon_api_key"`
	BinanceAPIKey    string `yaml:"binance_api_key" json:"binance_api_key"`
	BinanceAPISecret string `yaml:"binance_api_secret" json:"binance_api_secret"`
	// Alpaca credentials are used only when the price monitor runs in
	// stream mode.
	AlpacaAPIKey    string `yaml:"alpaca_api_key" json:"alpaca_api_key"`
	AlpacaAPISecret string `yaml:"alpaca_api_secret" json:"alpaca_api_secret"`
	AlpacaStreamURL string `yaml:"alpaca_stream_url" json:"alpaca_stream_url"`
}

// Monitor configures the price and news monitor loops.
type Monitor struct {
	// PriceSource selects polling the provider or consuming the bar stream.
	PriceSource           string `yaml:"price_source" json:"price_source" validate:"required,oneof=poll stream"`
	PriceIntervalSeconds  int    `yaml:"price_interval_seconds" json:"price_interval_seconds" validate:"gte=1"`
	NewsIntervalSeconds   int    `yaml:"news_interval_seconds" json:"news_interval_seconds" validate:"gte=1"`
	DedupWindowHours      int    `yaml:"dedup_window_hours" json:"dedup_window_hours" validate:"gte=1"`
	MaxRetries            int    `yaml:"max_retries" json:"max_retries" validate:"gte=0"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" json:"request_timeout_seconds" validate:"gte=1"`
	// ClosedHoldoffSeconds is how long to wait before re-querying an
	// unavailable market clock.
	ClosedHoldoffSeconds int `yaml:"closed_holdoff_seconds" json:"closed_holdoff_seconds" validate:"gte=1"`
}

// News configures the news client.
type News struct {
	APIKey        string `yaml:"api_key" json:"api_key"`
	BaseURL       string `yaml:"base_url" json:"base_url" validate:"required,url"`
	PageSize      int    `yaml:"page_size" json:"page_size" validate:"gte=1,lte=100"`
	RatePerMinute int    `yaml:"rate_per_minute" json:"rate_per_minute" validate:"gte=1"`
}

// Sentiment configures the keyword analyzer and the per-symbol aggregator.
type Sentiment struct {
	// PositiveWords and NegativeWords override the built-in keyword lists
	// when non-empty.
	PositiveWords []string `yaml:"positive_words" json:"positive_words"`
	NegativeWords []string `yaml:"negative_words" json:"negative_words"`
	// MaxArticles is how many recent article scores the aggregator keeps
	// per symbol.
	MaxArticles int `yaml:"max_articles" json:"max_articles" validate:"gte=1"`
}

// Notifier configures the Discord webhook channel.
type Notifier struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url" json:"discord_webhook_url"`
	Username          string `yaml:"username" json:"username"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gte=1"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// Warmup configures the historical detector warmup performed at startup.
type Warmup struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// LookbackCandles is how many recent bars to feed per symbol.
	LookbackCandles int `yaml:"lookback_candles" json:"lookback_candles" validate:"gte=1"`
}

// Scheduler configures the cron status reports.
type Scheduler struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Config collects every configuration leaf.
type Config struct {
	Symbols     []string             `yaml:"symbols" json:"symbols" validate:"required,min=1,dive,required"`
	Timeframe   types.Timeframe      `yaml:"timeframe" json:"timeframe" validate:"required"`
	MarketHours clock.Config         `yaml:"market_hours" json:"market_hours"`
	Bus         Bus                  `yaml:"bus" json:"bus"`
	MarketData  MarketData           `yaml:"market_data" json:"market_data"`
	Monitor     Monitor              `yaml:"monitor" json:"monitor"`
	News        News                 `yaml:"news" json:"news"`
	Sentiment   Sentiment            `yaml:"sentiment" json:"sentiment"`
	Detector    types.DetectorConfig `yaml:"detector" json:"detector"`
	Risk        types.RiskConfig     `yaml:"risk" json:"risk"`
	Notifier    Notifier             `yaml:"notifier" json:"notifier"`
	Metrics     Metrics              `yaml:"metrics" json:"metrics"`
	Warmup      Warmup               `yaml:"warmup" json:"warmup"`
	Scheduler   Scheduler            `yaml:"scheduler" json:"scheduler"`
}

// DefaultConfig returns the full default configuration. Loaded files and
// environment variables override it field by field.
func DefaultConfig() Config {
	return Config{
		Symbols:     []string{"SPY"},
		Timeframe:   types.Timeframe1Min,
		MarketHours: clock.DefaultConfig(),
		Bus: Bus{
			Capacity: 256,
		},
		MarketData: MarketData{
			Provider:        "polygon",
			AlpacaStreamURL: "wss://stream.data.alpaca.markets/v2/iex",
		},
		Monitor: Monitor{
			PriceSource:           "poll",
			PriceIntervalSeconds:  60,
			NewsIntervalSeconds:   60,
			DedupWindowHours:      24,
			MaxRetries:            3,
			RequestTimeoutSeconds: 10,
			ClosedHoldoffSeconds:  60,
		},
		News: News{
			BaseURL:       "https://newsapi.org/v2",
			PageSize:      10,
			RatePerMinute: 30,
		},
		Sentiment: Sentiment{
			MaxArticles: 10,
		},
		Detector: types.DefaultDetectorConfig(),
		Risk:     types.DefaultRiskConfig(),
		Notifier: Notifier{
			Username:       "Options Swing Trader",
			TimeoutSeconds: 10,
		},
		Metrics: Metrics{
			Enabled: true,
			Addr:    ":9090",
		},
		Warmup: Warmup{
			Enabled:         true,
			LookbackCandles: 50,
		},
		Scheduler: Scheduler{
			Enabled: true,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// given), then environment overrides, validated once. A .env file in the
// working directory is honored when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot read config file %s", path)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot parse config file %s", path)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"POLYGON_API_KEY", &c.MarketData.PolygonAPIKey},
		{"BINANCE_API_KEY", &c.MarketData.BinanceAPIKey},
		{"BINANCE_API_SECRET", &c.MarketData.BinanceAPISecret},
		{"ALPACA_API_KEY", &c.MarketData.AlpacaAPIKey},
		{"ALPACA_API_SECRET", &c.MarketData.AlpacaAPISecret},
		{"NEWS_API_KEY", &c.News.APIKey},
		{"DISCORD_WEBHOOK_URL", &c.Notifier.DiscordWebhookURL},
	}

	for _, override := range overrides {
		if value := os.Getenv(override.key); value != "" {
			*override.target = value
		}
	}
}

// Validate validates the whole configuration tree.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if !c.Timeframe.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported timeframe %q", c.Timeframe)
	}

	if err := c.Detector.Validate(); err != nil {
		return err
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	return nil
}
