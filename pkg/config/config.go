package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway and the client.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Client   ClientConfig   `mapstructure:"client"`
}

type AppConfig struct {
	Port string `mapstructure:"port" validate:"required"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type UpstreamConfig struct {
	CoinGeckoURL    string        `mapstructure:"coingecko_url" validate:"required,url"`
	AlphaVantageURL string        `mapstructure:"alphavantage_url" validate:"required,url"`
	AlphaVantageKey string        `mapstructure:"alphavantage_key"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type PollerConfig struct {
	Interval     time.Duration `mapstructure:"interval" validate:"gt=0"`
	CryptoIDs    []string      `mapstructure:"crypto_ids"`
	Currency     string        `mapstructure:"currency" validate:"required"`
	StockSymbols []string      `mapstructure:"stock_symbols"`
}

type ClientConfig struct {
	ServerURL       string        `mapstructure:"server_url" validate:"required"`
	APIBase         string        `mapstructure:"api_base" validate:"required,url"`
	StateBackend    string        `mapstructure:"state_backend" validate:"oneof=file redis"`
	StatePath       string        `mapstructure:"state_path"`
	WatchlistFile   string        `mapstructure:"watchlist_file"`
	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay" validate:"gte=1s"`
	StartingCash    float64       `mapstructure:"starting_cash" validate:"gt=0"`
	SeriesLimit     int           `mapstructure:"series_limit" validate:"gt=0"`
	HistoryInterval time.Duration `mapstructure:"history_interval" validate:"gt=0"`
	HistoryLimit    int           `mapstructure:"history_limit" validate:"gt=0"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Load .env into the process environment if present
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "app.port" -> "APP_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.encoding")
	bindEnv(v, "cache.backend", "cache.ttl")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic")
	bindEnv(v, "upstream.coingecko_url", "upstream.alphavantage_url", "upstream.timeout")
	bindEnv(v, "poller.interval", "poller.crypto_ids", "poller.currency", "poller.stock_symbols")
	bindEnv(v, "client.server_url", "client.api_base", "client.state_backend", "client.state_path",
		"client.watchlist_file", "client.reconnect_delay", "client.starting_cash",
		"client.series_limit", "client.history_interval", "client.history_limit")

	// The provider key keeps its conventional name as an alias
	if err := v.BindEnv("upstream.alphavantage_key", "UPSTREAM_ALPHAVANTAGE_KEY", "ALPHAVANTAGE_KEY"); err != nil {
		log.Printf("Could not bind env var for key upstream.alphavantage_key: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty when kafka is enabled")
	}
	if len(c.Poller.CryptoIDs) == 0 && len(c.Poller.StockSymbols) == 0 {
		return fmt.Errorf("poller needs at least one crypto id or stock symbol")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":4000")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "price_snapshots")

	v.SetDefault("upstream.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("upstream.alphavantage_url", "https://www.alphavantage.co")
	v.SetDefault("upstream.alphavantage_key", "")
	v.SetDefault("upstream.timeout", 15*time.Second)

	v.SetDefault("poller.interval", 20*time.Second)
	v.SetDefault("poller.crypto_ids", []string{"bitcoin", "ethereum", "dogecoin"})
	v.SetDefault("poller.currency", "usd")
	v.SetDefault("poller.stock_symbols", []string{"MSFT", "AAPL"})

	v.SetDefault("client.server_url", "ws://localhost:4000/ws")
	v.SetDefault("client.api_base", "http://localhost:4000")
	v.SetDefault("client.state_backend", "file")
	v.SetDefault("client.state_path", "portfolio_state.json")
	v.SetDefault("client.watchlist_file", "watchlist.yaml")
	v.SetDefault("client.reconnect_delay", time.Second)
	v.SetDefault("client.starting_cash", 100000.0)
	v.SetDefault("client.series_limit", 400)
	v.SetDefault("client.history_interval", time.Minute)
	v.SetDefault("client.history_limit", 1440)
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
