package config

import (
	"errors"
	"fmt"
	"os"

	redis_wrapper "github.com/joripage/venue-sim/pkg/infra/redis"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServiceName string                     `yaml:"service_name"`
	LogLevel    string                     `yaml:"log_level"`
	Venue       VenueConfig                `yaml:"venue"`
	HTTP        HTTPConfig                 `yaml:"http"`
	Fix         FixConfig                  `yaml:"fix"`
	Sink        SinkConfig                 `yaml:"sink"`
	Redis       *redis_wrapper.RedisConfig `yaml:"redis"`
	Kafka       *KafkaConfig               `yaml:"kafka"`
	Simulate    SimulateConfig             `yaml:"simulate"`
}

type VenueConfig struct {
	Instruments      int `yaml:"instruments"`
	Workers          int `yaml:"workers"`
	SignalBuffer     int `yaml:"signal_buffer"`
	IdleBackoffMaxMs int `yaml:"idle_backoff_max_ms"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type FixConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ConfigFile string `yaml:"config_file"`
}

type SinkConfig struct {
	Log         bool   `yaml:"log"`
	AsyncBuffer int    `yaml:"async_buffer"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	Topic          string   `yaml:"topic"`
	BatchSize      int      `yaml:"batch_size"`
	BatchTimeoutMs int      `yaml:"batch_timeout_ms"`
}

type SimulateConfig struct {
	OrdersPerWorker int     `yaml:"orders_per_worker"`
	DelayMs         int     `yaml:"delay_ms"`
	MinPrice        float64 `yaml:"min_price"`
	MaxPrice        float64 `yaml:"max_price"`
	MinQty          int64   `yaml:"min_qty"`
	MaxQty          int64   `yaml:"max_qty"`
}

var errInvalidConfig = errors.New("invalid config")

// Default returns the reference venue: 1024 instruments matched by 10 workers.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *AppConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "venue-sim"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Venue.Instruments == 0 {
		c.Venue.Instruments = 1024
	}
	if c.Venue.Workers == 0 {
		c.Venue.Workers = 10
	}
	if c.Venue.SignalBuffer == 0 {
		c.Venue.SignalBuffer = 1
	}
	if c.Venue.IdleBackoffMaxMs == 0 {
		c.Venue.IdleBackoffMaxMs = 5
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Sink.AsyncBuffer == 0 {
		c.Sink.AsyncBuffer = 4096
	}
	if c.Simulate.OrdersPerWorker == 0 {
		c.Simulate.OrdersPerWorker = 50
	}
	if c.Simulate.DelayMs == 0 {
		c.Simulate.DelayMs = 1
	}
	if c.Simulate.MinPrice == 0 && c.Simulate.MaxPrice == 0 {
		c.Simulate.MinPrice, c.Simulate.MaxPrice = 10, 100
	}
	if c.Simulate.MinQty == 0 {
		c.Simulate.MinQty = 1
	}
	if c.Simulate.MaxQty == 0 {
		c.Simulate.MaxQty = 50
	}
}

// Validate rejects settings the venue cannot start with.
func (c *AppConfig) Validate() error {
	if c.Venue.Instruments <= 0 {
		return fmt.Errorf("%w: venue.instruments must be positive, got %d", errInvalidConfig, c.Venue.Instruments)
	}
	if c.Venue.Workers <= 0 {
		return fmt.Errorf("%w: venue.workers must be positive, got %d", errInvalidConfig, c.Venue.Workers)
	}
	if c.Venue.SignalBuffer <= 0 {
		return fmt.Errorf("%w: venue.signal_buffer must be positive, got %d", errInvalidConfig, c.Venue.SignalBuffer)
	}
	if c.Simulate.MinPrice < 0 || c.Simulate.MaxPrice < c.Simulate.MinPrice {
		return fmt.Errorf("%w: simulate price range [%v, %v]", errInvalidConfig, c.Simulate.MinPrice, c.Simulate.MaxPrice)
	}
	if c.Simulate.MinQty <= 0 || c.Simulate.MaxQty < c.Simulate.MinQty {
		return fmt.Errorf("%w: simulate qty range [%d, %d]", errInvalidConfig, c.Simulate.MinQty, c.Simulate.MaxQty)
	}
	if c.Kafka != nil && len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka.topic is required with brokers", errInvalidConfig)
	}
	return nil
}

// Load load config from file and environment variables.
// An empty path falls back to CONFIG_FILE, and no file at all yields Default().
func Load(filePath string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	cfg := &AppConfig{}
	if len(filePath) == 0 {
		sugar.Debug("No config file, using defaults")
	} else {
		sugar.Debug("Load config...")

		configBytes, err := os.ReadFile(filePath)
		if err != nil {
			sugar.Error("Failed to load config file")
			return nil, err
		}
		configBytes = []byte(os.ExpandEnv(string(configBytes)))

		err = yaml.Unmarshal(configBytes, cfg)
		if err != nil {
			sugar.Error("Failed to parse config file")
			return nil, err
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
