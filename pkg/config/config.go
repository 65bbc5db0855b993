package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Engine struct {
		Instruments   []string      `yaml:"instruments"`
		Horizons      []string      `yaml:"horizons"`
		Workers       int           `yaml:"workers"`
		CycleInterval time.Duration `yaml:"cycle_interval"` // one evaluation cycle; also max signal age
		HistoryCap    int           `yaml:"history_cap"`
		Resolver      struct {
			ContestedGap    float64 `yaml:"contested_gap"`
			StrongThreshold float64 `yaml:"strong_threshold"`
			BuyThreshold    float64 `yaml:"buy_threshold"`
		} `yaml:"resolver"`
		Stability struct {
			Confirmations  int `yaml:"confirmations"`
			StrongHoldDays int `yaml:"strong_hold_days"`
			FirmHoldDays   int `yaml:"firm_hold_days"`
			WeakHoldDays   int `yaml:"weak_hold_days"`
		} `yaml:"stability"`
		Tracker struct {
			Smoothing         float64            `yaml:"smoothing"`
			Window            int                `yaml:"window"`
			MinOutcomes       int                `yaml:"min_outcomes"`
			BootstrapAccuracy float64            `yaml:"bootstrap_accuracy"`
			Priors            map[string]float64 `yaml:"priors"`
			SnapshotTTL       time.Duration      `yaml:"snapshot_ttl"`
		} `yaml:"tracker"`
	} `yaml:"engine"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		OutcomesTopic  string   `yaml:"outcomes_topic"`
		DecisionsTopic string   `yaml:"decisions_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Predictors struct {
		Timeout   time.Duration `yaml:"timeout"`
		CacheTTL  time.Duration `yaml:"cache_ttl"`
		Technical struct {
			URL string `yaml:"url"`
		} `yaml:"technical"`
		Models []PredictorModel `yaml:"models"`
		Fundamental struct {
			URL string `yaml:"url"`
		} `yaml:"fundamental"`
		Sentiment struct {
			WebSocketURL   string        `yaml:"websocket_url"`
			APIKey         string        `yaml:"api_key"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"sentiment"`
	} `yaml:"predictors"`
}

// PredictorModel points at one ML model serving endpoint.
type PredictorModel struct {
	SourceID string `yaml:"source_id"`
	URL      string `yaml:"url"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.ApplyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Engine.Instruments = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SENTIMENT_API_KEY"); v != "" {
		c.Predictors.Sentiment.APIKey = v
	}

	return c, nil
}

// ApplyDefaults fills the documented defaults for tunables left unset.
// Thresholds are deliberately configuration, not constants; they have changed
// across product versions.
func (c *Config) ApplyDefaults() {
	if len(c.Engine.Horizons) == 0 {
		c.Engine.Horizons = []string{"H1", "D1", "D5", "D30"}
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 4
	}
	if c.Engine.CycleInterval <= 0 {
		c.Engine.CycleInterval = time.Hour
	}
	if c.Engine.HistoryCap <= 0 {
		c.Engine.HistoryCap = 200
	}
	if c.Engine.Resolver.ContestedGap <= 0 {
		c.Engine.Resolver.ContestedGap = 0.20
	}
	if c.Engine.Resolver.StrongThreshold <= 0 {
		c.Engine.Resolver.StrongThreshold = 0.85
	}
	if c.Engine.Resolver.BuyThreshold <= 0 {
		c.Engine.Resolver.BuyThreshold = 0.65
	}
	if c.Engine.Stability.Confirmations <= 0 {
		c.Engine.Stability.Confirmations = 3
	}
	if c.Engine.Stability.StrongHoldDays <= 0 {
		c.Engine.Stability.StrongHoldDays = 30
	}
	if c.Engine.Stability.FirmHoldDays <= 0 {
		c.Engine.Stability.FirmHoldDays = 5
	}
	if c.Engine.Stability.WeakHoldDays <= 0 {
		c.Engine.Stability.WeakHoldDays = 1
	}
	if c.Engine.Tracker.Smoothing <= 0 {
		c.Engine.Tracker.Smoothing = 0.1
	}
	if c.Engine.Tracker.Window <= 0 {
		c.Engine.Tracker.Window = 50
	}
	if c.Engine.Tracker.MinOutcomes <= 0 {
		c.Engine.Tracker.MinOutcomes = 5
	}
	if c.Engine.Tracker.BootstrapAccuracy <= 0 {
		c.Engine.Tracker.BootstrapAccuracy = 0.5
	}
	if c.Engine.Tracker.SnapshotTTL <= 0 {
		c.Engine.Tracker.SnapshotTTL = 30 * time.Second
	}
	if c.Predictors.Timeout <= 0 {
		c.Predictors.Timeout = 3 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Engine.Instruments) == 0 {
		return fmt.Errorf("engine.instruments cannot be empty")
	}
	for _, h := range c.Engine.Horizons {
		switch h {
		case "H1", "D1", "D5", "D30":
		default:
			return fmt.Errorf("engine.horizons contains unknown horizon '%s'", h)
		}
	}
	if c.Engine.Resolver.ContestedGap >= 1 {
		return fmt.Errorf("engine.resolver.contested_gap must be < 1, got %v", c.Engine.Resolver.ContestedGap)
	}
	if c.Engine.Resolver.BuyThreshold > c.Engine.Resolver.StrongThreshold {
		return fmt.Errorf("engine.resolver.buy_threshold must not exceed strong_threshold")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	return nil
}
