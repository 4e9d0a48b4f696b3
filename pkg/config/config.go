package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		PushInterval    time.Duration `yaml:"push_interval"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Regime struct {
		CacheTTL    time.Duration `yaml:"cache_ttl"`
		HTTPTimeout time.Duration `yaml:"http_timeout"`
	} `yaml:"regime"`
	Providers struct {
		FRED struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"fred"`
		Yahoo struct {
			BaseURL   string `yaml:"base_url"`
			Range     string `yaml:"range"`
			UserAgent string `yaml:"user_agent"`
		} `yaml:"yahoo"`
		AlphaVantage struct {
			APIKey        string `yaml:"api_key"`
			BaseURL       string `yaml:"base_url"`
			RatePerMinute int    `yaml:"rate_per_minute"`
			FeedLimit     int    `yaml:"feed_limit"`
		} `yaml:"alpha_vantage"`
		Breaker struct {
			ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
			OpenTimeout         time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"providers"`
	Backend struct {
		Type        string        `yaml:"type"`
		MinInterval time.Duration `yaml:"min_interval"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port"`
		Database    string        `yaml:"database"`
		Table       string        `yaml:"table"`
		User        string        `yaml:"user"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout"`
		ReadTimeout time.Duration `yaml:"read_timeout"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"redis"`
}

// Default returns a configuration that runs with no external infrastructure
// and no provider credentials.
func Default() *Config {
	var c Config
	c.Environment = "development"

	c.Server.Port = 3000
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.PushInterval = time.Minute

	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Log.Output = "stdout"

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"

	c.Regime.CacheTTL = 300 * time.Second
	c.Regime.HTTPTimeout = 30 * time.Second

	c.Providers.FRED.BaseURL = "https://api.stlouisfed.org/fred"
	c.Providers.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	c.Providers.Yahoo.Range = "6mo"
	c.Providers.Yahoo.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	c.Providers.AlphaVantage.BaseURL = "https://www.alphavantage.co/query"
	c.Providers.AlphaVantage.RatePerMinute = 5
	c.Providers.AlphaVantage.FeedLimit = 50
	c.Providers.Breaker.ConsecutiveFailures = 3
	c.Providers.Breaker.OpenTimeout = 5 * time.Minute

	c.Backend.Type = "none"

	c.Kafka.Topic = "macro.regime.snapshots"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Producer.ReadTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "macrocompass-history"
	c.Kafka.Consumer.Workers = 1
	c.Kafka.Consumer.BufferSize = 16
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 100 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 2 * time.Second

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "macrocompass"
	c.ClickHouse.Table = "regime_snapshots"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 10 * time.Second

	c.Redis.Host = "localhost"
	c.Redis.Port = 6379
	c.Redis.Prefix = "macrocompass"
	c.Redis.Timeout = 2 * time.Second

	return &c
}

// Load reads and parses a YAML configuration file on top of Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file (if present) and then
// applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			c = loaded
		}
	}

	applyEnv(c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Providers.FRED.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.Providers.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Enabled = true
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Backend.Type {
	case "none", "":
		c.Backend.Type = "none"
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when backend.type is 'kafka'")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when backend.type is 'kafka'")
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("clickhouse.enabled must be true when backend.type is 'clickhouse'")
		}
	default:
		return fmt.Errorf("backend.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.MinInterval < 0 {
		return fmt.Errorf("backend.min_interval cannot be negative")
	}
	if c.Regime.CacheTTL <= 0 {
		return fmt.Errorf("regime.cache_ttl must be positive")
	}
	return nil
}
