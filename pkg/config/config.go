package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	ModelDir    string `yaml:"model_dir" default:"models" validate:"required"`
	Logging     struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"auto" validate:"oneof=auto json console"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"logging"`
	DataSource struct {
		Type   string `yaml:"type" default:"yahoo" validate:"oneof=yahoo clickhouse"`
		Symbol string `yaml:"symbol" default:"AAPL" validate:"required"`
		Period string `yaml:"period" default:"2y"`
		Yahoo  struct {
			BaseURL           string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
			Timeout           time.Duration `yaml:"timeout" default:"10s"`
			RequestsPerSecond float64       `yaml:"requests_per_second" default:"2" validate:"gt=0"`
			Burst             int           `yaml:"burst" default:"1" validate:"gte=1"`
			BreakerFailures   uint32        `yaml:"breaker_failures" default:"5"`
			BreakerTimeout    time.Duration `yaml:"breaker_timeout" default:"30s"`
		} `yaml:"yahoo"`
		ClickHouseTable string `yaml:"clickhouse_table" default:"market.daily_bars"`
	} `yaml:"data_source"`
	Cache struct {
		Enabled       bool          `yaml:"enabled"`
		TTL           time.Duration `yaml:"ttl" default:"6h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"256"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"stockpred"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"market"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	RunStore struct {
		Enabled bool   `yaml:"enabled"`
		Driver  string `yaml:"driver" default:"sqlite" validate:"oneof=sqlite postgres"`
		DSN     string `yaml:"dsn" default:"runs.db"`
	} `yaml:"run_store"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"stockpred.backtest.reports"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimitRPS    float64       `yaml:"rate_limit_rps" default:"5" validate:"gte=0"`
		RateLimitBurst  int           `yaml:"rate_limit_burst" default:"10" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Model    ModelConfig    `yaml:"MODEL_CONFIG"`
	Risk     RiskManagement `yaml:"RISK_MANAGEMENT"`
	Backtest BacktestConfig `yaml:"BACKTEST_CONFIG"`
	Labeling LabelingConfig `yaml:"LABELING"`
	Training TrainingConfig `yaml:"TRAINING"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, decodes a YAML document over them and validates the
// result. Values present in the document, zeros included, win over defaults.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

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
	if v := os.Getenv("STOCK_SYMBOL"); v != "" {
		c.DataSource.Symbol = v
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.ModelDir = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.DataSource.Type = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			fmt.Sscanf(port, "%d", &c.Cache.Redis.Port)
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RUN_STORE_DSN"); v != "" {
		c.RunStore.DSN = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Default returns a fully populated configuration with the stock regime tables.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	c.Model.VolatilityConfigs = DefaultModelConfigs()
	c.Risk.VolatilityRiskConfigs = DefaultRiskConfigs()
	return &c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.DataSource.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when data_source.type is 'clickhouse'")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
