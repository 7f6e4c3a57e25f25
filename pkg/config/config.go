package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	xutil "ComputeOracle/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Redis struct {
		Addr       string `yaml:"addr" default:"localhost:6379"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		PoolSize   int    `yaml:"pool_size" default:"10"`
		Prefix     string `yaml:"prefix" default:"oracle"`
		MaxRetries int    `yaml:"max_retries" default:"10"`
	} `yaml:"redis"`
	Oracle struct {
		BaseURL        string        `yaml:"base_url" default:"https://api.inference.wandb.ai/v1"`
		APIKey         string        `yaml:"api_key"`
		PredictorModel string        `yaml:"predictor_model" default:"Qwen/Qwen3-30B-A3B-Instruct-2507"`
		ReasonerModel  string        `yaml:"reasoner_model" default:"deepseek-ai/DeepSeek-R1-0528"`
		Timeout        time.Duration `yaml:"timeout" default:"60s"`
		RequestsPerSec float64       `yaml:"requests_per_sec" default:"2"`
		Burst          int           `yaml:"burst" default:"2"`
		Breaker        struct {
			MaxFailures uint32        `yaml:"max_failures" default:"3"`
			OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
		} `yaml:"breaker"`
	} `yaml:"oracle"`
	Target struct {
		Instance string `yaml:"instance" default:"p3.2xlarge"`
		Zone     string `yaml:"zone" default:"us-east-1a"`
	} `yaml:"target"`
	Ingestion struct {
		SpotCatalogURL string        `yaml:"spot_catalog_url" default:"https://instances.vantage.sh/aws/ec2/instances.json"`
		Timeout        time.Duration `yaml:"timeout" default:"15s"`
		HistorySeed    int64         `yaml:"history_seed" default:"42"`
		HistoryRetain  time.Duration `yaml:"history_retain" default:"720h"`
		EIABaseURL     string        `yaml:"eia_base_url" default:"https://api.eia.gov/v2"`
		EIAAPIKey      string        `yaml:"eia_api_key"`
	} `yaml:"ingestion"`
	Learning struct {
		LogCap   int64         `yaml:"log_cap" default:"1000"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"30s"`
		LockWait time.Duration `yaml:"lock_wait" default:"10s"`
	} `yaml:"learning"`
	Replay struct {
		Workers     int `yaml:"workers" default:"1"`
		StatusEvery int `yaml:"status_every" default:"5"`
	} `yaml:"replay"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		LearnTopic   string        `yaml:"learning_topic" default:"oracle.learning-events"`
		CycleTopic   string        `yaml:"cycle_topic" default:"oracle.cycles"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"oracle"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML (or defaults when path is empty) and
// overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.Redis.DB = xutil.ParseIntDefault(v, c.Redis.DB)
	}
	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		c.Oracle.BaseURL = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	} else if v := os.Getenv("WANDB_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("EIA_API_KEY"); v != "" {
		c.Ingestion.EIAAPIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Redis.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("redis.max_retries must be at least 1, got %d", c.Redis.MaxRetries))
	}
	if c.Oracle.BaseURL == "" {
		errs = append(errs, errors.New("oracle.base_url is required"))
	}
	if c.Target.Instance == "" || c.Target.Zone == "" {
		errs = append(errs, errors.New("target.instance and target.zone are required"))
	}
	if c.Learning.LogCap <= 0 {
		errs = append(errs, fmt.Errorf("learning.log_cap must be positive, got %d", c.Learning.LogCap))
	}
	if c.Replay.StatusEvery <= 0 {
		errs = append(errs, fmt.Errorf("replay.status_every must be positive, got %d", c.Replay.StatusEvery))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers cannot be empty when kafka is enabled"))
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required when clickhouse is enabled"))
	}

	return errors.Join(errs...)
}
