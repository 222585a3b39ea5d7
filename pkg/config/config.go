package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`

		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Data struct {
		Backend string `yaml:"backend"` // csv or clickhouse
		CSV     struct {
			Path       string `yaml:"path"`
			DateFormat string `yaml:"date_format"`
		} `yaml:"csv"`
		ClickHouse struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Database string `yaml:"database"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`

			DialTimeout      time.Duration `yaml:"dial_timeout"`
			ReadTimeout      time.Duration `yaml:"read_timeout"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time"`
			Compression      string        `yaml:"compression"`
			UseHTTP          bool          `yaml:"use_http"`
			AsyncInsert      bool          `yaml:"async_insert"`
			WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		} `yaml:"clickhouse"`
	} `yaml:"data"`
	Ingest struct {
		Enabled      bool          `yaml:"enabled"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
		Kafka        struct {
			Brokers      []string `yaml:"brokers"`
			Topic        string   `yaml:"topic"`
			RequiredAcks int      `yaml:"required_acks"`
			Compression  string   `yaml:"compression"`
			Consumer struct {
				GroupID    string `yaml:"group_id"`
				Workers    int    `yaml:"workers"`
				BufferSize int    `yaml:"buffer_size"`
				MinBytes   int    `yaml:"min_bytes"`
				MaxBytes   int    `yaml:"max_bytes"`

				RetryMax   int           `yaml:"retry_max"`
				BackoffMin time.Duration `yaml:"backoff_min"`
				BackoffMax time.Duration `yaml:"backoff_max"`
				DLQTopic   string        `yaml:"dlq_topic"`
			} `yaml:"consumer"`
			Producer struct {
				Linger     time.Duration `yaml:"linger"`
				BatchSize  int           `yaml:"batch_size"`
				BatchBytes int           `yaml:"batch_bytes"`

				MaxAttempts  int           `yaml:"max_attempts"`
				WriteTimeout time.Duration `yaml:"write_timeout"`
				ReadTimeout  time.Duration `yaml:"read_timeout"`
				Async        bool          `yaml:"async"`
			} `yaml:"producer"`
		} `yaml:"kafka"`
	} `yaml:"ingest"`
	Forecast struct {
		DefaultHorizonDays int     `yaml:"default_horizon_days"`
		BusyHorizonDays    int     `yaml:"busy_horizon_days"`
		BusyPercentile     float64 `yaml:"busy_percentile"`
		TestFraction       float64 `yaml:"test_fraction"`
		Estimators         int     `yaml:"estimators"`
		LearningRate       float64 `yaml:"learning_rate"`
		Seed               int64   `yaml:"seed"`
		MinTrainingRows    int     `yaml:"min_training_rows"`
		ConcurrentFit      bool    `yaml:"concurrent_fit"`
		MaxConcurrentRuns  int     `yaml:"max_concurrent_runs"`
	} `yaml:"forecast"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		Type    string        `yaml:"type"` // memory, redis or layered
		TTL     time.Duration `yaml:"ttl"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Export struct {
		Dir   string `yaml:"dir"`
		Queue struct {
			Enabled bool   `yaml:"enabled"`
			Name    string `yaml:"name"`
			Addr    string `yaml:"addr"`
			Workers int    `yaml:"workers"`
		} `yaml:"queue"`
	} `yaml:"export"`
}

// Load parses the YAML file at path, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv is Load plus environment overrides, for the connection details
// that differ between deployments.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	env := func(name string, target *string) {
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}
	env("DATA_BACKEND", &cfg.Data.Backend)
	env("ADMISSIONS_CSV_PATH", &cfg.Data.CSV.Path)
	env("CLICKHOUSE_HOST", &cfg.Data.ClickHouse.Host)
	env("CLICKHOUSE_PASSWORD", &cfg.Data.ClickHouse.Password)
	env("KAFKA_TOPIC", &cfg.Ingest.Kafka.Topic)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Ingest.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
		cfg.Export.Queue.Addr = v
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Forecast.DefaultHorizonDays == 0 {
		c.Forecast.DefaultHorizonDays = 30
	}
	if c.Forecast.BusyHorizonDays == 0 {
		c.Forecast.BusyHorizonDays = 90
	}
	if c.Forecast.BusyPercentile == 0 {
		c.Forecast.BusyPercentile = 75
	}
	if c.Forecast.TestFraction == 0 {
		c.Forecast.TestFraction = 0.2
	}
	if c.Forecast.Estimators == 0 {
		c.Forecast.Estimators = 100
	}
	if c.Forecast.LearningRate == 0 {
		c.Forecast.LearningRate = 0.1
	}
	if c.Forecast.Seed == 0 {
		c.Forecast.Seed = 42
	}
	if c.Forecast.MinTrainingRows == 0 {
		c.Forecast.MinTrainingRows = 30
	}
	if c.Forecast.MaxConcurrentRuns == 0 {
		c.Forecast.MaxConcurrentRuns = 2
	}
	if c.Data.CSV.DateFormat == "" {
		c.Data.CSV.DateFormat = "02/01/2006"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.Backend == "" {
		return fmt.Errorf("data.backend is required")
	}
	if c.Data.Backend != "csv" && c.Data.Backend != "clickhouse" {
		return fmt.Errorf("data.backend must be 'csv' or 'clickhouse', got '%s'", c.Data.Backend)
	}
	if c.Data.Backend == "csv" && c.Data.CSV.Path == "" {
		return fmt.Errorf("data.csv.path is required for the csv backend")
	}
	if c.Ingest.Enabled && len(c.Ingest.Kafka.Brokers) == 0 {
		return fmt.Errorf("ingest.kafka.brokers cannot be empty when ingest is enabled")
	}
	if c.Ingest.Enabled && c.Data.Backend != "clickhouse" {
		return fmt.Errorf("ingest requires the clickhouse backend")
	}
	if p := c.Forecast.BusyPercentile; p <= 0 || p > 100 {
		return fmt.Errorf("forecast.busy_percentile must be in (0, 100], got %v", p)
	}
	if f := c.Forecast.TestFraction; f <= 0 || f >= 1 {
		return fmt.Errorf("forecast.test_fraction must be in (0, 1), got %v", f)
	}
	return nil
}
