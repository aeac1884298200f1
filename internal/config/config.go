package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr" env:"SERVER_ADDR"`
	} `yaml:"server"`
	DB struct {
		Driver string `yaml:"driver" env:"DB_DRIVER"`
		DSN    string `yaml:"dsn" env:"DB_DSN"`
	} `yaml:"db"`
	Orders struct {
		NumberPrefix      string `yaml:"number_prefix" env:"ORDER_NUMBER_PREFIX"`
		NumberDigits      int    `yaml:"number_digits" env:"ORDER_NUMBER_DIGITS"`
		NumberAttempts    int    `yaml:"number_attempts" env:"ORDER_NUMBER_ATTEMPTS"`
		PendingTTLMinutes int    `yaml:"pending_ttl_minutes" env:"ORDER_PENDING_TTL_MINUTES"`
		DefaultListLimit  int    `yaml:"default_list_limit" env:"ORDER_DEFAULT_LIST_LIMIT"`
		MaxListLimit      int    `yaml:"max_list_limit" env:"ORDER_MAX_LIST_LIMIT"`
	} `yaml:"orders"`
	Payments struct {
		SuccessRate   float64 `yaml:"success_rate" env:"PAYMENT_SUCCESS_RATE"`
		DefaultMethod string  `yaml:"default_method" env:"PAYMENT_DEFAULT_METHOD"`
	} `yaml:"payments"`
	Analytics struct {
		BufferSize int `yaml:"buffer_size" env:"ANALYTICS_BUFFER_SIZE"`
	} `yaml:"analytics"`
	Worker struct {
		IntervalSeconds int64 `yaml:"interval_seconds" env:"WORKER_INTERVAL_SECONDS"`
	} `yaml:"worker"`
	Catalog struct {
		Path string `yaml:"path" env:"CATALOG_PATH"`
	} `yaml:"catalog"`
	Log struct {
		Debug bool `yaml:"debug" env:"LOG_DEBUG"`
	} `yaml:"log"`
}

// Load reads the YAML file at path (or CONFIG_PATH, or configs/config.yaml),
// then applies .env and process environment overrides.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.DB.Driver != DriverPostgres && cfg.DB.Driver != DriverSQLite {
		return nil, fmt.Errorf("db.driver %q is not supported", cfg.DB.Driver)
	}
	if cfg.Payments.SuccessRate < 0 || cfg.Payments.SuccessRate > 1 {
		return nil, errors.New("payments.success_rate must be within [0,1]")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = DriverPostgres
	}
	if cfg.Orders.NumberPrefix == "" {
		cfg.Orders.NumberPrefix = "FB"
	}
	if cfg.Orders.NumberDigits <= 0 {
		cfg.Orders.NumberDigits = 6
	}
	if cfg.Orders.NumberAttempts <= 0 {
		cfg.Orders.NumberAttempts = 5
	}
	if cfg.Orders.PendingTTLMinutes <= 0 {
		cfg.Orders.PendingTTLMinutes = 60
	}
	if cfg.Orders.DefaultListLimit <= 0 {
		cfg.Orders.DefaultListLimit = 50
	}
	if cfg.Orders.MaxListLimit <= 0 {
		cfg.Orders.MaxListLimit = 200
	}
	if cfg.Payments.SuccessRate == 0 {
		cfg.Payments.SuccessRate = 0.95
	}
	if cfg.Payments.DefaultMethod == "" {
		cfg.Payments.DefaultMethod = "card"
	}
	if cfg.Analytics.BufferSize <= 0 {
		cfg.Analytics.BufferSize = 256
	}
	if cfg.Worker.IntervalSeconds <= 0 {
		cfg.Worker.IntervalSeconds = 60
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "configs/catalog.yaml"
	}
}
