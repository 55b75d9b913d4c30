package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full service configuration, loaded from a TOML file.
// Durations are plain seconds to keep the file format simple.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Hold     HoldConfig     `toml:"hold"`
	Sweep    SweepConfig    `toml:"sweep"`
	Cache    CacheConfig    `toml:"cache"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type ServerConfig struct {
	HTTPPort        int      `toml:"http_port"`
	ReadTimeout     int      `toml:"read_timeout"`
	WriteTimeout    int      `toml:"write_timeout"`
	IdleTimeout     int      `toml:"idle_timeout"`
	ShutdownTimeout int      `toml:"shutdown_timeout"`
	CORSOrigins     []string `toml:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
	MaxConns int    `toml:"max_conns"`
}

// DSN builds a connection string for pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type HoldConfig struct {
	DurationSeconds int `toml:"duration_seconds"`
}

type SweepConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	BatchSize       int `toml:"batch_size"`
}

type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// Default returns the configuration used when a field is absent from the
// file. The production config only needs to list what it overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "dancelink",
			Password: "dancelink",
			DBName:   "dancelink",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Hold:  HoldConfig{DurationSeconds: 600},
		Sweep: SweepConfig{IntervalSeconds: 30, BatchSize: 500},
		Cache: CacheConfig{
			Addr:       "localhost:6379",
			TTLSeconds: 3,
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			Path:        "/metrics",
			ServiceName: "seathold",
		},
	}
}

// Load reads and validates the TOML config at path, applying defaults for
// missing fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}
	if c.Hold.DurationSeconds <= 0 {
		return fmt.Errorf("hold.duration_seconds must be positive, got %d", c.Hold.DurationSeconds)
	}
	if c.Sweep.IntervalSeconds <= 0 {
		return fmt.Errorf("sweep.interval_seconds must be positive, got %d", c.Sweep.IntervalSeconds)
	}
	if c.Sweep.BatchSize <= 0 {
		return fmt.Errorf("sweep.batch_size must be positive, got %d", c.Sweep.BatchSize)
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive when cache is enabled, got %d", c.Cache.TTLSeconds)
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path required when metrics are enabled")
	}
	return nil
}
