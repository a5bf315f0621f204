package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Wizard     WizardConfig     `yaml:"wizard"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// BackendConfig points at the reservation lock service.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// WizardConfig tunes the checkout flow.
type WizardConfig struct {
	// HoldMinutes is the session expiry requested from the backend;
	// the backend's granted expiry wins.
	HoldMinutes int `yaml:"hold_minutes"`
	// ResumeTTLSeconds bounds how long an abandoned checkout can be
	// picked back up.
	ResumeTTLSeconds int `yaml:"resume_ttl_seconds"`
	// TickSeconds is the countdown refresh interval.
	TickSeconds int `yaml:"tick_seconds"`
}

func (w WizardConfig) HoldDuration() time.Duration {
	return time.Duration(w.HoldMinutes) * time.Minute
}

func (w WizardConfig) ResumeTTL() time.Duration {
	return time.Duration(w.ResumeTTLSeconds) * time.Second
}

func (w WizardConfig) TickInterval() time.Duration {
	return time.Duration(w.TickSeconds) * time.Second
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins either way.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Environment variables are expanded before parsing so secrets
	// stay out of the YAML file.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Wizard.HoldMinutes < 0 {
		return fmt.Errorf("wizard hold_minutes must not be negative, got %d", c.Wizard.HoldMinutes)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 10
	}
	if c.Wizard.HoldMinutes == 0 {
		c.Wizard.HoldMinutes = 15
	}
	if c.Wizard.ResumeTTLSeconds == 0 {
		c.Wizard.ResumeTTLSeconds = 1800
	}
	if c.Wizard.TickSeconds == 0 {
		c.Wizard.TickSeconds = 1
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
}
