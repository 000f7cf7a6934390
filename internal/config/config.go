// Package config provides environment-aware configuration management for the
// control plane processes (controlplane, operationworker, migrate). It
// follows the teacher's pkg/config pattern: a struct tagged with `env:`
// names, decoded with envdecode, with an optional YAML file providing
// defaults that environment variables then override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// Config holds the environment variables named in the external interfaces
// contract (DATABASE_URL, AUTH_SERVER_URL, SPICEDB_GRPC_PRESHARED_KEY, the
// bastion/VPN base URLs and keys, CONTROLPLANE_ADDR, HEARTBEAT_URL, INTERVAL).
type Config struct {
	Env Environment `yaml:"env" env:"CONTROLPLANE_ENV"`

	DatabaseURL              string        `yaml:"database_url" env:"DATABASE_URL"`
	DBMaxConnections         int           `yaml:"db_max_connections" env:"DB_MAX_CONNECTIONS"`
	DBConnMaxLifetimeSeconds int           `yaml:"db_conn_max_lifetime_seconds" env:"DB_CONN_MAX_LIFETIME_SECONDS"`
	DBConnMaxLifetime        time.Duration `yaml:"-" env:"-"`

	ControlPlaneAddr string `yaml:"controlplane_addr" env:"CONTROLPLANE_ADDR"`
	OpsAddr          string `yaml:"ops_addr" env:"OPS_ADDR"`
	WorkerOpsAddr    string `yaml:"worker_ops_addr" env:"WORKER_OPS_ADDR"`

	AuthServerURL       string `yaml:"auth_server_url" env:"AUTH_SERVER_URL"`
	SpiceDBPresharedKey string `yaml:"-" env:"SPICEDB_GRPC_PRESHARED_KEY"`

	PangolinBaseURL string `yaml:"pangolin_base_url" env:"PANGOLIN_BASE_URL"`
	PangolinAPIKey  string `yaml:"-" env:"PANGOLIN_API_KEY"`

	HoopBaseURL string `yaml:"hoop_base_url" env:"HOOP_BASE_URL"`
	HoopAPIKey  string `yaml:"-" env:"HOOP_API_KEY"`

	KubeconfigPath string `yaml:"kubeconfig_path" env:"KUBECONFIG"`

	HeartbeatURL         string        `yaml:"heartbeat_url" env:"HEARTBEAT_URL"`
	SynchronizerSeconds  int           `yaml:"interval_seconds" env:"INTERVAL"`
	SynchronizerPeriod   time.Duration `yaml:"-" env:"-"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
}

// New returns a configuration populated with the defaults a local/dev run
// needs; Load overlays a config file and then the environment on top.
func New() *Config {
	return &Config{
		Env: Development,

		DBMaxConnections:         10,
		DBConnMaxLifetimeSeconds: 300,

		ControlPlaneAddr: ":8443",
		OpsAddr:          ":9090",
		WorkerOpsAddr:    ":9091",

		SynchronizerSeconds: 5,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads CONTROLPLANE_ENV (default "development"), optionally layers
// config/<env>.yaml over the defaults, then decodes the process environment
// over the result via envdecode.
func Load() (*Config, error) {
	_ = godotenv.Load(filepath.Join("config", envFromOS()+".env"))

	cfg := New()

	cfgFile := filepath.Join("config", envFromOS()+".yaml")
	if err := loadFromFile(cfgFile, cfg); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", cfgFile, err)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	cfg.normalize()

	return cfg, cfg.Validate()
}

func envFromOS() string {
	if v := strings.TrimSpace(os.Getenv("CONTROLPLANE_ENV")); v != "" {
		return v
	}
	return string(Development)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize converts the durations envdecode can't express natively
// (env vars are plain integers of seconds, matching the synchronizer's INTERVAL
// contract) into time.Duration fields.
func (c *Config) normalize() {
	if c.DBConnMaxLifetimeSeconds <= 0 {
		c.DBConnMaxLifetimeSeconds = 300
	}
	c.DBConnMaxLifetime = time.Duration(c.DBConnMaxLifetimeSeconds) * time.Second

	if c.SynchronizerSeconds <= 0 {
		c.SynchronizerSeconds = 5
	}
	c.SynchronizerPeriod = time.Duration(c.SynchronizerSeconds) * time.Second
}

// Validate enforces the invariants that matter once a process has started;
// it is deliberately lax in Development/Testing.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if c.AuthServerURL == "" {
			return fmt.Errorf("AUTH_SERVER_URL is required in production")
		}
		if c.SpiceDBPresharedKey == "" {
			return fmt.Errorf("SPICEDB_GRPC_PRESHARED_KEY is required in production")
		}
	}
	if c.SynchronizerPeriod <= 0 {
		return fmt.Errorf("INTERVAL must be a positive number of seconds")
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == Development }
func (c *Config) IsTesting() bool     { return c.Env == Testing }
func (c *Config) IsProduction() bool  { return c.Env == Production }
