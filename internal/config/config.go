package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Remote     RemoteConfig     `yaml:"remote"`
	Sync       SyncConfig       `yaml:"sync"`
	Network    NetworkConfig    `yaml:"network"`
	API        APIConfig        `yaml:"api"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	KeyPrefix string `yaml:"key_prefix"`
	// Failover keeps serving from memory when the primary backend errors.
	Failover bool `yaml:"failover"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type RemoteConfig struct {
	BaseURL      string          `yaml:"base_url"`
	APIKey       string          `yaml:"api_key"`
	HeaderAPIKey string          `yaml:"header_api_key"`
	Timeout      time.Duration   `yaml:"timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type SyncConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	BackoffInitial  time.Duration `yaml:"backoff_initial"`
	BackoffMax      time.Duration `yaml:"backoff_max"`
	BackoffFactor   float64       `yaml:"backoff_factor"`
	DeadLetterLimit int           `yaml:"dead_letter_limit"`
}

type NetworkConfig struct {
	ProbePath       string        `yaml:"probe_path"`
	ProbeInterval   time.Duration `yaml:"probe_interval"`
	InitiallyOnline bool          `yaml:"initially_online"`
}

type APIConfig struct {
	Enabled   bool            `yaml:"enabled"`
	HTTP      APIHTTPConfig   `yaml:"http"`
	GRPC      APIGRPCConfig   `yaml:"grpc"`
	Auth      APIAuthConfig   `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// Load reads the YAML file at configPath, expanding ${VAR} references from
// the environment and an optional .env file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes raw YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expandedData := []byte(os.ExpandEnv(string(data)))

	config := Config{Network: NetworkConfig{InitiallyOnline: true}}
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
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for sqlite backend")
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Remote.BaseURL == "" {
		return errors.New("remote base_url is required")
	}
	if !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
		return fmt.Errorf("remote base_url %q must be an http(s) URL", c.Remote.BaseURL)
	}
	if c.Sync.MaxAttempts < 1 {
		return errors.New("sync max_attempts must be at least 1")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "offlinesync"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	if c.Storage.Backend == BackendSQLite && c.Storage.Path == "" {
		c.Storage.Path = "data/offlinesync.db"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "offlinesync:"
	}

	if c.Remote.HeaderAPIKey == "" {
		c.Remote.HeaderAPIKey = "x-api-key"
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = 10 * time.Second
	}

	if c.Sync.MaxAttempts == 0 {
		c.Sync.MaxAttempts = 3
	}
	if c.Sync.CacheTTL == 0 {
		c.Sync.CacheTTL = 5 * time.Minute
	}
	if c.Sync.FlushInterval == 0 {
		c.Sync.FlushInterval = 30 * time.Second
	}
	if c.Sync.BackoffInitial == 0 {
		c.Sync.BackoffInitial = 5 * time.Second
	}
	if c.Sync.BackoffMax == 0 {
		c.Sync.BackoffMax = 5 * time.Minute
	}
	if c.Sync.BackoffFactor == 0 {
		c.Sync.BackoffFactor = 2
	}
	if c.Sync.DeadLetterLimit == 0 {
		c.Sync.DeadLetterLimit = 100
	}

	if c.Network.ProbePath == "" {
		c.Network.ProbePath = "/health"
	}
	if c.Network.ProbeInterval == 0 {
		c.Network.ProbeInterval = 10 * time.Second
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
