package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the gateway.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
	Rules   RulesConfig   `yaml:"rules"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// BackendConfig configures access to the glassbox analysis backend.
type BackendConfig struct {
	BaseURL         string        `yaml:"baseURL"`
	AnalyzePath     string        `yaml:"analyzePath"`
	AnalysisPath    string        `yaml:"analysisPath"`
	HistoryPath     string        `yaml:"historyPath"`
	HealthPath      string        `yaml:"healthPath"`
	RequestField    string        `yaml:"requestField"`
	Timeout         time.Duration `yaml:"timeout"`
	PersistsResults bool          `yaml:"persistsResults"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// RulesConfig controls rule-pack loading for the recommender.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls session lifetime of the result caches.
type CacheConfig struct {
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout"`
	SweepInterval      time.Duration `yaml:"sweepInterval"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GLASSBOX_GATEWAY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:      "http://localhost:8000",
			AnalyzePath:  "/api/analyze",
			AnalysisPath: "/analysis",
			HistoryPath:  "/history",
			HealthPath:   "/health",
			RequestField: "output",
			Timeout:      60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Cache: CacheConfig{
			SessionIdleTimeout: 30 * time.Minute,
			SweepInterval:      time.Minute,
		},
	}
}

func (c Config) validate() error {
	switch c.Backend.RequestField {
	case "output", "response":
	default:
		return fmt.Errorf("backend.requestField must be \"output\" or \"response\", got %q", c.Backend.RequestField)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GLASSBOX_GATEWAY_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("GLASSBOX_GATEWAY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_ANALYZE_PATH"); v != "" {
		cfg.Backend.AnalyzePath = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_ANALYSIS_PATH"); v != "" {
		cfg.Backend.AnalysisPath = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_HISTORY_PATH"); v != "" {
		cfg.Backend.HistoryPath = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_HEALTH_PATH"); v != "" {
		cfg.Backend.HealthPath = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_REQUEST_FIELD"); v != "" {
		cfg.Backend.RequestField = v
	}
	if v := os.Getenv("GLASSBOX_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("GLASSBOX_BACKEND_PERSISTS_RESULTS"); v != "" {
		cfg.Backend.PersistsResults = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("GLASSBOX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GLASSBOX_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("GLASSBOX_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("GLASSBOX_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("GLASSBOX_SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SessionIdleTimeout = d
		}
	}
	if v := os.Getenv("GLASSBOX_SESSION_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SweepInterval = d
		}
	}
}
