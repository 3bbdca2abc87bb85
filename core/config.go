package core

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvConfigFile = "SPANRUNNER_CONFIG"
	EnvBackends   = "SPANRUNNER_BACKENDS"
	EnvLogLevel   = "SPANRUNNER_LOG_LEVEL"
)

// Config controls backend discovery and logging.
type Config struct {
	// Backends restricts discovery to these registered backend names.
	// Empty means every registered backend is a candidate.
	Backends []string `yaml:"backends"`

	// LogLevel of the default logger. Defaults to "warn".
	LogLevel string `yaml:"log_level"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalize(), nil
}

// ConfigFromEnv builds a Config from the file named by SPANRUNNER_CONFIG
// (if set), then applies SPANRUNNER_BACKENDS and SPANRUNNER_LOG_LEVEL on top.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if path := os.Getenv(EnvConfigFile); path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if v, ok := os.LookupEnv(EnvBackends); ok {
		cfg.Backends = splitList(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg.normalize(), nil
}

func (c Config) normalize() Config {
	names := c.Backends[:0:0]
	for _, n := range c.Backends {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	c.Backends = names
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return c
}

func splitList(v string) []string {
	return strings.Split(v, ",")
}

var globalConfig atomic.Pointer[Config]

// Configure installs cfg for subsequent backend discovery and default
// logger creation. It does not affect a backend that is already resolved.
func Configure(cfg Config) {
	cfg = cfg.normalize()
	globalConfig.Store(&cfg)
}

func currentConfig() Config {
	if c := globalConfig.Load(); c != nil {
		return *c
	}
	cfg, err := ConfigFromEnv()
	if err != nil {
		// Logging here would recurse into logger creation.
		fmt.Fprintf(os.Stderr, "spanrunner: %v; using defaults\n", err)
		cfg = Config{}
	}
	globalConfig.CompareAndSwap(nil, &cfg)
	return *globalConfig.Load()
}
