package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// FileEnv names the environment variable pointing at an optional YAML overlay.
const FileEnv = "NCUBE_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Release   ReleaseConfig   `yaml:"release"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000" yaml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
}

// ReleaseConfig describes where release bundles come from and how the
// proxy route is exposed.
type ReleaseConfig struct {
	URL     string        `envconfig:"URL" default:"https://github.com/ndavd/ncube/releases/latest/download/wasm.zip" yaml:"url"`
	Route   string        `envconfig:"ROUTE" default:"/latest-release" yaml:"route"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"60s" yaml:"timeout"`
}

// BootstrapConfig configures per-session bootstrap.
type BootstrapConfig struct {
	// SourceURL is where sessions fetch the bundle. Empty means the local proxy route.
	SourceURL string `envconfig:"SOURCE_URL" yaml:"source_url"`
	// BundlePath switches sessions to a pre-built bundle on disk.
	BundlePath    string        `envconfig:"BUNDLE_PATH" yaml:"bundle_path"`
	NoticeDelay   time.Duration `envconfig:"NOTICE_DELAY" default:"3s" yaml:"notice_delay"`
	FrameInterval time.Duration `envconfig:"FRAME_INTERVAL" default:"100ms" yaml:"frame_interval"`
	ScriptTimeout time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"30s" yaml:"script_timeout"`
	MemoryPages   uint32        `envconfig:"MEMORY_PAGES" default:"16384" yaml:"memory_pages"`
}

// BridgeConfig configures the host bridge.
type BridgeConfig struct {
	ExportDir string `envconfig:"EXPORT_DIR" default:"." yaml:"export_dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RPS" default:"100" yaml:"rps"`
	Burst             int  `envconfig:"BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables, then applies the
// YAML file named by NCUBE_CONFIG on top when it is set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ApplyFile overlays values present in a YAML file onto cfg.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// SourceURL returns the URL sessions fetch bundles from.
func (c *Config) SourceURL() string {
	if c.Bootstrap.SourceURL != "" {
		return c.Bootstrap.SourceURL
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + host + ":" + c.Server.Port + c.Release.Route
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Release: ReleaseConfig{
			URL:     "https://github.com/ndavd/ncube/releases/latest/download/wasm.zip",
			Route:   "/latest-release",
			Timeout: 60 * time.Second,
		},
		Bootstrap: BootstrapConfig{
			NoticeDelay:   3 * time.Second,
			FrameInterval: 100 * time.Millisecond,
			ScriptTimeout: 30 * time.Second,
			MemoryPages:   16384,
		},
		Bridge: BridgeConfig{
			ExportDir: ".",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
