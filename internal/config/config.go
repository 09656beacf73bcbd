package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Player   PlayerConfig   `mapstructure:"player"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Session  SessionConfig  `mapstructure:"session"`

	v   *viper.Viper
	dir string
	mu  sync.RWMutex // protects Session after load
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// CacheConfig holds cache location and freshness settings
type CacheConfig struct {
	Dir  string                   `mapstructure:"dir"`
	TTL  time.Duration            `mapstructure:"ttl"`
	TTLs map[string]time.Duration `mapstructure:"ttls"` // per-kind overrides, keyed by kind or slot name
}

// PlayerConfig holds video player configuration
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// CheckoutConfig holds payment widget configuration
type CheckoutConfig struct {
	KeyID           string        `mapstructure:"key_id"`
	ScriptURL       string        `mapstructure:"script_url"`
	Brand           string        `mapstructure:"brand"`
	Currency        string        `mapstructure:"currency"`
	ThemeColor      string        `mapstructure:"theme_color"`
	CallbackTimeout time.Duration `mapstructure:"callback_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// SessionConfig is the persisted login
type SessionConfig struct {
	Token string `mapstructure:"token"`
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
	Role  string `mapstructure:"role"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "http://localhost:5000",
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
			TTL: cache.DefaultTTL,
		},
		Player: PlayerConfig{
			Args: []string{},
		},
		Checkout: CheckoutConfig{
			ScriptURL:       "https://checkout.razorpay.com/v1/checkout.js",
			Brand:           "Elevate",
			Currency:        "INR",
			ThemeColor:      "#3399cc",
			CallbackTimeout: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "elevate", "elevate.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "elevate", "elevate.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "elevate")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "elevate")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "elevate", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "elevate", "cache")
	}
}

// Load loads configuration from the default directory and the environment
func Load() (*Config, error) {
	return LoadFrom(defaultConfigPath())
}

// LoadFrom loads configuration from config.yaml in dir (or the working
// directory) with ELEVATE_ environment overrides.
func LoadFrom(dir string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	// Environment variable overrides, e.g. ELEVATE_SERVER_URL
	v.SetEnvPrefix("ELEVATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"server.url", "server.timeout", "cache.dir", "cache.ttl", "player.command", "checkout.key_id", "logging.level", "session.token"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.v = v
	cfg.dir = dir
	return cfg, nil
}

// Dir returns the directory the config file is written to.
func (c *Config) Dir() string { return c.dir }

// CachePolicy builds the freshness policy. Unknown kinds in cache.ttls are
// ignored.
func (c *Config) CachePolicy() cache.Policy {
	p := cache.Policy{Default: c.Cache.TTL, Overrides: make(map[cache.Kind]time.Duration)}
	for name, ttl := range c.Cache.TTLs {
		if kind, ok := cache.ParseKind(name); ok && ttl > 0 {
			p.Overrides[kind] = ttl
		}
	}
	return p
}

// IsConfigured returns true if a server URL is set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != ""
}

// write persists the viper state to config.yaml in the config directory.
func (c *Config) write() error {
	if c.v == nil {
		return errors.New("config was not loaded from disk")
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(c.dir, "config.yaml")
	if err := c.v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetServerURL updates and persists the API server URL.
func (c *Config) SetServerURL(url string) error {
	c.Server.URL = url
	if c.v != nil {
		c.v.Set("server.url", url)
	}
	return c.write()
}
