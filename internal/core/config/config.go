package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "socialdl"
)

// ConfigDir returns the standard config directory for socialdl.
// Windows: %APPDATA%\socialdl\
// macOS/Linux: ~/.config/socialdl/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/socialdl/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

type Config struct {
	Server     ServerConfig     `yaml:"server,omitempty"`
	Fetch      FetchConfig      `yaml:"fetch,omitempty"`
	Extractors ExtractorsConfig `yaml:"extractors,omitempty"`
	Browser    BrowserConfig    `yaml:"browser,omitempty"`
	Redis      RedisConfig      `yaml:"redis,omitempty"`
	CORS       CORSConfig       `yaml:"cors,omitempty"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit,omitempty"`
	Sentry     SentryConfig     `yaml:"sentry,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
}

// ServerConfig holds HTTP server settings for `socialdl serve`
type ServerConfig struct {
	// Port is the HTTP listen port (default: 5000)
	Port int `yaml:"port,omitempty"`

	// Mode is the gin mode: debug, release or test (default: release)
	Mode string `yaml:"mode,omitempty"`

	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// FetchConfig controls outbound requests to the platforms
type FetchConfig struct {
	// Timeout bounds every single outbound request (default: 8s)
	Timeout time.Duration `yaml:"timeout,omitempty"`

	UserAgent string `yaml:"user_agent,omitempty"`

	// ProxyURL routes outbound traffic, e.g. socks5://127.0.0.1:1080
	ProxyURL string `yaml:"proxy_url,omitempty"`

	MaxBodyBytes int64 `yaml:"max_body_bytes,omitempty"`
}

type ExtractorsConfig struct {
	// RequestTimeout bounds the whole strategy chain for one request (default: 20s)
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	// DegradedMode lets Facebook and Likee answer with a note instead of
	// failing (default: true)
	DegradedMode *bool `yaml:"degraded_mode,omitempty"`
}

// Degraded reports whether degraded mode is on
func (e ExtractorsConfig) Degraded() bool {
	return e.DegradedMode == nil || *e.DegradedMode
}

// BrowserConfig enables the headless render fallback for TikTok
type BrowserConfig struct {
	Enabled     bool          `yaml:"enabled,omitempty"`
	Bin         string        `yaml:"bin,omitempty"`
	Visible     bool          `yaml:"visible,omitempty"`
	UserDataDir string        `yaml:"user_data_dir,omitempty"` // each render gets its own profile under it
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// RedisConfig enables the response cache and shared stats when Addr is set
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
}

// CORSConfig lists allowed origins. Empty reflects the request origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// RateLimitConfig is a per-client-IP token bucket. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn,omitempty"`
	Environment string `yaml:"environment,omitempty"`
}

type LoggingConfig struct {
	// Level is debug, info, warn or error (default: info)
	Level string `yaml:"level,omitempty"`
	// Format is json or console (default: json)
	Format string `yaml:"format,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 8 * time.Second
	}
	if c.Fetch.MaxBodyBytes == 0 {
		c.Fetch.MaxBodyBytes = 5 << 20
	}
	if c.Extractors.RequestTimeout == 0 {
		c.Extractors.RequestTimeout = 20 * time.Second
	}
	if c.Extractors.DegradedMode == nil {
		on := true
		c.Extractors.DegradedMode = &on
	}
	if c.Browser.Timeout == 0 {
		c.Browser.Timeout = 15 * time.Second
	}
	if c.Browser.UserDataDir == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Browser.UserDataDir = filepath.Join(dir, "browser")
		}
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 10 * time.Minute
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS * 2)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// applyEnv overrides file values with SOCIALDL_* environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("SOCIALDL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid SOCIALDL_PORT %q", v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("SOCIALDL_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SOCIALDL_PROXY_URL"); v != "" {
		c.Fetch.ProxyURL = v
	}
	if v := os.Getenv("SOCIALDL_SENTRY_DSN"); v != "" {
		c.Sentry.DSN = v
	}
	if v := os.Getenv("SOCIALDL_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from path, or from ~/.config/socialdl/config.yml
// when path is empty. Environment overrides and defaults are applied.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	cfg.Browser.UserDataDir = expandPath(cfg.Browser.UserDataDir)

	return cfg, nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform compatibility
// for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/socialdl/config.yml
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# socialdl configuration file\n# Run 'socialdl init' to regenerate with defaults\n\n"
	content := header + string(data)

	return os.WriteFile(configPath, []byte(content), 0644)
}

// SavePath returns the path where config will be saved
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return ConfigFileName
}

// Init creates a new config.yml with default values
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads the default config file if it exists, otherwise
// returns defaults with environment overrides applied. An explicit path
// must exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if path != "" || !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = &Config{}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}
