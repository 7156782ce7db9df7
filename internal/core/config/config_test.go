package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty path",
			input:    "",
			expected: "",
		},
		{
			name:     "Absolute path",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:     "Relative path",
			input:    "relative/path",
			expected: "relative/path",
		},
		{
			name:     "Home directory only",
			input:    "~",
			expected: home,
		},
		{
			name:     "Home directory with forward slash",
			input:    "~/Downloads",
			expected: filepath.Join(home, "Downloads"),
		},
		{
			name:     "Home directory with backslash (simulated)",
			input:    `~\Downloads`,
			expected: filepath.Join(home, "Downloads"),
		},
		{
			name:     "Invalid tilde use (middle)",
			input:    "/path/~/test",
			expected: "/path/~/test",
		},
		{
			name:     "Invalid tilde use (no separator)",
			input:    "~user",
			expected: "~user", // We don't support ~user expansion currently
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandPath(tt.input)
			if got != tt.expected {
				t.Errorf("expandPath(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Fetch.Timeout != 8*time.Second {
		t.Errorf("Fetch.Timeout = %v", cfg.Fetch.Timeout)
	}
	if !cfg.Extractors.Degraded() {
		t.Error("degraded mode should default to on")
	}
	if cfg.Browser.Enabled {
		t.Error("browser fallback should default to off")
	}
	if cfg.RateLimit.RPS != 0 {
		t.Errorf("RateLimit.RPS = %v, want 0", cfg.RateLimit.RPS)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `server:
  port: 8080
fetch:
  proxy_url: socks5://127.0.0.1:1080
extractors:
  degraded_mode: false
rate_limit:
  rps: 5
browser:
  user_data_dir: ~/browser-data
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Fetch.ProxyURL != "socks5://127.0.0.1:1080" {
		t.Errorf("Fetch.ProxyURL = %q", cfg.Fetch.ProxyURL)
	}
	if cfg.Extractors.Degraded() {
		t.Error("degraded_mode: false was ignored")
	}
	if cfg.RateLimit.Burst != 10 {
		t.Errorf("RateLimit.Burst = %d, want 10", cfg.RateLimit.Burst)
	}
	if cfg.Fetch.Timeout != 8*time.Second {
		t.Errorf("Fetch.Timeout = %v, want default", cfg.Fetch.Timeout)
	}
	home, _ := os.UserHomeDir()
	if cfg.Browser.UserDataDir != filepath.Join(home, "browser-data") {
		t.Errorf("Browser.UserDataDir = %q", cfg.Browser.UserDataDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOCIALDL_PORT", "9090")
	t.Setenv("SOCIALDL_REDIS_ADDR", "localhost:6379")
	t.Setenv("SOCIALDL_LOG_LEVEL", "DEBUG")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}

	t.Setenv("SOCIALDL_PORT", "not-a-port")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid SOCIALDL_PORT")
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}
