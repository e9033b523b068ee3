package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/scroll-gateway/internal/config"
)

func TestWithDefault(t *testing.T) {
	cfg := config.WithDefault()

	if cfg == nil {
		t.Fatal("WithDefault() returned nil")
	}

	builtCfg, err := cfg.Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if builtCfg.ListenAddress() != "127.0.0.1:8080" {
		t.Errorf("expected ListenAddress '127.0.0.1:8080', got '%s'", builtCfg.ListenAddress())
	}
	if builtCfg.ProxyBase() != "http://127.0.0.1:8080" {
		t.Errorf("expected ProxyBase 'http://127.0.0.1:8080', got '%s'", builtCfg.ProxyBase())
	}
	if builtCfg.LogLevel() != "info" {
		t.Errorf("expected LogLevel 'info', got '%s'", builtCfg.LogLevel())
	}

	if builtCfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("expected ConnectTimeout 10s, got %v", builtCfg.ConnectTimeout())
	}
	if builtCfg.MaxBodySize() != 1<<20 {
		t.Errorf("expected MaxBodySize 1 MiB, got %d", builtCfg.MaxBodySize())
	}
	if builtCfg.DefaultCharset() != "UTF-8" {
		t.Errorf("expected DefaultCharset 'UTF-8', got '%s'", builtCfg.DefaultCharset())
	}

	if builtCfg.BaseDelay() != 0 {
		t.Errorf("expected BaseDelay 0, got %v", builtCfg.BaseDelay())
	}
	if builtCfg.Jitter() != 500*time.Millisecond {
		t.Errorf("expected Jitter 500ms, got %v", builtCfg.Jitter())
	}
	if builtCfg.MaxAttempt() != 2 {
		t.Errorf("expected MaxAttempt 2, got %d", builtCfg.MaxAttempt())
	}

	if len(builtCfg.BlockedHosts()) != 3 {
		t.Errorf("expected 3 blocked hosts, got %d", len(builtCfg.BlockedHosts()))
	}
	portSet := builtCfg.AllowedPortSet()
	for _, port := range []int{70, 79, 300, 1900, 1961, 1965, 5699, 7000, 7100} {
		if _, ok := portSet[port]; !ok {
			t.Errorf("expected port %d in AllowedPortSet", port)
		}
	}
	if _, ok := portSet[22]; ok {
		t.Error("port 22 must not be allowed by default")
	}
}

func TestBuilderChain(t *testing.T) {
	builtCfg, err := config.WithDefault().
		WithListenAddress("0.0.0.0:9000").
		WithProxyBase("https://portal.example.org").
		WithLogLevel("debug").
		WithConnectTimeout(3 * time.Second).
		WithMaxBodySize(1 << 16).
		WithBaseDelay(time.Second).
		WithBlockedHosts([]string{"example.net"}).
		WithAllowedPorts([]int{1965}).
		Build()
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if builtCfg.ListenAddress() != "0.0.0.0:9000" {
		t.Errorf("expected ListenAddress '0.0.0.0:9000', got '%s'", builtCfg.ListenAddress())
	}
	if builtCfg.ProxyBase() != "https://portal.example.org" {
		t.Errorf("expected ProxyBase 'https://portal.example.org', got '%s'", builtCfg.ProxyBase())
	}
	if builtCfg.ConnectTimeout() != 3*time.Second {
		t.Errorf("expected ConnectTimeout 3s, got %v", builtCfg.ConnectTimeout())
	}
	if builtCfg.MaxBodySize() != 1<<16 {
		t.Errorf("expected MaxBodySize 64 KiB, got %d", builtCfg.MaxBodySize())
	}
	if len(builtCfg.BlockedHosts()) != 1 || builtCfg.BlockedHosts()[0] != "example.net" {
		t.Errorf("expected BlockedHosts ['example.net'], got %v", builtCfg.BlockedHosts())
	}
	if len(builtCfg.AllowedPorts()) != 1 || builtCfg.AllowedPorts()[0] != 1965 {
		t.Errorf("expected AllowedPorts [1965], got %v", builtCfg.AllowedPorts())
	}
}

func TestBuildRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  *config.Config
	}{
		{"empty listen address", config.WithDefault().WithListenAddress("")},
		{"relative proxy base", config.WithDefault().WithProxyBase("portal.example.org")},
		{"proxy base with path", config.WithDefault().WithProxyBase("https://example.org/proxy")},
		{"zero connect timeout", config.WithDefault().WithConnectTimeout(0)},
		{"zero max body size", config.WithDefault().WithMaxBodySize(0)},
		{"no allowed ports", config.WithDefault().WithAllowedPorts(nil)},
	}

	for _, tc := range cases {
		_, err := tc.cfg.Build()
		if err == nil {
			t.Errorf("%s: expected Build to fail", tc.name)
			continue
		}
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestWithConfigFile(t *testing.T) {
	content := `{
		"listenAddress": "0.0.0.0:8888",
		"proxyBase": "https://portal.example.org",
		"connectTimeout": 5000000000,
		"maxBodySize": 2097152,
		"blockedHosts": [],
		"allowedPorts": [1965, 5699]
	}`
	path := filepath.Join(t.TempDir(), "gateway.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.WithConfigFile(path)
	if err != nil {
		t.Fatalf("should not have any error, got %v", err)
	}

	if cfg.ListenAddress() != "0.0.0.0:8888" {
		t.Errorf("expected ListenAddress '0.0.0.0:8888', got '%s'", cfg.ListenAddress())
	}
	if cfg.ConnectTimeout() != 5*time.Second {
		t.Errorf("expected ConnectTimeout 5s, got %v", cfg.ConnectTimeout())
	}
	if cfg.MaxBodySize() != 2<<20 {
		t.Errorf("expected MaxBodySize 2 MiB, got %d", cfg.MaxBodySize())
	}
	if len(cfg.BlockedHosts()) != 0 {
		t.Errorf("expected explicit empty BlockedHosts to clear defaults, got %v", cfg.BlockedHosts())
	}
	if len(cfg.AllowedPorts()) != 2 {
		t.Errorf("expected 2 allowed ports, got %v", cfg.AllowedPorts())
	}

	// Fields absent from the file keep their defaults.
	if cfg.LogLevel() != "info" {
		t.Errorf("expected default LogLevel 'info', got '%s'", cfg.LogLevel())
	}
}

func TestWithConfigFileDoesNotExist(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, config.ErrFileDoesNotExist) {
		t.Errorf("expected ErrFileDoesNotExist, got %v", err)
	}
}

func TestWithConfigFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := config.WithConfigFile(path)
	if !errors.Is(err, config.ErrConfigParsingFail) {
		t.Errorf("expected ErrConfigParsingFail, got %v", err)
	}
}
