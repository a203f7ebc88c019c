package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
	if !cfg.Backend.V2.Enabled {
		t.Error("Backend.V2.Enabled default = false, want true")
	}
	if cfg.Backend.V2.RetryAttempts != 2 {
		t.Errorf("Backend.V2.RetryAttempts default = %d, want 2", cfg.Backend.V2.RetryAttempts)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("FUNDVIEW_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_BackendURLEnvOverride(t *testing.T) {
	t.Setenv("FUNDVIEW_BACKEND_URL", "http://dash.internal:9000")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Backend.V1.BaseURL != "http://dash.internal:9000" {
		t.Errorf("Backend.V1.BaseURL = %q, want env value", cfg.Backend.V1.BaseURL)
	}
	if cfg.Backend.V2.BaseURL != "http://dash.internal:9000" {
		t.Errorf("Backend.V2.BaseURL = %q, want env value", cfg.Backend.V2.BaseURL)
	}
}

func TestConfig_V2EnabledEnvOverride(t *testing.T) {
	t.Setenv("FUNDVIEW_V2_ENABLED", "false")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Backend.V2.Enabled {
		t.Error("Backend.V2.Enabled = true after FUNDVIEW_V2_ENABLED=false")
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fundview.toml")
	content := `
environment = "production"

[server]
port = 9999

[backend.v2]
enabled = false
retry_attempts = 5
retry_delay = "250ms"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Backend.V2.Enabled {
		t.Error("Backend.V2.Enabled = true, want false")
	}
	if cfg.Backend.V2.RetryAttempts != 5 {
		t.Errorf("Backend.V2.RetryAttempts = %d, want 5", cfg.Backend.V2.RetryAttempts)
	}
	if got := cfg.Backend.V2.GetRetryDelay(); got != 250*time.Millisecond {
		t.Errorf("GetRetryDelay() = %v, want 250ms", got)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/fundview.toml")
	if err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	v2 := V2Config{Timeout: "bogus", RetryDelay: ""}
	if got := v2.GetTimeout(); got != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s fallback", got)
	}
	if got := v2.GetRetryDelay(); got != time.Second {
		t.Errorf("GetRetryDelay() = %v, want 1s fallback", got)
	}

	cache := CacheConfig{}
	if got := cache.GetEntityTTL(); got != FreshnessEntity {
		t.Errorf("GetEntityTTL() = %v, want %v", got, FreshnessEntity)
	}
	if got := cache.GetQueryTTL(); got != FreshnessQuery {
		t.Errorf("GetQueryTTL() = %v, want %v", got, FreshnessQuery)
	}
}

func TestIsFresh(t *testing.T) {
	if IsFresh(time.Time{}, time.Hour) {
		t.Error("IsFresh(zero) = true, want false")
	}
	if !IsFresh(time.Now().Add(-time.Minute), time.Hour) {
		t.Error("IsFresh(1m ago, 1h ttl) = false, want true")
	}
	if IsFresh(time.Now().Add(-2*time.Hour), time.Hour) {
		t.Error("IsFresh(2h ago, 1h ttl) = true, want false")
	}
}
