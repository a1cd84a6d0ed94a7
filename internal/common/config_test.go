package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8000)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("MAGMA_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_FinnhubKeyEnvOverride(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.Finnhub.APIKey != "from-env" {
		t.Errorf("Finnhub.APIKey = %q, want %q", cfg.Clients.Finnhub.APIKey, "from-env")
	}
}

func TestConfig_UniverseEnvOverride(t *testing.T) {
	t.Setenv("MAGMA_UNIVERSE", "aapl, msft ,")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if len(cfg.Universe) != 2 || cfg.Universe[0] != "AAPL" || cfg.Universe[1] != "MSFT" {
		t.Errorf("Universe = %v, want [AAPL MSFT]", cfg.Universe)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}
	if len(cfg.Universe) == 0 {
		t.Error("expected default universe")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magma.toml")
	content := `
universe = ["nvda", "amd"]

[server]
port = 9001

[advisor]
top_n = 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Advisor.TopN != 3 {
		t.Errorf("Advisor.TopN = %d, want 3", cfg.Advisor.TopN)
	}
	// Universe tickers normalized to uppercase during validation
	if len(cfg.Universe) != 2 || cfg.Universe[0] != "NVDA" {
		t.Errorf("Universe = %v, want [NVDA AMD]", cfg.Universe)
	}
	// Untouched sections keep defaults
	if cfg.Clients.Finnhub.BaseURL == "" {
		t.Error("expected default finnhub base_url preserved")
	}
}

func TestLoadConfig_RejectsBadAdvisorPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magma.toml")
	content := `
[advisor]
top_n = 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for top_n = 0")
	}
}

func TestAdvisorConfig_TimeoutFallbacks(t *testing.T) {
	cfg := AdvisorConfig{FetchTimeout: "bogus", RequestTimeout: ""}
	if got := cfg.GetFetchTimeout(); got != 10*time.Second {
		t.Errorf("GetFetchTimeout fallback = %v, want 10s", got)
	}
	if got := cfg.GetRequestTimeout(); got != 15*time.Second {
		t.Errorf("GetRequestTimeout fallback = %v, want 15s", got)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{" Production ", true},
		{"development", false},
		{"", false},
	}

	for _, tt := range tests {
		cfg := &Config{Environment: tt.env}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}
