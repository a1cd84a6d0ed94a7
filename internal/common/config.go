// Package common provides shared utilities for MAGMA
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for MAGMA
type Config struct {
	Environment string        `toml:"environment"`
	Universe    []string      `toml:"universe"` // tracked tech-sector tickers
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Advisor     AdvisorConfig `toml:"advisor"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the price-store configuration.
type StorageConfig struct {
	Path string `toml:"path"` // BadgerHold directory for persisted prices
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Finnhub    FinnhubConfig    `toml:"finnhub"`
	TwelveData TwelveDataConfig `toml:"twelvedata"`
	Gemini     GeminiConfig     `toml:"gemini"`
}

// FinnhubConfig holds Finnhub API configuration
type FinnhubConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FinnhubConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// TwelveDataConfig holds Twelve Data API configuration (fallback provider)
type TwelveDataConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TwelveDataConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// AdvisorConfig holds the scoring and ranking policy parameters.
// These are calibration values, tuned per deployment.
type AdvisorConfig struct {
	HighPotential        float64 `toml:"high_potential"`        // BUY floor on normalized potential
	LowPotential         float64 `toml:"low_potential"`         // SELL trigger when held potential falls below
	RiskCeiling          float64 `toml:"risk_ceiling"`          // BUY suppressed above this normalized risk
	DistressRisk         float64 `toml:"distress_risk"`         // SELL trigger on held risk
	ConcentrationCeiling float64 `toml:"concentration_ceiling"` // max post-trade single-sector weight
	TopN                 int     `toml:"top_n"`                 // default recommendation cap
	FetchTimeout         string  `toml:"fetch_timeout"`         // per-ticker fetch timeout
	RequestTimeout       string  `toml:"request_timeout"`       // whole snapshot fan-out budget
}

// GetFetchTimeout parses the per-fetch timeout duration
func (c *AdvisorConfig) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetRequestTimeout parses the request-level snapshot timeout duration
func (c *AdvisorConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Universe: []string{
			"AAPL", "MSFT", "GOOG", "AMZN", "NVDA",
			"META", "TSLA", "AMD", "INTC", "CRM",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Storage: StorageConfig{
			Path: "data/prices",
		},
		Clients: ClientsConfig{
			Finnhub: FinnhubConfig{
				Enabled:   true,
				BaseURL:   "https://finnhub.io/api/v1",
				RateLimit: 10,
				Timeout:   "10s",
			},
			TwelveData: TwelveDataConfig{
				BaseURL:   "https://api.twelvedata.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Advisor: AdvisorConfig{
			HighPotential:        0.65,
			LowPotential:         0.35,
			RiskCeiling:          0.60,
			DistressRisk:         0.75,
			ConcentrationCeiling: 0.40,
			TopN:                 5,
			FetchTimeout:         "10s",
			RequestTimeout:       "15s",
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MAGMA_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MAGMA_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("MAGMA_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MAGMA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("MAGMA_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if universe := os.Getenv("MAGMA_UNIVERSE"); universe != "" {
		parts := strings.Split(universe, ",")
		tickers := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
				tickers = append(tickers, t)
			}
		}
		if len(tickers) > 0 {
			config.Universe = tickers
		}
	}

	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		config.Clients.Finnhub.APIKey = key
	}
	if key := os.Getenv("TWELVEDATA_API_KEY"); key != "" {
		config.Clients.TwelveData.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Clients.Gemini.APIKey = key
	}
}

// validate rejects configurations the advisor cannot run with.
func validate(config *Config) error {
	if len(config.Universe) == 0 {
		return fmt.Errorf("universe must contain at least one ticker")
	}
	if config.Advisor.TopN < 1 {
		return fmt.Errorf("advisor top_n must be >= 1, got %d", config.Advisor.TopN)
	}
	if config.Advisor.ConcentrationCeiling <= 0 || config.Advisor.ConcentrationCeiling > 1 {
		return fmt.Errorf("advisor concentration_ceiling must be in (0,1], got %f", config.Advisor.ConcentrationCeiling)
	}
	for i, t := range config.Universe {
		config.Universe[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
