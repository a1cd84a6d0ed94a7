// Package app wires configuration, storage, clients, and services into
// a runnable application core shared by cmd/magma-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/magma/internal/advisor"
	"github.com/bobmcallan/magma/internal/clients/finnhub"
	"github.com/bobmcallan/magma/internal/clients/gemini"
	"github.com/bobmcallan/magma/internal/clients/twelvedata"
	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/portfolio"
	"github.com/bobmcallan/magma/internal/scoring"
	"github.com/bobmcallan/magma/internal/snapshot"
	"github.com/bobmcallan/magma/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	SnapshotService  interfaces.SnapshotService
	ScoringService   interfaces.ScoringService
	PortfolioService interfaces.PortfolioService
	AdvisorService   interfaces.AdvisorService
	Narrator         interfaces.Narrator
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes the application. configPath may be empty, in which
// case MAGMA_CONFIG, the binary directory, then config/magma.toml are
// tried in order.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("MAGMA_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "magma.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/magma.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths to the binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewManager(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	primary, fallback := buildMarketClients(config, logger)
	if primary == nil {
		storageManager.Close()
		return nil, fmt.Errorf("no market data provider configured")
	}

	var narrator interfaces.Narrator
	if config.Clients.Gemini.APIKey != "" {
		opts := []gemini.ClientOption{gemini.WithLogger(logger)}
		if config.Clients.Gemini.Model != "" {
			opts = append(opts, gemini.WithModel(config.Clients.Gemini.Model))
		}
		client, err := gemini.NewClient(context.Background(), config.Clients.Gemini.APIKey, opts...)
		if err != nil {
			logger.Warn().Err(err).Msg("Gemini client unavailable, narration disabled")
		} else {
			narrator = client
		}
	} else {
		logger.Info().Msg("Gemini API key not configured, narration disabled")
	}

	builder := snapshot.NewBuilder(logger, primary, fallback, storageManager.PriceStore(), config.Universe, config.Advisor.GetFetchTimeout())
	engine := scoring.NewEngine(logger)
	aggregator := portfolio.NewAggregator(logger)

	advisorService := advisor.NewService(logger, builder, engine, aggregator, narrator,
		advisor.PolicyFromConfig(config.Advisor), config.Universe)

	logger.Info().
		Str("environment", config.Environment).
		Int("universe", len(config.Universe)).
		Str("provider", primary.Name()).
		Msg("Application initialized")

	return &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		SnapshotService:  builder,
		ScoringService:   engine,
		PortfolioService: aggregator,
		AdvisorService:   advisorService,
		Narrator:         narrator,
		StartupTime:      time.Now(),
	}, nil
}

// buildMarketClients selects the primary and fallback providers from
// config. Finnhub leads when enabled with a key; Twelve Data covers the
// rest, in either role.
func buildMarketClients(config *common.Config, logger *common.Logger) (primary, fallback interfaces.MarketDataClient) {
	var finnhubClient interfaces.MarketDataClient
	if config.Clients.Finnhub.Enabled && config.Clients.Finnhub.APIKey != "" {
		opts := []finnhub.ClientOption{
			finnhub.WithLogger(logger),
			finnhub.WithTimeout(config.Clients.Finnhub.GetTimeout()),
		}
		if config.Clients.Finnhub.BaseURL != "" {
			opts = append(opts, finnhub.WithBaseURL(config.Clients.Finnhub.BaseURL))
		}
		if config.Clients.Finnhub.RateLimit > 0 {
			opts = append(opts, finnhub.WithRateLimit(config.Clients.Finnhub.RateLimit))
		}
		finnhubClient = finnhub.NewClient(config.Clients.Finnhub.APIKey, opts...)
	}

	var twelveClient interfaces.MarketDataClient
	if config.Clients.TwelveData.APIKey != "" {
		opts := []twelvedata.ClientOption{
			twelvedata.WithLogger(logger),
			twelvedata.WithTimeout(config.Clients.TwelveData.GetTimeout()),
		}
		if config.Clients.TwelveData.BaseURL != "" {
			opts = append(opts, twelvedata.WithBaseURL(config.Clients.TwelveData.BaseURL))
		}
		if config.Clients.TwelveData.RateLimit > 0 {
			opts = append(opts, twelvedata.WithRateLimit(config.Clients.TwelveData.RateLimit))
		}
		twelveClient = twelvedata.NewClient(config.Clients.TwelveData.APIKey, opts...)
	}

	if finnhubClient != nil {
		return finnhubClient, twelveClient
	}
	return twelveClient, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
