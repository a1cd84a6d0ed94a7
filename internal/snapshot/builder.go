// Package snapshot assembles point-in-time market snapshots per ticker.
// Fetches fan out concurrently with per-axis timeouts; a failed axis
// degrades to an unavailable marker and never fails the batch.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
	"github.com/bobmcallan/magma/internal/scoring"
)

const (
	// maxConcurrent bounds the ticker fan-out
	maxConcurrent = 5

	// newsLimit caps news items fetched per ticker
	newsLimit = 10

	// persistTimeout bounds the fire-and-forget price write
	persistTimeout = 5 * time.Second

	// DefaultFetchTimeout bounds each fetch axis when no timeout is configured
	DefaultFetchTimeout = 10 * time.Second
)

// Builder implements the SnapshotService contract.
type Builder struct {
	primary      interfaces.MarketDataClient
	fallback     interfaces.MarketDataClient
	prices       interfaces.PriceStore
	universe     []string
	fetchTimeout time.Duration
	logger       *common.Logger

	// wg tracks in-flight fire-and-forget persists, for tests and shutdown
	wg sync.WaitGroup
}

// NewBuilder creates a snapshot builder. fallback and prices may be nil;
// the builder degrades to primary-only fetching and no persistence.
func NewBuilder(logger *common.Logger, primary, fallback interfaces.MarketDataClient, prices interfaces.PriceStore, universe []string, fetchTimeout time.Duration) *Builder {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Builder{
		primary:      primary,
		fallback:     fallback,
		prices:       prices,
		universe:     universe,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// BuildSnapshots assembles snapshots for the given tickers. An empty set
// means the full configured universe. Output is sorted by ticker so the
// result is independent of fetch completion order.
func (b *Builder) BuildSnapshots(ctx context.Context, tickers []string) ([]*models.TickerSnapshot, error) {
	normalized := normalizeTickers(tickers)
	if len(normalized) == 0 {
		normalized = normalizeTickers(b.universe)
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: no tickers requested and no universe configured", models.ErrInvalidInput)
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]*models.TickerSnapshot, len(normalized))

	for _, ticker := range normalized {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			// Request-level timeout: return whatever completed
			break
		}
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			snap := b.buildOne(ctx, ticker)
			mu.Lock()
			results[ticker] = snap
			mu.Unlock()
		}(ticker)
	}

	wg.Wait()

	snapshots := make([]*models.TickerSnapshot, 0, len(results))
	for _, snap := range results {
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Ticker < snapshots[j].Ticker
	})

	return snapshots, nil
}

// BuildSnapshot assembles a single ticker snapshot.
func (b *Builder) BuildSnapshot(ctx context.Context, ticker string) (*models.TickerSnapshot, error) {
	normalized := normalizeTickers([]string{ticker})
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: empty ticker", models.ErrInvalidInput)
	}
	return b.buildOne(ctx, normalized[0]), nil
}

// buildOne fetches the three axes independently. Axes start unavailable
// and flip to ok as data arrives.
func (b *Builder) buildOne(ctx context.Context, ticker string) *models.TickerSnapshot {
	snap := &models.TickerSnapshot{
		Ticker:             ticker,
		PriceStatus:        models.AxisUnavailable,
		FundamentalsStatus: models.AxisUnavailable,
		NewsStatus:         models.AxisUnavailable,
		BuiltAt:            time.Now().UTC(),
	}

	bars, provider, err := b.fetchBars(ctx, ticker)
	if err != nil {
		b.logger.Warn().Str("ticker", ticker).Err(err).Msg("Price fetch failed, ticker unscoreable")
	} else if len(bars) > 0 {
		snap.Bars = bars
		snap.Price = scoring.BuildPriceSummary(bars)
		snap.PriceStatus = models.AxisOK
		b.persistBars(bars, provider)
	}

	if f, err := b.fetchFundamentals(ctx, ticker); err != nil {
		b.logger.Debug().Str("ticker", ticker).Err(err).Msg("Fundamentals fetch failed, axis degraded")
	} else {
		snap.Fundamentals = f
		snap.FundamentalsStatus = models.AxisOK
	}

	if news, err := b.fetchNews(ctx, ticker); err != nil {
		b.logger.Debug().Str("ticker", ticker).Err(err).Msg("News fetch failed, axis degraded")
	} else {
		snap.News = news
		snap.NewsStatus = models.AxisOK
	}

	return snap
}

// fetchBars tries the primary provider, then the fallback.
func (b *Builder) fetchBars(ctx context.Context, ticker string) ([]models.PriceBar, string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	bars, err := b.primary.GetBars(fetchCtx, ticker)
	if err == nil {
		return bars, b.primary.Name(), nil
	}

	if b.fallback == nil {
		return nil, "", err
	}

	b.logger.Debug().Str("ticker", ticker).Str("provider", b.primary.Name()).Err(err).Msg("Primary price fetch failed, trying fallback")

	fallbackCtx, cancelFallback := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancelFallback()

	bars, fallbackErr := b.fallback.GetBars(fallbackCtx, ticker)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf("primary: %v, fallback: %w", err, fallbackErr)
	}
	return bars, b.fallback.Name(), nil
}

func (b *Builder) fetchFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	f, err := b.primary.GetFundamentals(fetchCtx, ticker)
	if err == nil {
		return f, nil
	}
	if b.fallback == nil {
		return nil, err
	}

	fallbackCtx, cancelFallback := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancelFallback()

	f, fallbackErr := b.fallback.GetFundamentals(fallbackCtx, ticker)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary: %v, fallback: %w", err, fallbackErr)
	}
	return f, nil
}

func (b *Builder) fetchNews(ctx context.Context, ticker string) ([]models.NewsItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	items, err := b.primary.GetNews(fetchCtx, ticker, newsLimit)
	if err != nil {
		return nil, err
	}

	news := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			news = append(news, *item)
		}
	}
	return news, nil
}

// persistBars writes fetched bars to the price sink without blocking the
// snapshot. Failures are logged and dropped.
func (b *Builder) persistBars(bars []models.PriceBar, provider string) {
	if b.prices == nil || len(bars) == 0 {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := b.prices.UpsertBars(ctx, bars); err != nil {
			b.logger.Warn().Str("ticker", bars[0].Ticker).Str("provider", provider).Err(err).Msg("Price persistence failed")
		}
	}()
}

// Flush waits for in-flight price persists to finish.
func (b *Builder) Flush() {
	b.wg.Wait()
}

// normalizeTickers trims, uppercases, dedupes, and drops empties while
// preserving first-seen order.
func normalizeTickers(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	var out []string
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Ensure Builder implements SnapshotService
var _ interfaces.SnapshotService = (*Builder)(nil)
