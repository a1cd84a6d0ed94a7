// Package storage provides BadgerHold-based persistence for MAGMA.
// Price bars are the single durable dataset; snapshots, scores, and
// recommendations are per-request values and never touch disk.
package storage

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

// keySep separates the composite key parts. A null byte avoids
// collisions with any printable ticker character.
const keySep = "\x00"

// PriceStore implements interfaces.PriceStore using BadgerHold.
type PriceStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewPriceStore opens a price store at the given directory path.
func NewPriceStore(logger *common.Logger, path string) (*PriceStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create price store path %s: %w", path, err)
	}

	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open price store at %s: %w", path, err)
	}

	logger.Debug().Str("path", path).Msg("Price store opened")

	return &PriceStore{db: db, logger: logger}, nil
}

// barKey builds the storage key: ticker + \x00 + date
func barKey(bar models.PriceBar) string {
	return bar.Ticker + keySep + bar.Date.Format("2006-01-02")
}

// UpsertBars inserts or replaces bars keyed by (ticker, date).
// Re-fetching a day overwrites the previous value for that day.
func (s *PriceStore) UpsertBars(_ context.Context, bars []models.PriceBar) error {
	for _, bar := range bars {
		if bar.Ticker == "" || bar.Date.IsZero() {
			continue
		}
		if err := s.db.Upsert(barKey(bar), bar); err != nil {
			return fmt.Errorf("failed to upsert bar %s %s: %w", bar.Ticker, bar.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// LatestBars returns up to limit bars for a ticker, newest first.
func (s *PriceStore) LatestBars(_ context.Context, ticker string, limit int) ([]models.PriceBar, error) {
	var bars []models.PriceBar
	if err := s.db.Find(&bars, badgerhold.Where("Ticker").Eq(ticker)); err != nil {
		return nil, fmt.Errorf("failed to query bars for %s: %w", ticker, err)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.After(bars[j].Date)
	})

	if limit > 0 && len(bars) > limit {
		bars = bars[:limit]
	}

	return bars, nil
}

// Tickers lists distinct tickers with stored bars, sorted ascending.
func (s *PriceStore) Tickers(_ context.Context) ([]string, error) {
	var bars []models.PriceBar
	if err := s.db.Find(&bars, nil); err != nil {
		return nil, fmt.Errorf("failed to scan price store: %w", err)
	}

	seen := make(map[string]bool)
	var tickers []string
	for _, bar := range bars {
		if !seen[bar.Ticker] {
			seen[bar.Ticker] = true
			tickers = append(tickers, bar.Ticker)
		}
	}
	sort.Strings(tickers)

	return tickers, nil
}

// Close closes the underlying database.
func (s *PriceStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure PriceStore implements the contract
var _ interfaces.PriceStore = (*PriceStore)(nil)
