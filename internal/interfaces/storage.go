// Package interfaces defines service contracts for MAGMA
package interfaces

import (
	"context"

	"github.com/bobmcallan/magma/internal/models"
)

// StorageManager coordinates storage backends
type StorageManager interface {
	PriceStore() PriceStore

	// DataPath returns the base data directory path
	DataPath() string

	Close() error
}

// PriceStore persists daily price bars. Writes happen fire-and-forget
// after a snapshot fetch; reads serve history beyond the provider window.
type PriceStore interface {
	// UpsertBars inserts or replaces bars keyed by (ticker, date)
	UpsertBars(ctx context.Context, bars []models.PriceBar) error

	// LatestBars returns up to limit bars for a ticker, newest first
	LatestBars(ctx context.Context, ticker string, limit int) ([]models.PriceBar, error)

	// Tickers lists distinct tickers with stored bars
	Tickers(ctx context.Context) ([]string, error)
}
