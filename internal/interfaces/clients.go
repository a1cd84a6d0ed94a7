// Package interfaces defines service contracts for MAGMA
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/magma/internal/models"
)

// MarketDataClient provides access to a market data provider. Both the
// Finnhub and Twelve Data clients satisfy this; the snapshot builder
// talks to whichever the config selects and falls back to the other.
type MarketDataClient interface {
	// GetBars retrieves daily price bars for a ticker
	GetBars(ctx context.Context, ticker string, opts ...BarOption) ([]models.PriceBar, error)

	// GetFundamentals retrieves company profile and valuation metrics
	GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error)

	// GetNews retrieves recent company news for a ticker
	GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error)

	// Name identifies the provider for logging and degradation reporting
	Name() string
}

// BarOption configures price bar requests
type BarOption func(*BarParams)

// BarParams holds price bar query parameters
type BarParams struct {
	From  time.Time
	To    time.Time
	Limit int
}

// WithDateRange sets the date range for a bar query
func WithDateRange(from, to time.Time) BarOption {
	return func(p *BarParams) {
		p.From = from
		p.To = to
	}
}

// WithLimit caps the number of bars returned, most recent first
func WithLimit(limit int) BarOption {
	return func(p *BarParams) {
		p.Limit = limit
	}
}

// Narrator converts structured recommendation reasons into prose.
// Narration never alters action, confidence, or rank.
type Narrator interface {
	// Narrate returns a short narrative for a single recommendation
	Narrate(ctx context.Context, rec *models.Recommendation, score *models.Score) (string, error)
}
