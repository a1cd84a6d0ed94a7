// Package models defines data structures for MAGMA
package models

import (
	"fmt"
	"strings"
)

// Holding represents a portfolio position as supplied by the caller.
// The advisory core only reads holdings; it never persists them.
type Holding struct {
	Ticker  string  `json:"ticker"`
	Shares  float64 `json:"shares"`
	AvgCost float64 `json:"avg_cost"`
}

// Validate rejects malformed holdings at the boundary, before the core.
func (h Holding) Validate() error {
	if strings.TrimSpace(h.Ticker) == "" {
		return fmt.Errorf("%w: holding ticker is required", ErrInvalidInput)
	}
	if h.Shares < 0 {
		return fmt.Errorf("%w: holding %s has negative shares", ErrInvalidInput, h.Ticker)
	}
	if h.AvgCost < 0 {
		return fmt.Errorf("%w: holding %s has negative avg_cost", ErrInvalidInput, h.Ticker)
	}
	return nil
}

// HoldingView is a holding enriched with live valuation. Value fields are
// nil when the last price is unknown; the position is still listed, never
// silently dropped.
type HoldingView struct {
	Ticker      string   `json:"ticker"`
	Shares      float64  `json:"shares"`
	AvgCost     float64  `json:"avg_cost"`
	PriceKnown  bool     `json:"price_known"`
	LastPrice   *float64 `json:"last_price,omitempty"`
	MarketValue *float64 `json:"market_value,omitempty"`
	PnL         *float64 `json:"pnl,omitempty"`
	PnLPct      *float64 `json:"pnl_pct,omitempty"` // nil when avg_cost is 0 or price unknown
	Sector      string   `json:"sector"`
	Weight      float64  `json:"weight"` // fraction of total portfolio value
}

// SectorExposure is one row of the sector allocation breakdown.
// Weights over known sectors sum to 1.0; the "Unknown" row carries the
// remainder of total value and is excluded from that denominator.
type SectorExposure struct {
	Sector  string   `json:"sector"`
	Weight  float64  `json:"weight"`
	Tickers []string `json:"tickers"`
}

// PortfolioSummary is the derived portfolio state. It has no persistent
// identity and is recomputed from holdings and latest prices per request.
type PortfolioSummary struct {
	TotalValue       float64          `json:"total_value"`
	TotalPnL         float64          `json:"total_pnl"`
	PnLPct           *float64         `json:"pnl_pct,omitempty"`
	Holdings         []HoldingView    `json:"holdings"`
	SectorExposure   []SectorExposure `json:"sector_exposure"`
	LargestPositions []HoldingView    `json:"largest_positions"`
	HealthScore      float64          `json:"health_score"` // 0 to 10, neutral baseline 5
}

// Holds reports whether the portfolio carries an open position in ticker.
func (p *PortfolioSummary) Holds(ticker string) bool {
	for _, h := range p.Holdings {
		if h.Ticker == ticker && h.Shares > 0 {
			return true
		}
	}
	return false
}

// SectorWeight returns the known-sector exposure weight for sector, or 0.
func (p *PortfolioSummary) SectorWeight(sector string) float64 {
	for _, e := range p.SectorExposure {
		if e.Sector == sector {
			return e.Weight
		}
	}
	return 0
}
