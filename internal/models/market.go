// Package models defines data structures for MAGMA
package models

import (
	"time"
)

// AxisStatus tags the outcome of one fetch axis (price, fundamentals, news)
// within a snapshot. A failed axis degrades to AxisUnavailable rather than
// failing the whole ticker.
type AxisStatus string

const (
	AxisOK          AxisStatus = "ok"
	AxisUnavailable AxisStatus = "unavailable"
)

// PriceBar represents a single day's price data
type PriceBar struct {
	Ticker   string    `json:"ticker,omitempty"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// PriceSummary condenses a daily bar series for scoring and display.
// Bars are sorted descending (most recent first).
type PriceSummary struct {
	Last      float64 `json:"last"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Return1W  float64 `json:"return_1w"`
	Return1M  float64 `json:"return_1m"`
	Bars      int     `json:"bars"`
}

// Fundamentals contains fundamental data for a stock. Every field sourced
// from a provider is optional; nil means the provider did not supply it.
type Fundamentals struct {
	Ticker     string    `json:"ticker"`
	Name       string    `json:"name,omitempty"`
	Sector     string    `json:"sector,omitempty"`
	MarketCap  *float64  `json:"market_cap,omitempty"`
	TrailingPE *float64  `json:"trailing_pe,omitempty"`
	ForwardPE  *float64  `json:"forward_pe,omitempty"`
	Beta       *float64  `json:"beta,omitempty"`
	Shares     *float64  `json:"shares_outstanding,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// NewsItem represents a news article. Sentiment is a provider-supplied
// polarity in [-1, 1]; nil is scored as neutral, never dropped.
type NewsItem struct {
	Ticker      string    `json:"ticker,omitempty"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   *float64  `json:"sentiment,omitempty"`
}

// TickerSnapshot is the point-in-time assembled data for one ticker.
// It is built fresh per request and never mutated after assembly.
type TickerSnapshot struct {
	Ticker       string        `json:"ticker"`
	Bars         []PriceBar    `json:"-"`
	Price        *PriceSummary `json:"price,omitempty"`
	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
	News         []NewsItem    `json:"news,omitempty"`

	PriceStatus        AxisStatus `json:"price_status"`
	FundamentalsStatus AxisStatus `json:"fundamentals_status"`
	NewsStatus         AxisStatus `json:"news_status"`

	BuiltAt time.Time `json:"built_at"`
}

// Scoreable reports whether the snapshot carries enough data to score.
// Price history is the minimum threshold; a ticker without it is excluded
// from the normalization population and flagged with confidence 0.
func (s *TickerSnapshot) Scoreable() bool {
	return s.PriceStatus == AxisOK && len(s.Bars) > 0
}

// Completeness returns the fraction of fetch axes present, in [0, 1].
// It drives score confidence: one of three axes gives 1/3, all three give 1.
func (s *TickerSnapshot) Completeness() float64 {
	present := 0
	if s.PriceStatus == AxisOK {
		present++
	}
	if s.FundamentalsStatus == AxisOK {
		present++
	}
	if s.NewsStatus == AxisOK {
		present++
	}
	return float64(present) / 3.0
}

// Sector returns the fundamentals sector or "Unknown" when absent.
func (s *TickerSnapshot) Sector() string {
	if s.Fundamentals != nil && s.Fundamentals.Sector != "" {
		return s.Fundamentals.Sector
	}
	return SectorUnknown
}

// SectorUnknown is the fallback bucket for holdings lacking sector metadata.
const SectorUnknown = "Unknown"
