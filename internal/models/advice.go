// Package models defines data structures for MAGMA
package models

import "time"

// Score holds the per-ticker risk and potential axes. Both are normalized
// across the batch scored together, so values are only comparable within
// one scoring run. Confidence reflects data completeness in [0, 1].
type Score struct {
	Ticker     string  `json:"ticker"`
	Risk       float64 `json:"risk"`
	Potential  float64 `json:"potential"`
	Confidence float64 `json:"confidence"`
}

// Action is the suggested portfolio action for a ticker
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ReasonTag is the structured dominant-factor tag behind a recommendation.
// The narration collaborator turns tags into prose; it never recomputes scores.
type ReasonTag string

const (
	ReasonStrongMomentum ReasonTag = "strong_momentum"
	ReasonValuationRisk  ReasonTag = "elevated_valuation_risk"
	ReasonHighVolatility ReasonTag = "high_volatility"
	ReasonFadingMomentum ReasonTag = "fading_momentum"
	ReasonPositiveNews   ReasonTag = "positive_news_sentiment"
	ReasonNegativeNews   ReasonTag = "negative_news_sentiment"
	ReasonStablePosition ReasonTag = "stable_position"
	ReasonLowConfidence  ReasonTag = "low_confidence_data"
)

// Recommendation is one ranked suggested action. Produced per request and
// consumed immediately by the presentation layer; never persisted.
type Recommendation struct {
	Ticker     string    `json:"ticker"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"`
	Tag        ReasonTag `json:"tag"`
	Reason     string    `json:"reason"`
	Narrative  string    `json:"narrative,omitempty"` // model prose, optional
	Rank       int       `json:"rank"`
}

// AdviceReport is the full response of a recommendation run. Scores and
// the portfolio summary are included so callers can see the inputs the
// ranking was derived from.
type AdviceReport struct {
	Recommendations []*Recommendation `json:"recommendations"`
	Scores          []*Score          `json:"scores"`
	Portfolio       *PortfolioSummary `json:"portfolio,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
