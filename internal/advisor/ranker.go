// Package advisor turns scores and portfolio state into ranked
// buy/sell/hold recommendations and orchestrates the full pipeline.
package advisor

import (
	"fmt"
	"sort"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/models"
	"github.com/bobmcallan/magma/internal/scoring"
)

// Policy holds the ranking thresholds. All values refer to normalized
// scores in [0, 1]; they are configuration, not constants.
type Policy struct {
	HighPotential        float64 // BUY floor on potential
	LowPotential         float64 // SELL trigger when held potential falls below
	RiskCeiling          float64 // BUY suppressed above this risk
	DistressRisk         float64 // SELL trigger on held risk
	ConcentrationCeiling float64 // BUY suppressed when the sector is already at this weight
	TopN                 int     // default recommendation cap
}

// PolicyFromConfig lifts the advisor config section into a Policy.
func PolicyFromConfig(cfg common.AdvisorConfig) Policy {
	return Policy{
		HighPotential:        cfg.HighPotential,
		LowPotential:         cfg.LowPotential,
		RiskCeiling:          cfg.RiskCeiling,
		DistressRisk:         cfg.DistressRisk,
		ConcentrationCeiling: cfg.ConcentrationCeiling,
		TopN:                 cfg.TopN,
	}
}

// sentimentSignal is the polarity magnitude treated as a meaningful
// news signal when picking the dominant reason
const sentimentSignal = 0.2

// Rank assigns actions and orders recommendations. It is pure: two calls
// with identical inputs produce identical output, including tie order.
//
// Unheld tickers with zero confidence are excluded; held tickers always
// receive a verdict, flagged low-confidence when their data is missing.
// HOLD is never emitted for a ticker the portfolio does not own.
func Rank(scores []*models.Score, portfolio *models.PortfolioSummary, snapshots map[string]*models.TickerSnapshot, policy Policy, topN int) []*models.Recommendation {
	if topN <= 0 {
		topN = policy.TopN
	}
	if topN <= 0 {
		topN = len(scores)
	}

	type candidate struct {
		rec       *models.Recommendation
		magnitude float64
	}
	var candidates []candidate

	for _, score := range scores {
		if score == nil {
			continue
		}
		held := portfolio != nil && portfolio.Holds(score.Ticker)
		snap := snapshots[score.Ticker]

		if score.Confidence == 0 && !held {
			continue
		}

		var rec *models.Recommendation
		var magnitude float64

		switch {
		case held && score.Confidence == 0:
			rec = &models.Recommendation{
				Ticker:     score.Ticker,
				Action:     models.ActionHold,
				Confidence: 0,
				Tag:        models.ReasonLowConfidence,
				Reason:     "insufficient data to act on this position",
			}
			magnitude = -1

		case held && (score.Risk >= policy.DistressRisk || score.Potential <= policy.LowPotential):
			tag, reason := sellReason(score, snap, policy)
			rec = &models.Recommendation{
				Ticker:     score.Ticker,
				Action:     models.ActionSell,
				Confidence: score.Confidence,
				Tag:        tag,
				Reason:     reason,
			}
			// Risk-avoidance urgency, confidence weighted
			magnitude = score.Confidence * score.Risk

		case held:
			rec = &models.Recommendation{
				Ticker:     score.Ticker,
				Action:     models.ActionHold,
				Confidence: score.Confidence,
				Tag:        models.ReasonStablePosition,
				Reason:     fmt.Sprintf("risk %.2f and potential %.2f inside policy bands", score.Risk, score.Potential),
			}
			magnitude = -1

		case score.Potential >= policy.HighPotential && score.Risk <= policy.RiskCeiling:
			if sectorOverConcentrated(score.Ticker, portfolio, snap, policy) {
				continue
			}
			tag, reason := buyReason(score, snap)
			rec = &models.Recommendation{
				Ticker:     score.Ticker,
				Action:     models.ActionBuy,
				Confidence: score.Confidence,
				Tag:        tag,
				Reason:     reason,
			}
			magnitude = score.Confidence * score.Potential

		default:
			// Unheld and mediocre: excluded, never HOLD
			continue
		}

		candidates = append(candidates, candidate{rec: rec, magnitude: magnitude})
	}

	// Confidence-weighted magnitude descending; HOLDs sink below actions;
	// ties break by ticker ascending
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].magnitude != candidates[j].magnitude {
			return candidates[i].magnitude > candidates[j].magnitude
		}
		return candidates[i].rec.Ticker < candidates[j].rec.Ticker
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	recs := make([]*models.Recommendation, len(candidates))
	for i, c := range candidates {
		c.rec.Rank = i + 1
		recs[i] = c.rec
	}
	return recs
}

// sectorOverConcentrated reports whether buying the ticker would add to
// a sector already at the concentration ceiling.
func sectorOverConcentrated(ticker string, portfolio *models.PortfolioSummary, snap *models.TickerSnapshot, policy Policy) bool {
	if portfolio == nil || policy.ConcentrationCeiling <= 0 {
		return false
	}
	sector := models.SectorUnknown
	if snap != nil {
		sector = snap.Sector()
	}
	if sector == models.SectorUnknown {
		return false
	}
	return portfolio.SectorWeight(sector) >= policy.ConcentrationCeiling
}

// buyReason picks the dominant positive factor behind a BUY.
func buyReason(score *models.Score, snap *models.TickerSnapshot) (models.ReasonTag, string) {
	var momentum, sentiment float64
	if snap != nil {
		momentum = scoring.Momentum(snap.Bars)
		sentiment = scoring.AvgSentiment(snap.News)
	}

	if sentiment >= sentimentSignal && sentiment > momentum {
		return models.ReasonPositiveNews, fmt.Sprintf("positive news sentiment %.2f with potential %.2f", sentiment, score.Potential)
	}
	return models.ReasonStrongMomentum, fmt.Sprintf("strong momentum, risk %.2f within ceiling", score.Risk)
}

// sellReason picks the dominant factor behind a SELL.
func sellReason(score *models.Score, snap *models.TickerSnapshot, policy Policy) (models.ReasonTag, string) {
	var sentiment float64
	var pe *float64
	if snap != nil {
		sentiment = scoring.AvgSentiment(snap.News)
		if snap.Fundamentals != nil {
			pe = snap.Fundamentals.TrailingPE
		}
	}

	if score.Risk >= policy.DistressRisk {
		if pe != nil && *pe > 40 {
			return models.ReasonValuationRisk, fmt.Sprintf("elevated valuation risk, risk score %.2f above distress threshold", score.Risk)
		}
		return models.ReasonHighVolatility, fmt.Sprintf("high volatility, risk score %.2f above distress threshold", score.Risk)
	}
	if sentiment <= -sentimentSignal {
		return models.ReasonNegativeNews, fmt.Sprintf("negative news sentiment %.2f with fading potential %.2f", sentiment, score.Potential)
	}
	return models.ReasonFadingMomentum, fmt.Sprintf("potential %.2f below low-potential threshold", score.Potential)
}
