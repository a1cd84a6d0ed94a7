// Package portfolio aggregates holdings into a portfolio-level view:
// valuations, sector exposure, and a bounded health score. The whole
// computation is pure and request-scoped; nothing here persists.
package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

const (
	// largestPositionsCount caps the top-positions list
	largestPositionsCount = 3

	// Health score composition. The score is 10 times a weighted blend
	// of diversification, aggregate PnL, and data confidence, so an
	// empty portfolio lands exactly on the neutral baseline of 5.
	healthDiversificationWeight = 0.4
	healthPnLWeight             = 0.3
	healthConfidenceWeight      = 0.3

	healthScale    = 10.0
	healthBaseline = 5.0

	// pnlClampPct bounds the PnL contribution: gains or losses beyond
	// 50 percent of cost basis saturate the component
	pnlClampPct = 0.5
)

// Aggregator implements the PortfolioService contract.
type Aggregator struct {
	logger *common.Logger
}

// NewAggregator creates a portfolio aggregator.
func NewAggregator(logger *common.Logger) *Aggregator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Aggregator{logger: logger}
}

// Summarize computes the portfolio summary from holdings and the ticker
// snapshots supplying last prices and sector metadata. Holdings whose
// price is unknown are still listed, contributing zero to totals.
func (a *Aggregator) Summarize(holdings []models.Holding, snapshots []*models.TickerSnapshot) (*models.PortfolioSummary, error) {
	for _, h := range holdings {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}

	if len(holdings) == 0 {
		return &models.PortfolioSummary{
			Holdings:         []models.HoldingView{},
			SectorExposure:   []models.SectorExposure{},
			LargestPositions: []models.HoldingView{},
			HealthScore:      healthBaseline,
		}, nil
	}

	byTicker := make(map[string]*models.TickerSnapshot, len(snapshots))
	for _, snap := range snapshots {
		if snap != nil {
			byTicker[snap.Ticker] = snap
		}
	}

	summary := &models.PortfolioSummary{
		Holdings: make([]models.HoldingView, 0, len(holdings)),
	}

	var totalCost float64
	var confidences []float64

	for _, h := range holdings {
		ticker := strings.ToUpper(strings.TrimSpace(h.Ticker))
		view := models.HoldingView{
			Ticker:  ticker,
			Shares:  h.Shares,
			AvgCost: h.AvgCost,
			Sector:  models.SectorUnknown,
		}

		snap := byTicker[ticker]
		if snap != nil {
			view.Sector = snap.Sector()
		}

		if last, ok := lastPrice(snap); ok {
			view.PriceKnown = true
			view.LastPrice = &last

			value := h.Shares * last
			view.MarketValue = &value
			summary.TotalValue += value

			pnl := (last - h.AvgCost) * h.Shares
			view.PnL = &pnl
			summary.TotalPnL += pnl

			// avg_cost of zero leaves pnl_pct undefined, never infinite
			if h.AvgCost > 0 && h.Shares > 0 {
				pct := pnl / (h.AvgCost * h.Shares)
				view.PnLPct = &pct
				totalCost += h.AvgCost * h.Shares
			}

			confidences = append(confidences, snap.Completeness())
		} else {
			a.logger.Debug().Str("ticker", ticker).Msg("No last price for holding, listed unvalued")
		}

		summary.Holdings = append(summary.Holdings, view)
	}

	if totalCost > 0 {
		pct := summary.TotalPnL / totalCost
		summary.PnLPct = &pct
	}

	// Position weights need the final total
	if summary.TotalValue > 0 {
		for i := range summary.Holdings {
			if summary.Holdings[i].MarketValue != nil {
				summary.Holdings[i].Weight = *summary.Holdings[i].MarketValue / summary.TotalValue
			}
		}
	}

	summary.SectorExposure = sectorExposure(summary.Holdings, summary.TotalValue)
	summary.LargestPositions = largestPositions(summary.Holdings)
	summary.HealthScore = healthScore(summary, confidences)

	return summary, nil
}

// lastPrice extracts the latest close from a snapshot, if any.
func lastPrice(snap *models.TickerSnapshot) (float64, bool) {
	if snap == nil || snap.PriceStatus != models.AxisOK {
		return 0, false
	}
	if snap.Price != nil && snap.Price.Last > 0 {
		return snap.Price.Last, true
	}
	if len(snap.Bars) > 0 && snap.Bars[0].Close > 0 {
		return snap.Bars[0].Close, true
	}
	return 0, false
}

// sectorExposure groups valued holdings by sector. Known-sector weights
// are renormalized over the known-sector total so they sum to 1; the
// "Unknown" row is excluded from that denominator and carries its share
// of the full total instead, so real exposure is never understated.
func sectorExposure(views []models.HoldingView, totalValue float64) []models.SectorExposure {
	type bucket struct {
		value   float64
		tickers []string
	}
	buckets := make(map[string]*bucket)

	var knownTotal float64
	for _, v := range views {
		if v.MarketValue == nil {
			continue
		}
		b := buckets[v.Sector]
		if b == nil {
			b = &bucket{}
			buckets[v.Sector] = b
		}
		b.value += *v.MarketValue
		b.tickers = append(b.tickers, v.Ticker)
		if v.Sector != models.SectorUnknown {
			knownTotal += *v.MarketValue
		}
	}

	exposure := make([]models.SectorExposure, 0, len(buckets))
	for sector, b := range buckets {
		var weight float64
		if sector == models.SectorUnknown {
			if totalValue > 0 {
				weight = b.value / totalValue
			}
		} else if knownTotal > 0 {
			weight = b.value / knownTotal
		}
		sort.Strings(b.tickers)
		exposure = append(exposure, models.SectorExposure{
			Sector:  sector,
			Weight:  weight,
			Tickers: b.tickers,
		})
	}

	// Weight descending, Unknown always last, ties by sector name
	sort.Slice(exposure, func(i, j int) bool {
		if (exposure[i].Sector == models.SectorUnknown) != (exposure[j].Sector == models.SectorUnknown) {
			return exposure[j].Sector == models.SectorUnknown
		}
		if exposure[i].Weight != exposure[j].Weight {
			return exposure[i].Weight > exposure[j].Weight
		}
		return exposure[i].Sector < exposure[j].Sector
	})

	return exposure
}

// largestPositions returns the top valued holdings by weight.
func largestPositions(views []models.HoldingView) []models.HoldingView {
	valued := make([]models.HoldingView, 0, len(views))
	for _, v := range views {
		if v.MarketValue != nil {
			valued = append(valued, v)
		}
	}

	sort.Slice(valued, func(i, j int) bool {
		if valued[i].Weight != valued[j].Weight {
			return valued[i].Weight > valued[j].Weight
		}
		return valued[i].Ticker < valued[j].Ticker
	})

	if len(valued) > largestPositionsCount {
		valued = valued[:largestPositionsCount]
	}
	return valued
}

// healthScore blends diversification, aggregate PnL, and data confidence
// into a deterministic 0 to 10 scalar.
func healthScore(summary *models.PortfolioSummary, confidences []float64) float64 {
	if summary.TotalValue <= 0 {
		return healthBaseline
	}

	var maxPosition float64
	for _, v := range summary.Holdings {
		if v.Weight > maxPosition {
			maxPosition = v.Weight
		}
	}
	var maxSector float64
	for _, e := range summary.SectorExposure {
		if e.Sector != models.SectorUnknown && e.Weight > maxSector {
			maxSector = e.Weight
		}
	}
	diversification := 1 - 0.5*(maxPosition+maxSector)
	if diversification < 0 {
		diversification = 0
	}

	pnlComponent := 0.5
	if summary.PnLPct != nil {
		pct := *summary.PnLPct
		if pct > pnlClampPct {
			pct = pnlClampPct
		}
		if pct < -pnlClampPct {
			pct = -pnlClampPct
		}
		pnlComponent = 0.5 + pct
	}

	confidence := 0.0
	if len(confidences) > 0 {
		mean, err := stats.Mean(confidences)
		if err == nil {
			confidence = mean
		}
	}

	score := healthScale * (healthDiversificationWeight*diversification +
		healthPnLWeight*pnlComponent +
		healthConfidenceWeight*confidence)

	if score < 0 {
		score = 0
	}
	if score > healthScale {
		score = healthScale
	}
	return score
}

// Describe returns a compact one-line description for logs.
func Describe(summary *models.PortfolioSummary) string {
	return fmt.Sprintf("value=%.2f pnl=%.2f health=%.1f holdings=%d",
		summary.TotalValue, summary.TotalPnL, summary.HealthScore, len(summary.Holdings))
}

// Ensure Aggregator implements PortfolioService
var _ interfaces.PortfolioService = (*Aggregator)(nil)
