package scoring

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

// Raw axis weights. The raw values only need to order tickers within a
// batch; min-max normalization erases the absolute scale afterwards.
const (
	riskVolatilityWeight = 0.60
	riskValuationWeight  = 0.25
	riskBetaWeight       = 0.15

	potentialMomentumWeight  = 0.50
	potentialValuationWeight = 0.25
	potentialSentimentWeight = 0.25

	// neutralComponent stands in for any component whose input is
	// missing, so absence never pushes a ticker toward either extreme
	neutralComponent = 0.5

	// midpoint is the normalized score for degenerate populations:
	// a single scoreable ticker, or a batch where every raw value ties
	midpoint = 0.5

	// valuationPECap is the trailing P/E treated as maximal valuation
	// extremity; betaCap likewise for beta
	valuationPECap = 60.0
	betaCap        = 2.0
)

// Engine implements the ScoringService contract.
type Engine struct {
	logger *common.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(logger *common.Logger) *Engine {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Engine{logger: logger}
}

// rawScore carries pre-normalization axis values for one ticker
type rawScore struct {
	ticker     string
	risk       float64
	potential  float64
	confidence float64
}

// ScoreBatch scores a set of snapshots together. Every input ticker gets
// exactly one Score. Snapshots without price history are excluded from
// the normalization population and returned with confidence 0.
func (e *Engine) ScoreBatch(snapshots []*models.TickerSnapshot) []*models.Score {
	if len(snapshots) == 0 {
		return nil
	}

	var scoreable []rawScore
	var excluded []string
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		if !snap.Scoreable() {
			excluded = append(excluded, snap.Ticker)
			continue
		}
		scoreable = append(scoreable, rawScore{
			ticker:     snap.Ticker,
			risk:       rawRisk(snap),
			potential:  rawPotential(snap),
			confidence: snap.Completeness(),
		})
	}

	if len(excluded) > 0 {
		e.logger.Debug().Strs("tickers", excluded).Msg("Excluded unscoreable tickers from normalization")
	}

	risks := normalize(axisValues(scoreable, func(r rawScore) float64 { return r.risk }))
	potentials := normalize(axisValues(scoreable, func(r rawScore) float64 { return r.potential }))

	scores := make([]*models.Score, 0, len(scoreable)+len(excluded))
	for i, raw := range scoreable {
		scores = append(scores, &models.Score{
			Ticker:     raw.ticker,
			Risk:       risks[i],
			Potential:  potentials[i],
			Confidence: raw.confidence,
		})
	}
	for _, ticker := range excluded {
		scores = append(scores, &models.Score{
			Ticker:     ticker,
			Risk:       0,
			Potential:  0,
			Confidence: 0,
		})
	}

	SortScores(scores)
	return scores
}

// rawRisk combines annualized volatility with valuation and beta
// extremity. Missing fundamentals contribute the neutral component.
func rawRisk(snap *models.TickerSnapshot) float64 {
	vol := clamp01(Volatility(DailyReturns(snap.Bars)))

	valuation := neutralComponent
	beta := neutralComponent
	if f := snap.Fundamentals; f != nil {
		if f.TrailingPE != nil && *f.TrailingPE > 0 {
			valuation = clamp01(*f.TrailingPE / valuationPECap)
		}
		if f.Beta != nil && *f.Beta > 0 {
			beta = clamp01(*f.Beta / betaCap)
		}
	}

	return riskVolatilityWeight*vol + riskValuationWeight*valuation + riskBetaWeight*beta
}

// rawPotential combines momentum, valuation discount, and average news
// sentiment. Discount is the inverse of valuation extremity; missing
// inputs contribute neutrally.
func rawPotential(snap *models.TickerSnapshot) float64 {
	momentum := Momentum(snap.Bars)

	discount := neutralComponent
	if f := snap.Fundamentals; f != nil && f.TrailingPE != nil && *f.TrailingPE > 0 {
		discount = 1 - clamp01(*f.TrailingPE/valuationPECap)
	}

	sentiment := AvgSentiment(snap.News)

	return potentialMomentumWeight*momentum + potentialValuationWeight*discount + potentialSentimentWeight*sentiment
}

func axisValues(raws []rawScore, pick func(rawScore) float64) []float64 {
	values := make([]float64, len(raws))
	for i, r := range raws {
		values[i] = pick(r)
	}
	return values
}

// normalize min-max scales values into [0, 1] relative to the batch.
// A population of one, or a batch where min equals max, collapses to
// the midpoint rather than dividing by zero.
func normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	normalized := make([]float64, len(values))
	if len(values) == 1 {
		normalized[0] = midpoint
		return normalized
	}

	min, errMin := stats.Min(values)
	max, errMax := stats.Max(values)
	if errMin != nil || errMax != nil || max == min {
		for i := range normalized {
			normalized[i] = midpoint
		}
		return normalized
	}

	for i, v := range values {
		normalized[i] = (v - min) / (max - min)
	}
	return normalized
}

// SortScores orders scores by descending potential, then ascending risk,
// then ticker ascending. The order is total, so batches with tied axes
// still produce deterministic output.
func SortScores(scores []*models.Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Potential != scores[j].Potential {
			return scores[i].Potential > scores[j].Potential
		}
		if scores[i].Risk != scores[j].Risk {
			return scores[i].Risk < scores[j].Risk
		}
		return scores[i].Ticker < scores[j].Ticker
	})
}

// Ensure Engine implements ScoringService
var _ interfaces.ScoringService = (*Engine)(nil)
