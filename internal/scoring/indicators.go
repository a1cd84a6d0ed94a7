// Package scoring computes relative risk and potential scores for ticker
// snapshots. Scores are normalized across the batch scored together and
// carry no meaning outside that batch.
package scoring

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/bobmcallan/magma/internal/models"
)

// tradingDaysPerYear annualizes daily volatility
const tradingDaysPerYear = 252

// DailyReturns computes day-over-day simple returns from bars sorted
// most recent first. Bars with a zero prior close are skipped.
func DailyReturns(bars []models.PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(bars)-1)
	for i := 0; i < len(bars)-1; i++ {
		prev := bars[i+1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, bars[i].Close/prev-1)
	}
	return returns
}

// Volatility is the annualized standard deviation of daily returns.
// Fewer than two returns yield 0.
func Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0
	}
	return stdev * math.Sqrt(tradingDaysPerYear)
}

// PeriodReturn is the simple return over the most recent n bars, from
// the oldest close in the window to the newest. Shorter histories use
// whatever is available; fewer than two bars yield 0.
func PeriodReturn(bars []models.PriceBar, n int) float64 {
	if len(bars) < 2 {
		return 0
	}
	if n > len(bars) {
		n = len(bars)
	}
	oldest := bars[n-1].Close
	if oldest == 0 {
		return 0
	}
	return bars[0].Close/oldest - 1
}

// Momentum blends the one-week and one-month return trends. Positive
// values mean recent upward drift.
func Momentum(bars []models.PriceBar) float64 {
	return 0.5*PeriodReturn(bars, 5) + 0.5*PeriodReturn(bars, 21)
}

// AvgSentiment averages provider news polarity over the snapshot's news
// items. Items without sentiment count as 0 rather than being dropped,
// so a ticker with no rated news is neither penalized nor rewarded.
func AvgSentiment(news []models.NewsItem) float64 {
	if len(news) == 0 {
		return 0
	}
	sum := 0.0
	for _, item := range news {
		if item.Sentiment != nil {
			sum += *item.Sentiment
		}
	}
	return sum / float64(len(news))
}

// BuildPriceSummary condenses a bar series for display and diagnostics.
// Bars must be sorted most recent first.
func BuildPriceSummary(bars []models.PriceBar) *models.PriceSummary {
	if len(bars) == 0 {
		return nil
	}

	s := &models.PriceSummary{
		Last: bars[0].Close,
		Bars: len(bars),
	}
	if len(bars) > 1 && bars[1].Close != 0 {
		s.Change = bars[0].Close - bars[1].Close
		s.ChangePct = s.Change / bars[1].Close * 100
	}
	s.Return1W = PeriodReturn(bars, 5)
	s.Return1M = PeriodReturn(bars, 21)

	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
