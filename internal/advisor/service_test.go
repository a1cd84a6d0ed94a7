package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
	"github.com/bobmcallan/magma/internal/portfolio"
	"github.com/bobmcallan/magma/internal/scoring"
)

// fakeSnapshots serves canned snapshots for whatever tickers are asked
type fakeSnapshots struct {
	byTicker map[string]*models.TickerSnapshot
	requests [][]string
}

func (f *fakeSnapshots) BuildSnapshots(ctx context.Context, tickers []string) ([]*models.TickerSnapshot, error) {
	f.requests = append(f.requests, tickers)
	var out []*models.TickerSnapshot
	seen := map[string]bool{}
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if seen[t] {
			continue
		}
		seen[t] = true
		if snap, ok := f.byTicker[t]; ok {
			out = append(out, snap)
		} else {
			out = append(out, &models.TickerSnapshot{
				Ticker:             t,
				PriceStatus:        models.AxisUnavailable,
				FundamentalsStatus: models.AxisUnavailable,
				NewsStatus:         models.AxisUnavailable,
			})
		}
	}
	return out, nil
}

func (f *fakeSnapshots) BuildSnapshot(ctx context.Context, ticker string) (*models.TickerSnapshot, error) {
	snaps, err := f.BuildSnapshots(ctx, []string{ticker})
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[0], nil
}

type fakeNarrator struct {
	err   error
	calls int
}

func (n *fakeNarrator) Narrate(ctx context.Context, rec *models.Recommendation, score *models.Score) (string, error) {
	n.calls++
	if n.err != nil {
		return "", n.err
	}
	return "narrative for " + rec.Ticker, nil
}

// trendSnapshot builds a scoreable snapshot with a drifting close series
func trendSnapshot(ticker string, start, step float64, n int) *models.TickerSnapshot {
	bars := make([]models.PriceBar, n)
	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars[i] = models.PriceBar{
			Ticker: ticker,
			Date:   base.AddDate(0, 0, -i),
			Close:  start + step*float64(n-1-i),
			Volume: 1000,
		}
	}
	return &models.TickerSnapshot{
		Ticker:             ticker,
		Bars:               bars,
		Price:              &models.PriceSummary{Last: bars[0].Close, Bars: n},
		PriceStatus:        models.AxisOK,
		FundamentalsStatus: models.AxisUnavailable,
		NewsStatus:         models.AxisUnavailable,
		BuiltAt:            time.Now(),
	}
}

func newTestService(snaps *fakeSnapshots, narrator interfaces.Narrator, universe []string) *Service {
	return NewService(
		nil,
		snaps,
		scoring.NewEngine(nil),
		portfolio.NewAggregator(nil),
		narrator,
		testPolicy(),
		universe,
	)
}

func TestGetRecommendations_EndToEnd(t *testing.T) {
	snaps := &fakeSnapshots{byTicker: map[string]*models.TickerSnapshot{
		"UPUP": trendSnapshot("UPUP", 100, 2.0, 30),
		"DOWN": trendSnapshot("DOWN", 100, -2.0, 30),
		"FLAT": trendSnapshot("FLAT", 100, 0.1, 30),
	}}
	svc := newTestService(snaps, nil, []string{"UPUP", "DOWN", "FLAT"})

	report, err := svc.GetRecommendations(context.Background(), nil, interfaces.AdviceOptions{})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Len(t, report.Scores, 3)
	require.NotNil(t, report.Portfolio)
	assert.Equal(t, 5.0, report.Portfolio.HealthScore)

	// The strongest uptrend normalizes to the top of the potential axis
	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, "UPUP", report.Recommendations[0].Ticker)
	assert.Equal(t, models.ActionBuy, report.Recommendations[0].Action)

	for _, rec := range report.Recommendations {
		assert.NotEqual(t, models.ActionHold, rec.Action, "nothing is held")
		assert.Empty(t, rec.Narrative, "narration off by default")
	}
}

func TestGetRecommendations_HeldTickersAlwaysSnapshotted(t *testing.T) {
	snaps := &fakeSnapshots{byTicker: map[string]*models.TickerSnapshot{
		"UPUP": trendSnapshot("UPUP", 100, 2.0, 30),
		"MINE": trendSnapshot("MINE", 100, 0.1, 30),
	}}
	svc := newTestService(snaps, nil, []string{"UPUP"})

	holdings := []models.Holding{{Ticker: "MINE", Shares: 10, AvgCost: 90}}
	report, err := svc.GetRecommendations(context.Background(), holdings, interfaces.AdviceOptions{})
	require.NoError(t, err)

	require.Len(t, snaps.requests, 1)
	assert.Contains(t, snaps.requests[0], "MINE", "held ticker must join the snapshot request")

	var mine *models.Recommendation
	for _, rec := range report.Recommendations {
		if rec.Ticker == "MINE" {
			mine = rec
		}
	}
	require.NotNil(t, mine, "held ticker must receive a verdict")
}

func TestGetRecommendations_NarrationAttachesAndDegrades(t *testing.T) {
	snaps := &fakeSnapshots{byTicker: map[string]*models.TickerSnapshot{
		"UPUP": trendSnapshot("UPUP", 100, 2.0, 30),
		"DOWN": trendSnapshot("DOWN", 100, -2.0, 30),
	}}

	narrator := &fakeNarrator{}
	svc := newTestService(snaps, narrator, []string{"UPUP", "DOWN"})

	report, err := svc.GetRecommendations(context.Background(), nil, interfaces.AdviceOptions{Narrate: true})
	require.NoError(t, err)
	for _, rec := range report.Recommendations {
		assert.Equal(t, "narrative for "+rec.Ticker, rec.Narrative)
	}

	// Narration failure leaves the structured reason intact
	failing := &fakeNarrator{err: errors.New("model offline")}
	svc = newTestService(snaps, failing, []string{"UPUP", "DOWN"})
	report, err = svc.GetRecommendations(context.Background(), nil, interfaces.AdviceOptions{Narrate: true})
	require.NoError(t, err)
	for _, rec := range report.Recommendations {
		assert.Empty(t, rec.Narrative)
		assert.NotEmpty(t, rec.Reason)
	}
}

func TestGetRecommendations_InvalidHoldingRejected(t *testing.T) {
	svc := newTestService(&fakeSnapshots{}, nil, []string{"AAPL"})

	_, err := svc.GetRecommendations(context.Background(), []models.Holding{
		{Ticker: "AAPL", Shares: -1, AvgCost: 100},
	}, interfaces.AdviceOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGetRecommendations_TopNOverride(t *testing.T) {
	snaps := &fakeSnapshots{byTicker: map[string]*models.TickerSnapshot{
		"AAA": trendSnapshot("AAA", 100, 2.0, 30),
		"BBB": trendSnapshot("BBB", 100, 1.5, 30),
		"CCC": trendSnapshot("CCC", 100, 1.0, 30),
		"DDD": trendSnapshot("DDD", 100, -2.0, 30),
	}}
	svc := newTestService(snaps, nil, []string{"AAA", "BBB", "CCC", "DDD"})

	report, err := svc.GetRecommendations(context.Background(), nil, interfaces.AdviceOptions{TopN: 1})
	require.NoError(t, err)
	assert.Len(t, report.Recommendations, 1)
}
