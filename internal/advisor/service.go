package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

// Service runs the recommendation pipeline: snapshot the candidate
// universe plus held tickers, score the batch, summarize the portfolio,
// and rank. All state is request-scoped.
type Service struct {
	snapshots  interfaces.SnapshotService
	scorer     interfaces.ScoringService
	aggregator interfaces.PortfolioService
	narrator   interfaces.Narrator
	policy     Policy
	universe   []string
	logger     *common.Logger
}

// NewService creates an advisor service. narrator may be nil; narration
// is then skipped regardless of request options.
func NewService(logger *common.Logger, snapshots interfaces.SnapshotService, scorer interfaces.ScoringService, aggregator interfaces.PortfolioService, narrator interfaces.Narrator, policy Policy, universe []string) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		snapshots:  snapshots,
		scorer:     scorer,
		aggregator: aggregator,
		narrator:   narrator,
		policy:     policy,
		universe:   universe,
		logger:     logger,
	}
}

// GetRecommendations runs the full pipeline for the given holdings.
func (s *Service) GetRecommendations(ctx context.Context, holdings []models.Holding, opts interfaces.AdviceOptions) (*models.AdviceReport, error) {
	for _, h := range holdings {
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}

	pool := opts.Tickers
	if len(pool) == 0 {
		pool = s.universe
	}

	// Held tickers are always snapshotted so they can get a verdict
	tickers := make([]string, 0, len(pool)+len(holdings))
	tickers = append(tickers, pool...)
	for _, h := range holdings {
		tickers = append(tickers, h.Ticker)
	}

	started := time.Now()
	snapshots, err := s.snapshots.BuildSnapshots(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshots: %w", err)
	}

	scores := s.scorer.ScoreBatch(snapshots)

	summary, err := s.aggregator.Summarize(holdings, snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize portfolio: %w", err)
	}

	byTicker := make(map[string]*models.TickerSnapshot, len(snapshots))
	for _, snap := range snapshots {
		byTicker[snap.Ticker] = snap
	}

	recs := Rank(scores, summary, byTicker, s.policy, opts.TopN)

	if opts.Narrate && s.narrator != nil {
		s.narrate(ctx, recs, scores)
	}

	s.logger.Info().
		Int("tickers", len(snapshots)).
		Int("recommendations", len(recs)).
		Dur("elapsed", time.Since(started)).
		Msg("Recommendation pipeline completed")

	return &models.AdviceReport{
		Recommendations: recs,
		Scores:          scores,
		Portfolio:       summary,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// narrate attaches model prose per recommendation. Narration failures
// degrade to the structured reason, never failing the request.
func (s *Service) narrate(ctx context.Context, recs []*models.Recommendation, scores []*models.Score) {
	byTicker := make(map[string]*models.Score, len(scores))
	for _, sc := range scores {
		byTicker[sc.Ticker] = sc
	}

	for _, rec := range recs {
		text, err := s.narrator.Narrate(ctx, rec, byTicker[rec.Ticker])
		if err != nil {
			s.logger.Warn().Str("ticker", rec.Ticker).Err(err).Msg("Narration failed, structured reason only")
			continue
		}
		rec.Narrative = text
	}
}

// Ensure Service implements AdvisorService
var _ interfaces.AdvisorService = (*Service)(nil)
