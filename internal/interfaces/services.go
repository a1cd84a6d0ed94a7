// Package interfaces defines service contracts for MAGMA
package interfaces

import (
	"context"

	"github.com/bobmcallan/magma/internal/models"
)

// SnapshotService assembles per-ticker market snapshots
type SnapshotService interface {
	// BuildSnapshots fetches price, fundamentals, and news for the given
	// tickers concurrently. An empty ticker set means the configured
	// universe. Axes that fail are marked unavailable, never fatal.
	BuildSnapshots(ctx context.Context, tickers []string) ([]*models.TickerSnapshot, error)

	// BuildSnapshot assembles a single ticker snapshot
	BuildSnapshot(ctx context.Context, ticker string) (*models.TickerSnapshot, error)
}

// ScoringService computes risk and potential scores
type ScoringService interface {
	// ScoreBatch scores a set of snapshots together. Normalization is
	// relative to the batch, so scores are only comparable within one call.
	ScoreBatch(snapshots []*models.TickerSnapshot) []*models.Score
}

// PortfolioService aggregates holdings into a portfolio view
type PortfolioService interface {
	// Summarize computes market values, sector exposure, and a health
	// score for the given holdings using the supplied snapshots.
	Summarize(holdings []models.Holding, snapshots []*models.TickerSnapshot) (*models.PortfolioSummary, error)
}

// AdvisorService produces ranked recommendations
type AdvisorService interface {
	// GetRecommendations runs the full pipeline: snapshot the universe
	// plus held tickers, score, summarize, and rank.
	GetRecommendations(ctx context.Context, holdings []models.Holding, opts AdviceOptions) (*models.AdviceReport, error)
}

// AdviceOptions configures recommendation generation
type AdviceOptions struct {
	Tickers []string // Candidate pool override; empty means configured universe
	TopN    int      // Max recommendations; 0 means the configured default
	Narrate bool     // Generate prose narratives via the narrator
}
