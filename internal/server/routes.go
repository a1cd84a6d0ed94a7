package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

const newsCacheTTL = 10 * time.Minute

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Market Data
	mux.HandleFunc("/api/market/snapshot", s.handleMarketSnapshot)
	mux.HandleFunc("/api/prices/", s.handlePrices)
	mux.HandleFunc("/api/news", s.handleNews)

	// Portfolio
	mux.HandleFunc("/api/portfolio/view", s.handlePortfolioView)

	// Advice
	mux.HandleFunc("/api/recommendations", s.handleRecommendations)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleMarketSnapshot handles GET /api/market/snapshot?tickers=AAPL,MSFT.
// With no tickers parameter the configured universe is used.
func (s *Server) handleMarketSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tickers := splitTickersParam(r.URL.Query().Get("tickers"))

	ctx, cancel := s.requestContext(r)
	defer cancel()

	snapshots, err := s.app.SnapshotService.BuildSnapshots(ctx, tickers)
	if err != nil {
		s.writeServiceError(w, err, "Failed to build snapshots")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// handlePrices handles GET /api/prices/{ticker}?limit=N from local storage.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := strings.TrimPrefix(r.URL.Path, "/api/prices/")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" || strings.Contains(ticker, "/") {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}

	limit := parseIntParam(r.URL.Query().Get("limit"), 100)

	bars, err := s.app.Storage.PriceStore().LatestBars(r.Context(), ticker, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", ticker).Msg("Failed to read stored bars")
		WriteError(w, http.StatusInternalServerError, "Failed to read stored bars")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"bars":   bars,
		"count":  len(bars),
	})
}

// handleNews handles GET /api/news?limit=N with recent universe news.
// Results are cached so repeated requests do not refetch the providers.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := parseIntParam(r.URL.Query().Get("limit"), 20)

	items, ok := s.newsCache.get()
	if !ok {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		snapshots, err := s.app.SnapshotService.BuildSnapshots(ctx, nil)
		if err != nil {
			s.writeServiceError(w, err, "Failed to fetch news")
			return
		}

		items = collectNews(snapshots)
		s.newsCache.set(items)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"news":  items,
		"count": len(items),
	})
}

// portfolioViewRequest is the body for POST /api/portfolio/view.
type portfolioViewRequest struct {
	Holdings []models.Holding `json:"holdings"`
}

// handlePortfolioView handles POST /api/portfolio/view: price and summarize
// a set of holdings supplied by the caller.
func (s *Server) handlePortfolioView(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req portfolioViewRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	for _, h := range req.Holdings {
		if err := h.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	tickers := make([]string, 0, len(req.Holdings))
	for _, h := range req.Holdings {
		tickers = append(tickers, h.Ticker)
	}

	var snapshots []*models.TickerSnapshot
	if len(tickers) > 0 {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		var err error
		snapshots, err = s.app.SnapshotService.BuildSnapshots(ctx, tickers)
		if err != nil {
			s.writeServiceError(w, err, "Failed to price holdings")
			return
		}
	}

	summary, err := s.app.PortfolioService.Summarize(req.Holdings, snapshots)
	if err != nil {
		s.writeServiceError(w, err, "Failed to summarize portfolio")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// recommendationsRequest is the optional body for POST /api/recommendations.
type recommendationsRequest struct {
	Tickers  []string         `json:"tickers,omitempty"`
	Holdings []models.Holding `json:"holdings,omitempty"`
	TopN     int              `json:"top_n,omitempty"`
	Narrate  bool             `json:"narrate,omitempty"`
}

// handleRecommendations handles GET|POST /api/recommendations. GET scans the
// configured universe with no holdings; POST accepts candidate tickers,
// current holdings, and narration options in the body.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var req recommendationsRequest
	if r.Method == http.MethodPost {
		if !DecodeJSON(w, r, &req) {
			return
		}
	} else {
		req.Tickers = splitTickersParam(r.URL.Query().Get("tickers"))
		req.TopN = parseIntParam(r.URL.Query().Get("top_n"), 0)
		req.Narrate = r.URL.Query().Get("narrate") == "true"
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	report, err := s.app.AdvisorService.GetRecommendations(ctx, req.Holdings, interfaces.AdviceOptions{
		Tickers: req.Tickers,
		TopN:    req.TopN,
		Narrate: req.Narrate,
	})
	if err != nil {
		s.writeServiceError(w, err, "Failed to build recommendations")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// requestContext derives a request-scoped context bounded by the configured
// advisor request timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.app.Config.Advisor.GetRequestTimeout())
}

// writeServiceError maps service errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrDataUnavailable):
		s.logger.Error().Err(err).Msg(message)
		WriteError(w, http.StatusBadGateway, message)
	default:
		s.logger.Error().Err(err).Msg(message)
		WriteError(w, http.StatusInternalServerError, message)
	}
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// collectNews flattens snapshot news into one list, newest first, with the
// ticker stamped on each item.
func collectNews(snapshots []*models.TickerSnapshot) []models.NewsItem {
	var items []models.NewsItem
	for _, snap := range snapshots {
		for _, item := range snap.News {
			item.Ticker = snap.Ticker
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	return items
}

// newsCache holds the last fetched universe news for a short TTL.
type newsCache struct {
	mu        sync.Mutex
	items     []models.NewsItem
	fetchedAt time.Time
	ttl       time.Duration
}

func newNewsCache(ttl time.Duration) *newsCache {
	return &newsCache{ttl: ttl}
}

func (c *newsCache) get() ([]models.NewsItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fetchedAt.IsZero() || time.Since(c.fetchedAt) > c.ttl {
		return nil, false
	}
	return c.items, true
}

func (c *newsCache) set(items []models.NewsItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.fetchedAt = time.Now()
}
