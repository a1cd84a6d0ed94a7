// Package finnhub provides a client for the Finnhub API
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/magma/internal/common"
	"github.com/bobmcallan/magma/internal/interfaces"
	"github.com/bobmcallan/magma/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second

	// defaultLookbackDays covers roughly 100 trading days of daily bars
	defaultLookbackDays = 120
)

// Client implements the MarketDataClient interface against Finnhub
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider
func (c *Client) Name() string {
	return "finnhub"
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Finnhub API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// candleResponse is the columnar /stock/candle payload. Status "no_data"
// means the range held no trading days.
type candleResponse struct {
	Status string    `json:"s"`
	Time   []int64   `json:"t"`
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
}

// GetBars retrieves daily price bars, most recent first
func (c *Client) GetBars(ctx context.Context, ticker string, opts ...interfaces.BarOption) ([]models.PriceBar, error) {
	params := &interfaces.BarParams{}
	for _, opt := range opts {
		opt(params)
	}

	to := params.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	from := params.From
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultLookbackDays)
	}

	urlParams := url.Values{}
	urlParams.Set("symbol", ticker)
	urlParams.Set("resolution", "D")
	urlParams.Set("from", strconv.FormatInt(from.Unix(), 10))
	urlParams.Set("to", strconv.FormatInt(to.Unix(), 10))

	var resp candleResponse
	if err := c.get(ctx, "/stock/candle", urlParams, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "ok" {
		return nil, fmt.Errorf("%w: candle status %q for %s", models.ErrDataUnavailable, resp.Status, ticker)
	}

	n := len(resp.Time)
	for _, col := range [][]float64{resp.Open, resp.High, resp.Low, resp.Close, resp.Volume} {
		if len(col) < n {
			n = len(col)
		}
	}

	bars := make([]models.PriceBar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, models.PriceBar{
			Ticker:   ticker,
			Date:     time.Unix(resp.Time[i], 0).UTC().Truncate(24 * time.Hour),
			Open:     resp.Open[i],
			High:     resp.High[i],
			Low:      resp.Low[i],
			Close:    resp.Close[i],
			AdjClose: resp.Close[i],
			Volume:   int64(resp.Volume[i]),
		})
	}

	// Candles arrive oldest first; callers expect most recent first
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	if params.Limit > 0 && len(bars) > params.Limit {
		bars = bars[:params.Limit]
	}

	return bars, nil
}

// profileResponse is the /stock/profile2 payload
type profileResponse struct {
	Name                 string      `json:"name"`
	FinnhubIndustry      string      `json:"finnhubIndustry"`
	MarketCapitalization flexFloat64 `json:"marketCapitalization"`
	ShareOutstanding     flexFloat64 `json:"shareOutstanding"`
}

// metricResponse is the /stock/metric payload with metric=all
type metricResponse struct {
	Metric struct {
		PETTM        flexFloat64 `json:"peBasicExclExtraTTM"`
		PEForward    flexFloat64 `json:"peBasicExclExtraAnnual"`
		Beta         flexFloat64 `json:"beta"`
		MarketCap    flexFloat64 `json:"marketCapitalization"`
		FiftyTwoHigh flexFloat64 `json:"52WeekHigh"`
		FiftyTwoLow  flexFloat64 `json:"52WeekLow"`
	} `json:"metric"`
}

// GetFundamentals retrieves company profile and valuation metrics.
// Profile and metric endpoints are fetched together; either alone is
// enough for a usable result, both failing is a fetch failure.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	params := url.Values{}
	params.Set("symbol", ticker)

	var profile profileResponse
	profileErr := c.get(ctx, "/stock/profile2", params, &profile)

	metricParams := url.Values{}
	metricParams.Set("symbol", ticker)
	metricParams.Set("metric", "all")

	var metrics metricResponse
	metricErr := c.get(ctx, "/stock/metric", metricParams, &metrics)

	if profileErr != nil && metricErr != nil {
		return nil, fmt.Errorf("%w: profile and metric both failed for %s: %v", models.ErrDataUnavailable, ticker, profileErr)
	}

	f := &models.Fundamentals{
		Ticker:    ticker,
		Name:      profile.Name,
		Sector:    profile.FinnhubIndustry,
		FetchedAt: time.Now().UTC(),
	}

	if v := float64(profile.MarketCapitalization); v > 0 {
		f.MarketCap = &v
	} else if v := float64(metrics.Metric.MarketCap); v > 0 {
		f.MarketCap = &v
	}
	if v := float64(metrics.Metric.PETTM); v != 0 {
		f.TrailingPE = &v
	}
	if v := float64(metrics.Metric.PEForward); v != 0 {
		f.ForwardPE = &v
	}
	if v := float64(metrics.Metric.Beta); v != 0 {
		f.Beta = &v
	}
	if v := float64(profile.ShareOutstanding); v > 0 {
		f.Shares = &v
	}

	return f, nil
}

// newsResponse is one /company-news entry
type newsResponse struct {
	Datetime int64  `json:"datetime"` // unix seconds
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Related  string `json:"related"`
}

// GetNews retrieves recent company news for a ticker
func (c *Client) GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -14)

	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))

	var items []newsResponse
	if err := c.get(ctx, "/company-news", params, &items); err != nil {
		return nil, err
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	news := make([]*models.NewsItem, 0, len(items))
	for _, item := range items {
		if item.Headline == "" || item.URL == "" {
			continue
		}
		news = append(news, &models.NewsItem{
			Ticker:      ticker,
			Title:       item.Headline,
			URL:         item.URL,
			Source:      item.Source,
			PublishedAt: time.Unix(item.Datetime, 0).UTC(),
		})
	}

	return news, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
