// Package twelvedata provides a client for the Twelve Data API.
// It is the fallback provider; everything arrives as strings.
package twelvedata

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

const (
	DefaultBaseURL    = "https://api.twelvedata.com"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 8 // requests per minute on the free tier is lower; callers tune via config
	defaultOutputSize = 100
)

// Client implements the MarketDataClient interface against Twelve Data
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

// NewClient creates a new Twelve Data client
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
	return "twelvedata"
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Twelve Data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Twelve Data API request")

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

// timeSeriesResponse is the /time_series payload. Twelve Data signals
// errors in-band with a status field and a 200 response.
type timeSeriesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// GetBars retrieves daily price bars, most recent first
func (c *Client) GetBars(ctx context.Context, ticker string, opts ...interfaces.BarOption) ([]models.PriceBar, error) {
	params := &interfaces.BarParams{}
	for _, opt := range opts {
		opt(params)
	}

	size := defaultOutputSize
	if params.Limit > 0 {
		size = params.Limit
	}

	urlParams := url.Values{}
	urlParams.Set("symbol", ticker)
	urlParams.Set("interval", "1day")
	urlParams.Set("outputsize", strconv.Itoa(size))
	if !params.From.IsZero() {
		urlParams.Set("start_date", params.From.Format("2006-01-02"))
	}
	if !params.To.IsZero() {
		urlParams.Set("end_date", params.To.Format("2006-01-02"))
	}

	var resp timeSeriesResponse
	if err := c.get(ctx, "/time_series", urlParams, &resp); err != nil {
		return nil, err
	}

	if resp.Status == "error" {
		return nil, fmt.Errorf("%w: time_series for %s: %s", models.ErrDataUnavailable, ticker, resp.Message)
	}

	bars := make([]models.PriceBar, 0, len(resp.Values))
	for _, row := range resp.Values {
		date, err := time.Parse("2006-01-02", row.Datetime)
		if err != nil {
			continue
		}
		closePx := parseFloat(row.Close)
		bars = append(bars, models.PriceBar{
			Ticker:   ticker,
			Date:     date,
			Open:     parseFloat(row.Open),
			High:     parseFloat(row.High),
			Low:      parseFloat(row.Low),
			Close:    closePx,
			AdjClose: closePx,
			Volume:   int64(parseFloat(row.Volume)),
		})
	}

	// Values already arrive most recent first
	return bars, nil
}

// quoteResponse is the /quote payload
type quoteResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Name      string `json:"name"`
	MarketCap string `json:"market_cap"`
}

// GetFundamentals retrieves the thin fundamentals the quote endpoint
// offers: name and market cap. Sector and valuation ratios come back
// empty; the snapshot builder treats the axis as present regardless.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	params := url.Values{}
	params.Set("symbol", ticker)

	var resp quoteResponse
	if err := c.get(ctx, "/quote", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status == "error" {
		return nil, fmt.Errorf("%w: quote for %s: %s", models.ErrDataUnavailable, ticker, resp.Message)
	}

	f := &models.Fundamentals{
		Ticker:    ticker,
		Name:      resp.Name,
		FetchedAt: time.Now().UTC(),
	}
	if v := parseFloat(resp.MarketCap); v > 0 {
		f.MarketCap = &v
	}

	return f, nil
}

// GetNews is not offered on the Twelve Data plan this client targets
func (c *Client) GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	return nil, fmt.Errorf("%w: twelvedata has no news endpoint", models.ErrDataUnavailable)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
