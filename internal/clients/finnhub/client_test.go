package finnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/magma/internal/interfaces"
)

func TestGetBars_ReversesToMostRecentFirst(t *testing.T) {
	// Finnhub candles arrive oldest first in columnar form
	day := int64(86400)
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC).Unix()
	payload := candleResponse{
		Status: "ok",
		Time:   []int64{base, base + day, base + 2*day},
		Open:   []float64{100, 102, 104},
		High:   []float64{101, 103, 105},
		Low:    []float64{99, 101, 103},
		Close:  []float64{100.5, 102.5, 104.5},
		Volume: []float64{1000, 1100, 1200},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stock/candle" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("resolution") != "D" {
			t.Errorf("resolution = %q, want D", r.URL.Query().Get("resolution"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	bars, err := client.GetBars(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetBars returned error: %v", err)
	}

	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if bars[0].Close != 104.5 {
		t.Errorf("first bar close = %v, want 104.5 (most recent)", bars[0].Close)
	}
	if bars[2].Close != 100.5 {
		t.Errorf("last bar close = %v, want 100.5 (oldest)", bars[2].Close)
	}
	if bars[0].Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", bars[0].Ticker)
	}
}

func TestGetBars_NoDataStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(candleResponse{Status: "no_data"})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	if _, err := client.GetBars(context.Background(), "ZZZZ"); err == nil {
		t.Fatal("expected error for no_data status, got nil")
	}
}

func TestGetBars_RespectsLimit(t *testing.T) {
	day := int64(86400)
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC).Unix()
	payload := candleResponse{Status: "ok"}
	for i := int64(0); i < 10; i++ {
		payload.Time = append(payload.Time, base+i*day)
		payload.Open = append(payload.Open, 100)
		payload.High = append(payload.High, 101)
		payload.Low = append(payload.Low, 99)
		payload.Close = append(payload.Close, 100+float64(i))
		payload.Volume = append(payload.Volume, 1000)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	bars, err := client.GetBars(context.Background(), "AAPL", interfaces.WithLimit(4))
	if err != nil {
		t.Fatalf("GetBars returned error: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("expected 4 bars, got %d", len(bars))
	}
	if bars[0].Close != 109 {
		t.Errorf("first bar close = %v, want 109 (newest kept)", bars[0].Close)
	}
}

func TestGetFundamentals_MergesProfileAndMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/stock/profile2":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":                 "Apple Inc",
				"finnhubIndustry":      "Technology",
				"marketCapitalization": 3400000.0,
				"shareOutstanding":     15400.5,
			})
		case "/stock/metric":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"metric": map[string]interface{}{
					"peBasicExclExtraTTM": 29.4,
					"beta":                "1.21", // string-typed numbers happen
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	f, err := client.GetFundamentals(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetFundamentals returned error: %v", err)
	}

	if f.Name != "Apple Inc" {
		t.Errorf("name = %q, want Apple Inc", f.Name)
	}
	if f.Sector != "Technology" {
		t.Errorf("sector = %q, want Technology", f.Sector)
	}
	if f.MarketCap == nil || *f.MarketCap != 3400000.0 {
		t.Errorf("market cap = %v, want 3400000", f.MarketCap)
	}
	if f.TrailingPE == nil || *f.TrailingPE != 29.4 {
		t.Errorf("trailing pe = %v, want 29.4", f.TrailingPE)
	}
	if f.Beta == nil || *f.Beta != 1.21 {
		t.Errorf("beta = %v, want 1.21", f.Beta)
	}
	if f.ForwardPE != nil {
		t.Errorf("forward pe = %v, want nil when absent", *f.ForwardPE)
	}
}

func TestGetNews_FiltersAndLimits(t *testing.T) {
	items := []map[string]interface{}{
		{"datetime": 1756300000, "headline": "Apple ships new chip", "url": "https://example.com/1", "source": "Reuters"},
		{"datetime": 1756200000, "headline": "", "url": "https://example.com/2", "source": "AP"}, // dropped
		{"datetime": 1756100000, "headline": "Supplier update", "url": "https://example.com/3", "source": "Bloomberg"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company-news" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(items)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	news, err := client.GetNews(context.Background(), "AAPL", 10)
	if err != nil {
		t.Fatalf("GetNews returned error: %v", err)
	}
	if len(news) != 2 {
		t.Fatalf("expected 2 items after dropping empty headline, got %d", len(news))
	}
	if news[0].Title != "Apple ships new chip" {
		t.Errorf("title = %q", news[0].Title)
	}
	if news[0].Sentiment != nil {
		t.Error("finnhub news carries no sentiment, want nil")
	}
}

func TestAPIError_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"API limit reached"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GetBars(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.StatusCode)
	}
}
