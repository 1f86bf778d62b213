package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"MarketConcierge/internal/model"
	"MarketConcierge/internal/platform/httpclient"
)

// RESTFetcher implements Fetcher against a generic bars endpoint.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *httpclient.Client
}

// NewRESTFetcher creates a fetcher for baseURL authenticated with apiKey.
func NewRESTFetcher(baseURL, apiKey string, client *httpclient.Client) *RESTFetcher {
	return &RESTFetcher{BaseURL: baseURL, APIKey: apiKey, Client: client}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of one daily bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type restBarsResponse struct {
	Name     string    `json:"name"`
	Currency string    `json:"currency"`
	Bars     []restBar `json:"bars"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) (*model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(symbol), days)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()

	var payload restBarsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.Bar, len(payload.Bars))
	for i, rb := range payload.Bars {
		t := time.Unix(rb.Timestamp, 0).UTC()
		bars[i] = model.Bar{
			Symbol: symbol,
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: int64(rb.Volume),
		}
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Name:      payload.Name,
		Currency:  payload.Currency,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}
