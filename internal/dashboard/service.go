package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"MarketConcierge/internal/calculator"
	"MarketConcierge/internal/metrics"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/sentiment"
	"MarketConcierge/internal/store"
)

var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrNoPrice       = errors.New("no price available")
)

// Defaults used when Options leave a field zero.
const (
	DefaultWindow  = 90
	DefaultLotSize = 100
)

// Options configures a Service.
type Options struct {
	Window  int
	LotSize int64
}

// Service is the read/write surface behind the dashboard pages.
type Service struct {
	market   store.MarketStore
	broker   store.Broker
	accounts store.AccountStore
	window   int
	lotSize  int64
}

// New creates a Service.
func New(market store.MarketStore, broker store.Broker, accounts store.AccountStore, opts Options) *Service {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.LotSize <= 0 {
		opts.LotSize = DefaultLotSize
	}
	return &Service{
		market:   market,
		broker:   broker,
		accounts: accounts,
		window:   opts.Window,
		lotSize:  opts.LotSize,
	}
}

// LotSize is the number of shares per lot.
func (s *Service) LotSize() int64 { return s.lotSize }

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Chart returns the trailing window of bars followed, when forecasts
// exist, by one bridging row and the forecast rows. Only forecasts dated
// after the last bar are kept. No history gives an empty sequence.
func (s *Service) Chart(ctx context.Context, symbol string) ([]model.MarketSample, error) {
	bars, err := s.market.FetchSeries(ctx, symbol, s.window)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return []model.MarketSample{}, nil
	}
	points, err := s.market.FetchForecast(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return Merge(bars, points), nil
}

// Merge builds the chart sequence from ascending bars and forecasts.
func Merge(bars []model.Bar, points []model.ForecastPoint) []model.MarketSample {
	samples := make([]model.MarketSample, 0, len(bars)+len(points)+1)
	for _, b := range bars {
		samples = append(samples, model.SampleFromBar(b))
	}
	if len(bars) == 0 {
		return samples
	}

	last := bars[len(bars)-1]
	var future []model.ForecastPoint
	for _, p := range points {
		if p.Date.After(last.Date) {
			future = append(future, p)
		}
	}
	if len(future) == 0 {
		return samples
	}

	samples = append(samples, model.MarketSample{Date: last.Date, Predicted: null.FloatFrom(last.Close)})
	for _, p := range future {
		samples = append(samples, model.MarketSample{Date: p.Date, Predicted: null.FloatFrom(p.Price)})
	}
	return samples
}

// SentimentView is the gauge payload.
type SentimentView struct {
	Symbol    string               `json:"symbol"`
	Score     int                  `json:"score"`
	Label     model.SentimentLabel `json:"label"`
	Available bool                 `json:"available"`
	Tone      sentiment.Tone       `json:"tone"`
	Gauge     float64              `json:"gauge"`
}

// Sentiment scores the chart sequence. Without a qualifying sample it
// returns the neutral default with Available false.
func (s *Service) Sentiment(ctx context.Context, symbol string) (SentimentView, error) {
	samples, err := s.Chart(ctx, symbol)
	if err != nil {
		return SentimentView{}, err
	}
	res, ok := sentiment.Score(samples)
	if !ok {
		res = sentiment.Neutral()
		metrics.SentimentEvaluations.WithLabelValues("unavailable").Inc()
	} else {
		metrics.SentimentEvaluations.WithLabelValues(string(res.Label)).Inc()
	}
	return SentimentView{
		Symbol:    symbol,
		Score:     res.Score,
		Label:     res.Label,
		Available: ok,
		Tone:      sentiment.ToneOf(res.Label),
		Gauge:     sentiment.GaugeFill(res.Score),
	}, nil
}

// Quote is the header strip for one symbol.
type Quote struct {
	Symbol      string    `json:"symbol"`
	CompanyName string    `json:"company_name"`
	Sector      string    `json:"sector"`
	Price       float64   `json:"price"`
	Change      float64   `json:"change"`
	ChangePct   float64   `json:"change_percentage"`
	High52w     float64   `json:"high_52w"`
	Low52w      float64   `json:"low_52w"`
	Position52w float64   `json:"position_52w"`
	Volume      int64     `json:"volume"`
	AsOf        time.Time `json:"as_of"`
}

// Quote returns the latest price, the session change from open to close
// and the 52-week range.
func (s *Service) Quote(ctx context.Context, symbol string) (Quote, error) {
	bars, err := s.market.FetchSeries(ctx, symbol, calculator.TradingDaysPerYear)
	if err != nil {
		return Quote{}, err
	}
	if len(bars) == 0 {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	last := bars[len(bars)-1]
	q := Quote{Symbol: symbol, Price: last.Close, Volume: last.Volume, AsOf: last.Date}

	q.Change, q.ChangePct, _ = calculator.DailyChange(last.Open, last.Close)

	if high, low, err := calculator.TrailingRange(bars, calculator.TradingDaysPerYear); err == nil {
		q.High52w, q.Low52w = high, low
		q.Position52w, _ = calculator.RangePosition(last.Close, high, low)
	}

	if p, err := s.market.FetchProfile(ctx, symbol); err == nil {
		q.CompanyName, q.Sector = p.CompanyName, p.Sector
	} else if !errors.Is(err, store.ErrNotFound) {
		return Quote{}, err
	}
	return q, nil
}

// Insight returns the stored advisor insight for symbol.
func (s *Service) Insight(ctx context.Context, symbol string) (model.Insight, error) {
	return s.market.FetchInsight(ctx, symbol)
}

// Profile returns the company profile for symbol.
func (s *Service) Profile(ctx context.Context, symbol string) (model.CompanyProfile, error) {
	return s.market.FetchProfile(ctx, symbol)
}
