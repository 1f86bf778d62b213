// Package worker runs the ingest and forecast jobs that keep the market
// tables fresh.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/advisor"
	"MarketConcierge/internal/collector"
	"MarketConcierge/internal/forecast"
	"MarketConcierge/internal/metrics"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/notifier"
	"MarketConcierge/internal/store"
	"MarketConcierge/internal/tickers"
)

// Job names a batch job.
type Job string

const (
	JobIngest   Job = "ingest"
	JobForecast Job = "forecast"
)

// ResultSuccess is the per-symbol detail of a job that succeeded.
const ResultSuccess = "Success"

// DefaultForecastDays is the forecast horizon in business days.
const DefaultForecastDays = 7

var (
	ErrNoHistory  = errors.New("no stored history")
	ErrUnknownJob = errors.New("unknown job")
)

// Store is the subset of the market store the jobs write to.
type Store interface {
	store.SeriesStore
	store.InsightStore
	store.ProfileStore
}

// Publisher receives every freshly generated insight.
type Publisher interface {
	Publish(insight model.Insight)
}

// Worker ingests prices and refreshes forecasts and insights.
type Worker struct {
	collector    *collector.Collector
	store        Store
	publisher    Publisher
	notifier     notifier.Notifier
	forecastDays int
	now          func() time.Time
}

// New creates a Worker. A nil notifier discards alerts.
func New(col *collector.Collector, st Store, pub Publisher, n notifier.Notifier, forecastDays int) *Worker {
	if n == nil {
		n = notifier.Noop{}
	}
	if forecastDays <= 0 {
		forecastDays = DefaultForecastDays
	}
	return &Worker{
		collector:    col,
		store:        st,
		publisher:    pub,
		notifier:     n,
		forecastDays: forecastDays,
		now:          time.Now,
	}
}

// Ingest fetches the daily history of symbol with indicators and upserts
// the bars together with the company profile.
func (w *Worker) Ingest(ctx context.Context, symbol string) error {
	log.Info().Str("job", string(JobIngest)).Str("symbol", symbol).Msg("fetching data")
	series, err := w.collector.Collect(ctx, symbol)
	if err != nil {
		return err
	}
	if err := w.store.UpsertBars(ctx, series.Bars); err != nil {
		return err
	}

	profile := model.CompanyProfile{Symbol: symbol, CompanyName: series.Name, Sector: tickers.Sector(symbol)}
	if profile.CompanyName != "" || profile.Sector != "" {
		if err := w.store.UpsertProfile(ctx, profile); err != nil {
			return err
		}
	}
	log.Info().Str("job", string(JobIngest)).Str("symbol", symbol).Int("bars", len(series.Bars)).Msg("bars upserted")
	return nil
}

// Forecast projects the stored close history forward and refreshes the
// advisor insight. A history too short to forecast is skipped, not failed.
func (w *Worker) Forecast(ctx context.Context, symbol string) error {
	log.Info().Str("job", string(JobForecast)).Str("symbol", symbol).Msg("forecasting")
	bars, err := w.store.FetchSeries(ctx, symbol, 0)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("%w for %s", ErrNoHistory, symbol)
	}
	closes := model.Closes(bars)

	points := forecast.Points(symbol, bars[len(bars)-1].Date, closes, w.forecastDays)
	if len(points) == 0 {
		log.Warn().Str("symbol", symbol).Int("bars", len(bars)).Msg("not enough data to forecast")
		return nil
	}
	if err := w.store.UpsertForecast(ctx, points); err != nil {
		return err
	}
	log.Info().Str("symbol", symbol).Int("points", len(points)).Msg("saved predictions")

	return w.refreshInsight(ctx, symbol, closes)
}

func (w *Worker) refreshInsight(ctx context.Context, symbol string, closes []float64) error {
	if len(closes) < advisor.MinHistory {
		log.Warn().Str("symbol", symbol).Int("closes", len(closes)).Msg("not enough history for an insight")
		return nil
	}
	prev, err := w.store.FetchInsight(ctx, symbol)
	hadPrev := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	insight := advisor.Generate(symbol, closes, w.now())
	if err := w.store.UpsertInsight(ctx, insight); err != nil {
		return err
	}
	if w.publisher != nil {
		w.publisher.Publish(insight)
	}

	if hadPrev && prev.Sentiment != insight.Sentiment {
		if err := w.notifier.Notify(ctx, notifier.FormatSentimentChange(prev, insight)); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("sentiment change notification failed")
		}
	}
	return nil
}

// Run executes job for one symbol and records its outcome.
func (w *Worker) Run(ctx context.Context, job Job, symbol string) error {
	var run func(context.Context, string) error
	switch job {
	case JobIngest:
		run = w.Ingest
	case JobForecast:
		run = w.Forecast
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}

	start := time.Now()
	err := run(ctx, symbol)
	metrics.JobDuration.WithLabelValues(string(job)).Observe(time.Since(start).Seconds())
	metrics.JobRuns.WithLabelValues(string(job), metrics.StatusOf(err)).Inc()
	if err != nil {
		log.Error().Err(err).Str("job", string(job)).Str("symbol", symbol).Msg("job failed")
	}
	return err
}

// RunAll runs job over symbols one at a time. The result maps every
// symbol to ResultSuccess or the error text; one failure does not stop
// the rest. Symbols not reached before ctx is cancelled get ctx's error.
func (w *Worker) RunAll(ctx context.Context, job Job, symbols []string) (map[string]string, error) {
	switch job {
	case JobIngest, JobForecast:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
	details := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if err := ctx.Err(); err != nil {
			details[s] = err.Error()
			continue
		}
		if err := w.Run(ctx, job, s); err != nil {
			details[s] = err.Error()
			continue
		}
		details[s] = ResultSuccess
	}
	return details, nil
}
