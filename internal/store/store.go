package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"MarketConcierge/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported is returned by backends that lack an operation.
	ErrUnsupported = errors.New("operation not supported by this backend")
)

// SeriesStore reads and writes daily bars and forecasts.
type SeriesStore interface {
	// FetchSeries returns the last window bars in ascending date order.
	// A window of 0 or less returns the full history.
	FetchSeries(ctx context.Context, symbol string, window int) ([]model.Bar, error)
	FetchForecast(ctx context.Context, symbol string) ([]model.ForecastPoint, error)
	// LatestBars returns the most recent bar of every symbol.
	LatestBars(ctx context.Context) ([]model.Bar, error)
	UpsertBars(ctx context.Context, bars []model.Bar) error
	UpsertForecast(ctx context.Context, points []model.ForecastPoint) error
}

// InsightStore holds one advisor insight per symbol.
type InsightStore interface {
	FetchInsight(ctx context.Context, symbol string) (model.Insight, error)
	UpsertInsight(ctx context.Context, insight model.Insight) error
}

// ProfileStore holds company profiles.
type ProfileStore interface {
	FetchProfile(ctx context.Context, symbol string) (model.CompanyProfile, error)
	ListProfiles(ctx context.Context) ([]model.CompanyProfile, error)
	// SearchProfiles matches q against symbol or company name.
	SearchProfiles(ctx context.Context, q string, limit int) ([]model.CompanyProfile, error)
	UpsertProfile(ctx context.Context, p model.CompanyProfile) error
}

// WatchlistStore holds per-user watchlists.
type WatchlistStore interface {
	Watchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error)
	Watching(ctx context.Context, userID, symbol string) (bool, error)
	AddWatch(ctx context.Context, userID, symbol string) error
	RemoveWatch(ctx context.Context, userID, symbol string) error
}

// MarketStore is everything the dashboard reads besides accounts.
type MarketStore interface {
	SeriesStore
	InsightStore
	ProfileStore
	WatchlistStore
	Close() error
}

// Broker executes simulated orders atomically: cash and holdings move
// together or not at all.
type Broker interface {
	ExecuteOrder(ctx context.Context, userID string, order model.Order) (model.Transaction, error)
}

// AccountStore reads balances, holdings and order history.
type AccountStore interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Holdings(ctx context.Context, userID string) ([]model.Holding, error)
	Transactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)
	Accounts(ctx context.Context) ([]model.Account, error)
}
