package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"MarketConcierge/internal/calculator"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/store"
)

// SearchLimit caps symbol search results.
const SearchLimit = 5

// WatchItem is one watchlist row with its latest close.
type WatchItem struct {
	Symbol      string     `json:"symbol"`
	CompanyName string     `json:"company_name"`
	Price       null.Float `json:"price"`
	ChangePct   null.Float `json:"change_percentage"`
	AddedAt     time.Time  `json:"created_at"`
}

// Watchlist returns the user's symbols in the order they were added.
func (s *Service) Watchlist(ctx context.Context, userID string) ([]WatchItem, error) {
	entries, err := s.market.Watchlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	latest, err := s.latestBars(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.companyNames(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]WatchItem, 0, len(entries))
	for _, e := range entries {
		item := WatchItem{Symbol: e.Symbol, CompanyName: names[e.Symbol], AddedAt: e.CreatedAt}
		if b, ok := latest[e.Symbol]; ok {
			item.Price = null.FloatFrom(b.Close)
			if _, pct, ok := calculator.DailyChange(b.Open, b.Close); ok {
				item.ChangePct = null.FloatFrom(pct)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// AddWatch adds symbol to the user's watchlist. Adding twice is a no-op.
func (s *Service) AddWatch(ctx context.Context, userID, symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidSymbol)
	}
	return s.market.AddWatch(ctx, userID, symbol)
}

// RemoveWatch removes symbol; store.ErrNotFound if it was not watched.
func (s *Service) RemoveWatch(ctx context.Context, userID, symbol string) error {
	return s.market.RemoveWatch(ctx, userID, NormalizeSymbol(symbol))
}

// ToggleWatch adds or removes symbol and reports whether it is now watched.
func (s *Service) ToggleWatch(ctx context.Context, userID, symbol string) (bool, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return false, fmt.Errorf("%w: symbol is required", ErrInvalidSymbol)
	}
	watching, err := s.market.Watching(ctx, userID, symbol)
	if err != nil {
		return false, err
	}
	if watching {
		if err := s.market.RemoveWatch(ctx, userID, symbol); err != nil && !errors.Is(err, store.ErrNotFound) {
			return true, err
		}
		return false, nil
	}
	if err := s.market.AddWatch(ctx, userID, symbol); err != nil {
		return false, err
	}
	return true, nil
}

// Watching reports whether symbol is on the user's watchlist.
func (s *Service) Watching(ctx context.Context, userID, symbol string) (bool, error) {
	return s.market.Watching(ctx, userID, NormalizeSymbol(symbol))
}

// Search matches q against symbol or company name. A blank query
// returns nothing.
func (s *Service) Search(ctx context.Context, q string) ([]model.CompanyProfile, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.CompanyProfile{}, nil
	}
	return s.market.SearchProfiles(ctx, q, SearchLimit)
}

// Screener filters.
const (
	FilterAll     = "ALL"
	FilterGainers = "GAINERS"
	FilterLosers  = "LOSERS"
)

// ScreenerQuery selects and orders screener rows. Empty fields take the
// defaults: all rows, sorted by change percentage descending.
type ScreenerQuery struct {
	Filter string
	Search string
	SortBy string
	Asc    bool
}

// ScreenerRow is one listed company with its latest session.
type ScreenerRow struct {
	Symbol      string     `json:"symbol"`
	CompanyName string     `json:"company_name"`
	Sector      string     `json:"sector"`
	Price       float64    `json:"price"`
	Change      float64    `json:"change"`
	ChangePct   float64    `json:"change_percentage"`
	Volume      int64      `json:"volume"`
	RSI         null.Float `json:"rsi"`
	Date        time.Time  `json:"date"`
}

var sortKeys = map[string]func(a, b ScreenerRow) int{
	"symbol":            func(a, b ScreenerRow) int { return strings.Compare(a.Symbol, b.Symbol) },
	"company_name":      func(a, b ScreenerRow) int { return strings.Compare(a.CompanyName, b.CompanyName) },
	"price":             func(a, b ScreenerRow) int { return cmpFloat(a.Price, b.Price) },
	"change":            func(a, b ScreenerRow) int { return cmpFloat(a.Change, b.Change) },
	"change_percentage": func(a, b ScreenerRow) int { return cmpFloat(a.ChangePct, b.ChangePct) },
	"volume":            func(a, b ScreenerRow) int { return cmpFloat(float64(a.Volume), float64(b.Volume)) },
	"rsi":               func(a, b ScreenerRow) int { return cmpFloat(a.RSI.Float64, b.RSI.Float64) },
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Screener lists every profiled company that has a stored price.
func (s *Service) Screener(ctx context.Context, q ScreenerQuery) ([]ScreenerRow, error) {
	filter := strings.ToUpper(q.Filter)
	if filter == "" {
		filter = FilterAll
	}
	if filter != FilterAll && filter != FilterGainers && filter != FilterLosers {
		return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidQuery, q.Filter)
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "change_percentage"
	}
	cmp, ok := sortKeys[sortBy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidQuery, q.SortBy)
	}

	profiles, err := s.market.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.latestBars(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.TrimSpace(q.Search)
	rows := make([]ScreenerRow, 0, len(profiles))
	for _, p := range profiles {
		b, ok := latest[p.Symbol]
		if !ok {
			continue
		}
		if needle != "" &&
			!strings.Contains(p.Symbol, strings.ToUpper(needle)) &&
			!strings.Contains(strings.ToLower(p.CompanyName), strings.ToLower(needle)) {
			continue
		}
		change, pct, _ := calculator.DailyChange(b.Open, b.Close)
		switch filter {
		case FilterGainers:
			if pct <= 0 {
				continue
			}
		case FilterLosers:
			if pct >= 0 {
				continue
			}
		}
		rows = append(rows, ScreenerRow{
			Symbol:      p.Symbol,
			CompanyName: p.CompanyName,
			Sector:      p.Sector,
			Price:       b.Close,
			Change:      change,
			ChangePct:   pct,
			Volume:      b.Volume,
			RSI:         b.RSI14,
			Date:        b.Date,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if q.Asc {
			return c < 0
		}
		return c > 0
	})
	return rows, nil
}

func (s *Service) latestBars(ctx context.Context) (map[string]model.Bar, error) {
	bars, err := s.market.LatestBars(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Bar, len(bars))
	for _, b := range bars {
		out[b.Symbol] = b
	}
	return out, nil
}

func (s *Service) companyNames(ctx context.Context) (map[string]string, error) {
	profiles, err := s.market.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(profiles))
	for _, p := range profiles {
		out[p.Symbol] = p.CompanyName
	}
	return out, nil
}
