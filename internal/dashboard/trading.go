package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"MarketConcierge/internal/metrics"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/store"
)

// currentPrice is the latest close of symbol.
func (s *Service) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	bars, err := s.market.FetchSeries(ctx, symbol, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(bars) == 0 || bars[0].Close <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	return decimal.NewFromFloat(bars[0].Close), nil
}

// PlaceOrder buys or sells lots of symbol at the latest close.
func (s *Service) PlaceOrder(ctx context.Context, userID, symbol string, side model.Side, lots int64) (model.Transaction, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Transaction{}, fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	}
	if !side.Valid() {
		return model.Transaction{}, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, side)
	}
	if lots < 1 {
		return model.Transaction{}, fmt.Errorf("%w: at least one lot is required", ErrInvalidOrder)
	}

	price, err := s.currentPrice(ctx, symbol)
	if err != nil {
		return model.Transaction{}, err
	}
	order := model.Order{
		Symbol:   symbol,
		Side:     side,
		Quantity: lots * s.lotSize,
		Price:    price,
	}
	txn, err := s.broker.ExecuteOrder(ctx, userID, order)
	metrics.OrdersTotal.WithLabelValues(string(side), metrics.StatusOf(err)).Inc()
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("symbol", symbol).Str("side", string(side)).
			Msg("order failed")
		return model.Transaction{}, err
	}
	log.Info().Str("user_id", userID).Str("symbol", symbol).Str("side", string(side)).
		Int64("quantity", order.Quantity).Str("price", price.String()).Msg("order executed")
	return txn, nil
}

// Ticket is what the trading panel shows before an order.
type Ticket struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	Balance     decimal.Decimal `json:"balance"`
	OwnedShares int64           `json:"owned_shares"`
	OwnedLots   int64           `json:"owned_lots"`
	MaxBuyLots  int64           `json:"max_buy_lots"`
	LotSize     int64           `json:"lot_size"`
}

// Ticket returns the user's cash, position and buying power in symbol.
func (s *Service) Ticket(ctx context.Context, userID, symbol string) (Ticket, error) {
	symbol = NormalizeSymbol(symbol)
	price, err := s.currentPrice(ctx, symbol)
	if err != nil {
		return Ticket{}, err
	}
	balance, err := s.balance(ctx, userID)
	if err != nil {
		return Ticket{}, err
	}
	holdings, err := s.accounts.Holdings(ctx, userID)
	if err != nil {
		return Ticket{}, err
	}
	t := Ticket{Symbol: symbol, Price: price, Balance: balance, LotSize: s.lotSize}
	for _, h := range holdings {
		if h.Symbol == symbol {
			t.OwnedShares = h.Quantity
		}
	}
	t.OwnedLots = t.OwnedShares / s.lotSize
	lotCost := price.Mul(decimal.NewFromInt(s.lotSize))
	t.MaxBuyLots = balance.Div(lotCost).Floor().IntPart()
	return t, nil
}

// balance treats a user without an account row as holding no cash.
func (s *Service) balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	b, err := s.accounts.Balance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, nil
	}
	return b, err
}

// Position is one valued holding.
type Position struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	Lots         int64           `json:"lots"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
	PLPercent    decimal.Decimal `json:"pl_percentage"`
}

// PortfolioView is the user's cash, valued positions and totals.
type PortfolioView struct {
	Balance      decimal.Decimal `json:"balance"`
	Positions    []Position      `json:"positions"`
	MarketValue  decimal.Decimal `json:"market_value"`
	UnrealizedPL decimal.Decimal `json:"unrealized_pl"`
	TotalEquity  decimal.Decimal `json:"total_equity"`
}

// latestPrices maps symbol to latest close.
func (s *Service) latestPrices(ctx context.Context) (map[string]decimal.Decimal, error) {
	bars, err := s.market.LatestBars(ctx)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			prices[b.Symbol] = decimal.NewFromFloat(b.Close)
		}
	}
	return prices, nil
}

// Value prices a holding at the latest close, falling back to the
// average price when the symbol has no stored close.
func Value(h model.Holding, prices map[string]decimal.Decimal, lotSize int64) Position {
	current, ok := prices[h.Symbol]
	if !ok {
		current = h.AveragePrice
	}
	qty := decimal.NewFromInt(h.Quantity)
	p := Position{
		Symbol:       h.Symbol,
		Quantity:     h.Quantity,
		Lots:         h.Quantity / lotSize,
		AveragePrice: h.AveragePrice,
		CurrentPrice: current,
		MarketValue:  qty.Mul(current),
		CostBasis:    qty.Mul(h.AveragePrice),
	}
	p.UnrealizedPL = p.MarketValue.Sub(p.CostBasis)
	if p.CostBasis.IsPositive() {
		p.PLPercent = p.UnrealizedPL.Div(p.CostBasis).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return p
}

// Portfolio values the user's holdings.
func (s *Service) Portfolio(ctx context.Context, userID string) (PortfolioView, error) {
	balance, err := s.balance(ctx, userID)
	if err != nil {
		return PortfolioView{}, err
	}
	holdings, err := s.accounts.Holdings(ctx, userID)
	if err != nil {
		return PortfolioView{}, err
	}
	prices, err := s.latestPrices(ctx)
	if err != nil {
		return PortfolioView{}, err
	}

	view := PortfolioView{Balance: balance, Positions: make([]Position, 0, len(holdings))}
	for _, h := range holdings {
		p := Value(h, prices, s.lotSize)
		view.Positions = append(view.Positions, p)
		view.MarketValue = view.MarketValue.Add(p.MarketValue)
		view.UnrealizedPL = view.UnrealizedPL.Add(p.UnrealizedPL)
	}
	view.TotalEquity = balance.Add(view.MarketValue)
	return view, nil
}

// Transactions returns the user's recent orders, newest first.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.accounts.Transactions(ctx, userID, limit)
}

// Tier buckets accounts on the leaderboard by net worth.
type Tier string

const (
	TierWhale  Tier = "WHALE"
	TierPro    Tier = "PRO"
	TierRetail Tier = "RETAIL"
)

// tiers maps a minimum net worth to a tier, checked top-down.
var tiers = []struct {
	MinNetWorth decimal.Decimal
	Tier        Tier
}{
	{decimal.NewFromInt(500_000_000), TierWhale},
	{decimal.NewFromInt(150_000_000), TierPro},
}

// TierFor returns the tier for a net worth.
func TierFor(netWorth decimal.Decimal) Tier {
	for _, t := range tiers {
		if netWorth.GreaterThanOrEqual(t.MinNetWorth) {
			return t.Tier
		}
	}
	return TierRetail
}

// LeaderboardEntry is one ranked account.
type LeaderboardEntry struct {
	Rank     int             `json:"rank"`
	UserID   string          `json:"user_id"`
	NetWorth decimal.Decimal `json:"net_worth"`
	Tier     Tier            `json:"tier"`
}

// Leaderboard ranks accounts by cash plus holdings at the latest close.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	accounts, err := s.accounts.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := s.latestPrices(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(accounts))
	for _, a := range accounts {
		worth := a.Balance
		for _, h := range a.Holdings {
			worth = worth.Add(Value(h, prices, s.lotSize).MarketValue)
		}
		entries = append(entries, LeaderboardEntry{UserID: a.UserID, NetWorth: worth, Tier: TierFor(worth)})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].NetWorth.GreaterThan(entries[j].NetWorth) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
