package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"MarketConcierge/internal/model"
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Manager is the offline order book: it executes simulated orders against
// a per-user cash balance and persists every change to a JSON file.
type Manager struct {
	mu             sync.Mutex
	state          *State
	filePath       string
	initialBalance decimal.Decimal
	now            func() time.Time
}

// NewManager creates a Manager, loading or initializing state from disk.
// New users start with initialBalance in cash.
func NewManager(filePath string, initialBalance decimal.Decimal) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	m := &Manager{state: state, filePath: filePath, initialBalance: initialBalance, now: time.Now}
	if err := m.save(); err != nil {
		return nil, err
	}
	log.Info().Str("path", filePath).Int("accounts", len(state.Accounts)).Msg("ledger loaded")
	return m, nil
}

// account returns the user's account, opening it on first use. Caller holds mu.
func (m *Manager) account(userID string) *AccountState {
	a, ok := m.state.Accounts[userID]
	if !ok {
		a = &AccountState{Balance: m.initialBalance, Holdings: map[string]model.Holding{}}
		m.state.Accounts[userID] = a
	}
	return a
}

// ExecuteOrder debits or credits cash and shares together. If the ledger
// cannot be persisted the account is restored and the error returned.
func (m *Manager) ExecuteOrder(_ context.Context, userID string, order model.Order) (model.Transaction, error) {
	if order.Quantity <= 0 || !order.Price.IsPositive() {
		return model.Transaction{}, fmt.Errorf("invalid order: quantity %d at %s", order.Quantity, order.Price)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.state.Accounts[userID]
	a := m.account(userID)
	prevBalance := a.Balance
	prevHolding, held := a.Holdings[order.Symbol]
	prevTxns := len(a.Transactions)

	total := order.Total()
	switch order.Side {
	case model.SideBuy:
		if total.GreaterThan(a.Balance) {
			m.discard(userID, existed)
			return model.Transaction{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, total, a.Balance)
		}
		a.Balance = a.Balance.Sub(total)
		qty := prevHolding.Quantity + order.Quantity
		cost := prevHolding.AveragePrice.Mul(decimal.NewFromInt(prevHolding.Quantity)).Add(total)
		a.Holdings[order.Symbol] = model.Holding{
			Symbol:       order.Symbol,
			Quantity:     qty,
			AveragePrice: cost.Div(decimal.NewFromInt(qty)),
		}
	case model.SideSell:
		if prevHolding.Quantity < order.Quantity {
			m.discard(userID, existed)
			return model.Transaction{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientShares, order.Quantity, prevHolding.Quantity)
		}
		a.Balance = a.Balance.Add(total)
		if left := prevHolding.Quantity - order.Quantity; left > 0 {
			h := prevHolding
			h.Quantity = left
			a.Holdings[order.Symbol] = h
		} else {
			delete(a.Holdings, order.Symbol)
		}
	default:
		m.discard(userID, existed)
		return model.Transaction{}, fmt.Errorf("invalid order side %q", order.Side)
	}

	txn := model.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		Price:     order.Price,
		Total:     total,
		CreatedAt: m.now(),
	}
	a.Transactions = append(a.Transactions, txn)

	if err := m.save(); err != nil {
		a.Balance = prevBalance
		if held {
			a.Holdings[order.Symbol] = prevHolding
		} else {
			delete(a.Holdings, order.Symbol)
		}
		a.Transactions = a.Transactions[:prevTxns]
		m.discard(userID, existed)
		log.Error().Err(err).Str("user_id", userID).Msg("failed to save ledger, order rolled back")
		return model.Transaction{}, fmt.Errorf("save ledger: %w", err)
	}
	return txn, nil
}

// discard drops an account opened by a failed order. Caller holds mu.
func (m *Manager) discard(userID string, existed bool) {
	if !existed {
		delete(m.state.Accounts, userID)
	}
}

// Balance returns the user's cash. Unknown users have the initial balance.
func (m *Manager) Balance(_ context.Context, userID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.state.Accounts[userID]; ok {
		return a.Balance, nil
	}
	return m.initialBalance, nil
}

// Holdings returns open positions sorted by symbol.
func (m *Manager) Holdings(_ context.Context, userID string) ([]model.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.Accounts[userID]
	if !ok {
		return nil, nil
	}
	return sortedHoldings(a), nil
}

func sortedHoldings(a *AccountState) []model.Holding {
	out := make([]model.Holding, 0, len(a.Holdings))
	for _, h := range a.Holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Transactions returns up to limit orders, newest first.
func (m *Manager) Transactions(_ context.Context, userID string, limit int) ([]model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.Accounts[userID]
	if !ok {
		return nil, nil
	}
	n := len(a.Transactions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Transaction, 0, n)
	for i := len(a.Transactions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, a.Transactions[i])
	}
	return out, nil
}

// Accounts returns every account sorted by user id.
func (m *Manager) Accounts(_ context.Context) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Account, 0, len(m.state.Accounts))
	for id, a := range m.state.Accounts {
		out = append(out, model.Account{UserID: id, Balance: a.Balance, Holdings: sortedHoldings(a)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
