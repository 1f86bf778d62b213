package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"MarketConcierge/internal/model"
)

// ErrOrderRejected wraps a business error raised by the order procedures,
// such as insufficient balance or shares.
var ErrOrderRejected = errors.New("order rejected")

// PostgresGateway is the managed backend: market tables through SQLStore,
// orders through the remote buy_stock / sell_stock procedures and account
// rows from portfolios, portfolio_stocks and transactions.
type PostgresGateway struct {
	*SQLStore
}

// NewPostgresGateway connects to dsn.
func NewPostgresGateway(dsn string) (*PostgresGateway, error) {
	s, err := OpenPostgres(dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresGateway{SQLStore: s}, nil
}

func procedureFor(side model.Side) (string, error) {
	switch side {
	case model.SideBuy:
		return "buy_stock", nil
	case model.SideSell:
		return "sell_stock", nil
	default:
		return "", fmt.Errorf("unknown side %q", side)
	}
}

// ExecuteOrder calls the order procedure as userID. The procedures are
// opaque; they debit or credit cash and holdings in one transaction.
func (g *PostgresGateway) ExecuteOrder(ctx context.Context, userID string, order model.Order) (model.Transaction, error) {
	proc, err := procedureFor(order.Side)
	if err != nil {
		return model.Transaction{}, err
	}
	claims, err := json.Marshal(map[string]string{"sub": userID, "role": "authenticated"})
	if err != nil {
		return model.Transaction{}, err
	}

	var txn model.Transaction
	err = g.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT set_config('request.jwt.claim.sub', $1, true), set_config('request.jwt.claims', $2, true)`,
			userID, string(claims)); err != nil {
			return fmt.Errorf("set caller: %w", err)
		}
		call := fmt.Sprintf(`SELECT %s(p_symbol => $1, p_quantity => $2, p_price => $3)`, proc)
		if _, err := tx.ExecContext(ctx, call, order.Symbol, order.Quantity, order.Price); err != nil {
			return classifyOrderError(err)
		}

		rows, err := tx.QueryContext(ctx, `SELECT id, user_id, symbol, type, amount, price_per_share, created_at
			FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID)
		if err != nil {
			return fmt.Errorf("read back transaction: %w", err)
		}
		recent, err := scanTransactions(rows)
		if err != nil {
			return fmt.Errorf("read back transaction: %w", err)
		}
		if len(recent) == 1 {
			txn = recent[0]
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	if txn.ID == "" {
		txn = model.Transaction{
			ID:        uuid.NewString(),
			UserID:    userID,
			Symbol:    order.Symbol,
			Side:      order.Side,
			Quantity:  order.Quantity,
			Price:     order.Price,
			Total:     order.Total(),
			CreatedAt: time.Now(),
		}
	}
	return txn, nil
}

// classifyOrderError turns exceptions raised inside the procedure into
// ErrOrderRejected and leaves connection failures as they are.
func classifyOrderError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "P0" {
		return fmt.Errorf("%w: %s", ErrOrderRejected, strings.TrimSpace(pqErr.Message))
	}
	return fmt.Errorf("execute order: %w", err)
}

func (g *PostgresGateway) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := g.queryRow(ctx, `SELECT balance FROM portfolios WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

func (g *PostgresGateway) Holdings(ctx context.Context, userID string) ([]model.Holding, error) {
	rows, err := g.query(ctx, `SELECT symbol, quantity, average_price FROM portfolio_stocks
		WHERE user_id = ? AND quantity > 0 ORDER BY symbol`, userID)
	if err != nil {
		return nil, fmt.Errorf("holdings: %w", err)
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		var h model.Holding
		if err := rows.Scan(&h.Symbol, &h.Quantity, &h.AveragePrice); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var side string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &side, &t.Quantity, &t.Price,
			dbTime{&t.CreatedAt}); err != nil {
			return nil, err
		}
		t.Side = model.Side(side)
		t.Total = t.Price.Mul(decimal.NewFromInt(t.Quantity))
		out = append(out, t)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) Transactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	rows, err := g.query(ctx, `SELECT id, user_id, symbol, type, amount, price_per_share, created_at
		FROM transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	out, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	return out, nil
}

func (g *PostgresGateway) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := g.query(ctx, `SELECT user_id, balance FROM portfolios ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	index := map[string]int{}
	for rows.Next() {
		var a model.Account
		if err := rows.Scan(&a.UserID, &a.Balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		index[a.UserID] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := g.query(ctx, `SELECT user_id, symbol, quantity, average_price FROM portfolio_stocks
		WHERE quantity > 0`)
	if err != nil {
		return nil, fmt.Errorf("account holdings: %w", err)
	}
	defer hrows.Close()
	for hrows.Next() {
		var userID string
		var h model.Holding
		if err := hrows.Scan(&userID, &h.Symbol, &h.Quantity, &h.AveragePrice); err != nil {
			return nil, fmt.Errorf("scan account holding: %w", err)
		}
		if i, ok := index[userID]; ok {
			accounts[i].Holdings = append(accounts[i].Holdings, h)
		}
	}
	return accounts, hrows.Err()
}
