package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"MarketConcierge/internal/model"
)

// BatchSize is the number of rows written per upsert transaction.
const BatchSize = 1000

// SQLStore implements MarketStore over database/sql.
type SQLStore struct {
	db *sql.DB
	d  dialect
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the SQLite database and runs migrations.
func OpenSQLite(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL mode for concurrent reads while jobs write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	// single writer; pragmas above are per connection
	db.SetMaxOpenConns(1)
	s, err := newSQLStore(db, sqliteDialect)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("sqlite store opened")
	return s, nil
}

// OpenPostgres connects to the managed backend and creates the market tables.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := newSQLStore(db, postgresDialect)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("postgres store opened")
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", strings.TrimSpace(stmt)[:40], err)
		}
	}
	return nil
}

// DB exposes the underlying pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Driver names the dialect in use.
func (s *SQLStore) Driver() string { return s.d.name }

func (s *SQLStore) Close() error {
	log.Info().Str("driver", s.d.name).Msg("closing store")
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.d.rebind(q), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.d.rebind(q), args...)
}

func (s *SQLStore) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.ExecContext(ctx, s.d.rebind(q), args...)
}

// batch runs stmt once per row in transactions of BatchSize rows.
func (s *SQLStore) batch(ctx context.Context, stmt string, n int, args func(i int) []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for start := 0; start < n; start += BatchSize {
		end := min(start+BatchSize, n)
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			prepared, err := tx.PrepareContext(ctx, s.d.rebind(stmt))
			if err != nil {
				return err
			}
			defer prepared.Close()
			for i := start; i < end; i++ {
				if _, err := prepared.ExecContext(ctx, args(i)...); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const barColumns = `symbol, date, open, high, low, close, volume, sma_20, ema_20, rsi_14`

func scanBar(rows *sql.Rows) (model.Bar, error) {
	var b model.Bar
	var open, high, low, close null.Float
	var volume null.Int
	err := rows.Scan(&b.Symbol, dbTime{&b.Date}, &open, &high, &low, &close, &volume,
		&b.SMA20, &b.EMA20, &b.RSI14)
	b.Open, b.High, b.Low, b.Close = open.Float64, high.Float64, low.Float64, close.Float64
	b.Volume = volume.Int64
	return b, err
}

func collectBars(rows *sql.Rows) ([]model.Bar, error) {
	defer rows.Close()
	var bars []model.Bar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLStore) FetchSeries(ctx context.Context, symbol string, window int) ([]model.Bar, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if window > 0 {
		rows, err = s.query(ctx, `SELECT `+barColumns+` FROM stock_prices
			WHERE symbol = ? ORDER BY date DESC LIMIT ?`, symbol, window)
	} else {
		rows, err = s.query(ctx, `SELECT `+barColumns+` FROM stock_prices
			WHERE symbol = ? ORDER BY date ASC`, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch series %s: %w", symbol, err)
	}
	bars, err := collectBars(rows)
	if err != nil {
		return nil, fmt.Errorf("scan series %s: %w", symbol, err)
	}
	if window > 0 {
		for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
			bars[i], bars[j] = bars[j], bars[i]
		}
	}
	return bars, nil
}

func (s *SQLStore) LatestBars(ctx context.Context) ([]model.Bar, error) {
	rows, err := s.query(ctx, `SELECT p.symbol, p.date, p.open, p.high, p.low, p.close, p.volume,
			p.sma_20, p.ema_20, p.rsi_14
		FROM stock_prices p
		JOIN (SELECT symbol, MAX(date) AS last_date FROM stock_prices GROUP BY symbol) m
			ON p.symbol = m.symbol AND p.date = m.last_date
		ORDER BY p.symbol`)
	if err != nil {
		return nil, fmt.Errorf("latest bars: %w", err)
	}
	return collectBars(rows)
}

func (s *SQLStore) UpsertBars(ctx context.Context, bars []model.Bar) error {
	const stmt = `INSERT INTO stock_prices (` + barColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume,
			sma_20 = excluded.sma_20, ema_20 = excluded.ema_20, rsi_14 = excluded.rsi_14`
	return s.batch(ctx, stmt, len(bars), func(i int) []any {
		b := bars[i]
		return []any{b.Symbol, dateValue(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume,
			b.SMA20, b.EMA20, b.RSI14}
	})
}

func (s *SQLStore) FetchForecast(ctx context.Context, symbol string) ([]model.ForecastPoint, error) {
	rows, err := s.query(ctx, `SELECT symbol, forecast_date, predicted_price, model_version
		FROM predictions WHERE symbol = ? ORDER BY forecast_date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast %s: %w", symbol, err)
	}
	defer rows.Close()

	var points []model.ForecastPoint
	for rows.Next() {
		var p model.ForecastPoint
		var version null.String
		if err := rows.Scan(&p.Symbol, dbTime{&p.Date}, &p.Price, &version); err != nil {
			return nil, fmt.Errorf("scan forecast %s: %w", symbol, err)
		}
		p.ModelVersion = version.String
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLStore) UpsertForecast(ctx context.Context, points []model.ForecastPoint) error {
	const stmt = `INSERT INTO predictions (symbol, forecast_date, predicted_price, model_version)
		VALUES (?,?,?,?)
		ON CONFLICT (symbol, forecast_date) DO UPDATE SET
			predicted_price = excluded.predicted_price, model_version = excluded.model_version`
	return s.batch(ctx, stmt, len(points), func(i int) []any {
		p := points[i]
		return []any{p.Symbol, dateValue(p.Date), p.Price, p.ModelVersion}
	})
}

func (s *SQLStore) FetchInsight(ctx context.Context, symbol string) (model.Insight, error) {
	var in model.Insight
	var trend null.String
	err := s.queryRow(ctx, `SELECT symbol, sentiment, score, title, message, rsi, ema_20, trend, updated_at
		FROM stock_insights WHERE symbol = ?`, symbol).
		Scan(&in.Symbol, &in.Sentiment, &in.Score, &in.Title, &in.Message,
			&in.RSI, &in.EMA20, &trend, dbTime{&in.UpdatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return model.Insight{}, ErrNotFound
	}
	if err != nil {
		return model.Insight{}, fmt.Errorf("fetch insight %s: %w", symbol, err)
	}
	in.Trend = model.Trend(trend.String)
	return in, nil
}

func (s *SQLStore) UpsertInsight(ctx context.Context, in model.Insight) error {
	_, err := s.exec(ctx, `INSERT INTO stock_insights
		(symbol, sentiment, score, title, message, rsi, ema_20, trend, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (symbol) DO UPDATE SET
			sentiment = excluded.sentiment, score = excluded.score, title = excluded.title,
			message = excluded.message, rsi = excluded.rsi, ema_20 = excluded.ema_20,
			trend = excluded.trend, updated_at = excluded.updated_at`,
		in.Symbol, in.Sentiment, in.Score, in.Title, in.Message, in.RSI, in.EMA20,
		string(in.Trend), timeValue(in.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert insight %s: %w", in.Symbol, err)
	}
	return nil
}

func scanProfiles(rows *sql.Rows) ([]model.CompanyProfile, error) {
	defer rows.Close()
	var out []model.CompanyProfile
	for rows.Next() {
		var p model.CompanyProfile
		var name, sector null.String
		if err := rows.Scan(&p.Symbol, &name, &sector); err != nil {
			return nil, err
		}
		p.CompanyName, p.Sector = name.String, sector.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) FetchProfile(ctx context.Context, symbol string) (model.CompanyProfile, error) {
	rows, err := s.query(ctx, `SELECT symbol, company_name, sector FROM company_profiles WHERE symbol = ?`, symbol)
	if err != nil {
		return model.CompanyProfile{}, fmt.Errorf("fetch profile %s: %w", symbol, err)
	}
	profiles, err := scanProfiles(rows)
	if err != nil {
		return model.CompanyProfile{}, fmt.Errorf("scan profile %s: %w", symbol, err)
	}
	if len(profiles) == 0 {
		return model.CompanyProfile{}, ErrNotFound
	}
	return profiles[0], nil
}

func (s *SQLStore) ListProfiles(ctx context.Context) ([]model.CompanyProfile, error) {
	rows, err := s.query(ctx, `SELECT symbol, company_name, sector FROM company_profiles ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return scanProfiles(rows)
}

func (s *SQLStore) SearchProfiles(ctx context.Context, q string, limit int) ([]model.CompanyProfile, error) {
	rows, err := s.query(ctx, `SELECT symbol, company_name, sector FROM company_profiles
		WHERE UPPER(symbol) LIKE ? ESCAPE '\' OR LOWER(company_name) LIKE ? ESCAPE '\'
		ORDER BY symbol LIMIT ?`,
		containsPattern(strings.ToUpper(q)), containsPattern(strings.ToLower(q)), limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return scanProfiles(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches q literally anywhere in a LIKE column.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

func (s *SQLStore) UpsertProfile(ctx context.Context, p model.CompanyProfile) error {
	_, err := s.exec(ctx, `INSERT INTO company_profiles (symbol, company_name, sector)
		VALUES (?,?,?)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = COALESCE(NULLIF(excluded.company_name, ''), company_profiles.company_name),
			sector = COALESCE(NULLIF(excluded.sector, ''), company_profiles.sector)`,
		p.Symbol, p.CompanyName, p.Sector)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.Symbol, err)
	}
	return nil
}

func (s *SQLStore) Watchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error) {
	rows, err := s.query(ctx, `SELECT symbol, created_at FROM watchlists
		WHERE user_id = ? ORDER BY created_at ASC, symbol ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("watchlist: %w", err)
	}
	defer rows.Close()

	var out []model.WatchlistEntry
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.Symbol, dbTime{&e.CreatedAt}); err != nil {
			return nil, fmt.Errorf("scan watchlist: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) Watching(ctx context.Context, userID, symbol string) (bool, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM watchlists WHERE user_id = ? AND symbol = ?`,
		userID, symbol).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("watching: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) AddWatch(ctx context.Context, userID, symbol string) error {
	_, err := s.exec(ctx, `INSERT INTO watchlists (user_id, symbol, created_at) VALUES (?,?,?)
		ON CONFLICT (user_id, symbol) DO NOTHING`, userID, symbol, timeValue(time.Now()))
	if err != nil {
		return fmt.Errorf("add watch: %w", err)
	}
	return nil
}

func (s *SQLStore) RemoveWatch(ctx context.Context, userID, symbol string) error {
	res, err := s.exec(ctx, `DELETE FROM watchlists WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return fmt.Errorf("remove watch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
