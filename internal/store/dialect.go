package store

import (
	"strconv"
	"strings"
)

type dialect struct {
	name   string
	driver string
	schema []string
	// numbered placeholders ($1, $2...) instead of ?
	numbered bool
}

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS stock_prices (
			symbol  TEXT NOT NULL,
			date    TEXT NOT NULL,
			open    REAL,
			high    REAL,
			low     REAL,
			close   REAL,
			volume  INTEGER,
			sma_20  REAL,
			ema_20  REAL,
			rsi_14  REAL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			symbol          TEXT NOT NULL,
			forecast_date   TEXT NOT NULL,
			predicted_price REAL,
			model_version   TEXT,
			PRIMARY KEY (symbol, forecast_date)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_insights (
			symbol     TEXT PRIMARY KEY,
			sentiment  TEXT,
			score      INTEGER,
			title      TEXT,
			message    TEXT,
			rsi        REAL,
			ema_20     REAL,
			trend      TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS company_profiles (
			symbol       TEXT PRIMARY KEY,
			company_name TEXT,
			sector       TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS watchlists (
			user_id    TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			created_at TEXT,
			PRIMARY KEY (user_id, symbol)
		)`,
	},
}

var postgresDialect = dialect{
	name:     "postgres",
	driver:   "postgres",
	numbered: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS stock_prices (
			symbol  TEXT NOT NULL,
			date    DATE NOT NULL,
			open    DOUBLE PRECISION,
			high    DOUBLE PRECISION,
			low     DOUBLE PRECISION,
			close   DOUBLE PRECISION,
			volume  BIGINT,
			sma_20  DOUBLE PRECISION,
			ema_20  DOUBLE PRECISION,
			rsi_14  DOUBLE PRECISION,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			symbol          TEXT NOT NULL,
			forecast_date   DATE NOT NULL,
			predicted_price DOUBLE PRECISION,
			model_version   TEXT,
			PRIMARY KEY (symbol, forecast_date)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_insights (
			symbol     TEXT PRIMARY KEY,
			sentiment  TEXT,
			score      INTEGER,
			title      TEXT,
			message    TEXT,
			rsi        DOUBLE PRECISION,
			ema_20     DOUBLE PRECISION,
			trend      TEXT,
			updated_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS company_profiles (
			symbol       TEXT PRIMARY KEY,
			company_name TEXT,
			sector       TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS watchlists (
			user_id    TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now(),
			PRIMARY KEY (user_id, symbol)
		)`,
	},
}
