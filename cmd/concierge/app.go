package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/collector"
	"MarketConcierge/internal/config"
	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/ledger"
	"MarketConcierge/internal/logging"
	"MarketConcierge/internal/notifier"
	"MarketConcierge/internal/platform/httpclient"
	"MarketConcierge/internal/realtime"
	"MarketConcierge/internal/store"
	"MarketConcierge/internal/worker"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	market    store.MarketStore
	dashboard *dashboard.Service
	hub       *realtime.Hub
	worker    *worker.Worker
	telegram  *notifier.TelegramNotifier
	notifier  notifier.Notifier
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	a := &app{cfg: cfg, hub: realtime.NewHub(), notifier: notifier.Noop{}}

	var broker store.Broker
	var accounts store.AccountStore
	switch cfg.Database.Driver {
	case "postgres":
		gw, err := store.NewPostgresGateway(cfg.Database.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.market, broker, accounts = gw, gw, gw
	default:
		st, err := store.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		book, err := ledger.NewManager(cfg.Ledger.StateFile, cfg.Ledger.InitialBalance)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init ledger: %w", err)
		}
		a.market, broker, accounts = st, book, book
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("store opened")

	a.dashboard = dashboard.New(a.market, broker, accounts, dashboard.Options{
		Window:  cfg.Market.Window,
		LotSize: cfg.Market.LotSize,
	})

	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.notifier = a.telegram
	}

	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")
	col := collector.NewCollector(fetcher, cfg.DataSource.HistoryDays)
	a.worker = worker.New(col, a.market, a.hub, a.notifier, cfg.Market.ForecastDays)
	return a, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	client := httpclient.New(httpclient.Options{
		RequestsPerSec: cfg.DataSource.RequestsPerSec,
		ProxyURL:       cfg.Proxy,
	})
	switch cfg.DataSource.Provider {
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, client)
	case "mock":
		return &collector.MockFetcher{Price: 5000}
	default:
		return collector.NewYahooFetcher(client)
	}
}

func (a *app) Close() {
	if err := a.market.Close(); err != nil {
		log.Warn().Err(err).Msg("close store")
	}
}
