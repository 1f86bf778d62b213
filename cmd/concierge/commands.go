package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/scheduler"
	"MarketConcierge/internal/server"
	"MarketConcierge/internal/tickers"
	"MarketConcierge/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the job scheduler and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			symbols := a.cfg.Market.Tickers
			sched := scheduler.NewScheduler(ctx, a.worker, a.dashboard, a.notifier, symbols)
			if err := sched.RegisterAll(a.cfg.Schedule.IngestCron, a.cfg.Schedule.ForecastCron); err != nil {
				return fmt.Errorf("register cron tasks: %w", err)
			}
			sched.Start()
			defer sched.Stop()

			if a.telegram != nil {
				go a.telegram.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}
			if a.cfg.Schedule.RunOnStart {
				log.Info().Msg("run_on_start enabled, running ingest and forecast now")
				go sched.RunNow()
			}

			srv := server.New(a.dashboard, a.hub, a.worker, symbols)
			log.Info().Strs("symbols", symbols).Msg("MarketConcierge is running")
			err = srv.Run(ctx, a.cfg.Server.Addr)
			log.Info().Msg("shutdown complete")
			return err
		},
	}
}

// jobCmd runs one batch job over the given symbols, or the configured
// tickers when none are given, and prints the per-symbol result.
func jobCmd(name, short string) *cobra.Command {
	job := worker.Job(name)
	return &cobra.Command{
		Use:   name + " [symbols...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			symbols := a.cfg.Market.Tickers
			if len(args) > 0 {
				symbols = tickers.Parse(strings.Join(args, ","))
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			details, err := a.worker.RunAll(ctx, job, symbols)
			if err != nil {
				return err
			}
			return printDetails(cmd, details)
		},
	}
}

func printDetails(cmd *cobra.Command, details map[string]string) error {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	failed := 0
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", k, details[k])
		if details[k] != worker.ResultSuccess {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(keys))
	}
	return nil
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score SYMBOL",
		Short: "Print the sentiment score and stored insight for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			symbol := dashboard.NormalizeSymbol(args[0])
			ctx := cmd.Context()

			var g errgroup.Group
			var view dashboard.SentimentView
			var quote dashboard.Quote
			g.Go(func() (err error) { view, err = a.dashboard.Sentiment(ctx, symbol); return })
			g.Go(func() (err error) { quote, err = a.dashboard.Quote(ctx, symbol); return })
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %.2f (%+.2f%%)\n", symbol, quote.Price, quote.ChangePct)
			if view.Available {
				fmt.Fprintf(out, "sentiment: %s (%d/100)\n", view.Label, view.Score)
			} else {
				fmt.Fprintln(out, "sentiment: not enough data")
			}
			if in, err := a.dashboard.Insight(ctx, symbol); err == nil {
				fmt.Fprintf(out, "advisor:   %s (%d) %s\n           %s\n", in.Sentiment, in.Score, in.Title, in.Message)
			}
			return nil
		},
	}
}
