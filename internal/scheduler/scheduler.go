package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"MarketConcierge/internal/dashboard"
	"MarketConcierge/internal/model"
	"MarketConcierge/internal/notifier"
	"MarketConcierge/internal/store"
	"MarketConcierge/internal/worker"
)

// Runner runs a batch job over symbols.
type Runner interface {
	RunAll(ctx context.Context, job worker.Job, symbols []string) (map[string]string, error)
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    Runner
	Dashboard *dashboard.Service
	Notifier  notifier.Notifier
	Symbols   []string
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, svc *dashboard.Service, n notifier.Notifier, symbols []string) *Scheduler {
	if n == nil {
		n = notifier.Noop{}
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Dashboard: svc,
		Notifier:  n,
		Symbols:   symbols,
		Ctx:       ctx,
	}
}

// RegisterAll registers the ingest and forecast jobs. The forecast job
// should run after ingest so it sees the day's close.
func (s *Scheduler) RegisterAll(ingestCron, forecastCron string) error {
	if _, err := s.Cron.AddFunc(ingestCron, func() { s.runJob(worker.JobIngest) }); err != nil {
		return fmt.Errorf("register ingest task: %w", err)
	}
	if _, err := s.Cron.AddFunc(forecastCron, func() { s.runJob(worker.JobForecast) }); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("symbols", len(s.Symbols)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes both jobs immediately, ingest first.
func (s *Scheduler) RunNow() {
	s.runJob(worker.JobIngest)
	s.runJob(worker.JobForecast)
}

func (s *Scheduler) runJob(job worker.Job) {
	log.Info().Str("job", string(job)).Msg("running scheduled job")
	details, err := s.Runner.RunAll(s.Ctx, job, s.Symbols)
	if err != nil {
		log.Error().Err(err).Str("job", string(job)).Msg("scheduled job failed")
		return
	}
	for _, sym := range s.Symbols {
		if details[sym] != worker.ResultSuccess {
			s.trySend(notifier.FormatJobReport(string(job), details, s.Symbols))
			return
		}
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	var symbol string
	if len(fields) > 1 {
		symbol = dashboard.NormalizeSymbol(fields[1])
	}

	switch name {
	case "/sentiment":
		if symbol == "" {
			return "Usage: /sentiment SYMBOL"
		}
		view, err := s.Dashboard.Sentiment(ctx, symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("sentiment command")
			return fmt.Sprintf("Could not score %s.", symbol)
		}
		return notifier.FormatSentiment(symbol, model.SentimentResult{Score: view.Score, Label: view.Label}, view.Available)
	case "/advice":
		if symbol == "" {
			return "Usage: /advice SYMBOL"
		}
		in, err := s.Dashboard.Insight(ctx, symbol)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Sprintf("No insight for %s yet.", symbol)
		}
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("advice command")
			return fmt.Sprintf("Could not load advice for %s.", symbol)
		}
		return notifier.FormatInsight(in)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
