package infra

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"goldtrade/internal/domain"
	"goldtrade/internal/utils"
)

// PriceRefresher reloads the marked-up quotes into the cache
type PriceRefresher interface {
	Refresh(ctx context.Context) ([]domain.Quote, error)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	prices   PriceRefresher
	schedule string
	timeout  time.Duration
	log      *zap.Logger
}

// NewScheduler creates a scheduler that refreshes prices on schedule, a standard
// five-field cron expression in Bangkok time. schedule defaults to every minute.
func NewScheduler(prices PriceRefresher, schedule string, log *zap.Logger) *Scheduler {
	if schedule == "" {
		schedule = "* * * * *"
	}
	log = log.Named("scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(utils.GetLocation()),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{log.Sugar()})),
		),
		prices:   prices,
		schedule: schedule,
		timeout:  30 * time.Second,
		log:      log,
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunNow(); err != nil {
			s.log.Warn("scheduled price refresh failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("price_refresh", s.schedule))
	return nil
}

// RunNow refreshes prices immediately
func (s *Scheduler) RunNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	quotes, err := s.prices.Refresh(ctx)
	if err != nil {
		return err
	}
	s.log.Debug("prices refreshed", zap.Int("quotes", len(quotes)))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.log.Info("stopping scheduler")
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
