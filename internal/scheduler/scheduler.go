// Package scheduler is the wall-clock trigger for fetch jobs. The fetch core
// deliberately does not own scheduling; this cron wrapper is the external
// trigger it expects.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/fetch"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// jobTimeout bounds a single scheduled fetch job
const jobTimeout = 30 * time.Minute

// Scheduler runs fetch jobs on provider-specific schedules
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *fetch.Orchestrator
	logger       *logger.Logger
}

// schedules maps each provider to its cron expression. Price-ish data twice
// a day on weekdays, ESG data weekly; fetch TTLs keep reruns cheap anyway.
var schedules = map[stock.Provider]string{
	stock.Morningstar:    "0 7,19 * * 1-5",
	stock.MarketScreener: "30 7,19 * * 1-5",
	stock.MSCI:           "0 3 * * 6",
	stock.Refinitiv:      "30 3 * * 6",
	stock.SPGlobal:       "0 4 * * 6",
	stock.Sustainalytics: "30 4 * * 6",
	stock.CSRHub:         "0 5 * * 6",
}

// New creates a scheduler with every provider job registered
func New(orchestrator *fetch.Orchestrator, log *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		logger:       log.WithField("module", "scheduler"),
	}

	for _, d := range stock.Providers() {
		provider := d.Provider
		spec, ok := schedules[provider]
		if !ok {
			continue
		}
		if _, err := s.cron.AddFunc(spec, func() {
			s.runJob(provider)
		}); err != nil {
			return nil, fmt.Errorf("schedule %s job: %w", provider, err)
		}

		s.logger.WithFields(map[string]interface{}{
			"provider": provider,
			"schedule": spec,
		}).Info("Fetch job scheduled")
	}

	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// runJob executes one scheduled fetch job
func (s *Scheduler) runJob(provider stock.Provider) {
	log := s.logger.WithField("provider", provider)
	log.Info("Scheduled fetch started")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.orchestrator.FetchFromProvider(ctx, provider, fetch.Options{})
	if err != nil {
		var aborted *contracts.AbortedError
		if errors.As(err, &aborted) {
			// The abandoned stocks stay eligible, next run picks them up
			log.WithError(err).Warn("Scheduled fetch aborted by circuit breaker")
		} else {
			log.WithError(err).Error("Scheduled fetch failed")
		}
		return
	}

	log.WithFields(map[string]interface{}{
		"successful": len(result.Successful),
		"failed":     len(result.Failed),
		"skipped":    len(result.Skipped),
	}).Info("Scheduled fetch completed")
}
