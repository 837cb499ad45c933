// Package fetch schedules concurrent retrieval work across data providers.
// It decides which stocks need refreshing, runs extractors under a bounded
// worker pool, tolerates partial failure without losing known-good data and
// feeds every result through the update engine.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/internal/update"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// forensicRetention is how long raw failure snapshots are kept for operator
// inspection.
const forensicRetention = 48 * time.Hour

// Options is the per-job configuration
type Options struct {
	// Ticker scopes the job to a single stock. Errors then surface
	// immediately to the caller instead of being swallowed.
	Ticker string
	// NoSkip ignores the provider TTL
	NoSkip bool
	// Clear wipes existing provider attributes before applying the fetched
	// ones, so fields the extractor no longer returns do not linger
	Clear bool
	// Concurrency overrides the provider's default worker count
	Concurrency int
}

// Result summarizes a completed fetch job
type Result struct {
	Provider   stock.Provider
	Successful []stock.Stock
	Skipped    []stock.Stock
	Failed     []stock.Stock
}

// Orchestrator is the top-level fetch coordinator
type Orchestrator struct {
	store       contracts.Store
	updater     *update.Engine
	notifier    contracts.Notifier
	forensics   contracts.Forensics
	individual  map[stock.Provider]contracts.IndividualFetcher
	bulk        map[stock.Provider]contracts.BulkFetcher
	alertsTo    []string
	logger      *logger.Logger
	now         func() time.Time
}

// NewOrchestrator creates a fetch orchestrator. alertRecipients receive
// operational alerts when a previously-known attribute fails to extract.
func NewOrchestrator(
	store contracts.Store,
	updater *update.Engine,
	notifier contracts.Notifier,
	forensics contracts.Forensics,
	alertRecipients []string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		updater:    updater,
		notifier:   notifier,
		forensics:  forensics,
		individual: make(map[stock.Provider]contracts.IndividualFetcher),
		bulk:       make(map[stock.Provider]contracts.BulkFetcher),
		alertsTo:   alertRecipients,
		logger:     log.WithField("module", "fetch"),
		now:        time.Now,
	}
}

// RegisterIndividual registers an individual-cardinality extractor
func (o *Orchestrator) RegisterIndividual(f contracts.IndividualFetcher) {
	o.individual[f.Provider()] = f
}

// RegisterBulk registers a bulk-cardinality extractor
func (o *Orchestrator) RegisterBulk(f contracts.BulkFetcher) {
	o.bulk[f.Provider()] = f
}

// FetchFromProvider runs one fetch job against a provider and returns the
// successfully refreshed stocks. Multi-stock jobs swallow per-stock
// extraction failures; the job itself only fails when the queue could not be
// drained (circuit breaker) or the bulk upstream was unavailable.
func (o *Orchestrator) FetchFromProvider(ctx context.Context, provider stock.Provider, opts Options) (*Result, error) {
	desc, ok := stock.DescriptorFor(provider)
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", provider, contracts.ErrNotFound)
	}

	ws, err := o.buildWorkspace(ctx, desc, opts)
	if err != nil {
		return nil, err
	}

	log := o.logger.WithFields(map[string]interface{}{
		"provider": provider,
		"queued":   ws.QueuedCount(),
		"skipped":  len(ws.Skipped()),
	})
	log.Info("Fetch job started")

	var jobErr error
	if desc.Cardinality == stock.Bulk {
		jobErr = o.runBulk(ctx, desc, ws, opts)
	} else {
		jobErr = o.runIndividual(ctx, desc, ws, opts)
	}
	if jobErr != nil {
		return nil, jobErr
	}

	result := &Result{
		Provider:   provider,
		Successful: ws.Successful(),
		Skipped:    ws.Skipped(),
		Failed:     ws.Failed(),
	}

	log.WithFields(map[string]interface{}{
		"successful": len(result.Successful),
		"failed":     len(result.Failed),
		"skipped":    len(result.Skipped),
	}).Info("Fetch job completed")

	if ws.Tripped() {
		return result, &contracts.AbortedError{
			Provider:  provider,
			Failed:    len(result.Failed),
			Abandoned: len(result.Skipped),
		}
	}
	return result, nil
}

// buildWorkspace selects the eligible stocks and applies the TTL skip policy
func (o *Orchestrator) buildWorkspace(ctx context.Context, desc stock.Descriptor, opts Options) (*Workspace, error) {
	var stocks []stock.Stock

	if opts.Ticker != "" {
		s, err := o.store.Get(ctx, opts.Ticker)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", opts.Ticker, err)
		}
		if id, ok := s.Attrs.String(desc.IDField); !ok || id == "" {
			return nil, fmt.Errorf("%s has no %s identifier: %w", opts.Ticker, desc.Provider, contracts.ErrNotFound)
		}
		stocks = []stock.Stock{s}
	} else {
		// Ordered oldest-lastFetch-first (nulls first) by the store, so
		// attention rotates fairly across the universe
		var err error
		stocks, err = o.store.ListForProvider(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("list stocks for %s: %w", desc.Provider, err)
		}
	}

	ws := NewWorkspace(nil)
	cutoff := o.now().Add(-desc.TTL)
	for _, s := range stocks {
		if !opts.NoSkip {
			if lastFetch, ok := s.Attrs.Time(desc.LastFetch); ok && lastFetch.After(cutoff) {
				ws.Skip(s)
				continue
			}
		}
		ws.queued = append(ws.queued, s)
	}
	return ws, nil
}

// runIndividual drains the queue with a bounded worker pool. Pop-and-remove
// is atomic across workers; everything else is worker-local.
func (o *Orchestrator) runIndividual(ctx context.Context, desc stock.Descriptor, ws *Workspace, opts Options) error {
	fetcher, ok := o.individual[desc.Provider]
	if !ok {
		return fmt.Errorf("no extractor registered for %s: %w", desc.Provider, contracts.ErrNotFound)
	}

	workers := opts.Concurrency
	if workers <= 0 {
		workers = desc.Concurrency
	}
	if workers <= 0 {
		workers = 1
	}

	singleStock := opts.Ticker != ""
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				s, ok := ws.Pop()
				if !ok {
					return
				}

				attrs, err := fetcher.FetchOne(ctx, s)
				if err != nil {
					o.recordFailure(ctx, desc, ws, s, err)
					if singleStock {
						select {
						case errCh <- err:
						default:
						}
						return
					}
					continue
				}

				o.applyResult(ctx, desc, ws, s, attrs, opts, singleStock, errCh)
			}
		}(i)
	}
	wg.Wait()

	if singleStock {
		select {
		case err := <-errCh:
			return err
		default:
		}
	}
	return nil
}

// runBulk serves the whole queue from a single upstream fetch and dispatches
// the update engine per stock as results are pulled from the shared payload.
func (o *Orchestrator) runBulk(ctx context.Context, desc stock.Descriptor, ws *Workspace, opts Options) error {
	fetcher, ok := o.bulk[desc.Provider]
	if !ok {
		return fmt.Errorf("no extractor registered for %s: %w", desc.Provider, contracts.ErrNotFound)
	}

	// Drain the queue up front; the provider serves everything in one trip
	var batch []stock.Stock
	for {
		s, ok := ws.Pop()
		if !ok {
			break
		}
		batch = append(batch, s)
	}
	if len(batch) == 0 {
		return nil
	}

	outcomes, err := fetcher.FetchMany(ctx, batch)
	if err != nil {
		// The shared fetch itself failed: put nothing in failed, the stocks
		// stay eligible next run
		for _, s := range batch {
			ws.Skip(s)
		}
		return &contracts.UpstreamError{Provider: desc.Provider, Err: err}
	}

	singleStock := opts.Ticker != ""
	errCh := make(chan error, 1)

	for i, s := range batch {
		if ws.Tripped() {
			// Breaker fired mid-payload, preserve the rest for next run
			for _, rest := range batch[i:] {
				ws.Skip(rest)
			}
			break
		}

		outcome, found := outcomes[s.Ticker]
		if !found {
			outcome.Err = &contracts.ExtractionError{
				Provider: desc.Provider,
				Ticker:   s.Ticker,
				Err:      fmt.Errorf("ticker missing from bulk payload"),
			}
		}
		if outcome.Err != nil {
			o.recordFailure(ctx, desc, ws, s, outcome.Err)
			if singleStock {
				return outcome.Err
			}
			continue
		}

		o.applyResult(ctx, desc, ws, s, outcome.Attrs, opts, singleStock, errCh)
	}

	if singleStock {
		select {
		case err := <-errCh:
			return err
		default:
		}
	}
	return nil
}

// applyResult stamps lastFetch, applies the clear option and pushes the
// attributes through the update engine.
func (o *Orchestrator) applyResult(
	ctx context.Context,
	desc stock.Descriptor,
	ws *Workspace,
	s stock.Stock,
	attrs stock.Attributes,
	opts Options,
	singleStock bool,
	errCh chan<- error,
) {
	proposed := attrs.Clone()
	proposed[desc.LastFetch] = o.now()

	if opts.Clear {
		// Explicitly clear every owned metric the extractor did not return
		for _, field := range desc.Fields {
			if _, ok := proposed[field]; !ok {
				proposed[field] = nil
			}
		}
	}

	if err := o.updater.Update(ctx, s.Ticker, proposed, update.Options{}); err != nil {
		o.logger.WithError(err).WithFields(map[string]interface{}{
			"provider": desc.Provider,
			"ticker":   s.Ticker,
		}).Error("Failed to persist fetched attributes")
		ws.MarkFailed(s)
		if singleStock {
			select {
			case errCh <- err:
			default:
			}
		}
		return
	}

	ws.MarkSuccess(s)
}

// recordFailure files the stock as failed, persists a forensic snapshot of
// the raw response and alerts only when the failure is a regression, i.e.
// the stock previously had a value the provider now fails to deliver.
// lastFetch is deliberately not advanced so the stock retries next run.
func (o *Orchestrator) recordFailure(ctx context.Context, desc stock.Descriptor, ws *Workspace, s stock.Stock, err error) {
	tripped := ws.MarkFailed(s)

	log := o.logger.WithError(err).WithFields(map[string]interface{}{
		"provider": desc.Provider,
		"ticker":   s.Ticker,
	})

	var forensicRef string
	if extractionErr, ok := err.(*contracts.ExtractionError); ok && len(extractionErr.RawSnapshot) > 0 {
		ref, storeErr := o.forensics.Store(ctx, extractionErr.RawSnapshot, extractionErr.ContentType, int(forensicRetention.Seconds()))
		if storeErr != nil {
			log.WithError(storeErr).Warn("Failed to store forensic snapshot")
		} else {
			forensicRef = ref
			log = log.WithField("forensics", ref)
		}
	}

	if o.isRegression(desc, s) {
		// A value users already rely on just went dark: operational error
		log.Error("Extraction regression")
		msg := fmt.Sprintf("%s: %s extraction failed for previously known data (%v)", s.Ticker, desc.Provider, err)
		if forensicRef != "" {
			msg += fmt.Sprintf(" [snapshot %s]", forensicRef)
		}
		if len(o.alertsTo) > 0 {
			o.notifier.Send(ctx, msg, o.alertsTo)
		}
	} else {
		// The stock never had this data, not worth waking anyone up
		log.Debug("Extraction failed for attribute that was never known")
	}

	if tripped {
		o.logger.WithFields(map[string]interface{}{
			"provider": desc.Provider,
			"failed":   breakerThreshold,
		}).Error("Circuit breaker tripped, abandoning remaining queue")
	}
}

// isRegression reports whether the stock currently holds a non-null value
// for any metric the provider owns.
func (o *Orchestrator) isRegression(desc stock.Descriptor, s stock.Stock) bool {
	for _, field := range desc.Fields {
		if s.Attrs.Has(field) {
			return true
		}
	}
	return false
}
