// Package update computes the actual delta between a stock's persisted
// attributes and a proposed attribute set, recomputes derived scores on the
// merged result and notifies subscribers about user-visible changes.
package update

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/scoring"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Engine is the update/diff engine
type Engine struct {
	store    contracts.Store
	notifier contracts.Notifier
	logger   *logger.Logger
}

// Options tune a single update call
type Options struct {
	// Force persists and rescores even when no field actually changed
	Force bool
	// Silent suppresses the subscriber notification
	Silent bool
}

// NewEngine creates a new update engine
func NewEngine(store contracts.Store, notifier contracts.Notifier, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   log.WithField("module", "update"),
	}
}

// Update applies a proposed attribute set to the stock. A field absent from
// proposed is left unchanged; a field present with a nil value is explicitly
// cleared. Values equal to the persisted ones are dropped from the change
// set so a re-fetch producing identical data is a no-op.
//
// Fails with ErrNotFound when the ticker is unknown and with
// InvalidRequestError when proposed contains a field outside the entity
// schema or a derived field.
func (e *Engine) Update(ctx context.Context, ticker string, proposed stock.Attributes, opts Options) error {
	if err := validate(proposed); err != nil {
		return err
	}

	var digest string

	err := e.store.Mutate(ctx, ticker, func(current stock.Attributes) (stock.Attributes, error) {
		changes := diff(current, proposed)
		cascadeClearedIdentifiers(current, changes)

		if len(changes) == 0 && !opts.Force {
			return nil, contracts.ErrNoChange
		}

		merged := current.Merge(changes)
		scoring.Apply(merged)

		digest = BuildDigest(ticker, current, changes, merged)
		return merged, nil
	})
	if err != nil {
		if errors.Is(err, contracts.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("update %s: %w", ticker, err)
	}

	if opts.Silent || digest == "" {
		return nil
	}

	recipients, err := e.store.SubscribersFor(ctx, ticker)
	if err != nil {
		// Notification fan-out is best effort, the write already happened
		e.logger.WithError(err).WithField("ticker", ticker).Error("Failed to resolve subscribers")
		return nil
	}
	if len(recipients) > 0 {
		e.notifier.Send(ctx, digest, recipients)
	}

	return nil
}

// validate rejects unknown and scoring-owned fields
func validate(proposed stock.Attributes) error {
	for field := range proposed {
		if !stock.KnownField(field) {
			return &contracts.InvalidRequestError{Field: field, Reason: "is not part of the entity schema"}
		}
		if stock.DerivedField(field) {
			return &contracts.InvalidRequestError{Field: field, Reason: "is derived and cannot be written"}
		}
	}
	return nil
}

// diff keeps only the proposed fields whose value actually differs from the
// persisted one. Explicit nil survives when the field currently has a value.
func diff(current, proposed stock.Attributes) stock.Attributes {
	changes := make(stock.Attributes)
	for field, value := range proposed {
		if value == nil {
			if current.Has(field) {
				changes[field] = nil
			}
			continue
		}
		if !stock.Equal(current[field], value) {
			changes[field] = value
		}
	}
	return changes
}

// cascadeClearedIdentifiers extends the change set so that removing a
// provider identifier also clears every attribute that provider owns. Stale
// metrics from a decommissioned identifier must never linger.
func cascadeClearedIdentifiers(current, changes stock.Attributes) {
	for field, value := range changes {
		cleared := value == nil
		if s, ok := value.(string); ok && s == "" {
			cleared = true
			changes[field] = nil
		}
		if !cleared {
			continue
		}
		d, ok := stock.ProviderOwning(field)
		if !ok {
			continue
		}
		for _, owned := range d.OwnedFields() {
			if owned == field {
				continue
			}
			if current.Has(owned) {
				changes[owned] = nil
			}
		}
	}
}
