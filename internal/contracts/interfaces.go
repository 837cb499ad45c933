package contracts

import (
	"context"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// Store is the persistent entity store, a relational table keyed by ticker.
type Store interface {
	// Get returns the stock for the given ticker, or ErrNotFound.
	Get(ctx context.Context, ticker string) (stock.Stock, error)

	// ListForProvider returns every stock carrying a non-empty identifier for
	// the provider, ordered by the provider's lastFetch ascending with nulls
	// first so stocks never fetched get attention first.
	ListForProvider(ctx context.Context, d stock.Descriptor) ([]stock.Stock, error)

	// Mutate runs fn against the current attributes of the row inside a
	// single-row transaction and persists the returned attribute set. fn may
	// return ErrNoChange to leave the row untouched. Concurrent mutations of
	// the same ticker serialize; mutations of different tickers do not.
	Mutate(ctx context.Context, ticker string, fn func(current stock.Attributes) (stock.Attributes, error)) error

	// SubscribersFor returns users subscribed to the stock directly or via a
	// watchlist containing it.
	SubscribersFor(ctx context.Context, ticker string) ([]string, error)
}

// IndividualFetcher extracts attributes for one stock per network round trip.
type IndividualFetcher interface {
	Provider() stock.Provider
	FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error)
}

// FetchOutcome is the per-stock result of a bulk fetch
type FetchOutcome struct {
	Attrs stock.Attributes
	Err   error
}

// BulkFetcher serves many stocks from a single response. A failure of the
// shared fetch is reported as an UpstreamError; per-stock extraction failures
// come back in the outcome map.
type BulkFetcher interface {
	Provider() stock.Provider
	FetchMany(ctx context.Context, stocks []stock.Stock) (map[string]FetchOutcome, error)
}

// Notifier delivers change digests. Fire-and-forget: implementations log
// delivery failures instead of propagating them.
type Notifier interface {
	Send(ctx context.Context, digest string, recipients []string)
}

// Forensics stores raw response snapshots for operator inspection with a
// short retention.
type Forensics interface {
	Store(ctx context.Context, blob []byte, contentType string, ttlSeconds int) (string, error)
}
