package contracts

import (
	"errors"
	"fmt"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// ErrNotFound indicates an unknown ticker or provider
var ErrNotFound = errors.New("not found")

// ErrNoChange is returned from a mutate callback to signal that the current
// row should be left untouched. Store implementations swallow it.
var ErrNoChange = errors.New("no change")

// InvalidRequestError indicates a malformed update, e.g. a proposed field the
// entity schema does not know. Always fatal to the single update call.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: field %q %s", e.Field, e.Reason)
}

// ExtractionError is a provider-specific per-stock failure. It carries the
// raw response so operators can inspect what the page looked like when
// extraction broke.
type ExtractionError struct {
	Provider    stock.Provider
	Ticker      string
	RawSnapshot []byte
	ContentType string
	Err         error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed for %s: %v", e.Provider, e.Ticker, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// UpstreamError indicates the bulk-source fetch itself failed, as opposed to
// a per-item extraction failure.
type UpstreamError struct {
	Provider stock.Provider
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream unavailable: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AbortedError indicates the circuit breaker tripped with stocks still
// queued. Abandoned stocks are preserved as skipped for the next run.
type AbortedError struct {
	Provider  stock.Provider
	Failed    int
	Abandoned int
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("%s fetch aborted after %d failures, %d stocks abandoned", e.Provider, e.Failed, e.Abandoned)
}
