package fetch

import (
	"sync"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// breakerThreshold is the per-job failure count that trips the circuit
// breaker. Global per job, not per worker.
const breakerThreshold = 10

// Workspace is the ephemeral per-job state. It partitions the stock set into
// four disjoint lists; a stock occupies exactly one at any time, and the
// queue is empty by the time the job completes.
//
// The queue is the only state mutated concurrently: workers pop under the
// mutex, everything else they touch is worker-local.
type Workspace struct {
	mu         sync.Mutex
	queued     []stock.Stock
	skipped    []stock.Stock
	successful []stock.Stock
	failed     []stock.Stock
	tripped    bool
}

// NewWorkspace creates a workspace with the given initial queue
func NewWorkspace(queued []stock.Stock) *Workspace {
	return &Workspace{queued: queued}
}

// Skip moves a stock directly into the skipped list before dispatch
func (w *Workspace) Skip(s stock.Stock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.skipped = append(w.skipped, s)
}

// Pop atomically removes and returns the head of the queue. Returns false
// when the queue is drained or the breaker has tripped.
func (w *Workspace) Pop() (stock.Stock, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tripped || len(w.queued) == 0 {
		return stock.Stock{}, false
	}
	s := w.queued[0]
	w.queued = w.queued[1:]
	return s, true
}

// MarkSuccess records a successfully processed stock
func (w *Workspace) MarkSuccess(s stock.Stock) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.successful = append(w.successful, s)
}

// MarkFailed records a failed stock. When the failure count reaches the
// breaker threshold the workspace trips: every still-queued stock moves to
// skipped so it stays eligible for the next scheduled run, and Pop starts
// returning false. Returns true when this call tripped the breaker.
func (w *Workspace) MarkFailed(s stock.Stock) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failed = append(w.failed, s)
	if w.tripped || len(w.failed) < breakerThreshold {
		return false
	}
	w.tripped = true
	w.skipped = append(w.skipped, w.queued...)
	w.queued = nil
	return true
}

// Tripped reports whether the circuit breaker has fired
func (w *Workspace) Tripped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tripped
}

// Successful returns the successfully processed stocks (unordered contract)
func (w *Workspace) Successful() []stock.Stock {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]stock.Stock(nil), w.successful...)
}

// Skipped returns the skipped stocks
func (w *Workspace) Skipped() []stock.Stock {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]stock.Stock(nil), w.skipped...)
}

// Failed returns the failed stocks
func (w *Workspace) Failed() []stock.Stock {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]stock.Stock(nil), w.failed...)
}

// QueuedCount returns the number of stocks still waiting
func (w *Workspace) QueuedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queued)
}
