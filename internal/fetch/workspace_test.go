package fetch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func makeStocks(n int) []stock.Stock {
	out := make([]stock.Stock, n)
	for i := range out {
		out[i] = stock.Stock{Ticker: fmt.Sprintf("T%02d", i)}
	}
	return out
}

func TestWorkspacePopIsFIFO(t *testing.T) {
	ws := NewWorkspace(makeStocks(3))

	s, ok := ws.Pop()
	require.True(t, ok)
	assert.Equal(t, "T00", s.Ticker)

	s, ok = ws.Pop()
	require.True(t, ok)
	assert.Equal(t, "T01", s.Ticker)

	s, ok = ws.Pop()
	require.True(t, ok)
	assert.Equal(t, "T02", s.Ticker)

	_, ok = ws.Pop()
	assert.False(t, ok)
}

func TestWorkspacePartitioning(t *testing.T) {
	ws := NewWorkspace(makeStocks(3))
	ws.Skip(stock.Stock{Ticker: "SKIP"})

	s, _ := ws.Pop()
	ws.MarkSuccess(s)
	s, _ = ws.Pop()
	ws.MarkFailed(s)

	assert.Equal(t, 1, ws.QueuedCount())
	assert.Len(t, ws.Successful(), 1)
	assert.Len(t, ws.Failed(), 1)
	assert.Len(t, ws.Skipped(), 1)
	assert.False(t, ws.Tripped())
}

func TestWorkspaceBreakerTripsAtThreshold(t *testing.T) {
	ws := NewWorkspace(makeStocks(breakerThreshold + 5))

	for i := 0; i < breakerThreshold; i++ {
		s, ok := ws.Pop()
		require.True(t, ok)
		tripped := ws.MarkFailed(s)
		if i < breakerThreshold-1 {
			assert.False(t, tripped, "failure %d must not trip", i+1)
		} else {
			assert.True(t, tripped, "failure %d must trip", breakerThreshold)
		}
	}

	assert.True(t, ws.Tripped())
	assert.Len(t, ws.Failed(), breakerThreshold)
	// Everything still queued moved to skipped, eligible next run
	assert.Len(t, ws.Skipped(), 5)
	assert.Zero(t, ws.QueuedCount())

	_, ok := ws.Pop()
	assert.False(t, ok, "Pop must refuse once tripped")
}

func TestWorkspaceMarkFailedAfterTrip(t *testing.T) {
	ws := NewWorkspace(makeStocks(breakerThreshold + 2))

	var popped []stock.Stock
	// Two in-flight stocks popped before the breaker fires
	for i := 0; i < 2; i++ {
		s, _ := ws.Pop()
		popped = append(popped, s)
	}
	for i := 0; i < breakerThreshold; i++ {
		s, _ := ws.Pop()
		ws.MarkFailed(s)
	}
	require.True(t, ws.Tripped())

	// Late failures record but report no second trip
	assert.False(t, ws.MarkFailed(popped[0]))
	assert.False(t, ws.MarkFailed(popped[1]))
	assert.Len(t, ws.Failed(), breakerThreshold+2)
}
