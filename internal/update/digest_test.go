package update

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func TestBuildDigestEmptyWhenNothingVisibleChanged(t *testing.T) {
	current := stock.Attributes{stock.FieldMorningstarStarRating: 4.0}
	// lastFetch bumps and identifier edits are bookkeeping, not news
	changes := stock.Attributes{
		stock.FieldMorningstarLastFetch: time.Now(),
		stock.FieldMorningstarID:        "0P000000GY",
	}
	merged := current.Merge(changes)

	assert.Empty(t, BuildDigest("AAPL", current, changes, merged))
}

func TestBuildDigestLargerBetter(t *testing.T) {
	current := stock.Attributes{stock.FieldRefinitivESGScore: 60.0}
	changes := stock.Attributes{stock.FieldRefinitivESGScore: 75.0}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "AAPL")
	assert.Contains(t, digest, "Refinitiv ESG score: 60 → 75 (better)")
}

func TestBuildDigestSmallerBetter(t *testing.T) {
	current := stock.Attributes{stock.FieldSustainalyticsESGRisk: 12.0}
	changes := stock.Attributes{stock.FieldSustainalyticsESGRisk: 18.0}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "Sustainalytics ESG risk: 12 → 18 (worse)")
}

func TestBuildDigestConsensusRanked(t *testing.T) {
	current := stock.Attributes{stock.FieldMarketScreenerAnalystConsensus: "HOLD"}
	changes := stock.Attributes{stock.FieldMarketScreenerAnalystConsensus: "BUY"}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "Analyst consensus: HOLD → BUY (better)")
}

func TestBuildDigestESGRatingRanked(t *testing.T) {
	current := stock.Attributes{stock.FieldMSCIESGRating: "AA"}
	changes := stock.Attributes{stock.FieldMSCIESGRating: "BBB"}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "MSCI ESG rating: AA → BBB (worse)")
}

func TestBuildDigestPriceJudgedAgainstClose(t *testing.T) {
	// Target dropped from 150 to 140 but still sits above the close of 100:
	// the move away from the bullish gap is the worse direction.
	current := stock.Attributes{
		stock.FieldMarketScreenerAnalystTargetPrice: 150.0,
		stock.FieldMarketScreenerLastClose:          100.0,
	}
	changes := stock.Attributes{stock.FieldMarketScreenerAnalystTargetPrice: 140.0}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "Analyst target price: 150 → 140 (worse)")
}

func TestBuildDigestPriceFallsBackWithoutClose(t *testing.T) {
	current := stock.Attributes{stock.FieldMorningstarFairValue: 110.0}
	changes := stock.Attributes{stock.FieldMorningstarFairValue: 130.0}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "Fair value: 110 → 130 (better)")
}

func TestBuildDigestNilRenderedAsDash(t *testing.T) {
	current := stock.Attributes{stock.FieldMSCIESGRating: "AA"}
	changes := stock.Attributes{stock.FieldMSCIESGRating: nil}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "MSCI ESG rating: AA → –")
	assert.NotContains(t, digest, "(worse)", "a clear has no direction")
}

func TestBuildDigestNewValueHasNoDirection(t *testing.T) {
	current := stock.Attributes{}
	changes := stock.Attributes{stock.FieldRefinitivESGScore: 70.0}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	assert.Contains(t, digest, "Refinitiv ESG score: – → 70")
	assert.NotContains(t, digest, "(better)")
}

func TestBuildDigestMultipleLinesInDisplayOrder(t *testing.T) {
	current := stock.Attributes{
		stock.FieldMorningstarStarRating: 3.0,
		stock.FieldRefinitivESGScore:     60.0,
	}
	changes := stock.Attributes{
		stock.FieldRefinitivESGScore:     75.0,
		stock.FieldMorningstarStarRating: 4.0,
	}
	merged := current.Merge(changes)

	digest := BuildDigest("AAPL", current, changes, merged)
	starIdx := strings.Index(digest, "Star rating")
	esgIdx := strings.Index(digest, "Refinitiv ESG score")
	assert.Less(t, starIdx, esgIdx, "lines follow the fixed display order, not map order")
}
