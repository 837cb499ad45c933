package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func TestStarRatingScore(t *testing.T) {
	tests := []struct {
		stars float64
		want  float64
	}{
		{1, -1},
		{2, -0.5},
		{3, 0},
		{4, 0.5},
		{5, 1},
	}

	for _, tt := range tests {
		a := stock.Attributes{stock.FieldMorningstarStarRating: tt.stars}
		got := starRatingScore(a)
		require.NotNil(t, got)
		assert.InDelta(t, tt.want, *got, 1e-9, "stars=%v", tt.stars)
	}
}

func TestStarRatingScoreMissing(t *testing.T) {
	assert.Nil(t, starRatingScore(stock.Attributes{}))
}

func TestFairValueScore(t *testing.T) {
	tests := []struct {
		name      string
		lastClose float64
		fairValue float64
		want      float64
	}{
		{"at fair value", 100, 100, 0},
		{"25% premium", 125, 100, -0.5},
		{"25% discount", 75, 100, 0.5},
		{"deep discount capped", 40, 100, 1},
		{"deep premium capped", 220, 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := stock.Attributes{
				stock.FieldMorningstarLastClose: tt.lastClose,
				stock.FieldMorningstarFairValue: tt.fairValue,
			}
			got := fairValueScore(a)
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestFairValueScoreZeroFairValue(t *testing.T) {
	a := stock.Attributes{
		stock.FieldMorningstarLastClose: 100.0,
		stock.FieldMorningstarFairValue: 0.0,
	}
	assert.Nil(t, fairValueScore(a))
}

func TestAnalystConsensusScore(t *testing.T) {
	tests := []struct {
		consensus string
		count     float64
		want      float64
	}{
		{"BUY", 10, 1},
		{"BUY", 20, 1},
		{"OUTPERFORM", 10, 0.5},
		{"HOLD", 10, 0},
		{"UNDERPERFORM", 10, -0.5},
		{"SELL", 10, -1},
		// Fewer than 10 analysts damp the signal linearly
		{"BUY", 5, 0.5},
		{"SELL", 2, -0.2},
	}

	for _, tt := range tests {
		a := stock.Attributes{
			stock.FieldMarketScreenerAnalystConsensus: tt.consensus,
			stock.FieldMarketScreenerAnalystCount:     tt.count,
		}
		got := analystConsensusScore(a)
		require.NotNil(t, got, "consensus=%s", tt.consensus)
		assert.InDelta(t, tt.want, *got, 1e-9, "consensus=%s count=%v", tt.consensus, tt.count)
	}
}

func TestAnalystConsensusScoreUnavailable(t *testing.T) {
	// Zero analysts means no conviction at all, not a neutral signal
	a := stock.Attributes{
		stock.FieldMarketScreenerAnalystConsensus: "BUY",
		stock.FieldMarketScreenerAnalystCount:     0.0,
	}
	assert.Nil(t, analystConsensusScore(a))

	// Unknown scale value
	a = stock.Attributes{
		stock.FieldMarketScreenerAnalystConsensus: "MOON",
		stock.FieldMarketScreenerAnalystCount:     10.0,
	}
	assert.Nil(t, analystConsensusScore(a))
}

func TestImpliedTemperatureScore(t *testing.T) {
	tests := []struct {
		temp float64
		want float64
	}{
		{1.0, 1},  // capped above at +1
		{1.5, 0.5},
		{2.0, 0},
		{3.0, -1},
		{5.0, -1}, // clamped below
	}

	for _, tt := range tests {
		a := stock.Attributes{stock.FieldMSCIImpliedTemperature: tt.temp}
		got := impliedTemperatureScore(a)
		require.NotNil(t, got)
		assert.InDelta(t, tt.want, *got, 1e-9, "temp=%v", tt.temp)
	}
}

func TestESGRatingScore(t *testing.T) {
	tests := []struct {
		rating string
		want   float64
	}{
		{"CCC", -1},
		{"BBB", 0},
		{"AAA", 1},
	}

	for _, tt := range tests {
		a := stock.Attributes{stock.FieldMSCIESGRating: tt.rating}
		got := esgRatingScore(a)
		require.NotNil(t, got)
		assert.InDelta(t, tt.want, *got, 1e-9, "rating=%s", tt.rating)
	}
}

func TestCentennialScore(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{0, -1},
		{50, 0},
		{100, 1},
		{75, 0.5},
	}

	for _, tt := range tests {
		a := stock.Attributes{stock.FieldRefinitivESGScore: tt.score}
		got := centennialScore(a, stock.FieldRefinitivESGScore)
		require.NotNil(t, got)
		assert.InDelta(t, tt.want, *got, 1e-9, "score=%v", tt.score)
	}
}

func TestESGRiskScore(t *testing.T) {
	tests := []struct {
		risk float64
		want float64
	}{
		{0, 1},
		{20, 0},
		{40, -1},
		{60, -1}, // clamped
	}

	for _, tt := range tests {
		a := stock.Attributes{stock.FieldSustainalyticsESGRisk: tt.risk}
		got := esgRiskScore(a)
		require.NotNil(t, got)
		assert.InDelta(t, tt.want, *got, 1e-9, "risk=%v", tt.risk)
	}
}

func TestFinancialScoreReferenceFixtures(t *testing.T) {
	// Rating 3 with no other financial signal: single neutral signal
	a := stock.Attributes{stock.FieldMorningstarStarRating: 3.0}
	got := financialScore(a)
	require.NotNil(t, got)
	assert.Zero(t, *got)

	// 1 star and every other financial signal poor
	a = stock.Attributes{
		stock.FieldMorningstarStarRating:            1.0,
		stock.FieldMorningstarLastClose:             200.0,
		stock.FieldMorningstarFairValue:             100.0,
		stock.FieldMarketScreenerAnalystConsensus:   "SELL",
		stock.FieldMarketScreenerAnalystCount:       15.0,
		stock.FieldMarketScreenerAnalystTargetPrice: 100.0,
		stock.FieldMarketScreenerLastClose:          200.0,
	}
	got = financialScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, -1, *got, 1e-9)

	// 5 stars and every other financial signal excellent
	a = stock.Attributes{
		stock.FieldMorningstarStarRating:            5.0,
		stock.FieldMorningstarLastClose:             50.0,
		stock.FieldMorningstarFairValue:             100.0,
		stock.FieldMarketScreenerAnalystConsensus:   "BUY",
		stock.FieldMarketScreenerAnalystCount:       15.0,
		stock.FieldMarketScreenerAnalystTargetPrice: 100.0,
		stock.FieldMarketScreenerLastClose:          50.0,
	}
	got = financialScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, 1, *got, 1e-9)
}

func TestFinancialScorePenalizesSparseSignals(t *testing.T) {
	// A single +1 signal divided by the floor of 3
	a := stock.Attributes{stock.FieldMorningstarStarRating: 5.0}
	got := financialScore(a)
	require.NotNil(t, got)
	assert.InDelta(t, 1.0/3.0, *got, 1e-9)
}

func TestFinancialScoreNoSignals(t *testing.T) {
	assert.Nil(t, financialScore(stock.Attributes{}))
}

func TestTotalScore(t *testing.T) {
	tests := []struct {
		name      string
		financial *float64
		esg       *float64
		want      *float64
	}{
		{"harmonic mean of equal positives", fp(0.5), fp(0.5), fp(0.5)},
		{"harmonic mean", fp(0.8), fp(0.4), fp(2 * 0.8 * 0.4 / 1.2)},
		{"negative esg caps total", fp(0.5), fp(-0.2), fp(-0.2)},
		{"negative financial caps total", fp(-0.7), fp(0.9), fp(-0.7)},
		{"zero is not strictly positive", fp(0), fp(0.5), fp(0)},
		{"missing financial", nil, fp(0.5), nil},
		{"missing esg", fp(0.5), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := totalScore(tt.financial, tt.esg)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestPercentageToLastClose(t *testing.T) {
	a := stock.Attributes{
		stock.FieldMorningstarFairValue: 120.0,
		stock.FieldMorningstarLastClose: 100.0,
	}
	got := percentageToLastClose(a, stock.FieldMorningstarFairValue, stock.FieldMorningstarLastClose)
	require.NotNil(t, got)
	assert.InDelta(t, 20, *got, 1e-9)

	// Zero denominator yields nil, never NaN
	a[stock.FieldMorningstarLastClose] = 0.0
	assert.Nil(t, percentageToLastClose(a, stock.FieldMorningstarFairValue, stock.FieldMorningstarLastClose))
}

func TestPositionIn52w(t *testing.T) {
	a := stock.Attributes{
		stock.FieldMorningstarLastClose:        75.0,
		stock.FieldMorningstarFiftyTwoWeekLow:  50.0,
		stock.FieldMorningstarFiftyTwoWeekHigh: 100.0,
	}
	got := positionIn52w(a)
	require.NotNil(t, got)
	assert.InDelta(t, 0.5, *got, 1e-9)

	// Degenerate range
	a[stock.FieldMorningstarFiftyTwoWeekHigh] = 50.0
	assert.Nil(t, positionIn52w(a))
}

func TestComputeDeterministic(t *testing.T) {
	a := stock.Attributes{
		stock.FieldMorningstarStarRating:       4.0,
		stock.FieldMorningstarLastClose:        90.0,
		stock.FieldMorningstarFairValue:        100.0,
		stock.FieldMSCIESGRating:               "AA",
		stock.FieldRefinitivESGScore:           70.0,
		stock.FieldSustainalyticsESGRisk:       15.0,
		stock.FieldMorningstarFiftyTwoWeekLow:  60.0,
		stock.FieldMorningstarFiftyTwoWeekHigh: 120.0,
	}

	first := Compute(a)
	second := Compute(a)

	require.NotNil(t, first.TotalScore)
	assert.Equal(t, *first.TotalScore, *second.TotalScore)
	assert.Equal(t, *first.FinancialScore, *second.FinancialScore)
	assert.Equal(t, *first.ESGScore, *second.ESGScore)
	assert.GreaterOrEqual(t, *first.TotalScore, -1.0)
	assert.LessOrEqual(t, *first.TotalScore, 1.0)
}

func TestApplyClearsStaleDerived(t *testing.T) {
	a := stock.Attributes{
		stock.FieldTotalScore: 0.9, // stale, inputs gone
	}
	Apply(a)
	assert.False(t, a.Has(stock.FieldTotalScore))
	assert.False(t, a.Has(stock.FieldFinancialScore))
}

func fp(v float64) *float64 {
	return &v
}
