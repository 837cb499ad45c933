package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func TestDecodeAttributesNormalizesKinds(t *testing.T) {
	fetched := time.Date(2026, 8, 1, 7, 0, 0, 0, time.UTC)
	encoded, err := encodeAttributes(stock.Attributes{
		stock.FieldMorningstarStarRating:             4.0,
		stock.FieldMSCIESGRating:                     "AA",
		stock.FieldMSCILastFetch:                     fetched,
		stock.FieldMarketScreenerRecommendationSplit: []float64{8, 9, 5, 2, 0},
		stock.FieldCSRHubSubscores:                   map[string]float64{"community": 58},
		stock.FieldFinancialScore:                    0.5,
	})
	require.NoError(t, err)

	attrs, err := decodeAttributes(encoded)
	require.NoError(t, err)

	assert.Equal(t, 4.0, attrs[stock.FieldMorningstarStarRating])
	assert.Equal(t, "AA", attrs[stock.FieldMSCIESGRating])
	assert.Equal(t, []float64{8, 9, 5, 2, 0}, attrs[stock.FieldMarketScreenerRecommendationSplit])
	assert.Equal(t, map[string]float64{"community": 58}, attrs[stock.FieldCSRHubSubscores])
	assert.Equal(t, 0.5, attrs[stock.FieldFinancialScore], "derived fields survive a round trip")

	lastFetch, ok := attrs.Time(stock.FieldMSCILastFetch)
	require.True(t, ok, "timestamps come back as time.Time, not strings")
	assert.True(t, lastFetch.Equal(fetched))
}

func TestDecodeAttributesDropsUnknownAndNull(t *testing.T) {
	attrs, err := decodeAttributes([]byte(`{
		"color": "red",
		"refinitivESGScore": null,
		"msciESGRating": "BBB"
	}`))
	require.NoError(t, err)

	assert.Equal(t, stock.Attributes{stock.FieldMSCIESGRating: "BBB"}, attrs)
}

func TestDecodeAttributesEmpty(t *testing.T) {
	attrs, err := decodeAttributes(nil)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}
