package marketscreener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

const consensusPage = `
<html><body>
<div class="consensus-block">
  <span class="consensus-verdict">Accumulate</span>
  <p>Based on 24 analysts</p>
  <span class="consensus-target">198.50 USD</span>
  <span class="consensus-last-price">172.30 USD</span>
</div>
<table class="recommendation-split">
  <tr><td>Buy</td><td class="count">8</td></tr>
  <tr><td>Outperform</td><td class="count">9</td></tr>
  <tr><td>Hold</td><td class="count">5</td></tr>
  <tr><td>Underperform</td><td class="count">2</td></tr>
  <tr><td>Sell</td><td class="count">0</td></tr>
</table>
</body></html>`

func TestParseConsensusHTML(t *testing.T) {
	attrs, err := parseConsensusHTML([]byte(consensusPage))
	require.NoError(t, err)

	assert.Equal(t, "OUTPERFORM", attrs[stock.FieldMarketScreenerAnalystConsensus])
	assert.Equal(t, 24.0, attrs[stock.FieldMarketScreenerAnalystCount])
	assert.Equal(t, 198.5, attrs[stock.FieldMarketScreenerAnalystTargetPrice])
	assert.Equal(t, 172.3, attrs[stock.FieldMarketScreenerLastClose])
	assert.Equal(t, []float64{8, 9, 5, 2, 0}, attrs[stock.FieldMarketScreenerRecommendationSplit])
}

func TestParseConsensusHTMLMissingBlock(t *testing.T) {
	_, err := parseConsensusHTML([]byte(`<html><body><p>page moved</p></body></html>`))
	assert.Error(t, err)
}

func TestParseConsensusHTMLIncompleteSplit(t *testing.T) {
	page := `
<html><body>
<div class="consensus-block"><span class="consensus-verdict">Hold</span><p>3 analysts</p></div>
<table class="recommendation-split">
  <tr><td>Buy</td><td class="count">1</td></tr>
  <tr><td>Hold</td><td class="count">2</td></tr>
</table>
</body></html>`

	attrs, err := parseConsensusHTML([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "HOLD", attrs[stock.FieldMarketScreenerAnalystConsensus])
	_, present := attrs[stock.FieldMarketScreenerRecommendationSplit]
	assert.False(t, present, "a split with missing buckets is dropped, not padded")
}

func TestNormalizeConsensus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Accumulate", "OUTPERFORM"},
		{"REDUCE", "UNDERPERFORM"},
		{"buy", "BUY"},
		{"  Hold ", "HOLD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeConsensus(tt.in))
	}
}

func TestParsePrice(t *testing.T) {
	v, ok := parsePrice("1,234.56 EUR")
	require.True(t, ok)
	assert.Equal(t, 1234.56, v)

	_, ok = parsePrice("")
	assert.False(t, ok)

	_, ok = parsePrice("n/a")
	assert.False(t, ok)
}
