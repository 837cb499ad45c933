package csrhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func TestParseScoreHTML(t *testing.T) {
	page := `
<html><body>
<span class="overall-rating-value">57</span>
<table class="subcategory-ratings">
  <tr><td class="subcategory-name">Community</td><td class="subcategory-value">58</td></tr>
  <tr><td class="subcategory-name">Employees</td><td class="subcategory-value">55</td></tr>
  <tr><td class="subcategory-name">Environment</td><td class="subcategory-value">60</td></tr>
  <tr><td class="subcategory-name">Governance</td><td class="subcategory-value">54</td></tr>
</table>
</body></html>`

	attrs, err := parseScoreHTML([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, 57.0, attrs[stock.FieldCSRHubESGScore])
	assert.Equal(t, map[string]float64{
		"community":   58,
		"employees":   55,
		"environment": 60,
		"governance":  54,
	}, attrs[stock.FieldCSRHubSubscores])
}

func TestParseScoreHTMLWithoutSubscores(t *testing.T) {
	attrs, err := parseScoreHTML([]byte(`<html><body><span class="overall-rating-value">61</span></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, 61.0, attrs[stock.FieldCSRHubESGScore])
	_, present := attrs[stock.FieldCSRHubSubscores]
	assert.False(t, present, "subscores are optional")
}

func TestParseScoreHTMLMissingOverall(t *testing.T) {
	_, err := parseScoreHTML([]byte(`<html><body><p>sign in to view ratings</p></body></html>`))
	assert.Error(t, err)
}

func TestParseScoreHTMLOutOfRange(t *testing.T) {
	_, err := parseScoreHTML([]byte(`<html><body><span class="overall-rating-value">170</span></body></html>`))
	assert.Error(t, err)
}
