package msci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func TestParseRating(t *testing.T) {
	body := []byte(`{"ESG_RATING": "aa", "IMPLIED_TEMP_RISE": 1.8}`)

	attrs, err := parseRating(body)
	require.NoError(t, err)

	assert.Equal(t, "AA", attrs[stock.FieldMSCIESGRating], "grades are normalized to upper case")
	assert.Equal(t, 1.8, attrs[stock.FieldMSCIImpliedTemperature])
}

func TestParseRatingWithoutTemperature(t *testing.T) {
	attrs, err := parseRating([]byte(`{"ESG_RATING": "BBB"}`))
	require.NoError(t, err)

	assert.Equal(t, "BBB", attrs[stock.FieldMSCIESGRating])
	_, present := attrs[stock.FieldMSCIImpliedTemperature]
	assert.False(t, present)
}

func TestParseRatingRejectsUnknownGrade(t *testing.T) {
	// A grade outside CCC..AAA means the payload layout changed
	_, err := parseRating([]byte(`{"ESG_RATING": "A+"}`))
	assert.Error(t, err)
}

func TestParseRatingEmptyPayload(t *testing.T) {
	_, err := parseRating([]byte(`{}`))
	assert.Error(t, err)
}
