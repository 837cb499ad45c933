package refinitiv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

func TestParseScore(t *testing.T) {
	attrs, err := parseScore([]byte(`{"esgScore": 73.4}`))
	require.NoError(t, err)
	assert.Equal(t, 73.4, attrs[stock.FieldRefinitivESGScore])
}

func TestParseScoreMissing(t *testing.T) {
	_, err := parseScore([]byte(`{}`))
	assert.Error(t, err)
}

func TestParseScoreOutOfRange(t *testing.T) {
	_, err := parseScore([]byte(`{"esgScore": 734}`))
	assert.Error(t, err, "a 0..100 score of 734 is a payload change, not data")
}
