package spglobal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataset(t *testing.T) {
	body := []byte(`[
		{"companyId": "apple-inc", "esgScore": 68},
		{"companyId": "microsoft-corp", "esgScore": 74.5},
		{"companyId": "no-score-co"},
		{"esgScore": 50}
	]`)

	byID, err := parseDataset(body)
	require.NoError(t, err)

	assert.Equal(t, 68.0, byID["APPLE-INC"], "index is case-insensitive via upper-casing")
	assert.Equal(t, 74.5, byID["MICROSOFT-CORP"])
	assert.Len(t, byID, 2, "entries without id or score are dropped")
}

func TestParseDatasetEmpty(t *testing.T) {
	_, err := parseDataset([]byte(`[]`))
	assert.Error(t, err)
}

func TestParseDatasetMalformed(t *testing.T) {
	_, err := parseDataset([]byte(`{"error": "rate limited"}`))
	assert.Error(t, err)
}
