package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		a    interface{}
		b    interface{}
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, 1.0, false},
		{"value vs nil", "AAA", nil, false},
		{"equal numbers", 4.0, 4.0, true},
		{"different numbers", 4.0, 5.0, false},
		{"equal strings", "BUY", "BUY", true},
		{"different strings", "BUY", "SELL", false},
		{"number vs string", 4.0, "4", false},
		{"equal times", now, now.UTC(), true},
		{"different times", now, now.Add(time.Second), false},
		{"equal lists fresh instances", []float64{1, 2, 3}, []float64{1, 2, 3}, true},
		{"different list values", []float64{1, 2, 3}, []float64{1, 2, 4}, false},
		{"different list lengths", []float64{1, 2}, []float64{1, 2, 3}, false},
		{"equal maps fresh instances", map[string]float64{"env": 60, "gov": 55}, map[string]float64{"gov": 55, "env": 60}, true},
		{"different map values", map[string]float64{"env": 60}, map[string]float64{"env": 61}, false},
		{"missing map key", map[string]float64{"env": 60}, map[string]float64{"gov": 60}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestAttributesClone(t *testing.T) {
	orig := Attributes{
		FieldMorningstarStarRating:             4.0,
		FieldMarketScreenerRecommendationSplit: []float64{1, 2, 3, 4, 5},
		FieldCSRHubSubscores:                   map[string]float64{"community": 58},
	}

	clone := orig.Clone()
	require.True(t, Equal(orig[FieldMarketScreenerRecommendationSplit], clone[FieldMarketScreenerRecommendationSplit]))

	// Mutating the clone's containers must not reach the original
	clone[FieldMarketScreenerRecommendationSplit].([]float64)[0] = 99
	clone[FieldCSRHubSubscores].(map[string]float64)["community"] = 99

	assert.Equal(t, 1.0, orig[FieldMarketScreenerRecommendationSplit].([]float64)[0])
	assert.Equal(t, 58.0, orig[FieldCSRHubSubscores].(map[string]float64)["community"])
}

func TestAttributesMerge(t *testing.T) {
	current := Attributes{
		FieldMorningstarStarRating: 4.0,
		FieldMorningstarFairValue:  120.0,
		FieldRefinitivESGScore:     70.0,
	}

	merged := current.Merge(Attributes{
		FieldMorningstarStarRating: 5.0, // overwrite
		FieldRefinitivESGScore:     nil, // explicit clear
		FieldMSCIESGRating:         "AA",
	})

	assert.Equal(t, 5.0, merged[FieldMorningstarStarRating])
	assert.Equal(t, 120.0, merged[FieldMorningstarFairValue])
	assert.Equal(t, "AA", merged[FieldMSCIESGRating])
	assert.False(t, merged.Has(FieldRefinitivESGScore))
	_, present := merged[FieldRefinitivESGScore]
	assert.False(t, present, "cleared field should be absent, not nil-valued")

	// Merge must not mutate the receiver
	assert.Equal(t, 4.0, current[FieldMorningstarStarRating])
	assert.True(t, current.Has(FieldRefinitivESGScore))
}

func TestKnownAndDerivedFields(t *testing.T) {
	assert.True(t, KnownField(FieldMorningstarStarRating))
	assert.True(t, KnownField(FieldTotalScore))
	assert.False(t, KnownField("color"))

	assert.True(t, DerivedField(FieldFinancialScore))
	assert.True(t, DerivedField(FieldPositionIn52w))
	assert.False(t, DerivedField(FieldMorningstarStarRating))
}

func TestFieldKindOf(t *testing.T) {
	kind, ok := FieldKindOf(FieldMSCILastFetch)
	require.True(t, ok)
	assert.Equal(t, KindTime, kind)

	kind, ok = FieldKindOf(FieldCSRHubSubscores)
	require.True(t, ok)
	assert.Equal(t, KindNumberMap, kind)

	// Derived fields live outside the raw schema
	_, ok = FieldKindOf(FieldTotalScore)
	assert.False(t, ok)
}

func TestDescriptorOwnedFields(t *testing.T) {
	d, ok := DescriptorFor(MSCI)
	require.True(t, ok)

	owned := d.OwnedFields()
	assert.ElementsMatch(t, []string{
		FieldMSCIID,
		FieldMSCILastFetch,
		FieldMSCIESGRating,
		FieldMSCIImpliedTemperature,
	}, owned)
}

func TestProviderOwning(t *testing.T) {
	d, ok := ProviderOwning(FieldSustainalyticsID)
	require.True(t, ok)
	assert.Equal(t, Sustainalytics, d.Provider)

	_, ok = ProviderOwning(FieldSustainalyticsESGRisk)
	assert.False(t, ok, "only identifier fields map back to a provider")
}

func TestEveryDescriptorFieldIsInSchema(t *testing.T) {
	for _, d := range Providers() {
		for _, f := range d.OwnedFields() {
			_, ok := FieldKindOf(f)
			assert.True(t, ok, "field %s of %s missing from schema", f, d.Provider)
		}
	}
}
