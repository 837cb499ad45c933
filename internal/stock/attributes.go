package stock

import (
	"time"
)

// Stock is a tracked entity. Identity fields are stable; everything a data
// provider owns lives in Attrs so fetch jobs and the diff engine can treat
// fields uniformly.
type Stock struct {
	Ticker  string
	Name    string
	ISIN    string
	Country string
	Attrs   Attributes
}

// Attributes is a field-keyed attribute set. A key that is absent means
// "unknown / leave unchanged"; a key present with a nil value means
// "explicitly cleared". Values are one of: float64, string, time.Time,
// []float64, map[string]float64, per the field's schema kind.
type Attributes map[string]interface{}

// FieldKind describes the value type of a schema field
type FieldKind int

const (
	KindNumber FieldKind = iota
	KindString
	KindTime
	KindNumberList
	KindNumberMap
)

// Raw attribute field names. One external-identifier field, one lastFetch
// timestamp and a set of metric fields per provider.
const (
	FieldMorningstarID              = "morningstarID"
	FieldMorningstarLastFetch       = "morningstarLastFetch"
	FieldMorningstarStarRating      = "morningstarStarRating"
	FieldMorningstarFairValue       = "morningstarFairValue"
	FieldMorningstarLastClose       = "morningstarLastClose"
	FieldMorningstarFiftyTwoWeekLow = "morningstarFiftyTwoWeekLow"
	FieldMorningstarFiftyTwoWeekHigh = "morningstarFiftyTwoWeekHigh"

	FieldMarketScreenerID                  = "marketScreenerID"
	FieldMarketScreenerLastFetch           = "marketScreenerLastFetch"
	FieldMarketScreenerAnalystConsensus    = "marketScreenerAnalystConsensus"
	FieldMarketScreenerAnalystCount        = "marketScreenerAnalystCount"
	FieldMarketScreenerAnalystTargetPrice  = "marketScreenerAnalystTargetPrice"
	FieldMarketScreenerLastClose           = "marketScreenerLastClose"
	FieldMarketScreenerRecommendationSplit = "marketScreenerRecommendationSplit"

	FieldMSCIID                 = "msciID"
	FieldMSCILastFetch          = "msciLastFetch"
	FieldMSCIESGRating          = "msciESGRating"
	FieldMSCIImpliedTemperature = "msciImpliedTemperature"

	FieldRefinitivID        = "refinitivID"
	FieldRefinitivLastFetch = "refinitivLastFetch"
	FieldRefinitivESGScore  = "refinitivESGScore"

	FieldSPGlobalID        = "spGlobalID"
	FieldSPGlobalLastFetch = "spGlobalLastFetch"
	FieldSPGlobalESGScore  = "spGlobalESGScore"

	FieldSustainalyticsID        = "sustainalyticsID"
	FieldSustainalyticsLastFetch = "sustainalyticsLastFetch"
	FieldSustainalyticsESGRisk   = "sustainalyticsESGRisk"

	FieldCSRHubID        = "csrhubID"
	FieldCSRHubLastFetch = "csrhubLastFetch"
	FieldCSRHubESGScore  = "csrhubESGScore"
	FieldCSRHubSubscores = "csrhubSubscores"
)

// Derived attribute field names. Recomputed from raw attributes on every
// write, never independently written.
const (
	FieldFinancialScore = "financialScore"
	FieldESGScore       = "esgScore"
	FieldTotalScore     = "totalScore"

	FieldMorningstarFairValuePercentageToLastClose = "morningstarFairValuePercentageToLastClose"
	FieldAnalystTargetPricePercentageToLastClose   = "analystTargetPricePercentageToLastClose"
	FieldPositionIn52w                             = "positionIn52w"
)

// schema maps every known attribute field to its value kind.
var schema = map[string]FieldKind{
	FieldMorningstarID:               KindString,
	FieldMorningstarLastFetch:        KindTime,
	FieldMorningstarStarRating:       KindNumber,
	FieldMorningstarFairValue:        KindNumber,
	FieldMorningstarLastClose:        KindNumber,
	FieldMorningstarFiftyTwoWeekLow:  KindNumber,
	FieldMorningstarFiftyTwoWeekHigh: KindNumber,

	FieldMarketScreenerID:                  KindString,
	FieldMarketScreenerLastFetch:           KindTime,
	FieldMarketScreenerAnalystConsensus:    KindString,
	FieldMarketScreenerAnalystCount:        KindNumber,
	FieldMarketScreenerAnalystTargetPrice:  KindNumber,
	FieldMarketScreenerLastClose:           KindNumber,
	FieldMarketScreenerRecommendationSplit: KindNumberList,

	FieldMSCIID:                 KindString,
	FieldMSCILastFetch:          KindTime,
	FieldMSCIESGRating:          KindString,
	FieldMSCIImpliedTemperature: KindNumber,

	FieldRefinitivID:        KindString,
	FieldRefinitivLastFetch: KindTime,
	FieldRefinitivESGScore:  KindNumber,

	FieldSPGlobalID:        KindString,
	FieldSPGlobalLastFetch: KindTime,
	FieldSPGlobalESGScore:  KindNumber,

	FieldSustainalyticsID:        KindString,
	FieldSustainalyticsLastFetch: KindTime,
	FieldSustainalyticsESGRisk:   KindNumber,

	FieldCSRHubID:        KindString,
	FieldCSRHubLastFetch: KindTime,
	FieldCSRHubESGScore:  KindNumber,
	FieldCSRHubSubscores: KindNumberMap,
}

// derived marks fields the scoring engine owns.
var derived = map[string]bool{
	FieldFinancialScore: true,
	FieldESGScore:       true,
	FieldTotalScore:     true,

	FieldMorningstarFairValuePercentageToLastClose: true,
	FieldAnalystTargetPricePercentageToLastClose:   true,
	FieldPositionIn52w:                             true,
}

// KnownField reports whether name is a raw or derived attribute field
func KnownField(name string) bool {
	if _, ok := schema[name]; ok {
		return true
	}
	return derived[name]
}

// DerivedField reports whether name is owned by the scoring engine
func DerivedField(name string) bool {
	return derived[name]
}

// FieldKindOf returns the schema kind for a raw field
func FieldKindOf(name string) (FieldKind, bool) {
	k, ok := schema[name]
	return k, ok
}

// RawFields returns all raw attribute field names (unordered)
func RawFields() []string {
	out := make([]string, 0, len(schema))
	for f := range schema {
		out = append(out, f)
	}
	return out
}

// Equal compares two attribute values structurally. Re-fetching produces
// fresh slice/map instances for identical data; comparing element-wise keeps
// that from registering as a change.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []float64:
		bv, ok := b.([]float64)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case map[string]float64:
		bv, ok := b.(map[string]float64)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || v != w {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of the attribute set
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		switch vv := v.(type) {
		case []float64:
			cp := make([]float64, len(vv))
			copy(cp, vv)
			out[k] = cp
		case map[string]float64:
			cp := make(map[string]float64, len(vv))
			for mk, mv := range vv {
				cp[mk] = mv
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// Merge returns a copy of a with the changes applied. A nil change value
// removes the field (explicit clear).
func (a Attributes) Merge(changes Attributes) Attributes {
	out := a.Clone()
	for k, v := range changes {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Number reads a numeric field; ok is false when absent or not a number
func (a Attributes) Number(field string) (float64, bool) {
	v, ok := a[field].(float64)
	return v, ok
}

// String reads a string field
func (a Attributes) String(field string) (string, bool) {
	v, ok := a[field].(string)
	return v, ok
}

// Time reads a timestamp field
func (a Attributes) Time(field string) (time.Time, bool) {
	v, ok := a[field].(time.Time)
	return v, ok
}

// Has reports whether field is present with a non-nil value
func (a Attributes) Has(field string) bool {
	v, ok := a[field]
	return ok && v != nil
}
