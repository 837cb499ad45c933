package update

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkuhn/stockscores/backend/internal/scoring"
	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// direction classifies a field change for the digest
type direction int

const (
	directionNone direction = iota
	directionBetter
	directionWorse
)

// digestField describes one user-visible field tracked in change digests and
// how to judge whether a change moved in a good direction.
type digestField struct {
	field string
	label string
	// compare returns the direction of a change from old to new, given the
	// merged attribute set for fields whose direction depends on an
	// accompanying reference price.
	compare func(old, new interface{}, merged stock.Attributes) direction
}

// digestFields is the fixed subset of fields worth telling users about,
// in display order.
var digestFields = []digestField{
	{stock.FieldMorningstarStarRating, "Star rating", compareLargerBetter},
	{stock.FieldMorningstarFairValue, "Fair value", comparePriceAgainst(stock.FieldMorningstarLastClose)},
	{stock.FieldMarketScreenerAnalystConsensus, "Analyst consensus", compareConsensus},
	{stock.FieldMarketScreenerAnalystTargetPrice, "Analyst target price", comparePriceAgainst(stock.FieldMarketScreenerLastClose)},
	{stock.FieldMSCIESGRating, "MSCI ESG rating", compareESGRating},
	{stock.FieldMSCIImpliedTemperature, "MSCI implied temperature", compareSmallerBetter},
	{stock.FieldRefinitivESGScore, "Refinitiv ESG score", compareLargerBetter},
	{stock.FieldSPGlobalESGScore, "S&P Global ESG score", compareLargerBetter},
	{stock.FieldCSRHubESGScore, "CSRHub ESG score", compareLargerBetter},
	{stock.FieldSustainalyticsESGRisk, "Sustainalytics ESG risk", compareSmallerBetter},
}

// BuildDigest renders a human-readable, directional change digest for the
// tracked fields present in changes. Returns "" when nothing user-visible
// changed.
func BuildDigest(ticker string, current, changes, merged stock.Attributes) string {
	var lines []string

	for _, df := range digestFields {
		newVal, proposed := changes[df.field]
		if !proposed {
			continue
		}
		oldVal := current[df.field]

		line := fmt.Sprintf("%s: %s → %s", df.label, formatValue(oldVal), formatValue(newVal))
		if oldVal != nil && newVal != nil {
			switch df.compare(oldVal, newVal, merged) {
			case directionBetter:
				line += " (better)"
			case directionWorse:
				line += " (worse)"
			}
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return ""
	}
	return ticker + "\n" + strings.Join(lines, "\n")
}

func formatValue(v interface{}) string {
	switch vv := v.(type) {
	case nil:
		return "–"
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case string:
		return vv
	default:
		return fmt.Sprintf("%v", vv)
	}
}

func compareLargerBetter(old, new interface{}, _ stock.Attributes) direction {
	return compareNumbers(old, new, true)
}

func compareSmallerBetter(old, new interface{}, _ stock.Attributes) direction {
	return compareNumbers(old, new, false)
}

func compareNumbers(old, new interface{}, largerBetter bool) direction {
	o, ok1 := old.(float64)
	n, ok2 := new.(float64)
	if !ok1 || !ok2 || o == n {
		return directionNone
	}
	if (n > o) == largerBetter {
		return directionBetter
	}
	return directionWorse
}

// compareConsensus ranks consensus values on the ordered Sell..Buy scale
func compareConsensus(old, new interface{}, _ stock.Attributes) direction {
	return compareByRank(old, new, scoring.ConsensusIndex, true)
}

// compareESGRating ranks MSCI ratings with AAA best
func compareESGRating(old, new interface{}, _ stock.Attributes) direction {
	return compareByRank(old, new, scoring.ESGRatingIndex, true)
}

func compareByRank(old, new interface{}, rank func(string) int, higherBetter bool) direction {
	o, ok1 := old.(string)
	n, ok2 := new.(string)
	if !ok1 || !ok2 {
		return directionNone
	}
	oi, ni := rank(o), rank(n)
	if oi < 0 || ni < 0 || oi == ni {
		return directionNone
	}
	if (ni > oi) == higherBetter {
		return directionBetter
	}
	return directionWorse
}

// comparePriceAgainst judges a price field by its distance to the reference
// close accompanying it: a fair value or target price moving further above
// the close is the bullish direction regardless of the absolute move.
func comparePriceAgainst(closeField string) func(old, new interface{}, merged stock.Attributes) direction {
	return func(old, new interface{}, merged stock.Attributes) direction {
		o, ok1 := old.(float64)
		n, ok2 := new.(float64)
		if !ok1 || !ok2 || o == n {
			return directionNone
		}
		lastClose, ok := merged.Number(closeField)
		if !ok || lastClose == 0 {
			// No reference price, fall back to the raw move
			return compareNumbers(old, new, true)
		}
		if (n-lastClose)/lastClose > (o-lastClose)/lastClose {
			return directionBetter
		}
		return directionWorse
	}
}
