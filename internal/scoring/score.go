// Package scoring maps a stock's raw provider attributes to three comparable
// scores in [-1, 1]. Pure functions, no I/O: recomputing on unchanged input
// yields identical output, which the update engine relies on.
package scoring

import (
	"strings"

	"github.com/mkuhn/stockscores/backend/internal/stock"
)

// ConsensusScale orders analyst consensus values worst to best
var ConsensusScale = []string{"SELL", "UNDERPERFORM", "HOLD", "OUTPERFORM", "BUY"}

// ESGRatingScale orders MSCI ESG ratings worst to best
var ESGRatingScale = []string{"CCC", "B", "BB", "BBB", "A", "AA", "AAA"}

// Derived holds all derived attributes. Nil means the inputs needed to
// compute the value are missing.
type Derived struct {
	FinancialScore *float64
	ESGScore       *float64
	TotalScore     *float64

	FairValuePercentageToLastClose   *float64
	TargetPricePercentageToLastClose *float64
	PositionIn52w                    *float64
}

// Compute derives all scores from the raw attributes
func Compute(a stock.Attributes) Derived {
	d := Derived{
		FinancialScore:                   financialScore(a),
		ESGScore:                         esgScore(a),
		FairValuePercentageToLastClose:   percentageToLastClose(a, stock.FieldMorningstarFairValue, stock.FieldMorningstarLastClose),
		TargetPricePercentageToLastClose: percentageToLastClose(a, stock.FieldMarketScreenerAnalystTargetPrice, stock.FieldMarketScreenerLastClose),
		PositionIn52w:                    positionIn52w(a),
	}
	d.TotalScore = totalScore(d.FinancialScore, d.ESGScore)
	return d
}

// Apply recomputes the derived fields in place. Missing inputs clear the
// corresponding field so stale scores never survive a raw-attribute clear.
func Apply(a stock.Attributes) {
	d := Compute(a)
	setOrClear(a, stock.FieldFinancialScore, d.FinancialScore)
	setOrClear(a, stock.FieldESGScore, d.ESGScore)
	setOrClear(a, stock.FieldTotalScore, d.TotalScore)
	setOrClear(a, stock.FieldMorningstarFairValuePercentageToLastClose, d.FairValuePercentageToLastClose)
	setOrClear(a, stock.FieldAnalystTargetPricePercentageToLastClose, d.TargetPricePercentageToLastClose)
	setOrClear(a, stock.FieldPositionIn52w, d.PositionIn52w)
}

func setOrClear(a stock.Attributes, field string, v *float64) {
	if v == nil {
		delete(a, field)
		return
	}
	a[field] = *v
}

// financialScore aggregates the four financial sub-scores. Dividing by
// max(3, n) penalizes stocks with very few available signals: a single
// glowing metric cannot alone produce a near-+1 score.
func financialScore(a stock.Attributes) *float64 {
	subs := collect(
		starRatingScore(a),
		fairValueScore(a),
		analystConsensusScore(a),
		analystTargetPriceScore(a),
	)
	return aggregate(subs, 3)
}

// esgScore aggregates the six ESG sub-scores with a floor of 4 signals.
func esgScore(a stock.Attributes) *float64 {
	subs := collect(
		esgRatingScore(a),
		impliedTemperatureScore(a),
		centennialScore(a, stock.FieldRefinitivESGScore),
		centennialScore(a, stock.FieldSPGlobalESGScore),
		centennialScore(a, stock.FieldCSRHubESGScore),
		esgRiskScore(a),
	)
	return aggregate(subs, 4)
}

// totalScore combines the two dimensions. Both strictly positive: harmonic
// mean, so a stock cannot coast on one dimension. Otherwise the worse
// dimension caps the total.
func totalScore(financial, esg *float64) *float64 {
	if financial == nil || esg == nil {
		return nil
	}
	f, e := *financial, *esg
	if f > 0 && e > 0 {
		return ptr(2 * f * e / (f + e))
	}
	if f < e {
		return ptr(f)
	}
	return ptr(e)
}

// starRatingScore maps 1..5 stars linearly onto [-1, 1]
func starRatingScore(a stock.Attributes) *float64 {
	stars, ok := a.Number(stock.FieldMorningstarStarRating)
	if !ok {
		return nil
	}
	return ptr(clamp((stars - 3) / 2))
}

// fairValueScore scores the premium or discount of the last close against
// the fair value estimate. 50% discount maps to +1.
func fairValueScore(a stock.Attributes) *float64 {
	lastClose, ok := a.Number(stock.FieldMorningstarLastClose)
	if !ok {
		return nil
	}
	fairValue, ok := a.Number(stock.FieldMorningstarFairValue)
	if !ok || fairValue == 0 {
		return nil
	}
	return ptr(clamp(-((lastClose/fairValue - 1) * 100) / 50))
}

// analystConsensusScore maps the ordered consensus scale onto [-1, 1],
// linearly damped when fewer than 10 analysts cover the stock so
// low-conviction consensus contributes less.
func analystConsensusScore(a stock.Attributes) *float64 {
	consensus, ok := a.String(stock.FieldMarketScreenerAnalystConsensus)
	if !ok {
		return nil
	}
	count, ok := a.Number(stock.FieldMarketScreenerAnalystCount)
	if !ok || count == 0 {
		return nil
	}
	idx := scaleIndex(ConsensusScale, consensus)
	if idx < 0 {
		return nil
	}
	score := 0.5*float64(idx) - 1
	return ptr(clamp(score * damping(count)))
}

// analystTargetPriceScore applies the fair-value formula to the analyst
// target price, gated and damped by analyst count.
func analystTargetPriceScore(a stock.Attributes) *float64 {
	lastClose, ok := a.Number(stock.FieldMarketScreenerLastClose)
	if !ok {
		return nil
	}
	target, ok := a.Number(stock.FieldMarketScreenerAnalystTargetPrice)
	if !ok || target == 0 {
		return nil
	}
	count, ok := a.Number(stock.FieldMarketScreenerAnalystCount)
	if !ok || count == 0 {
		return nil
	}
	score := -((lastClose/target - 1) * 100) / 50
	return ptr(clamp(score * damping(count)))
}

// esgRatingScore maps CCC..AAA linearly onto [-1, 1]
func esgRatingScore(a stock.Attributes) *float64 {
	rating, ok := a.String(stock.FieldMSCIESGRating)
	if !ok {
		return nil
	}
	idx := scaleIndex(ESGRatingScale, rating)
	if idx < 0 {
		return nil
	}
	return ptr(clamp(float64(idx)/3 - 1))
}

// impliedTemperatureScore rewards a low implied temperature rise. 2°C scores
// zero; anything at or below 1°C is capped at +1.
func impliedTemperatureScore(a stock.Attributes) *float64 {
	temp, ok := a.Number(stock.FieldMSCIImpliedTemperature)
	if !ok {
		return nil
	}
	score := 2 - temp
	if score > 1 {
		score = 1
	}
	return ptr(clamp(score))
}

// centennialScore rescales a 0..100 provider ESG score onto [-1, 1]
func centennialScore(a stock.Attributes, field string) *float64 {
	score, ok := a.Number(field)
	if !ok {
		return nil
	}
	return ptr(clamp((score - 50) / 50))
}

// esgRiskScore rescales the Sustainalytics risk figure; risk 0 is best,
// risk 40+ pins the sub-score at -1.
func esgRiskScore(a stock.Attributes) *float64 {
	risk, ok := a.Number(stock.FieldSustainalyticsESGRisk)
	if !ok {
		return nil
	}
	return ptr(clamp(1 - risk/20))
}

// percentageToLastClose returns how far value sits from the reference close,
// in percent. A zero or missing denominator yields nil, never NaN.
func percentageToLastClose(a stock.Attributes, valueField, closeField string) *float64 {
	value, ok := a.Number(valueField)
	if !ok {
		return nil
	}
	lastClose, ok := a.Number(closeField)
	if !ok || lastClose == 0 {
		return nil
	}
	return ptr((value/lastClose - 1) * 100)
}

// positionIn52w locates the last close inside the 52-week range
func positionIn52w(a stock.Attributes) *float64 {
	lastClose, ok := a.Number(stock.FieldMorningstarLastClose)
	if !ok {
		return nil
	}
	low, ok := a.Number(stock.FieldMorningstarFiftyTwoWeekLow)
	if !ok {
		return nil
	}
	high, ok := a.Number(stock.FieldMorningstarFiftyTwoWeekHigh)
	if !ok || high == low {
		return nil
	}
	return ptr((lastClose - low) / (high - low))
}

// ScaleIndex returns the position of value in the ordered scale, -1 if the
// value is not part of the scale. Comparison is case-insensitive.
func scaleIndex(scale []string, value string) int {
	for i, s := range scale {
		if strings.EqualFold(s, value) {
			return i
		}
	}
	return -1
}

// ConsensusIndex exposes the consensus scale position for digest direction
func ConsensusIndex(value string) int {
	return scaleIndex(ConsensusScale, value)
}

// ESGRatingIndex exposes the ESG rating scale position for digest direction
func ESGRatingIndex(value string) int {
	return scaleIndex(ESGRatingScale, value)
}

// damping scales a sub-score down when fewer than 10 analysts contribute
func damping(analystCount float64) float64 {
	if analystCount >= 10 {
		return 1
	}
	return analystCount / 10
}

// aggregate averages the available sub-scores over max(minSignals, n).
// Missing sub-scores are excluded, never treated as zero.
func aggregate(subs []float64, minSignals int) *float64 {
	if len(subs) == 0 {
		return nil
	}
	sum := 0.0
	for _, s := range subs {
		sum += s
	}
	n := len(subs)
	if n < minSignals {
		n = minSignals
	}
	return ptr(clamp(sum / float64(n)))
}

func collect(subs ...*float64) []float64 {
	out := make([]float64, 0, len(subs))
	for _, s := range subs {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func ptr(v float64) *float64 {
	return &v
}
