package stock

import "time"

// Provider identifies an external rating source
type Provider string

const (
	Morningstar    Provider = "morningstar"
	MarketScreener Provider = "marketscreener"
	MSCI           Provider = "msci"
	Refinitiv      Provider = "refinitiv"
	SPGlobal       Provider = "spglobal"
	Sustainalytics Provider = "sustainalytics"
	CSRHub         Provider = "csrhub"
)

// Cardinality distinguishes providers fetched one stock per round trip from
// providers whose whole dataset comes back in a single response.
type Cardinality int

const (
	Individual Cardinality = iota
	Bulk
)

// Descriptor is static per-provider metadata. Defined once at process start,
// immutable thereafter.
type Descriptor struct {
	Provider    Provider
	IDField     string
	LastFetch   string
	TTL         time.Duration
	Fields      []string // metric fields the provider owns (excludes ID and lastFetch)
	Cardinality Cardinality
	Concurrency int // default worker count for Individual providers
}

// OwnedFields returns every field the provider writes, including its
// identifier and lastFetch timestamp.
func (d Descriptor) OwnedFields() []string {
	out := make([]string, 0, len(d.Fields)+2)
	out = append(out, d.IDField, d.LastFetch)
	out = append(out, d.Fields...)
	return out
}

// descriptors is the provider registry. Order matters only for iteration
// in CLI output.
var descriptors = []Descriptor{
	{
		Provider:  Morningstar,
		IDField:   FieldMorningstarID,
		LastFetch: FieldMorningstarLastFetch,
		TTL:       12 * time.Hour,
		Fields: []string{
			FieldMorningstarStarRating,
			FieldMorningstarFairValue,
			FieldMorningstarLastClose,
			FieldMorningstarFiftyTwoWeekLow,
			FieldMorningstarFiftyTwoWeekHigh,
		},
		Cardinality: Individual,
		Concurrency: 5,
	},
	{
		Provider:  MarketScreener,
		IDField:   FieldMarketScreenerID,
		LastFetch: FieldMarketScreenerLastFetch,
		TTL:       12 * time.Hour,
		Fields: []string{
			FieldMarketScreenerAnalystConsensus,
			FieldMarketScreenerAnalystCount,
			FieldMarketScreenerAnalystTargetPrice,
			FieldMarketScreenerLastClose,
			FieldMarketScreenerRecommendationSplit,
		},
		Cardinality: Individual,
		Concurrency: 5,
	},
	{
		Provider:  MSCI,
		IDField:   FieldMSCIID,
		LastFetch: FieldMSCILastFetch,
		TTL:       7 * 24 * time.Hour,
		Fields: []string{
			FieldMSCIESGRating,
			FieldMSCIImpliedTemperature,
		},
		Cardinality: Individual,
		// MSCI bans aggressive crawlers; keep this low
		Concurrency: 2,
	},
	{
		Provider:  Refinitiv,
		IDField:   FieldRefinitivID,
		LastFetch: FieldRefinitivLastFetch,
		TTL:       7 * 24 * time.Hour,
		Fields: []string{
			FieldRefinitivESGScore,
		},
		Cardinality: Individual,
		Concurrency: 5,
	},
	{
		Provider:  SPGlobal,
		IDField:   FieldSPGlobalID,
		LastFetch: FieldSPGlobalLastFetch,
		TTL:       7 * 24 * time.Hour,
		Fields: []string{
			FieldSPGlobalESGScore,
		},
		Cardinality: Bulk,
	},
	{
		Provider:  Sustainalytics,
		IDField:   FieldSustainalyticsID,
		LastFetch: FieldSustainalyticsLastFetch,
		TTL:       7 * 24 * time.Hour,
		Fields: []string{
			FieldSustainalyticsESGRisk,
		},
		Cardinality: Individual,
		Concurrency: 5,
	},
	{
		Provider:  CSRHub,
		IDField:   FieldCSRHubID,
		LastFetch: FieldCSRHubLastFetch,
		TTL:       7 * 24 * time.Hour,
		Fields: []string{
			FieldCSRHubESGScore,
			FieldCSRHubSubscores,
		},
		Cardinality: Individual,
		Concurrency: 5,
	},
}

// Providers returns all registered provider descriptors
func Providers() []Descriptor {
	return descriptors
}

// DescriptorFor looks up a provider descriptor by name
func DescriptorFor(p Provider) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Provider == p {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ProviderOwning returns the descriptor whose field set contains the given
// identifier field, used for cascade-clearing when an identifier is removed.
func ProviderOwning(idField string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.IDField == idField {
			return d, true
		}
	}
	return Descriptor{}, false
}
