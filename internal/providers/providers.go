// Package providers wires the per-source extractor clients to the fetch
// orchestrator.
package providers

import (
	"time"

	"github.com/mkuhn/stockscores/backend/internal/fetch"
	"github.com/mkuhn/stockscores/backend/internal/providers/csrhub"
	"github.com/mkuhn/stockscores/backend/internal/providers/marketscreener"
	"github.com/mkuhn/stockscores/backend/internal/providers/morningstar"
	"github.com/mkuhn/stockscores/backend/internal/providers/msci"
	"github.com/mkuhn/stockscores/backend/internal/providers/refinitiv"
	"github.com/mkuhn/stockscores/backend/internal/providers/spglobal"
	"github.com/mkuhn/stockscores/backend/internal/providers/sustainalytics"
	"github.com/mkuhn/stockscores/backend/pkg/config"
	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// browserUA keeps the scraping providers from serving us their bot wall
const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// RegisterAll constructs every extractor client and registers it with the
// orchestrator. Each client gets its own HTTP client so per-source rate
// limits stay independent.
func RegisterAll(o *fetch.Orchestrator, cfg *config.Config, log *logger.Logger) {
	scraper := func() *httputil.Client {
		return httputil.New(log).WithHeader("User-Agent", browserUA)
	}

	o.RegisterIndividual(morningstar.NewClient(cfg.Providers.MorningstarBaseURL, httputil.New(log), log))
	o.RegisterIndividual(marketscreener.NewClient(cfg.Providers.MarketScreenerBaseURL, scraper(), log))
	// MSCI enforces a strict rate limit; stay well under it
	o.RegisterIndividual(msci.NewClient(cfg.Providers.MSCIBaseURL, scraper().WithRateLimit(2, time.Second), log))
	o.RegisterIndividual(refinitiv.NewClient(cfg.Providers.RefinitivBaseURL, httputil.New(log), log))
	o.RegisterBulk(spglobal.NewClient(cfg.Providers.SPGlobalBaseURL, httputil.NewWithTimeout(log, 2*time.Minute), log))
	o.RegisterIndividual(sustainalytics.NewClient(cfg.Providers.SustainalyticsBaseURL, scraper(), log))
	o.RegisterIndividual(csrhub.NewClient(cfg.Providers.CSRHubBaseURL, scraper(), log))
}
