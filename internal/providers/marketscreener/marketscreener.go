// Package marketscreener scrapes analyst consensus data from MarketScreener
// company pages.
package marketscreener

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Client fetches analyst data from MarketScreener
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new MarketScreener client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.MarketScreener),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.MarketScreener
}

// FetchOne fetches attributes for a single stock
func (c *Client) FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error) {
	id, _ := s.Attrs.String(stock.FieldMarketScreenerID)
	url := fmt.Sprintf("%s/quote/stock/%s/consensus/", c.baseURL, id)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.MarketScreener, Ticker: s.Ticker, Err: err}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.MarketScreener, Ticker: s.Ticker, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ExtractionError{
			Provider:    stock.MarketScreener,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	attrs, err := parseConsensusHTML(body)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider:    stock.MarketScreener,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: "text/html",
			Err:         err,
		}
	}

	c.logger.WithField("ticker", s.Ticker).Debug("Fetched MarketScreener consensus")
	return attrs, nil
}

var analystCountRe = regexp.MustCompile(`(\d+)\s+analysts?`)

// parseConsensusHTML extracts the consensus block from a company page.
// MarketScreener layout: a .consensus-block div with the verdict, analyst
// count, target and last price, plus a recommendation split table.
func parseConsensusHTML(body []byte) (stock.Attributes, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse consensus page: %w", err)
	}

	attrs := stock.Attributes{}

	block := doc.Find("div.consensus-block")
	if block.Length() == 0 {
		return nil, fmt.Errorf("consensus block not found")
	}

	if verdict := strings.TrimSpace(block.Find(".consensus-verdict").Text()); verdict != "" {
		attrs[stock.FieldMarketScreenerAnalystConsensus] = normalizeConsensus(verdict)
	}

	if m := analystCountRe.FindStringSubmatch(block.Text()); m != nil {
		if count, err := strconv.ParseFloat(m[1], 64); err == nil {
			attrs[stock.FieldMarketScreenerAnalystCount] = count
		}
	}

	if target, ok := parsePrice(block.Find(".consensus-target").Text()); ok {
		attrs[stock.FieldMarketScreenerAnalystTargetPrice] = target
	}
	if last, ok := parsePrice(block.Find(".consensus-last-price").Text()); ok {
		attrs[stock.FieldMarketScreenerLastClose] = last
	}

	// Recommendation split: buy / outperform / hold / underperform / sell
	var split []float64
	doc.Find("table.recommendation-split td.count").Each(func(i int, cell *goquery.Selection) {
		if n, err := strconv.ParseFloat(strings.TrimSpace(cell.Text()), 64); err == nil {
			split = append(split, n)
		}
	})
	if len(split) == 5 {
		attrs[stock.FieldMarketScreenerRecommendationSplit] = split
	}

	if len(attrs) == 0 {
		return nil, fmt.Errorf("consensus block carried no known fields")
	}
	return attrs, nil
}

// normalizeConsensus maps page wording onto the ordered consensus scale
func normalizeConsensus(verdict string) string {
	v := strings.ToUpper(strings.TrimSpace(verdict))
	switch v {
	case "ACCUMULATE":
		return "OUTPERFORM"
	case "REDUCE":
		return "UNDERPERFORM"
	default:
		return v
	}
}

// parsePrice reads a price cell, tolerating currency suffixes and thousands
// separators.
func parsePrice(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	fields := strings.Fields(text)
	num := strings.ReplaceAll(fields[0], ",", "")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
