// Package sustainalytics scrapes the ESG risk rating from Sustainalytics
// company pages.
package sustainalytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Client fetches ESG risk ratings from Sustainalytics
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new Sustainalytics client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.Sustainalytics),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.Sustainalytics
}

// FetchOne fetches attributes for a single stock
func (c *Client) FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error) {
	id, _ := s.Attrs.String(stock.FieldSustainalyticsID)
	url := fmt.Sprintf("%s/esg-rating/%s", c.baseURL, id)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.Sustainalytics, Ticker: s.Ticker, Err: err}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.Sustainalytics, Ticker: s.Ticker, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ExtractionError{
			Provider:    stock.Sustainalytics,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	attrs, err := parseRiskHTML(body)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider:    stock.Sustainalytics,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: "text/html",
			Err:         err,
		}
	}

	c.logger.WithField("ticker", s.Ticker).Debug("Fetched Sustainalytics risk")
	return attrs, nil
}

// parseRiskHTML extracts the headline risk figure. Page layout: the rating
// widget renders the numeric score in a .risk-rating-score span.
func parseRiskHTML(body []byte) (stock.Attributes, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rating page: %w", err)
	}

	text := strings.TrimSpace(doc.Find("span.risk-rating-score").First().Text())
	if text == "" {
		return nil, fmt.Errorf("risk rating score not found")
	}

	risk, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("parse risk rating %q: %w", text, err)
	}
	if risk < 0 {
		return nil, fmt.Errorf("risk rating %v out of range", risk)
	}

	return stock.Attributes{stock.FieldSustainalyticsESGRisk: risk}, nil
}
