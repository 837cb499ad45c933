// Package csrhub scrapes the overall ESG score and category subscores from
// CSRHub company pages.
package csrhub

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

// Client fetches ESG scores from CSRHub
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new CSRHub client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.CSRHub),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.CSRHub
}

// FetchOne fetches attributes for a single stock
func (c *Client) FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error) {
	id, _ := s.Attrs.String(stock.FieldCSRHubID)
	url := fmt.Sprintf("%s/CSR_and_sustainability_information/%s", c.baseURL, id)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.CSRHub, Ticker: s.Ticker, Err: err}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.CSRHub, Ticker: s.Ticker, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ExtractionError{
			Provider:    stock.CSRHub,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	attrs, err := parseScoreHTML(body)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider:    stock.CSRHub,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: "text/html",
			Err:         err,
		}
	}

	c.logger.WithField("ticker", s.Ticker).Debug("Fetched CSRHub score")
	return attrs, nil
}

// parseScoreHTML extracts the overall score and the four category subscores
// (community, employees, environment, governance). The overall score is
// required, the subscore table is optional.
func parseScoreHTML(body []byte) (stock.Attributes, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse company page: %w", err)
	}

	overallText := strings.TrimSpace(doc.Find("span.overall-rating-value").First().Text())
	if overallText == "" {
		return nil, fmt.Errorf("overall rating not found")
	}
	overall, err := strconv.ParseFloat(overallText, 64)
	if err != nil {
		return nil, fmt.Errorf("parse overall rating %q: %w", overallText, err)
	}
	if overall < 0 || overall > 100 {
		return nil, fmt.Errorf("overall rating %v out of range", overall)
	}

	attrs := stock.Attributes{stock.FieldCSRHubESGScore: overall}

	subscores := make(map[string]float64)
	doc.Find("table.subcategory-ratings tr").Each(func(i int, row *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(row.Find("td.subcategory-name").Text()))
		valueText := strings.TrimSpace(row.Find("td.subcategory-value").Text())
		if name == "" || valueText == "" {
			return
		}
		if v, err := strconv.ParseFloat(valueText, 64); err == nil {
			subscores[name] = v
		}
	})
	if len(subscores) > 0 {
		attrs[stock.FieldCSRHubSubscores] = subscores
	}

	return attrs, nil
}
