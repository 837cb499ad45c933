// Package morningstar extracts star rating, fair value estimate and price
// range data from the Morningstar quote API.
package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Client fetches stock data from Morningstar
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new Morningstar client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.Morningstar),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.Morningstar
}

// quoteResponse is the subset of the Morningstar quote payload we read
type quoteResponse struct {
	StarRating       *float64 `json:"starRating"`
	FairValue        *float64 `json:"fairValue"`
	LastClose        *float64 `json:"lastClose"`
	FiftyTwoWeekLow  *float64 `json:"52WeekLow"`
	FiftyTwoWeekHigh *float64 `json:"52WeekHigh"`
}

// FetchOne fetches attributes for a single stock
func (c *Client) FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error) {
	id, _ := s.Attrs.String(stock.FieldMorningstarID)
	url := fmt.Sprintf("%s/api/v1/security/%s/quote", c.baseURL, id)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider: stock.Morningstar,
			Ticker:   s.Ticker,
			Err:      err,
		}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.Morningstar, Ticker: s.Ticker, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ExtractionError{
			Provider:    stock.Morningstar,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	attrs, err := parseQuote(body)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider:    stock.Morningstar,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: "application/json",
			Err:         err,
		}
	}

	c.logger.WithField("ticker", s.Ticker).Debug("Fetched Morningstar quote")
	return attrs, nil
}

// parseQuote converts the quote payload into typed attributes. Fields the
// payload omits stay absent; an entirely empty payload is an extraction
// failure since every listed security carries at least a close price.
func parseQuote(body []byte) (stock.Attributes, error) {
	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("parse quote payload: %w", err)
	}

	attrs := stock.Attributes{}
	if quote.StarRating != nil {
		attrs[stock.FieldMorningstarStarRating] = *quote.StarRating
	}
	if quote.FairValue != nil {
		attrs[stock.FieldMorningstarFairValue] = *quote.FairValue
	}
	if quote.LastClose != nil {
		attrs[stock.FieldMorningstarLastClose] = *quote.LastClose
	}
	if quote.FiftyTwoWeekLow != nil {
		attrs[stock.FieldMorningstarFiftyTwoWeekLow] = *quote.FiftyTwoWeekLow
	}
	if quote.FiftyTwoWeekHigh != nil {
		attrs[stock.FieldMorningstarFiftyTwoWeekHigh] = *quote.FiftyTwoWeekHigh
	}

	if len(attrs) == 0 {
		return nil, fmt.Errorf("quote payload carried no known fields")
	}
	return attrs, nil
}
