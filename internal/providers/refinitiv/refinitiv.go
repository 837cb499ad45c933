// Package refinitiv extracts the company ESG score from the Refinitiv ESG
// scores API.
package refinitiv

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

// Client fetches ESG scores from Refinitiv
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new Refinitiv client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.Refinitiv),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.Refinitiv
}

type scoreResponse struct {
	ESGScore *float64 `json:"esgScore"`
}

// FetchOne fetches attributes for a single stock
func (c *Client) FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error) {
	id, _ := s.Attrs.String(stock.FieldRefinitivID)
	url := fmt.Sprintf("%s/data/esg/scores?ric=%s", c.baseURL, id)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.Refinitiv, Ticker: s.Ticker, Err: err}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.Refinitiv, Ticker: s.Ticker, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ExtractionError{
			Provider:    stock.Refinitiv,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	attrs, err := parseScore(body)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider:    stock.Refinitiv,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: "application/json",
			Err:         err,
		}
	}

	c.logger.WithField("ticker", s.Ticker).Debug("Fetched Refinitiv ESG score")
	return attrs, nil
}

// parseScore validates the 0..100 range; out-of-range values indicate a
// payload change, not a legitimate score.
func parseScore(body []byte) (stock.Attributes, error) {
	var score scoreResponse
	if err := json.Unmarshal(body, &score); err != nil {
		return nil, fmt.Errorf("parse score payload: %w", err)
	}
	if score.ESGScore == nil {
		return nil, fmt.Errorf("score payload carried no esgScore")
	}
	if *score.ESGScore < 0 || *score.ESGScore > 100 {
		return nil, fmt.Errorf("esgScore %v out of range", *score.ESGScore)
	}

	return stock.Attributes{stock.FieldRefinitivESGScore: *score.ESGScore}, nil
}
