// Package spglobal extracts S&P Global CSA ESG scores. The provider exposes
// its whole dataset in one response, so it implements the bulk contract: one
// network round trip serves every queued stock.
package spglobal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkuhn/stockscores/backend/internal/contracts"
	"github.com/mkuhn/stockscores/backend/internal/stock"
	"github.com/mkuhn/stockscores/backend/pkg/httputil"
	"github.com/mkuhn/stockscores/backend/pkg/logger"
)

// Client fetches the S&P Global CSA score dataset
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new S&P Global client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.SPGlobal),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.SPGlobal
}

// datasetEntry is one company in the CSA dataset
type datasetEntry struct {
	CompanyID string   `json:"companyId"`
	ESGScore  *float64 `json:"esgScore"`
}

// FetchMany fetches the full dataset once and extracts a result per queued
// stock. A failed dataset download is an upstream failure; a stock missing
// from the payload is a per-item extraction failure.
func (c *Client) FetchMany(ctx context.Context, stocks []stock.Stock) (map[string]contracts.FetchOutcome, error) {
	url := fmt.Sprintf("%s/esg/csa/scores.json", c.baseURL)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download CSA dataset: %w", err)
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("download CSA dataset: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download CSA dataset: unexpected status code %d", resp.StatusCode)
	}

	byID, err := parseDataset(body)
	if err != nil {
		return nil, fmt.Errorf("parse CSA dataset: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"companies": len(byID),
		"stocks":    len(stocks),
	}).Debug("Fetched S&P Global dataset")

	outcomes := make(map[string]contracts.FetchOutcome, len(stocks))
	for _, s := range stocks {
		id, _ := s.Attrs.String(stock.FieldSPGlobalID)
		score, found := byID[strings.ToUpper(id)]
		if !found {
			outcomes[s.Ticker] = contracts.FetchOutcome{
				Err: &contracts.ExtractionError{
					Provider:    stock.SPGlobal,
					Ticker:      s.Ticker,
					RawSnapshot: body,
					ContentType: "application/json",
					Err:         fmt.Errorf("company %s missing from dataset", id),
				},
			}
			continue
		}
		outcomes[s.Ticker] = contracts.FetchOutcome{
			Attrs: stock.Attributes{stock.FieldSPGlobalESGScore: score},
		}
	}
	return outcomes, nil
}

// parseDataset indexes the dataset by company identifier, dropping entries
// without a score.
func parseDataset(body []byte) (map[string]float64, error) {
	var entries []datasetEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	byID := make(map[string]float64, len(entries))
	for _, e := range entries {
		if e.CompanyID == "" || e.ESGScore == nil {
			continue
		}
		byID[strings.ToUpper(e.CompanyID)] = *e.ESGScore
	}
	return byID, nil
}
