// Package msci extracts the ESG rating and implied temperature rise from the
// MSCI ESG ratings tool.
package msci

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

// Client fetches ESG data from the MSCI ratings tool
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewClient creates a new MSCI client
func NewClient(baseURL string, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log.WithField("provider", stock.MSCI),
	}
}

// Provider returns the provider identity
func (c *Client) Provider() stock.Provider {
	return stock.MSCI
}

// ratingResponse is the MSCI ratings tool payload
type ratingResponse struct {
	Rating             string   `json:"ESG_RATING"`
	ImpliedTemperature *float64 `json:"IMPLIED_TEMP_RISE"`
}

// FetchOne fetches attributes for a single stock
func (c *Client) FetchOne(ctx context.Context, s stock.Stock) (stock.Attributes, error) {
	id, _ := s.Attrs.String(stock.FieldMSCIID)
	url := fmt.Sprintf("%s/esg-ratings/issuer/%s.json", c.baseURL, id)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.MSCI, Ticker: s.Ticker, Err: err}
	}

	body, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, &contracts.ExtractionError{Provider: stock.MSCI, Ticker: s.Ticker, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.ExtractionError{
			Provider:    stock.MSCI,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: resp.Header.Get("Content-Type"),
			Err:         fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	attrs, err := parseRating(body)
	if err != nil {
		return nil, &contracts.ExtractionError{
			Provider:    stock.MSCI,
			Ticker:      s.Ticker,
			RawSnapshot: body,
			ContentType: "application/json",
			Err:         err,
		}
	}

	c.logger.WithField("ticker", s.Ticker).Debug("Fetched MSCI rating")
	return attrs, nil
}

// parseRating converts the tool payload to typed attributes. The rating must
// be one of the seven letter grades; anything else means the page layout
// changed under us.
func parseRating(body []byte) (stock.Attributes, error) {
	var rating ratingResponse
	if err := json.Unmarshal(body, &rating); err != nil {
		return nil, fmt.Errorf("parse rating payload: %w", err)
	}

	attrs := stock.Attributes{}

	if rating.Rating != "" {
		grade := strings.ToUpper(strings.TrimSpace(rating.Rating))
		valid := false
		for _, g := range []string{"CCC", "B", "BB", "BBB", "A", "AA", "AAA"} {
			if grade == g {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unrecognized ESG rating %q", rating.Rating)
		}
		attrs[stock.FieldMSCIESGRating] = grade
	}

	if rating.ImpliedTemperature != nil {
		attrs[stock.FieldMSCIImpliedTemperature] = *rating.ImpliedTemperature
	}

	if len(attrs) == 0 {
		return nil, fmt.Errorf("rating payload carried no known fields")
	}
	return attrs, nil
}
