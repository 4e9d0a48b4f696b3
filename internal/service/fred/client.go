package fred

import (
	"context"
	"fmt"
	"strconv"

	"MacroCompass/internal/domain/models"
	"MacroCompass/internal/service/breaker"
	xhttp "MacroCompass/pkg/http"
	"MacroCompass/pkg/util"
)

// BreakerName identifies the FRED breaker.
const BreakerName = "fred"

// Client reads series observations from the FRED API.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	apiKey   string
	breakers *breaker.Group
}

// New creates a FRED client. An empty apiKey makes every call fail fast
// with models.ErrNoCredential.
func New(httpClient *xhttp.Client, baseURL, apiKey string, breakers *breaker.Group) *Client {
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, breakers: breakers}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message"`
}

// SeriesValues returns up to limit of the most recent observations of
// seriesID, oldest first. Missing values (".") are dropped.
func (c *Client) SeriesValues(ctx context.Context, seriesID string, limit int) ([]float64, error) {
	if c.apiKey == "" {
		return nil, models.ErrNoCredential
	}
	if limit <= 0 {
		limit = 1
	}

	resp, err := breaker.Execute(ctx, c.breakers, BreakerName, func() (*observationsResponse, error) {
		var out observationsResponse
		err := c.http.GetJSON(ctx, c.baseURL+"/series/observations", map[string][]string{
			"series_id":  {seriesID},
			"api_key":    {c.apiKey},
			"file_type":  {"json"},
			"sort_order": {"desc"},
			"limit":      {strconv.Itoa(limit)},
		}, &out)
		if err != nil {
			return nil, err
		}
		if out.ErrorMessage != "" {
			return nil, fmt.Errorf("fred: %s", out.ErrorMessage)
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fred %s: %w", seriesID, err)
	}

	values := make([]float64, 0, len(resp.Observations))
	for i := len(resp.Observations) - 1; i >= 0; i-- {
		if v, ok := util.ParseFloat(resp.Observations[i].Value); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("fred %s: %w", seriesID, models.ErrNoData)
	}
	return values, nil
}
