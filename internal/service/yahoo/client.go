package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"MacroCompass/internal/domain/models"
	"MacroCompass/internal/service/breaker"
	"MacroCompass/internal/services/features"
	xhttp "MacroCompass/pkg/http"
)

// BreakerName identifies the Yahoo breaker.
const BreakerName = "yahoo"

// Client reads daily closes from the Yahoo Finance chart API.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	rng      string
	breakers *breaker.Group
}

// New creates a chart client. rng is a Yahoo range such as "6mo".
func New(httpClient *xhttp.Client, baseURL, rng string, breakers *breaker.Group) *Client {
	if rng == "" {
		rng = "6mo"
	}
	return &Client{http: httpClient, baseURL: baseURL, rng: rng, breakers: breakers}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyCloses fetches every ticker in turn and aligns them on one date
// index. Any ticker failing fails the whole basket.
func (c *Client) DailyCloses(ctx context.Context, tickers []string) (*models.PriceSeries, error) {
	points := make(map[string]map[time.Time]float64, len(tickers))
	for _, ticker := range tickers {
		obs, err := breaker.Execute(ctx, c.breakers, BreakerName, func() (map[time.Time]float64, error) {
			return c.closes(ctx, ticker)
		})
		if err != nil {
			return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
		}
		points[ticker] = obs
	}
	return features.Align(tickers, points)
}

func (c *Client) closes(ctx context.Context, ticker string) (map[time.Time]float64, error) {
	var resp chartResponse
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker)
	if err := c.http.GetJSON(ctx, endpoint, map[string][]string{
		"range":    {c.rng},
		"interval": {"1d"},
	}, &resp); err != nil {
		return nil, err
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%s: %s", e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, models.ErrNoData
	}

	ts := resp.Chart.Result[0].Timestamp
	cl := resp.Chart.Result[0].Indicators.Quote[0].Close
	out := make(map[time.Time]float64, len(ts))
	for i := range ts {
		if i >= len(cl) || cl[i] == nil || *cl[i] <= 0 {
			continue
		}
		out[time.Unix(ts[i], 0).UTC()] = *cl[i]
	}
	if len(out) == 0 {
		return nil, models.ErrNoData
	}
	return out, nil
}
