package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"MacroCompass/internal/domain/models"
	"MacroCompass/internal/service/breaker"
	"MacroCompass/internal/service/ratelimit"
	xhttp "MacroCompass/pkg/http"
)

// BreakerName identifies the Alpha Vantage breaker and rate-limit bucket.
const BreakerName = "alphavantage"

// Client reads the NEWS_SENTIMENT feed.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	apiKey   string
	limiter  *ratelimit.Limiter
	breakers *breaker.Group
}

// New creates an Alpha Vantage client. limiter may be nil.
func New(httpClient *xhttp.Client, baseURL, apiKey string, limiter *ratelimit.Limiter, breakers *breaker.Group) *Client {
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, limiter: limiter, breakers: breakers}
}

// score accepts both numeric and quoted-numeric JSON.
type score float64

func (s *score) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("sentiment score %q: %w", b, err)
	}
	*s = score(v)
	return nil
}

type newsResponse struct {
	Feed []struct {
		Title                 string `json:"title"`
		OverallSentimentScore *score `json:"overall_sentiment_score"`
	} `json:"feed"`
	// Alpha Vantage reports throttling and key problems with HTTP 200.
	Information  string `json:"Information"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

// SentimentScores returns the overall sentiment score of up to limit of the
// most recent feed items.
func (c *Client) SentimentScores(ctx context.Context, limit int) ([]float64, error) {
	if c.apiKey == "" {
		return nil, models.ErrNoCredential
	}
	if c.limiter != nil && !c.limiter.Allow(BreakerName) {
		return nil, fmt.Errorf("alphavantage: %w", ratelimit.ErrLimited)
	}
	if limit <= 0 {
		limit = 50
	}

	resp, err := breaker.Execute(ctx, c.breakers, BreakerName, func() (*newsResponse, error) {
		var out newsResponse
		if err := c.http.GetJSON(ctx, c.baseURL, map[string][]string{
			"function": {"NEWS_SENTIMENT"},
			"apikey":   {c.apiKey},
			"sort":     {"LATEST"},
			"limit":    {strconv.Itoa(limit)},
		}, &out); err != nil {
			return nil, err
		}
		for _, msg := range []string{out.ErrorMessage, out.Information, out.Note} {
			if msg != "" {
				return nil, fmt.Errorf("provider message: %s", msg)
			}
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("alphavantage: %w", err)
	}

	scores := make([]float64, 0, limit)
	for _, item := range resp.Feed {
		if len(scores) == limit {
			break
		}
		if item.OverallSentimentScore == nil {
			continue
		}
		scores = append(scores, float64(*item.OverallSentimentScore))
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("alphavantage: %w", models.ErrNoData)
	}
	return scores, nil
}

var _ json.Unmarshaler = (*score)(nil)
