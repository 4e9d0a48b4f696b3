package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"MacroCompass/internal/domain/models"
	"MacroCompass/internal/service/ratelimit"
	xhttp "MacroCompass/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"title":"t%d","overall_sentiment_score":%s}`, i, []string{"0.2", `"0.4"`}[i%2]))
	}
	return `{"items":"` + fmt.Sprint(n) + `","feed":[` + strings.Join(items, ",") + `]}`
}

func TestSentimentScoresCapsAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NEWS_SENTIMENT", r.URL.Query().Get("function"))
		assert.Equal(t, "k", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(feed(60)))
	}))
	defer srv.Close()

	c := New(xhttp.NewClient(), srv.URL, "k", nil, nil)
	scores, err := c.SentimentScores(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, scores, 50)
	assert.InDelta(t, 0.2, scores[0], 1e-12)
	assert.InDelta(t, 0.4, scores[1], 1e-12, "quoted scores parse")
}

func TestSentimentScoresProviderMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Information":"rate limit reached"}`))
	}))
	defer srv.Close()

	c := New(xhttp.NewClient(), srv.URL, "k", nil, nil)
	_, err := c.SentimentScores(context.Background(), 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit reached")
}

func TestSentimentScoresEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"feed":[]}`))
	}))
	defer srv.Close()

	_, err := New(xhttp.NewClient(), srv.URL, "k", nil, nil).SentimentScores(context.Background(), 50)
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestSentimentScoresGuards(t *testing.T) {
	_, err := New(xhttp.NewClient(), "http://unused.invalid", "", nil, nil).SentimentScores(context.Background(), 50)
	assert.ErrorIs(t, err, models.ErrNoCredential)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feed(1)))
	}))
	defer srv.Close()

	c := New(xhttp.NewClient(), srv.URL, "k", ratelimit.New(1, 1), nil)
	_, err = c.SentimentScores(context.Background(), 50)
	require.NoError(t, err)
	_, err = c.SentimentScores(context.Background(), 50)
	assert.ErrorIs(t, err, ratelimit.ErrLimited)
}
