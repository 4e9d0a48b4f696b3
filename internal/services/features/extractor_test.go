package features

import (
	"math"
	"testing"
	"time"

	"MacroCompass/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestAlignForwardThenBackFills(t *testing.T) {
	points := map[string]map[time.Time]float64{
		"A": {day(0): 10, day(1): 11, day(3): 13},
		"B": {day(2): 5, day(3): 6},
	}
	s, err := Align([]string{"A", "B"}, points)
	require.NoError(t, err)

	require.Len(t, s.Dates, 4)
	assert.Equal(t, []float64{10, 11, 11, 13}, s.Closes["A"])
	assert.Equal(t, []float64{5, 5, 5, 6}, s.Closes["B"])
}

func TestAlignRejectsEmptyTicker(t *testing.T) {
	_, err := Align([]string{"A", "B"}, map[string]map[time.Time]float64{"A": {day(0): 1}})
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestMomentumShortHistoryIsZero(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	assert.Equal(t, 0.0, Momentum(closes, 21))
	assert.Empty(t, MomentumSeries(closes, 21))

	closes = append(closes, 110)
	assert.InDelta(t, 0.1, Momentum(closes, 21), 1e-12)
}

func TestRatioMomentumUsesRatioSeries(t *testing.T) {
	num := []float64{2, 2, 3}
	den := []float64{1, 2, 1}
	r := Ratio(num, den)
	assert.Equal(t, []float64{2, 1, 3}, r)
	assert.InDelta(t, 0.5, Momentum(r, 2), 1e-12)

	r = Ratio([]float64{1, 1}, []float64{1, 0})
	assert.Equal(t, 0.0, Momentum(r, 1))
	assert.Equal(t, 0.0, Last(r))
}

func TestRealizedVolatility(t *testing.T) {
	// alternating +1% / -1% returns
	closes := []float64{100}
	for i := 0; i < 20; i++ {
		f := 1.01
		if i%2 == 1 {
			f = 0.99
		}
		closes = append(closes, closes[len(closes)-1]*f)
	}
	rets := PctReturns(closes)
	want := StdDev(rets) * math.Sqrt(252) * 100
	assert.InDelta(t, want, RealizedVolatility(closes), 1e-9)
	assert.Greater(t, RealizedVolatility(closes), 15.0)

	assert.Equal(t, 0.0, RealizedVolatility([]float64{100, 101}))
	assert.Equal(t, 0.0, RealizedVolatility(nil))
}

func TestCorrelationMatrixSymmetricWithUnitDiagonal(t *testing.T) {
	closes := map[string][]float64{
		"A": {1, 2, 3, 2, 5, 4},
		"B": {2, 4, 6, 4, 10, 8},
		"C": {5, 4, 6, 3, 2, 7},
		"D": {3, 3, 3, 3, 3, 3},
	}
	tickers := []string{"A", "B", "C", "D"}
	m := CorrelationMatrix(tickers, closes)

	for _, a := range tickers {
		assert.Equal(t, 1.0, m[a][a])
		for _, b := range tickers {
			assert.Equal(t, m[a][b], m[b][a])
			assert.False(t, math.IsNaN(m[a][b]))
			assert.LessOrEqual(t, math.Abs(m[a][b]), 1.0)
		}
	}
	assert.InDelta(t, 1.0, m["A"]["B"], 1e-9)
	assert.Equal(t, 0.0, m["A"]["D"], "zero variance pairs collapse to 0")
}

func TestMarketMetricsOnBasket(t *testing.T) {
	n := 60
	s := &models.PriceSeries{Closes: map[string][]float64{}}
	for i := 0; i < n; i++ {
		s.Dates = append(s.Dates, day(i))
	}
	for k, tk := range models.Basket {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(k) + float64(i)*0.5 + math.Sin(float64(i+k))
		}
		s.Closes[tk] = closes
	}

	m := MarketMetrics(s, MomentumWindow)
	require.Len(t, m.MomentumHistory.Dates, n-MomentumWindow)
	for _, tk := range models.Basket {
		require.Len(t, m.MomentumHistory.Values[tk], n-MomentumWindow)
		assert.Equal(t, m.MomentumHistory.Values[tk][n-MomentumWindow-1], m.Momentum[tk])
	}
	assert.Equal(t, "2024-01-22", m.MomentumHistory.Dates[0])
	assert.Greater(t, m.TLTVol, 0.0)
	assert.Len(t, m.Correlation, len(models.Basket))
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 0.3, Mean([]float64{0.2, 0.4, 0.3}), 1e-12)
	assert.Zero(t, Mean(nil))
}
