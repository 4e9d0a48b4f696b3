package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"MacroCompass/internal/domain/models"
	"MacroCompass/pkg/util"
)

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// Finite returns x, or 0 when x is NaN or infinite.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Clip bounds x to [lo, hi]. NaN maps to 0.
func Clip(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(lo, math.Min(hi, x))
}

// Align builds a common daily date index from per-ticker observations.
// Missing closes are forward-filled, then leading gaps are back-filled. A
// ticker without a single observation is an error.
func Align(tickers []string, points map[string]map[time.Time]float64) (*models.PriceSeries, error) {
	index := make(map[time.Time]struct{})
	for _, ticker := range tickers {
		obs := points[ticker]
		if len(obs) == 0 {
			return nil, fmt.Errorf("%s: %w", ticker, models.ErrNoData)
		}
		for d := range obs {
			index[util.TruncateDay(d)] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(index))
	for d := range index {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := &models.PriceSeries{Dates: dates, Closes: make(map[string][]float64, len(tickers))}
	for _, ticker := range tickers {
		byDay := make(map[time.Time]float64, len(points[ticker]))
		for d, v := range points[ticker] {
			byDay[util.TruncateDay(d)] = v
		}

		closes := make([]float64, len(dates))
		have := make([]bool, len(dates))
		for i, d := range dates {
			if v, ok := byDay[d]; ok && v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
				closes[i], have[i] = v, true
			}
		}
		if !fill(closes, have) {
			return nil, fmt.Errorf("%s: %w", ticker, models.ErrNoData)
		}
		out.Closes[ticker] = closes
	}
	return out, nil
}

// fill forward-fills then back-fills in place. It reports false when no
// value is present at all.
func fill(values []float64, have []bool) bool {
	first := -1
	for i := range values {
		if have[i] {
			if first < 0 {
				first = i
			}
			continue
		}
		if first >= 0 {
			values[i] = values[i-1]
		}
	}
	if first < 0 {
		return false
	}
	for i := 0; i < first; i++ {
		values[i] = values[first]
	}
	return true
}

// PctReturns returns simple daily returns c[t]/c[t-1]-1, len(closes)-1
// entries. Undefined returns are 0.
func PctReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, Finite(closes[i]/prev-1))
	}
	return out
}

// MomentumSeries returns p[t]/p[t-window]-1 for every t >= window.
func MomentumSeries(closes []float64, window int) []float64 {
	if window <= 0 || len(closes) <= window {
		return nil
	}
	out := make([]float64, 0, len(closes)-window)
	for t := window; t < len(closes); t++ {
		base := closes[t-window]
		if base == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, Finite(closes[t]/base-1))
	}
	return out
}

// Momentum is the latest MomentumSeries value, or 0 when history is too short.
func Momentum(closes []float64, window int) float64 {
	s := MomentumSeries(closes, window)
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Ratio divides two aligned series element-wise. Division by zero yields NaN,
// which Momentum and Finite map to 0.
func Ratio(num, den []float64) []float64 {
	n := len(num)
	if len(den) < n {
		n = len(den)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if den[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = num[i] / den[i]
	}
	return out
}

// Last returns the final finite-substituted element, or 0.
// Mean averages values, 0.0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return Finite(sum / float64(len(values)))
}

func Last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Finite(values[len(values)-1])
}

// StdDev is the sample standard deviation (n-1). Fewer than two values give 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// RealizedVolatility annualizes the sample stdev of daily simple returns and
// expresses it in percent.
func RealizedVolatility(closes []float64) float64 {
	return Finite(StdDev(PctReturns(closes)) * math.Sqrt(TradingDaysPerYear) * 100)
}

// Pearson returns the correlation of x and y over their common prefix. Zero
// variance on either side gives 0.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return Clip(sxy/math.Sqrt(sxx*syy), -1, 1)
}

// CorrelationMatrix computes pairwise Pearson correlations of daily returns.
// The matrix is symmetric with a unit diagonal.
func CorrelationMatrix(tickers []string, closes map[string][]float64) map[string]map[string]float64 {
	returns := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		returns[t] = PctReturns(closes[t])
	}
	out := make(map[string]map[string]float64, len(tickers))
	for _, t := range tickers {
		out[t] = make(map[string]float64, len(tickers))
	}
	for i, a := range tickers {
		out[a][a] = 1.0
		for _, b := range tickers[i+1:] {
			c := Pearson(returns[a], returns[b])
			out[a][b] = c
			out[b][a] = c
		}
	}
	return out
}
