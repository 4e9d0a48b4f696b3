package usecase

import (
	"context"
	"fmt"
	"math"

	"MacroCompass/internal/domain/models"
	domrepo "MacroCompass/internal/domain/repository"
	"MacroCompass/internal/services/features"
	applogger "MacroCompass/pkg/logger"
)

// FRED series identifiers.
const (
	SeriesYieldCurve   = "T10Y3M"
	SeriesTreasury10Y  = "DGS10"
	SeriesBreakeven10Y = "T10YIE"
	SeriesHYSpread     = "BAMLH0A0HYM2"
	SeriesNFCI         = "NFCI"
	SeriesStress       = "STLFSI4"
	SeriesCPI          = "CPIAUCSL"
	SeriesFedFunds     = "FEDFUNDS"
	SeriesFedAssets    = "WALCL"
	SeriesTGA          = "WTREGEN"
	SeriesReverseRepo  = "RRPONTSYD"
)

const (
	scalarLookback = 10
	cpiLookback    = 24
	cpiYoYLag      = 12
	sentimentItems = 50
)

// Group fallbacks.
var (
	FallbackMacro = models.MacroReading{
		YieldCurve:  -0.6,
		RealYield:   2.1,
		HYSpread:    4.5,
		NFCI:        -0.5,
		StressIndex: 0.2,
		Inflation:   3.1,
		PolicyRate:  5.33,
	}
	FallbackNetLiquidity = 6.5e12
	FallbackSentiment    = 0.15
)

// FallbackMarket returns the degenerate market metrics used when prices are
// unavailable. Each call builds fresh maps.
func FallbackMarket() models.MarketMetrics {
	momentum := make(map[string]float64, len(models.Basket))
	corr := make(map[string]map[string]float64, len(models.Basket))
	history := make(map[string][]float64, len(models.Basket))
	for _, a := range models.Basket {
		momentum[a] = 0.01
		history[a] = []float64{}
		row := make(map[string]float64, len(models.Basket))
		for _, b := range models.Basket {
			if a == b {
				row[b] = 1
			} else {
				row[b] = 0.5
			}
		}
		corr[a] = row
	}
	return models.MarketMetrics{
		Momentum:           momentum,
		MomentumHistory:    models.MomentumHistory{Dates: []string{}, Values: history},
		CopperGoldMomentum: 0.0125,
		RotationMomentum:   -0.10,
		TLTVol:             15,
		Correlation:        corr,
	}
}

// IndicatorFetcher gathers every provider group. Each group either succeeds
// as a whole or is replaced by its fallback.
type IndicatorFetcher struct {
	macro     domrepo.MacroSource
	prices    domrepo.PriceSource
	sentiment domrepo.SentimentSource
	metrics   domrepo.Metrics
	log       *applogger.Logger
	window    int
	feedLimit int
}

type FetcherOption func(*IndicatorFetcher)

// WithSentimentLimit sets how many news items the sentiment mean covers.
func WithSentimentLimit(n int) FetcherOption {
	return func(f *IndicatorFetcher) {
		if n > 0 {
			f.feedLimit = n
		}
	}
}

func NewIndicatorFetcher(
	macro domrepo.MacroSource,
	prices domrepo.PriceSource,
	sentiment domrepo.SentimentSource,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	opts ...FetcherOption,
) *IndicatorFetcher {
	if log == nil {
		log = applogger.Nop()
	}
	f := &IndicatorFetcher{
		macro:     macro,
		prices:    prices,
		sentiment: sentiment,
		metrics:   metrics,
		log:       log,
		window:    features.MomentumWindow,
		feedLimit: sentimentItems,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *IndicatorFetcher) latest(ctx context.Context, series string) (float64, error) {
	values, err := f.macro.SeriesValues(ctx, series, scalarLookback)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", series, err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%s: %w", series, models.ErrNoData)
	}
	return values[len(values)-1], nil
}

func (f *IndicatorFetcher) inflation(ctx context.Context) (float64, error) {
	cpi, err := f.macro.SeriesValues(ctx, SeriesCPI, cpiLookback)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", SeriesCPI, err)
	}
	if len(cpi) <= cpiYoYLag {
		return 0, fmt.Errorf("%s: %d observations: %w", SeriesCPI, len(cpi), models.ErrNoData)
	}
	last := len(cpi) - 1
	base := cpi[last-cpiYoYLag]
	if base == 0 {
		return 0, fmt.Errorf("%s: zero base observation: %w", SeriesCPI, models.ErrNoData)
	}
	return (cpi[last]/base - 1) * 100, nil
}

func (f *IndicatorFetcher) fetchMacro(ctx context.Context) (models.MacroReading, error) {
	var r models.MacroReading
	scalars := []struct {
		series string
		dst    *float64
	}{
		{SeriesYieldCurve, &r.YieldCurve},
		{SeriesHYSpread, &r.HYSpread},
		{SeriesNFCI, &r.NFCI},
		{SeriesStress, &r.StressIndex},
		{SeriesFedFunds, &r.PolicyRate},
	}
	for _, s := range scalars {
		v, err := f.latest(ctx, s.series)
		if err != nil {
			return r, err
		}
		*s.dst = v
	}

	dgs10, err := f.latest(ctx, SeriesTreasury10Y)
	if err != nil {
		return r, err
	}
	breakeven, err := f.latest(ctx, SeriesBreakeven10Y)
	if err != nil {
		return r, err
	}
	r.RealYield = dgs10 - breakeven

	if r.Inflation, err = f.inflation(ctx); err != nil {
		return r, err
	}
	return r, nil
}

// FetchMacro returns the macro reading, or FallbackMacro if any series
// fails. NetLiquidity is left zero; it belongs to its own group.
func (f *IndicatorFetcher) FetchMacro(ctx context.Context) models.FetchResult[models.MacroReading] {
	r, err := f.fetchMacro(ctx)
	if err == nil && !finiteAll(r.YieldCurve, r.RealYield, r.HYSpread, r.NFCI, r.StressIndex, r.Inflation, r.PolicyRate) {
		err = fmt.Errorf("macro: non-finite reading")
	}
	if err != nil {
		f.fallback("macro", err)
		return models.Fallback(FallbackMacro, err)
	}
	f.metrics.RecordFetch("macro", false)
	return models.Live(r)
}

// FetchNetLiquidity returns WALCL*1e6 - WTREGEN*1e9 - RRPONTSYD*1e9 in
// dollars, or FallbackNetLiquidity.
func (f *IndicatorFetcher) FetchNetLiquidity(ctx context.Context) models.FetchResult[float64] {
	v, err := f.netLiquidity(ctx)
	if err != nil {
		f.fallback("net_liquidity", err)
		return models.Fallback(FallbackNetLiquidity, err)
	}
	f.metrics.RecordFetch("net_liquidity", false)
	return models.Live(v)
}

func (f *IndicatorFetcher) netLiquidity(ctx context.Context) (float64, error) {
	assets, err := f.latest(ctx, SeriesFedAssets)
	if err != nil {
		return 0, err
	}
	tga, err := f.latest(ctx, SeriesTGA)
	if err != nil {
		return 0, err
	}
	rrp, err := f.latest(ctx, SeriesReverseRepo)
	if err != nil {
		return 0, err
	}
	v := assets*1e6 - tga*1e9 - rrp*1e9
	if !finiteAll(v) {
		return 0, fmt.Errorf("net liquidity: non-finite value")
	}
	return v, nil
}

// FetchMarket returns the derived basket metrics or FallbackMarket.
func (f *IndicatorFetcher) FetchMarket(ctx context.Context) models.FetchResult[models.MarketMetrics] {
	series, err := f.prices.DailyCloses(ctx, models.Basket)
	if err == nil && (series == nil || len(series.Dates) == 0) {
		err = fmt.Errorf("prices: %w", models.ErrNoData)
	}
	if err != nil {
		f.fallback("prices", err)
		return models.Fallback(FallbackMarket(), err)
	}
	f.metrics.RecordFetch("prices", false)
	return models.Live(features.MarketMetrics(series, f.window))
}

// FetchSentiment returns the mean of the latest sentiment scores or
// FallbackSentiment.
func (f *IndicatorFetcher) FetchSentiment(ctx context.Context) models.FetchResult[float64] {
	scores, err := f.sentiment.SentimentScores(ctx, f.feedLimit)
	if err == nil && len(scores) == 0 {
		err = fmt.Errorf("sentiment: %w", models.ErrNoData)
	}
	if err != nil {
		f.fallback("sentiment", err)
		return models.Fallback(FallbackSentiment, err)
	}
	f.metrics.RecordFetch("sentiment", false)
	return models.Live(features.Mean(scores))
}

func (f *IndicatorFetcher) fallback(group string, err error) {
	f.metrics.RecordFetch(group, true)
	f.log.Warn("provider group fell back",
		applogger.String("group", group),
		applogger.Error(err),
	)
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
