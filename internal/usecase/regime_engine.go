package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"MacroCompass/internal/domain/models"
	domrepo "MacroCompass/internal/domain/repository"
	domsvc "MacroCompass/internal/domain/service"
	"MacroCompass/internal/services/regime"
	applogger "MacroCompass/pkg/logger"

	"github.com/google/uuid"
)

// RegimeEngine runs the scoring pipeline end to end.
type RegimeEngine struct {
	fetcher    *IndicatorFetcher
	aggregator *regime.Aggregator
	metrics    domrepo.Metrics
	log        *applogger.Logger
	now        func() time.Time
}

// EngineOption customizes a RegimeEngine.
type EngineOption func(*RegimeEngine)

// WithEngineClock overrides the clock used for ComputedAt.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *RegimeEngine) { e.now = now }
}

func NewRegimeEngine(fetcher *IndicatorFetcher, aggregator *regime.Aggregator, metrics domrepo.Metrics, log *applogger.Logger, opts ...EngineOption) *RegimeEngine {
	if log == nil {
		log = applogger.Nop()
	}
	e := &RegimeEngine{
		fetcher:    fetcher,
		aggregator: aggregator,
		metrics:    metrics,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateRegime fetches every provider group, derives and normalizes the
// inputs and builds a fresh result. Provider failures degrade to fallbacks;
// only a cancelled context or a non-finite output is an error.
func (e *RegimeEngine) CalculateRegime(ctx context.Context) (*models.RegimeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("calculate regime: %w", err)
	}
	start := time.Now()

	macro := e.fetcher.FetchMacro(ctx)
	liquidity := e.fetcher.FetchNetLiquidity(ctx)
	market := e.fetcher.FetchMarket(ctx)
	sentiment := e.fetcher.FetchSentiment(ctx)

	// A cancellation during fetching shows up as fallbacks; do not publish
	// a result built from them.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("calculate regime: %w", err)
	}

	fred := macro.Value
	fred.NetLiquidity = liquidity.Value

	components := regime.Normalize(regime.InputsFrom(fred, market.Value, sentiment.Value))
	res := &models.RegimeResult{
		ID:         uuid.NewString(),
		ComputedAt: e.now().UTC(),
		Composite:  e.aggregator.Composite(components),
		Components: components,
		Summaries:  regime.Narrate(components, fred, market.Value),
		Raw: models.Raw{
			Fred:      fred,
			Market:    market.Value,
			Sentiment: sentiment.Value,
		},
		Sources: models.Sources{
			Macro:        macro.Source(),
			NetLiquidity: liquidity.Source(),
			Prices:       market.Source(),
			Sentiment:    sentiment.Source(),
		},
	}

	if err := checkFinite(res); err != nil {
		e.metrics.RecordError("non_finite")
		return nil, fmt.Errorf("calculate regime: %w", err)
	}

	e.metrics.RecordComposite(res.Composite, components.Entries())
	e.metrics.RecordLatency("calculate_regime", time.Since(start).Seconds())
	e.log.Info("regime computed",
		applogger.String("id", res.ID),
		applogger.Float64("composite", res.Composite),
		applogger.String("driver", res.Summaries.Driver.Status),
		applogger.Duration("took", time.Since(start)),
	)
	return res, nil
}

func checkFinite(r *models.RegimeResult) error {
	bad := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite %s: %v", name, v)
		}
		return nil
	}
	if err := bad("composite", r.Composite); err != nil {
		return err
	}
	for _, c := range r.Components.Entries() {
		if err := bad("component "+c.Name, c.Value); err != nil {
			return err
		}
	}
	f := r.Raw.Fred
	m := r.Raw.Market
	for name, v := range map[string]float64{
		"yield_curve":     f.YieldCurve,
		"real_yield":      f.RealYield,
		"hy_spread":       f.HYSpread,
		"nfci":            f.NFCI,
		"stress_index":    f.StressIndex,
		"inflation":       f.Inflation,
		"fed_funds":       f.PolicyRate,
		"net_liquidity":   f.NetLiquidity,
		"copper_gold":     m.CopperGold,
		"copper_gold_mom": m.CopperGoldMomentum,
		"rotation_raw":    m.Rotation,
		"rotation_mom":    m.RotationMomentum,
		"tlt_vol":         m.TLTVol,
		"sentiment":       r.Raw.Sentiment,
	} {
		if err := bad(name, v); err != nil {
			return err
		}
	}
	for t, v := range m.Momentum {
		if err := bad("momentum "+t, v); err != nil {
			return err
		}
	}
	for a, row := range m.Correlation {
		for b, v := range row {
			if err := bad("correlation "+a+"/"+b, v); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ domsvc.RegimeCalculator = (*RegimeEngine)(nil)
