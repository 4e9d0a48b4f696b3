package models

import (
	"time"
)

// Component names. They double as JSON keys of RegimeResult.components.
const (
	ComponentLiquidity          = "Liquidity"
	ComponentCredit             = "Credit"
	ComponentMonetaryConditions = "Monetary-Conditions"
	ComponentGrowth             = "Growth"
	ComponentRiskAppetite       = "Risk-Appetite"
	ComponentSentiment          = "Sentiment"
)

// ComponentOrder is the canonical component order; ties in rankings fall
// back to it.
var ComponentOrder = []string{
	ComponentLiquidity,
	ComponentCredit,
	ComponentMonetaryConditions,
	ComponentGrowth,
	ComponentRiskAppetite,
	ComponentSentiment,
}

// Basket tickers.
const (
	TickerQQQ    = "QQQ"
	TickerGLD    = "GLD"
	TickerTLT    = "TLT"
	TickerUUP    = "UUP"
	TickerCopper = "HG=F"
	TickerXLY    = "XLY"
	TickerXLP    = "XLP"
)

// Basket is the fixed, ordered asset basket.
var Basket = []string{TickerQQQ, TickerGLD, TickerTLT, TickerUUP, TickerCopper, TickerXLY, TickerXLP}

// MacroReading is one point-in-time snapshot of the macro indicators.
type MacroReading struct {
	YieldCurve   float64 `json:"yield_curve"`
	RealYield    float64 `json:"real_yield"`
	HYSpread     float64 `json:"hy_spread"`
	NFCI         float64 `json:"nfci"`
	StressIndex  float64 `json:"stress_index"`
	Inflation    float64 `json:"inflation"`
	PolicyRate   float64 `json:"fed_funds"`
	NetLiquidity float64 `json:"net_liquidity"`
}

// PriceSeries holds daily closes aligned on a common date index. Every
// slice in Closes has len(Dates) entries.
type PriceSeries struct {
	Dates  []time.Time
	Closes map[string][]float64
}

// MomentumHistory is the rolling momentum series per ticker, aligned on Dates.
type MomentumHistory struct {
	Dates  []string             `json:"dates"`
	Values map[string][]float64 `json:"values"`
}

// MarketMetrics are the quantities derived from the price basket.
type MarketMetrics struct {
	Momentum           map[string]float64            `json:"momentum"`
	MomentumHistory    MomentumHistory               `json:"momentum_history"`
	CopperGold         float64                       `json:"copper_gold"`
	CopperGoldMomentum float64                       `json:"copper_gold_mom"`
	Rotation           float64                       `json:"rotation_raw"`
	RotationMomentum   float64                       `json:"rotation_mom"`
	TLTVol             float64                       `json:"tlt_vol"`
	Correlation        map[string]map[string]float64 `json:"correlation"`
}

// Components are the six normalized scores, each in [-1, 1].
type Components struct {
	Liquidity          float64 `json:"Liquidity"`
	Credit             float64 `json:"Credit"`
	MonetaryConditions float64 `json:"Monetary-Conditions"`
	Growth             float64 `json:"Growth"`
	RiskAppetite       float64 `json:"Risk-Appetite"`
	Sentiment          float64 `json:"Sentiment"`
}

// ComponentScore is a named component value.
type ComponentScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Entries returns the components in canonical order.
func (c Components) Entries() []ComponentScore {
	return []ComponentScore{
		{ComponentLiquidity, c.Liquidity},
		{ComponentCredit, c.Credit},
		{ComponentMonetaryConditions, c.MonetaryConditions},
		{ComponentGrowth, c.Growth},
		{ComponentRiskAppetite, c.RiskAppetite},
		{ComponentSentiment, c.Sentiment},
	}
}

// Summary is the common shape of every narrative block.
type Summary struct {
	Status     string `json:"status"`
	Color      string `json:"color"`
	Conclusion string `json:"conclusion"`
}

type DriverSummary struct {
	Summary
	TopDriver string  `json:"top_driver"`
	TopScore  float64 `json:"top_score"`
	Weakest   string  `json:"weakest"`
	WeakScore float64 `json:"weakest_score"`
	Friction  bool    `json:"friction"`
}

type PlumbingSummary struct {
	Summary
	StressScore float64 `json:"stress_score"`
}

type GrowthSummary struct {
	Summary
	CopperGoldPct float64 `json:"copper_gold_pct"`
	RotationPct   float64 `json:"rotation_pct"`
}

type MomentumSummary struct {
	Summary
	Leader  string  `json:"leader"`
	Laggard string  `json:"laggard"`
	Breadth float64 `json:"breadth"`
}

// Pair is one off-diagonal entry of the correlation matrix.
type Pair struct {
	A    string  `json:"a"`
	B    string  `json:"b"`
	Corr float64 `json:"corr"`
}

type CorrelationSummary struct {
	Summary
	Tension   float64 `json:"tension"`
	Strongest Pair    `json:"strongest"`
	Weakest   Pair    `json:"weakest"`
	HedgeNote string  `json:"hedge_note,omitempty"`
}

// Summaries groups the narrative blocks by topic.
type Summaries struct {
	Driver      DriverSummary      `json:"driver"`
	Plumbing    PlumbingSummary    `json:"plumbing"`
	Growth      GrowthSummary      `json:"growth"`
	Momentum    MomentumSummary    `json:"momentum"`
	Correlation CorrelationSummary `json:"correlation"`
}

// Raw carries the un-normalized inputs for display and debugging.
type Raw struct {
	Fred      MacroReading  `json:"fred"`
	Market    MarketMetrics `json:"market"`
	Sentiment float64       `json:"sentiment"`
}

// Source states reported in Sources.
const (
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// Sources reports, per provider group, whether live data or the fixed
// fallback fed the result.
type Sources struct {
	Macro        string `json:"macro"`
	NetLiquidity string `json:"net_liquidity"`
	Prices       string `json:"prices"`
	Sentiment    string `json:"sentiment"`
}

// RegimeResult is the computed artifact served to clients. It is treated as
// read-only once built: maps inside Raw are shared with every reader.
type RegimeResult struct {
	ID         string     `json:"id"`
	ComputedAt time.Time  `json:"computed_at"`
	Composite  float64    `json:"composite"`
	Components Components `json:"components"`
	Summaries  Summaries  `json:"summaries"`
	Raw        Raw        `json:"raw"`
	Sources    Sources    `json:"sources"`
}
