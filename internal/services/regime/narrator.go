package regime

import (
	"fmt"
	"math"
	"sort"

	"MacroCompass/internal/domain/models"
)

// Colors used by summaries. The page maps them to its palette.
const (
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorAmber  = "amber"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorGray   = "gray"
)

// Thresholds shared by the narrative rules.
const (
	FrictionThreshold    = -0.3
	PlumbingCritical     = 0.7
	PlumbingCaution      = 0.4
	PlumbingCalm         = 0.25
	InvertedCurve        = -0.1
	LooseConditions      = -0.5
	GrowthSignalPct      = 1.0
	OneTradeTension      = 0.6
	DispersionTension    = 0.3
	BondHedgeCorrelation = -0.4
	plumbingHYScale      = 5.0
	plumbingStressOffset = 1.0
	plumbingStressScale  = 3.0
	plumbingVolScale     = 20.0
	plumbingHYWeight     = 0.4
	plumbingStressWeight = 0.3
	plumbingVolWeight    = 0.3
)

// Narrate builds every summary block.
func Narrate(c models.Components, fred models.MacroReading, market models.MarketMetrics) models.Summaries {
	return models.Summaries{
		Driver:      DriverSummary(c),
		Plumbing:    PlumbingSummary(fred, market.TLTVol),
		Growth:      GrowthSummary(market.CopperGoldMomentum, market.RotationMomentum),
		Momentum:    MomentumSummary(market.Momentum),
		Correlation: CorrelationSummary(market.Correlation),
	}
}

// RankComponents sorts components by value, highest first. Ties keep the
// canonical order.
func RankComponents(c models.Components) []models.ComponentScore {
	ranked := c.Entries()
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })
	return ranked
}

type driverNarrative struct {
	members    []string
	status     string
	conclusion string
}

var driverNarratives = []driverNarrative{
	{
		members:    []string{models.ComponentLiquidity, models.ComponentMonetaryConditions},
		status:     "LIQUIDITY",
		conclusion: "Balance-sheet liquidity and financial conditions set the tone; follow the plumbing before the price action.",
	},
	{
		members:    []string{models.ComponentRiskAppetite, models.ComponentSentiment},
		status:     "RISK APPETITE",
		conclusion: "Positioning and sentiment lead the tape; moves can reverse quickly when the mood turns.",
	},
	{
		members:    []string{models.ComponentGrowth},
		status:     "GROWTH",
		conclusion: "Real-economy signals lead; cyclical exposure is the expression to watch.",
	},
	{
		members:    []string{models.ComponentCredit},
		status:     "CREDIT",
		conclusion: "Credit spreads are the marginal driver; watch high-yield for the next signal.",
	},
}

// DriverSummary names the dominant component group and flags friction from
// the weakest component.
func DriverSummary(c models.Components) models.DriverSummary {
	ranked := RankComponents(c)
	top, weakest := ranked[0], ranked[len(ranked)-1]

	out := models.DriverSummary{
		TopDriver: top.Name,
		TopScore:  top.Value,
		Weakest:   weakest.Name,
		WeakScore: weakest.Value,
		Friction:  weakest.Value < FrictionThreshold,
	}
	for _, n := range driverNarratives {
		if contains(n.members, top.Name) {
			out.Status = n.status
			out.Conclusion = n.conclusion
			break
		}
	}

	out.Color = ColorGreen
	if top.Value <= 0 {
		out.Color = ColorAmber
	}
	if out.Friction {
		out.Conclusion += fmt.Sprintf(" Friction: %s is a drag at %+.2f.", weakest.Name, weakest.Value)
	}
	return out
}

// PlumbingStress blends credit spread, systemic stress and bond volatility
// into one score.
func PlumbingStress(hySpread, stressIndex, tltVol float64) float64 {
	return plumbingHYWeight*(hySpread/plumbingHYScale) +
		plumbingStressWeight*((stressIndex+plumbingStressOffset)/plumbingStressScale) +
		plumbingVolWeight*(tltVol/plumbingVolScale)
}

type plumbingInput struct {
	stress     float64
	yieldCurve float64
	nfci       float64
}

type plumbingRule struct {
	when func(plumbingInput) bool
	out  models.Summary
}

var plumbingRules = []plumbingRule{
	{
		when: func(p plumbingInput) bool { return p.stress > PlumbingCritical },
		out:  models.Summary{Status: "CRITICAL", Color: ColorRed, Conclusion: "Funding markets are under acute strain; credit and bond volatility point to forced deleveraging."},
	},
	{
		when: func(p plumbingInput) bool { return p.stress > PlumbingCaution },
		out:  models.Summary{Status: "CAUTION", Color: ColorOrange, Conclusion: "Plumbing stress is elevated; keep position sizes modest."},
	},
	{
		when: func(p plumbingInput) bool { return p.yieldCurve < InvertedCurve },
		out:  models.Summary{Status: "RESTRICTIVE", Color: ColorAmber, Conclusion: "The curve is inverted; policy is restrictive even though funding is orderly."},
	},
	{
		when: func(p plumbingInput) bool { return p.stress < PlumbingCalm && p.nfci < LooseConditions },
		out:  models.Summary{Status: "ACCOMMODATIVE", Color: ColorGreen, Conclusion: "Financial conditions are loose and stress is low; the plumbing supports risk."},
	},
	{
		when: func(plumbingInput) bool { return true },
		out:  models.Summary{Status: "STABLE", Color: ColorBlue, Conclusion: "Funding conditions are orderly."},
	},
}

// PlumbingSummary classifies funding stress.
func PlumbingSummary(fred models.MacroReading, tltVol float64) models.PlumbingSummary {
	in := plumbingInput{
		stress:     PlumbingStress(fred.HYSpread, fred.StressIndex, tltVol),
		yieldCurve: fred.YieldCurve,
		nfci:       fred.NFCI,
	}
	for _, r := range plumbingRules {
		if r.when(in) {
			return models.PlumbingSummary{Summary: r.out, StressScore: in.stress}
		}
	}
	return models.PlumbingSummary{StressScore: in.stress}
}

type growthRule struct {
	when func(cg, rot float64) bool
	out  models.Summary
}

var growthRules = []growthRule{
	{
		when: func(cg, rot float64) bool { return cg > GrowthSignalPct && rot > GrowthSignalPct },
		out:  models.Summary{Status: "EXPANSION", Color: ColorGreen, Conclusion: "Copper beats gold and consumers beat staples: growth is broadening."},
	},
	{
		when: func(cg, rot float64) bool { return cg < -GrowthSignalPct && rot < -GrowthSignalPct },
		out:  models.Summary{Status: "CONTRACTION", Color: ColorRed, Conclusion: "Gold beats copper and staples beat discretionary: growth is rolling over."},
	},
	{
		when: func(cg, rot float64) bool { return cg > GrowthSignalPct && rot < -GrowthSignalPct },
		out:  models.Summary{Status: "DIVERGING", Color: ColorAmber, Conclusion: "Industrial demand firms while consumers turn defensive; the signals disagree."},
	},
	{
		when: func(cg, rot float64) bool { return cg < -GrowthSignalPct && rot > GrowthSignalPct },
		out:  models.Summary{Status: "LIQUIDITY-DRIVEN", Color: ColorBlue, Conclusion: "Equity risk appetite runs ahead of a soft industrial cycle."},
	},
	{
		when: func(float64, float64) bool { return true },
		out:  models.Summary{Status: "NEUTRAL", Color: ColorGray, Conclusion: "Growth proxies are flat; no clear cycle signal."},
	},
}

// GrowthSummary classifies the cycle from the copper/gold and rotation
// momenta (fractions, reported in percent).
func GrowthSummary(copperGoldMomentum, rotationMomentum float64) models.GrowthSummary {
	cg, rot := copperGoldMomentum*100, rotationMomentum*100
	for _, r := range growthRules {
		if r.when(cg, rot) {
			return models.GrowthSummary{Summary: r.out, CopperGoldPct: cg, RotationPct: rot}
		}
	}
	return models.GrowthSummary{CopperGoldPct: cg, RotationPct: rot}
}

type momentumInput struct {
	leader   string
	momentum map[string]float64
}

type momentumRule struct {
	when func(momentumInput) bool
	out  models.Summary
}

var momentumRules = []momentumRule{
	{
		when: func(m momentumInput) bool { return m.leader == models.TickerQQQ },
		out:  models.Summary{Status: "TECH-LED", Color: ColorGreen, Conclusion: "Growth equities lead the basket; duration-sensitive risk is in favor."},
	},
	{
		when: func(m momentumInput) bool { return m.leader == models.TickerGLD || m.leader == models.TickerTLT },
		out:  models.Summary{Status: "FLIGHT TO QUALITY", Color: ColorRed, Conclusion: "Havens lead; capital is seeking safety."},
	},
	{
		when: func(m momentumInput) bool { return m.leader == models.TickerUUP },
		out:  models.Summary{Status: "DOLLAR SQUEEZE", Color: ColorOrange, Conclusion: "The dollar leads; global liquidity is tightening."},
	},
	{
		when: func(m momentumInput) bool { return m.leader == models.TickerCopper },
		out:  models.Summary{Status: "CYCLICAL REFLATION", Color: ColorGreen, Conclusion: "Copper leads; markets price a reflationary upswing."},
	},
	{
		when: func(m momentumInput) bool { return m.momentum[models.TickerXLP] > m.momentum[models.TickerQQQ] },
		out:  models.Summary{Status: "LATE CYCLE", Color: ColorAmber, Conclusion: "Staples outrun tech; investors are rotating defensively."},
	},
	{
		when: func(momentumInput) bool { return true },
		out:  models.Summary{Status: "UNDECIDED", Color: ColorGray, Conclusion: "No asset has clear leadership."},
	},
}

// MomentumSummary classifies leadership in the basket and reports breadth.
func MomentumSummary(momentum map[string]float64) models.MomentumSummary {
	ranked := make([]string, 0, len(models.Basket))
	positive := 0
	for _, t := range models.Basket {
		if _, ok := momentum[t]; !ok {
			continue
		}
		ranked = append(ranked, t)
		if momentum[t] > 0 {
			positive++
		}
	}
	if len(ranked) == 0 {
		return models.MomentumSummary{Summary: momentumRules[len(momentumRules)-1].out}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return momentum[ranked[i]] > momentum[ranked[j]] })

	out := models.MomentumSummary{
		Leader:  ranked[0],
		Laggard: ranked[len(ranked)-1],
		Breadth: float64(positive) / float64(len(ranked)) * 100,
	}
	in := momentumInput{leader: out.Leader, momentum: momentum}
	for _, r := range momentumRules {
		if r.when(in) {
			out.Summary = r.out
			break
		}
	}
	return out
}

// CorrelationSummary measures how tightly the basket trades together.
func CorrelationSummary(corr map[string]map[string]float64) models.CorrelationSummary {
	var pairs []models.Pair
	for i, a := range models.Basket {
		for _, b := range models.Basket[i+1:] {
			v, ok := corr[a][b]
			if !ok {
				continue
			}
			pairs = append(pairs, models.Pair{A: a, B: b, Corr: v})
		}
	}

	out := models.CorrelationSummary{}
	if len(pairs) > 0 {
		sum := 0.0
		out.Strongest, out.Weakest = pairs[0], pairs[0]
		for _, p := range pairs {
			sum += math.Abs(p.Corr)
			if p.Corr > out.Strongest.Corr {
				out.Strongest = p
			}
			if p.Corr < out.Weakest.Corr {
				out.Weakest = p
			}
		}
		out.Tension = sum / float64(len(pairs))
	}

	switch {
	case out.Tension > OneTradeTension:
		out.Summary = models.Summary{Status: "ONE TRADE", Color: ColorRed, Conclusion: "Assets move as one; diversification is failing."}
	case out.Tension < DispersionTension:
		out.Summary = models.Summary{Status: "DISPERSION", Color: ColorGreen, Conclusion: "Correlations are low; diversification works."}
	default:
		out.Summary = models.Summary{Status: "BALANCED", Color: ColorBlue, Conclusion: "Correlations are moderate."}
	}

	if c, ok := corr[models.TickerQQQ][models.TickerTLT]; ok && c < BondHedgeCorrelation {
		out.HedgeNote = fmt.Sprintf("Bonds are hedging equities (QQQ/TLT correlation %.2f).", c)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
