package features

import (
	"MacroCompass/internal/domain/models"
	"MacroCompass/pkg/util"
)

// MomentumWindow is the momentum lookback in trading days.
const MomentumWindow = 21

// MarketMetrics derives every market quantity from an aligned basket. The
// series must contain models.Basket; missing tickers contribute zeros.
func MarketMetrics(series *models.PriceSeries, window int) models.MarketMetrics {
	closes := series.Closes

	m := models.MarketMetrics{
		Momentum: make(map[string]float64, len(models.Basket)),
		MomentumHistory: models.MomentumHistory{
			Dates:  []string{},
			Values: make(map[string][]float64, len(models.Basket)),
		},
	}

	if len(series.Dates) > window {
		for _, d := range series.Dates[window:] {
			m.MomentumHistory.Dates = append(m.MomentumHistory.Dates, d.Format(util.DateLayout))
		}
	}
	for _, t := range models.Basket {
		hist := MomentumSeries(closes[t], window)
		if hist == nil {
			hist = []float64{}
		}
		m.MomentumHistory.Values[t] = hist
		m.Momentum[t] = Last(hist)
	}

	copperGold := Ratio(closes[models.TickerCopper], closes[models.TickerGLD])
	m.CopperGold = Last(copperGold)
	m.CopperGoldMomentum = Momentum(copperGold, window)

	rotation := Ratio(closes[models.TickerXLY], closes[models.TickerXLP])
	m.Rotation = Last(rotation)
	m.RotationMomentum = Momentum(rotation, window)

	m.TLTVol = RealizedVolatility(closes[models.TickerTLT])
	m.Correlation = CorrelationMatrix(models.Basket, closes)
	return m
}
