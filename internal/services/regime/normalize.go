package regime

import (
	"MacroCompass/internal/domain/models"
	"MacroCompass/internal/services/features"
)

// Normalization anchors. Each metric maps linearly onto [-1, 1] and is
// clipped.
const (
	LiquidityCenter = 6e12
	LiquidityScale  = 2e12
	CreditCenter    = 4.5
	CreditScale     = 2.5
	NFCIScale       = 0.8
	GrowthScale     = 0.15
	RotationScale   = 0.15
	SentimentScale  = 0.5
)

// Inputs are the raw values the normalizer consumes.
type Inputs struct {
	NetLiquidity       float64
	HYSpread           float64
	NFCI               float64
	CopperGoldMomentum float64
	RotationMomentum   float64
	Sentiment          float64
}

// InputsFrom picks the normalizer inputs out of the raw readings.
func InputsFrom(fred models.MacroReading, market models.MarketMetrics, sentiment float64) Inputs {
	return Inputs{
		NetLiquidity:       fred.NetLiquidity,
		HYSpread:           fred.HYSpread,
		NFCI:               fred.NFCI,
		CopperGoldMomentum: market.CopperGoldMomentum,
		RotationMomentum:   market.RotationMomentum,
		Sentiment:          sentiment,
	}
}

func clip(x float64) float64 {
	return features.Clip(x, -1, 1)
}

// Normalize maps raw inputs to the six components.
func Normalize(in Inputs) models.Components {
	return models.Components{
		Liquidity:          clip((in.NetLiquidity - LiquidityCenter) / LiquidityScale),
		Credit:             clip((CreditCenter - in.HYSpread) / CreditScale),
		MonetaryConditions: clip(-in.NFCI / NFCIScale),
		Growth:             clip(in.CopperGoldMomentum / GrowthScale),
		RiskAppetite:       clip(in.RotationMomentum / RotationScale),
		Sentiment:          clip(in.Sentiment / SentimentScale),
	}
}
