package regime

import (
	"fmt"
	"math"

	"MacroCompass/internal/domain/models"
)

const weightTolerance = 1e-9

// Weights assigns each component its share of the composite.
type Weights struct {
	Liquidity          float64 `json:"Liquidity"`
	Credit             float64 `json:"Credit"`
	MonetaryConditions float64 `json:"Monetary-Conditions"`
	Growth             float64 `json:"Growth"`
	RiskAppetite       float64 `json:"Risk-Appetite"`
	Sentiment          float64 `json:"Sentiment"`
}

// DefaultWeights is the production weighting.
var DefaultWeights = Weights{
	Liquidity:          0.25,
	Credit:             0.20,
	MonetaryConditions: 0.15,
	Growth:             0.15,
	RiskAppetite:       0.15,
	Sentiment:          0.10,
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Liquidity + w.Credit + w.MonetaryConditions + w.Growth + w.RiskAppetite + w.Sentiment
}

// Validate rejects negative weights and sets that do not sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Liquidity, w.Credit, w.MonetaryConditions, w.Growth, w.RiskAppetite, w.Sentiment} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("invalid component weight %v", v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > weightTolerance {
		return fmt.Errorf("weights sum to %v, want 1", s)
	}
	return nil
}

// Aggregator combines components into the composite score.
type Aggregator struct {
	w Weights
}

// NewAggregator validates w and returns an aggregator using it.
func NewAggregator(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{w: w}, nil
}

// Weights returns the configured weights.
func (a *Aggregator) Weights() Weights {
	return a.w
}

// Composite returns the clipped weighted sum.
func (a *Aggregator) Composite(c models.Components) float64 {
	return clip(a.w.Liquidity*c.Liquidity +
		a.w.Credit*c.Credit +
		a.w.MonetaryConditions*c.MonetaryConditions +
		a.w.Growth*c.Growth +
		a.w.RiskAppetite*c.RiskAppetite +
		a.w.Sentiment*c.Sentiment)
}
