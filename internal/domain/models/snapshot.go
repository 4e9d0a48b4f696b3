package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the flattened, storable form of a RegimeResult.
type Snapshot struct {
	ID                 string    `json:"id"`
	ComputedAt         time.Time `json:"computed_at"`
	Composite          float64   `json:"composite"`
	Liquidity          float64   `json:"liquidity"`
	Credit             float64   `json:"credit"`
	MonetaryConditions float64   `json:"monetary_conditions"`
	Growth             float64   `json:"growth"`
	RiskAppetite       float64   `json:"risk_appetite"`
	Sentiment          float64   `json:"sentiment"`
	DriverStatus       string    `json:"driver_status"`
	PlumbingStatus     string    `json:"plumbing_status"`
	GrowthStatus       string    `json:"growth_status"`
	MomentumStatus     string    `json:"momentum_status"`
	CorrelationStatus  string    `json:"correlation_status"`
	Payload            string    `json:"payload,omitempty"`
}

// NewSnapshot flattens r and embeds its JSON encoding as Payload.
func NewSnapshot(r *RegimeResult) (*Snapshot, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal regime result: %w", err)
	}
	c := r.Components
	return &Snapshot{
		ID:                 r.ID,
		ComputedAt:         r.ComputedAt,
		Composite:          r.Composite,
		Liquidity:          c.Liquidity,
		Credit:             c.Credit,
		MonetaryConditions: c.MonetaryConditions,
		Growth:             c.Growth,
		RiskAppetite:       c.RiskAppetite,
		Sentiment:          c.Sentiment,
		DriverStatus:       r.Summaries.Driver.Status,
		PlumbingStatus:     r.Summaries.Plumbing.Status,
		GrowthStatus:       r.Summaries.Growth.Status,
		MomentumStatus:     r.Summaries.Momentum.Status,
		CorrelationStatus:  r.Summaries.Correlation.Status,
		Payload:            string(payload),
	}, nil
}
