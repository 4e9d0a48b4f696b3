package service

import (
	"context"

	"MacroCompass/internal/domain/models"
)

// RegimeCalculator runs the full fetch, derive, normalize, aggregate and
// narrate pipeline once.
type RegimeCalculator interface {
	CalculateRegime(ctx context.Context) (*models.RegimeResult, error)
}

// RegimeProvider returns the current regime, possibly from a cache.
type RegimeProvider interface {
	Current(ctx context.Context) (*models.RegimeResult, error)
}
