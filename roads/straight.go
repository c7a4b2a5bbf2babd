package roads

import (
	"context"

	"github.com/wricardo/co2-logistics-game/game/engine"
)

// DefaultDetourFactor approximates how much longer roads are than the great circle
const DefaultDetourFactor = 1.3

// StraightLineProvider estimates road distance offline. It never reports a blocked route.
type StraightLineProvider struct {
	DetourFactor float64
}

func (p StraightLineProvider) RoadDistance(_ context.Context, from, to engine.Coordinates) (float64, error) {
	f := p.DetourFactor
	if f <= 0 {
		f = DefaultDetourFactor
	}
	return engine.HaversineKm(from, to) * f, nil
}
