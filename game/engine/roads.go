package engine

import (
	"context"
	"errors"
)

// ErrRouteBlocked is returned by a RoadDistanceProvider when the only path between
// two points includes a non-vehicle leg such as a ferry.
var ErrRouteBlocked = errors.New("no vehicle-only route between locations")

// RoadDistanceProvider looks up road-network distances in kilometers
type RoadDistanceProvider interface {
	RoadDistance(ctx context.Context, from, to Coordinates) (float64, error)
}

// RouteValidator answers historical port-to-port lane queries
type RouteValidator interface {
	IsValidRoute(fromPort, toPort, year string) bool
}

// allowAllRoutes is used when no validator is configured
type allowAllRoutes struct{}

func (allowAllRoutes) IsValidRoute(string, string, string) bool { return true }

// straightLineRoads is used when no road provider is configured
type straightLineRoads struct{}

func (straightLineRoads) RoadDistance(_ context.Context, from, to Coordinates) (float64, error) {
	return HaversineKm(from, to), nil
}
