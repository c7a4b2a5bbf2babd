package engine

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreQuest(t *testing.T) {
	tests := []struct {
		name    string
		optimal float64
		actual  float64
		saved   float64
		points  int
	}{
		{"beats baseline", 50, 30, 20, 200},
		{"worse than baseline", 30, 50, 0, 0},
		{"equal", 12.5, 12.5, 0, 0},
		{"fractional", 2.5, 0.25, 2.25, 22},
		{"never rounds up", 2.29999999995, 0, 2.29999999995, 22},
		{"floors partial points", 1.0, 0.95, 0.05, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, points := ScoreQuest(tt.optimal, tt.actual)
			assert.InDelta(t, tt.saved, saved, 1e-9)
			assert.Equal(t, tt.points, points)
		})
	}
}

func optionFor(t *testing.T, options []MethodEstimate, m TransportMethod) MethodEstimate {
	t.Helper()
	for _, o := range options {
		if o.Method == m {
			return o
		}
	}
	t.Fatalf("no %s option", m)
	return MethodEstimate{}
}

func TestEstimateStorageToStorage(t *testing.T) {
	roads := newFakeRoads()
	roads.km[depotB.Coords] = 80
	est := Estimator{Roads: roads, Logger: zerolog.Nop()}

	best, options := est.Estimate(context.Background(), depotA, depotB, DefaultYear)
	require.Len(t, options, 3)

	assert.Equal(t, Truck, best.Method)
	assert.InDelta(t, 80, best.DistanceKm, 1e-9)
	assert.False(t, optionFor(t, options, Ship).Eligible)
	assert.True(t, optionFor(t, options, Air).Eligible)
}

func TestEstimatePortToPortPrefersShip(t *testing.T) {
	est := Estimator{Roads: newFakeRoads(), Logger: zerolog.Nop()}

	best, _ := est.Estimate(context.Background(), portX, portY, DefaultYear)
	assert.Equal(t, Ship, best.Method)
	assert.InDelta(t, HaversineKm(portX.Coords, portY.Coords), best.DistanceKm, 1e-9)
}

func TestEstimateShipNeedsLaneForYear(t *testing.T) {
	lanes := fakeLanes{denied: map[string]bool{"Port X|Port Y|2017": true}}
	est := Estimator{Roads: newFakeRoads(), Validator: lanes, Logger: zerolog.Nop()}

	best, options := est.Estimate(context.Background(), portX, portY, "2017")
	ship := optionFor(t, options, Ship)
	assert.False(t, ship.Eligible)
	assert.Contains(t, ship.Reason, "2017")
	assert.NotEqual(t, Ship, best.Method)

	best, _ = est.Estimate(context.Background(), portX, portY, "2018")
	assert.Equal(t, Ship, best.Method)
}

func TestEstimateBlockedTruckFallsBackToAir(t *testing.T) {
	roads := newFakeRoads()
	roads.setBlocked(depotB.Coords)
	est := Estimator{Roads: roads, Logger: zerolog.Nop()}

	best, options := est.Estimate(context.Background(), depotA, depotB, DefaultYear)
	assert.Equal(t, Air, best.Method)
	assert.False(t, optionFor(t, options, Truck).Eligible)
}

func TestEstimateLookupFailureUsesStraightLine(t *testing.T) {
	roads := newFakeRoads()
	roads.failing[depotB.Coords] = true
	est := Estimator{Roads: roads, Logger: zerolog.Nop()}

	_, options := est.Estimate(context.Background(), depotA, depotB, DefaultYear)
	truck := optionFor(t, options, Truck)
	assert.True(t, truck.Eligible)
	assert.True(t, truck.Degraded)
	assert.InDelta(t, HaversineKm(depotA.Coords, depotB.Coords), truck.DistanceKm, 1e-9)
}

func TestPickDestinationNeverReturnsOrigin(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		origin := i % 5
		dest := pickDestination(rng, 5, origin)
		assert.NotEqual(t, origin, dest)
		assert.GreaterOrEqual(t, dest, 0)
		assert.Less(t, dest, 5)
		seen[dest] = true
	}
	assert.Len(t, seen, 5)
}

func TestNewQuest(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	est := Estimator{Roads: newFakeRoads(), Logger: zerolog.Nop()}

	q := NewQuest(context.Background(), est, rng, depotA, portX, DefaultYear)
	assert.NotEmpty(t, q.ID)
	assert.True(t, q.From.SameAs(depotA))
	assert.True(t, q.To.SameAs(portX))
	assert.GreaterOrEqual(t, q.CargoWeightKg, 100)
	assert.LessOrEqual(t, q.CargoWeightKg, 5000)
	assert.Contains(t, q.Description, "Depot A")
	assert.Contains(t, q.Description, "Port X")
	assert.Contains(t, []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}, q.Urgency)
	assert.Len(t, q.Options, 3)
}
