package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// baselineMethods is the evaluation order; earlier methods win CO2 ties
var baselineMethods = []TransportMethod{Truck, Ship, Air}

var cargoTypes = []string{
	"electronics",
	"fresh food",
	"apparel",
	"building materials",
	"auto parts",
	"medical supplies",
	"daily goods",
}

var urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh}

const (
	minCargoKg  = 100
	cargoStepKg = 100
	cargoSteps  = 50 // 100 kg .. 5000 kg
)

// Estimator prices every transport method between two locations for a quest baseline
type Estimator struct {
	Roads     RoadDistanceProvider
	Validator RouteValidator
	Logger    zerolog.Logger
}

// Estimate returns the per-method comparison and the minimum-emission eligible
// method. Air is always eligible, so a best option always exists.
func (e Estimator) Estimate(ctx context.Context, from, to Location, year string) (MethodEstimate, []MethodEstimate) {
	roads := e.Roads
	if roads == nil {
		roads = straightLineRoads{}
	}
	validator := e.Validator
	if validator == nil {
		validator = allowAllRoutes{}
	}

	straight := HaversineKm(from.Coords, to.Coords)
	options := make([]MethodEstimate, 0, len(baselineMethods))

	for _, method := range baselineMethods {
		est := MethodEstimate{Method: method}

		switch method {
		case Truck:
			km, err := roads.RoadDistance(ctx, from.Coords, to.Coords)
			switch {
			case errors.Is(err, ErrRouteBlocked):
				est.Reason = "no road-only route"
			case err != nil:
				e.Logger.Warn().
					Err(err).
					Str("from", from.Name).
					Str("to", to.Name).
					Msg("Road distance lookup failed, using straight-line distance for baseline")
				est.Eligible = true
				est.Degraded = true
				est.DistanceKm = straight
			default:
				est.Eligible = true
				est.DistanceKm = km
			}
		case Ship:
			switch {
			case !from.IsPort() || !to.IsPort():
				est.Reason = "both ends must be ports"
			case !validator.IsValidRoute(from.Name, to.Name, year):
				est.Reason = fmt.Sprintf("no shipping lane in %s", year)
			default:
				est.Eligible = true
				est.DistanceKm = straight
			}
		case Air:
			est.Eligible = true
			est.DistanceKm = straight
		}

		if est.Eligible {
			est.FuelLiters = FuelLiters(method, est.DistanceKm)
			est.CO2Kg = CO2Kg(est.FuelLiters)
		}
		options = append(options, est)
	}

	best := -1
	for i, opt := range options {
		if !opt.Eligible {
			continue
		}
		if best < 0 || opt.CO2Kg < options[best].CO2Kg {
			best = i
		}
	}

	return options[best], options
}

// NewQuest builds a quest between two squares with random cargo flavour
func NewQuest(ctx context.Context, est Estimator, rng *rand.Rand, from, to Location, year string) *DeliveryQuest {
	best, options := est.Estimate(ctx, from, to, year)
	return questFromEstimate(rng, from, to, best, options)
}

// questFromEstimate draws the cargo flavour for an already priced pair
func questFromEstimate(rng *rand.Rand, from, to Location, best MethodEstimate, options []MethodEstimate) *DeliveryQuest {
	cargo := cargoTypes[rng.IntN(len(cargoTypes))]
	weight := minCargoKg + rng.IntN(cargoSteps)*cargoStepKg
	urgency := urgencies[rng.IntN(len(urgencies))]

	return &DeliveryQuest{
		ID:                uuid.NewString(),
		From:              from,
		To:                to,
		OptimalMethod:     best.Method,
		OptimalDistanceKm: best.DistanceKm,
		OptimalCO2Kg:      best.CO2Kg,
		Options:           options,
		CargoType:         cargo,
		CargoWeightKg:     weight,
		Urgency:           urgency,
		Description: fmt.Sprintf("Deliver %d kg of %s from %s to %s (%s urgency). Beat %.2f kg CO2 by %s.",
			weight, cargo, from.Name, to.Name, urgency, best.CO2Kg, best.Method),
	}
}

// ScoreQuest compares the route's emissions with the baseline. Routes that emit
// more than the baseline score zero rather than negative.
func ScoreQuest(optimalCO2Kg, actualCO2Kg float64) (float64, int) {
	saved := math.Max(0, optimalCO2Kg-actualCO2Kg)
	points := int(math.Floor(saved * PointsPerKgCO2))
	return saved, points
}

// pickDestination returns a uniformly random board index other than origin
func pickDestination(rng *rand.Rand, boardSize, origin int) int {
	idx := rng.IntN(boardSize - 1)
	if idx >= origin {
		idx++
	}
	return idx
}
