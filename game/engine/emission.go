package engine

const (
	// TruckKmPerLiter is the fuel economy of a delivery truck
	TruckKmPerLiter = 7.5
	// ShipLitersPerKm is cargo-normalized vessel consumption
	ShipLitersPerKm = 0.015
	// AirLitersPerKm is cargo-normalized aircraft consumption
	AirLitersPerKm = 0.2
	// CO2KgPerLiter is the diesel-equivalent emission factor
	CO2KgPerLiter = 2.31
)

// FuelLiters returns the fuel burned moving cargo distanceKm with the given method.
// Unknown methods consume nothing.
func FuelLiters(method TransportMethod, distanceKm float64) float64 {
	switch method {
	case Truck:
		return distanceKm / TruckKmPerLiter
	case Ship:
		return distanceKm * ShipLitersPerKm
	case Air:
		return distanceKm * AirLitersPerKm
	default:
		return 0
	}
}

// CO2Kg converts burned fuel into emitted CO2
func CO2Kg(fuelLiters float64) float64 {
	return fuelLiters * CO2KgPerLiter
}

// NewSegment prices a leg between two locations
func NewSegment(from, to Location, method TransportMethod, distanceKm float64) RouteSegment {
	fuel := FuelLiters(method, distanceKm)
	return RouteSegment{
		From:       from,
		To:         to,
		Method:     method,
		DistanceKm: distanceKm,
		FuelLiters: fuel,
		CO2Kg:      CO2Kg(fuel),
	}
}

// MethodFor selects the player-route method by destination kind
func MethodFor(destination Location) TransportMethod {
	if destination.IsPort() {
		return Ship
	}
	return Truck
}

// IsValidMethod reports whether method is a known transport method
func IsValidMethod(method TransportMethod) bool {
	switch method {
	case Truck, Ship, Air:
		return true
	}
	return false
}
