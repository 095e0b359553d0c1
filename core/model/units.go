package model

// Units selects how distance-bearing instruments are rendered.
type Units string

const (
	// UnitsMetric leaves backend kilometre values untouched.
	UnitsMetric Units = "no_conversion"
	// UnitsImperial renders distances in miles.
	UnitsImperial Units = "imperial"
	// UnitsScandinavianMiles renders distances in Scandinavian miles (10 km).
	UnitsScandinavianMiles Units = "scandinavian_miles"
)

const kmPerMile = 1.609344

// ConvertDistance converts a kilometre value into the target unit.
func (u Units) ConvertDistance(km float64) float64 {
	switch u {
	case UnitsImperial:
		return km / kmPerMile
	case UnitsScandinavianMiles:
		return km / 10
	default:
		return km
	}
}

// DistanceUnit returns the unit symbol for converted distances.
func (u Units) DistanceUnit() string {
	switch u {
	case UnitsImperial:
		return "mi"
	case UnitsScandinavianMiles:
		return "mil"
	default:
		return "km"
	}
}
