package stats

import "fmt"

// Weights are stored in kilograms and distances in kilometers,
// conversion to imperial happens only at the display edge.
const (
	kgToLbs   = 2.204623
	kmToMiles = 0.621371
	milesToKm = 1.60934
)

type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

func (u Units) IsValid() bool {
	return u == UnitsMetric || u == UnitsImperial
}

func ParseUnits(raw string) (Units, error) {
	u := Units(raw)
	if !u.IsValid() {
		return "", fmt.Errorf("invalid units [%s], expected metric or imperial", raw)
	}
	return u, nil
}

func (u Units) WeightToDisplay(kg float64) float64 {
	if u == UnitsImperial {
		return kg * kgToLbs
	}
	return kg
}

func (u Units) WeightToCanonical(w float64) float64 {
	if u == UnitsImperial {
		return w / kgToLbs
	}
	return w
}

func (u Units) DistanceToDisplay(km float64) float64 {
	if u == UnitsImperial {
		return km * kmToMiles
	}
	return km
}

func (u Units) DistanceToCanonical(d float64) float64 {
	if u == UnitsImperial {
		return d * milesToKm
	}
	return d
}

func (u Units) WeightAbbr() string {
	if u == UnitsImperial {
		return "lbs"
	}
	return "kg"
}

func (u Units) DistanceAbbr() string {
	if u == UnitsImperial {
		return "mi"
	}
	return "km"
}
