package turn

import "math"

// Distance is the Euclidean distance between two coordinates measured in
// raw degrees. It is a planar approximation used for ordering only.
func Distance(a, b Coordinate) float64 {
	return math.Hypot(b.Latitude-a.Latitude, b.Longitude-a.Longitude)
}

// Bearing is the angle in radians from a to b, atan2(dLat, dLon).
func Bearing(a, b Coordinate) float64 {
	return math.Atan2(b.Latitude-a.Latitude, b.Longitude-a.Longitude)
}

// StepToward moves from toward to by at most step degrees. A target closer
// than one step is reached exactly.
func StepToward(from, to Coordinate, step float64) Coordinate {
	if Distance(from, to) <= step {
		return to
	}
	angle := Bearing(from, to)
	return Coordinate{
		Latitude:  from.Latitude + math.Sin(angle)*step,
		Longitude: from.Longitude + math.Cos(angle)*step,
	}
}
