package turn

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	a := Coordinate{Latitude: 0, Longitude: 0}
	b := Coordinate{Latitude: 3, Longitude: 4}
	if d := Distance(a, b); d != 5 {
		t.Errorf("Distance = %v, want 5", d)
	}
	if d := Distance(b, a); d != 5 {
		t.Errorf("Distance is not symmetric: %v", d)
	}
}

func TestStepToward(t *testing.T) {
	from := Coordinate{Latitude: 0, Longitude: 0}

	got := StepToward(from, Coordinate{Latitude: 0, Longitude: 2}, 0.5)
	if got.Latitude != 0 || got.Longitude != 0.5 {
		t.Errorf("east step = %+v, want {0 0.5}", got)
	}

	got = StepToward(from, Coordinate{Latitude: 2, Longitude: 0}, 0.5)
	if math.Abs(got.Latitude-0.5) > 1e-12 || math.Abs(got.Longitude) > 1e-12 {
		t.Errorf("north step = %+v, want {0.5 0}", got)
	}

	// Closer than one step: land on the target, no overshoot.
	target := Coordinate{Latitude: 0.1, Longitude: 0.2}
	if got := StepToward(from, target, 0.5); got != target {
		t.Errorf("short step = %+v, want %+v", got, target)
	}
}

func TestCoordinateValid(t *testing.T) {
	tests := []struct {
		c    Coordinate
		want bool
	}{
		{Coordinate{48.85, 2.35}, true},
		{Coordinate{math.NaN(), 2.35}, false},
		{Coordinate{48.85, math.Inf(1)}, false},
		{Coordinate{math.Inf(-1), 0}, false},
	}
	for _, tt := range tests {
		if got := tt.c.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.c, got, tt.want)
		}
	}
}
