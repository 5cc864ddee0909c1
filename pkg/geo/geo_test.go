package geo

import (
	"math"
	"testing"
)

// Lynden Pindling International, Cable Beach and Bay Street.
var (
	airport    = Point{Lat: 25.0389, Lng: -77.4662}
	cableBeach = Point{Lat: 25.0740, Lng: -77.4000}
	downtown   = Point{Lat: 25.0780, Lng: -77.3431}
)

func TestHaversineMiles_SamePoint(t *testing.T) {
	if got := HaversineMiles(downtown, downtown); got != 0 {
		t.Errorf("HaversineMiles(same point) = %v, want 0", got)
	}
}

func TestHaversineMiles_KnownDistance(t *testing.T) {
	// Airport to Bay Street is roughly 8 miles as the crow flies.
	got := HaversineMiles(airport, downtown)
	if got < 7 || got > 9 {
		t.Errorf("HaversineMiles(airport→downtown) = %.2f, want between 7 and 9", got)
	}
	if back := HaversineMiles(downtown, airport); math.Abs(back-got) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", got, back)
	}
}

func TestRoadMiles(t *testing.T) {
	direct := RoadMiles(airport, downtown)
	if want := math.Round(HaversineMiles(airport, downtown)*RoadFactor*10) / 10; direct != want {
		t.Errorf("RoadMiles = %v, want %v", direct, want)
	}

	via := RoadMiles(airport, cableBeach, downtown)
	if via < direct {
		t.Errorf("route via Cable Beach (%v) shorter than direct (%v)", via, direct)
	}

	if got := RoadMiles(airport); got != 0 {
		t.Errorf("RoadMiles(single stop) = %v, want 0", got)
	}
}

func TestDriveMinutes(t *testing.T) {
	cases := []struct {
		miles float64
		want  int
	}{
		{0, 0},
		{-1, 0},
		{11, 30},
		{11.1, 31},
	}
	for _, tc := range cases {
		if got := DriveMinutes(tc.miles); got != tc.want {
			t.Errorf("DriveMinutes(%v) = %d, want %d", tc.miles, got, tc.want)
		}
	}
}

func TestPointValid(t *testing.T) {
	if !downtown.Valid() {
		t.Error("downtown should be valid")
	}
	for _, p := range []Point{{Lat: 91}, {Lng: -181}, {Lat: math.NaN()}} {
		if p.Valid() {
			t.Errorf("%+v should be invalid", p)
		}
	}
}
