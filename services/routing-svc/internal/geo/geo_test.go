package geo

import "testing"

func TestHaversineKM_SamePoint(t *testing.T) {
	d := HaversineKM(42.70, 23.32, 42.70, 23.32)
	if d != 0 {
		t.Errorf("expected 0 distance for same point, got %v", d)
	}
}

func TestHaversineKM_KnownDistance(t *testing.T) {
	// Sofia to Plovdiv, roughly 130km apart.
	d := HaversineKM(42.6977, 23.3219, 42.1354, 24.7453)
	if d < 110 || d > 150 {
		t.Errorf("expected ~130km, got %v", d)
	}
}

func TestInBounds(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{42.7, 23.3, true},
		{0, 0, false},
		{91, 0, false},
		{0, 181, false},
		{-90, -180, true},
	}
	for _, c := range cases {
		if got := InBounds(c.lat, c.lon); got != c.want {
			t.Errorf("InBounds(%v,%v) = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}

func TestInZone(t *testing.T) {
	centerLat, centerLon, radius := 42.70, 23.32, 1.8

	if !InZone(centerLat, centerLon, centerLat, centerLon, radius) {
		t.Error("zone center should be in zone")
	}

	if InZone(43.20, 23.55, centerLat, centerLon, radius) {
		t.Error("distant point should not be in zone")
	}
}

func TestInflatedDrivingEstimate(t *testing.T) {
	distM, durS := InflatedDrivingEstimate(42.70, 23.32, 42.71, 23.33, 1.3, 40)
	straightM := HaversineMeters(42.70, 23.32, 42.71, 23.33)

	if distM <= straightM {
		t.Errorf("expected inflated distance > straight line, got %v <= %v", distM, straightM)
	}
	if durS <= 0 {
		t.Errorf("expected positive duration, got %v", durS)
	}
}

func TestInflatedDrivingEstimate_DefaultSpeed(t *testing.T) {
	_, durS := InflatedDrivingEstimate(42.70, 23.32, 42.71, 23.33, 1.3, 0)
	if durS <= 0 {
		t.Errorf("expected positive duration with default speed fallback, got %v", durS)
	}
}
