package tsp

import (
	"testing"

	"logistics/services/routing-svc/internal/geo"
	"logistics/services/routing-svc/internal/model"
)

func TestReoptimize_PermutationOnly(t *testing.T) {
	route := &model.Route{
		Customers: []model.Customer{
			{ID: "a", Lat: 43.22, Lon: 23.58},
			{ID: "b", Lat: 43.21, Lon: 23.56},
			{ID: "c", Lat: 43.20, Lon: 23.57},
		},
	}
	before := map[string]bool{}
	for _, c := range route.Customers {
		before[c.ID] = true
	}

	Reoptimize(route, 43.20, 23.55, 0, nil, nil, 0)

	if len(route.Customers) != 3 {
		t.Fatalf("expected 3 customers after reoptimization, got %d", len(route.Customers))
	}
	for _, c := range route.Customers {
		if !before[c.ID] {
			t.Errorf("unexpected customer %s introduced by reoptimization", c.ID)
		}
		delete(before, c.ID)
	}
	if len(before) != 0 {
		t.Errorf("expected all original customers preserved, missing %v", before)
	}
}

func TestReoptimize_ReducesPerimeter(t *testing.T) {
	depotLat, depotLon := 43.20, 23.55
	route := &model.Route{
		Customers: []model.Customer{
			{ID: "far", Lat: 43.25, Lon: 23.60},
			{ID: "near", Lat: 43.205, Lon: 23.555},
			{ID: "mid", Lat: 43.22, Lon: 23.57},
		},
	}

	before := perimeterOf(route.Customers, depotLat, depotLon)
	Reoptimize(route, depotLat, depotLon, 0, nil, nil, 0)
	after := perimeterOf(route.Customers, depotLat, depotLon)

	if after > before {
		t.Errorf("expected reoptimized perimeter <= original, got %v > %v", after, before)
	}
}

func TestReoptimize_NoopUnderTwoCustomers(t *testing.T) {
	route := &model.Route{Customers: []model.Customer{{ID: "only", Lat: 43.20, Lon: 23.55}}}
	Reoptimize(route, 43.20, 23.55, 0, nil, nil, 0)
	if len(route.Customers) != 1 {
		t.Errorf("expected single-customer route untouched")
	}
}

func perimeterOf(customers []model.Customer, depotLat, depotLon float64) float64 {
	total := 0.0
	curLat, curLon := depotLat, depotLon
	for _, c := range customers {
		total += geo.HaversineKM(curLat, curLon, c.Lat, c.Lon)
		curLat, curLon = c.Lat, c.Lon
	}
	total += geo.HaversineKM(curLat, curLon, depotLat, depotLon)
	return total
}
