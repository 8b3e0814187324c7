// Package tsp reoptimizes the customer visit order of a single route
// from a vehicle-class-specific depot, using straight-line distances
// as a cheap proxy for the real road network. It is a pure permutation
// step: it never adds or removes customers.
package tsp

import (
	"logistics/services/routing-svc/internal/geo"
	"logistics/services/routing-svc/internal/model"
)

// Reoptimize rewrites route.Customers in place to the order that
// minimizes the Haversine perimeter starting and ending at
// (depotLat, depotLon), then recomputes the route's displayed
// distance/duration from the real distance matrix plus the vehicle's
// per-stop service time. It is a no-op for routes with fewer than two
// customers.
func Reoptimize(route *model.Route, depotLat, depotLon float64, depotIdx int, matrixIndex func(customerID string) int, matrix *model.DistanceMatrix, serviceTimeMinutes float64) {
	if len(route.Customers) < 2 {
		return
	}

	order := nearestNeighborOrder(route.Customers, depotLat, depotLon)
	order = twoOptHaversine(order, depotLat, depotLon)
	route.Customers = order

	recompute(route, depotIdx, matrixIndex, matrix, serviceTimeMinutes)
}

// nearestNeighborOrder builds the AUTOMATIC first-solution strategy's
// practical equivalent for a single-vehicle, unconstrained TSP:
// greedy nearest-neighbor from the depot.
func nearestNeighborOrder(customers []model.Customer, depotLat, depotLon float64) []model.Customer {
	remaining := append([]model.Customer{}, customers...)
	order := make([]model.Customer, 0, len(customers))

	curLat, curLon := depotLat, depotLon
	for len(remaining) > 0 {
		bestIdx := 0
		bestDist := geo.HaversineKM(curLat, curLon, remaining[0].Lat, remaining[0].Lon)
		for i := 1; i < len(remaining); i++ {
			d := geo.HaversineKM(curLat, curLon, remaining[i].Lat, remaining[i].Lon)
			if d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		order = append(order, remaining[bestIdx])
		curLat, curLon = remaining[bestIdx].Lat, remaining[bestIdx].Lon
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return order
}

// twoOptHaversine improves the nearest-neighbor tour with a short
// 2-opt pass over Haversine perimeter length, standing in for the
// short local-search time budget §4.6 allows.
func twoOptHaversine(order []model.Customer, depotLat, depotLon float64) []model.Customer {
	if len(order) < 3 {
		return order
	}

	improved := true
	for improved {
		improved = false
		for i := 0; i < len(order)-1; i++ {
			for j := i + 1; j < len(order); j++ {
				before := perimeter(order, depotLat, depotLon)
				candidate := append([]model.Customer{}, order...)
				reverse(candidate, i, j)
				after := perimeter(candidate, depotLat, depotLon)
				if after < before {
					order = candidate
					improved = true
				}
			}
		}
	}

	return order
}

func reverse(customers []model.Customer, i, j int) {
	for i < j {
		customers[i], customers[j] = customers[j], customers[i]
		i++
		j--
	}
}

func perimeter(order []model.Customer, depotLat, depotLon float64) float64 {
	total := 0.0
	curLat, curLon := depotLat, depotLon
	for _, c := range order {
		total += geo.HaversineKM(curLat, curLon, c.Lat, c.Lon)
		curLat, curLon = c.Lat, c.Lon
	}
	total += geo.HaversineKM(curLat, curLon, depotLat, depotLon)
	return total
}

// recompute re-derives the route's displayed distance and duration
// from the real distance matrix (not Haversine), using matrixIndex to
// translate each customer back to its node index.
func recompute(route *model.Route, depotIdx int, matrixIndex func(customerID string) int, matrix *model.DistanceMatrix, serviceTimeMinutes float64) {
	if matrix == nil || matrixIndex == nil {
		return
	}

	distM, durS := 0.0, 0.0
	prev := depotIdx
	serviceS := serviceTimeMinutes * 60

	for _, c := range route.Customers {
		node := matrixIndex(c.ID)
		distM += matrix.Distances[prev][node]
		durS += matrix.Durations[prev][node] + serviceS
		prev = node
	}
	distM += matrix.Distances[prev][depotIdx]
	durS += matrix.Durations[prev][depotIdx]

	route.DistanceKM = distM / 1000
	route.DurationMin = durS / 60
}
