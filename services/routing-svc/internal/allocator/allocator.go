// Package allocator separates incoming customers into those the
// solver should attempt to serve and those that are rejected up front
// as structurally unservable by the configured fleet.
package allocator

import (
	"sort"

	"logistics/services/routing-svc/internal/geo"
	"logistics/services/routing-svc/internal/model"
)

// defaultPerCustomerMaxVolume is the ceiling applied when the caller's
// configuration leaves PerCustomerMaxVolume unset (zero).
const defaultPerCustomerMaxVolume = 120

// Result holds the partition produced by Allocate.
type Result struct {
	Served   []model.Customer
	Overflow []model.Overflow
}

// Allocate filters customers against the fleet's capacity and the
// per-customer policy ceiling, in the order: invalid coordinates,
// exceeds fleet capacity, exceeds per-customer policy, otherwise
// served. Served customers come back sorted ascending by volume, ties
// broken by descending distance to the main depot, which seeds the
// solver's first-solution heuristic with small/far customers first.
func Allocate(customers []model.Customer, fleet []model.VehicleConfig, depot model.DepotCoordinates, perCustomerMaxVolume float64) Result {
	if perCustomerMaxVolume <= 0 {
		perCustomerMaxVolume = defaultPerCustomerMaxVolume
	}

	maxFleetCapacity := 0
	for _, v := range fleet {
		if !v.Enabled {
			continue
		}
		if v.Capacity > maxFleetCapacity {
			maxFleetCapacity = v.Capacity
		}
	}

	var served []model.Customer
	var overflow []model.Overflow

	for _, c := range customers {
		switch {
		case !c.HasCoordinates || !geo.InBounds(c.Lat, c.Lon):
			overflow = append(overflow, model.Overflow{Customer: c, Reason: model.ReasonInvalidCoordinates})
		case c.Volume > float64(maxFleetCapacity):
			overflow = append(overflow, model.Overflow{Customer: c, Reason: model.ReasonExceedsFleetCapacity})
		case c.Volume > perCustomerMaxVolume:
			overflow = append(overflow, model.Overflow{Customer: c, Reason: model.ReasonExceedsPerCustomerPolicy})
		default:
			served = append(served, c)
		}
	}

	sort.SliceStable(served, func(i, j int) bool {
		if served[i].Volume != served[j].Volume {
			return served[i].Volume < served[j].Volume
		}
		di := geo.HaversineKM(served[i].Lat, served[i].Lon, depot.MainLat, depot.MainLon)
		dj := geo.HaversineKM(served[j].Lat, served[j].Lon, depot.MainLat, depot.MainLon)
		return di > dj
	})

	return Result{Served: served, Overflow: overflow}
}
