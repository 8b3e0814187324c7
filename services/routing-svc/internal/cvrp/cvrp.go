// Package cvrp builds and solves the capacitated vehicle routing model:
// four cumulative dimensions (capacity, distance, stops, time) with
// center-zone cost shaping on the objective, optional customer
// skipping, and a Params.Strategy-selected first-solution-plus-local-
// search heuristic pair in place of a constraint-programming engine.
package cvrp

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"logistics/pkg/apperror"
	"logistics/services/routing-svc/internal/geo"
	"logistics/services/routing-svc/internal/model"
)

// capacityScale converts fractional volume into integer stack units
// for the capacity dimension (volume × 100); the same fixed scale is
// applied wherever load is checked, accumulated, or reported.
const capacityScale = 100

// largeSentinel stands in for "uncapped" on a dimension ceiling.
const largeSentinel = 1 << 30

// Params is the input to Solve. Matrix must already contain every
// distinct depot location (leading indices) followed by served
// customers in the same order as Customers. DepotIndex maps each
// vehicle class to the index of its start location within Matrix.
type Params struct {
	Matrix               *model.DistanceMatrix
	Customers            []model.Customer
	Fleet                []model.VehicleConfig
	DepotIndex           map[model.VehicleClass]int
	Zone                 model.CenterZone
	SymmetricZonePenalty bool
	AllowSkipping        bool
	SkipPenalty          float64
	Strategy             string
}

// vehicle is one expanded instance of a VehicleConfig (count unrolled
// into count identical routing-model vehicles).
type vehicle struct {
	cfg        model.VehicleConfig
	ordinal    int
	depotIdx   int
	load       int
	distanceM  float64
	timeS      float64
	stops      []int // node indices, depot excluded
	lastNode   int
	currentSec float64
}

func (v *vehicle) capacityCeiling() int {
	if v.cfg.Capacity <= 0 {
		return 0
	}
	return v.cfg.Capacity * capacityScale
}

func (v *vehicle) distanceCeilingM() float64 {
	if !v.cfg.HasMaxDistance || v.cfg.MaxDistanceKM <= 0 {
		return largeSentinel
	}
	return v.cfg.MaxDistanceKM * 1000
}

func (v *vehicle) stopsCeiling() int {
	if !v.cfg.HasMaxCustomers || v.cfg.MaxCustomersPerRoute <= 0 {
		return largeSentinel
	}
	return v.cfg.MaxCustomersPerRoute
}

func (v *vehicle) timeCeilingS() float64 {
	hours := v.cfg.MaxTimeHours
	if hours <= 0 {
		hours = 1200.0 / 60.0
	}
	return hours * 3600
}

// Solve produces a Solution for the given params. p.Strategy selects
// which first-solution construction and which local-search
// neighborhood acceptance rule are used (see strategyParts); both
// stages are driven by the center-zone-shaped objective, and reported
// totals are re-derived from the unshaped matrix per §4.3.
func Solve(p Params) (*model.Solution, error) {
	n := len(p.Customers)
	if n == 0 {
		return &model.Solution{Strategy: p.Strategy}, nil
	}
	if p.Matrix == nil || p.Matrix.Size() == 0 {
		return nil, apperror.New(apperror.CodeMatrixUnavailable, "cvrp: no distance matrix supplied")
	}

	vehicles := expandFleet(p.Fleet, p.DepotIndex)
	if len(vehicles) == 0 {
		return nil, apperror.New(apperror.CodeModelInfeasible, "cvrp: no enabled vehicles in fleet")
	}

	if err := checkFeasibility(p.Customers, vehicles, p.AllowSkipping); err != nil {
		return nil, err
	}

	numDepots := len(p.Matrix.Locations) - n
	if numDepots < 1 {
		numDepots = 1
	}

	firstSolution, localSearch := strategyParts(p.Strategy)

	_, skipped := construct(p, vehicles, numDepots, firstSolution)

	if len(skipped) > 0 && !p.AllowSkipping {
		return nil, apperror.New(apperror.CodeNoSolution, "cvrp: no feasible first solution found for all customers")
	}

	improve(p, vehicles, localSearch)

	return extract(p, vehicles, skipped), nil
}

// strategyParts splits a "FIRST_SOLUTION+LOCAL_SEARCH" catalog name
// into its two heuristic names. An empty or unrecognized Strategy
// (including direct cvrp.Solve callers that never set it) falls back
// to the baseline global-best-insertion-plus-guided-local-search pair.
func strategyParts(strategy string) (firstSolution, localSearch string) {
	firstSolution, localSearch = "GLOBAL_BEST_INSERTION", "GUIDED_LOCAL_SEARCH"
	parts := strings.SplitN(strategy, "+", 2)
	if len(parts) > 0 && parts[0] != "" {
		firstSolution = parts[0]
	}
	if len(parts) == 2 && parts[1] != "" {
		localSearch = parts[1]
	}
	return firstSolution, localSearch
}

func expandFleet(fleet []model.VehicleConfig, depotIndex map[model.VehicleClass]int) []*vehicle {
	var out []*vehicle
	for _, cfg := range fleet {
		if !cfg.Enabled || cfg.Count < 1 || cfg.Capacity < 1 {
			continue
		}
		depot := depotIndex[cfg.Class]
		for i := 0; i < cfg.Count; i++ {
			out = append(out, &vehicle{cfg: cfg, ordinal: i, depotIdx: depot, lastNode: depot, currentSec: float64(cfg.StartTimeMinutes) * 60})
		}
	}
	return out
}

// checkFeasibility reports ModelInfeasible when the problem cannot
// possibly be solved regardless of search effort: total demand
// exceeds total fleet capacity, or a single customer's volume exceeds
// every vehicle's capacity, and skipping is disabled.
func checkFeasibility(customers []model.Customer, vehicles []*vehicle, allowSkipping bool) error {
	if allowSkipping {
		return nil
	}

	totalDemand := 0.0
	maxCap := 0
	totalCap := 0
	for _, v := range vehicles {
		totalCap += v.cfg.Capacity
		if v.cfg.Capacity > maxCap {
			maxCap = v.cfg.Capacity
		}
	}
	for _, c := range customers {
		totalDemand += c.Volume
		if c.Volume > float64(maxCap) {
			return apperror.New(apperror.CodeModelInfeasible,
				fmt.Sprintf("cvrp: customer %s volume %.2f exceeds every vehicle capacity", c.ID, c.Volume))
		}
	}
	if totalDemand > float64(totalCap) {
		return apperror.New(apperror.CodeModelInfeasible, "cvrp: total demand exceeds total fleet capacity")
	}
	return nil
}

// assignment records which vehicle serves which customer node, used
// only to report whether construction left customers unplaced.
type assignment struct {
	vehicle      *vehicle
	customerNode int
}

// construct dispatches to the first-solution heuristic named by the
// catalog's construction half, so each (first-solution, local-search)
// pair in racer.Catalog actually explores the problem differently
// instead of all converging on one code path.
func construct(p Params, vehicles []*vehicle, numDepots int, firstSolution string) ([]assignment, []int) {
	switch firstSolution {
	case "SAVINGS":
		return constructAppendOrder(p, vehicles, numDepots, farthestFirstOrder(p, numDepots))
	case "PATH_CHEAPEST_ARC":
		return constructPathCheapestArc(p, vehicles, numDepots)
	case "GLOBAL_CHEAPEST_ARC":
		return constructGlobalCheapestArc(p, vehicles, numDepots)
	case "PARALLEL_CHEAPEST_INSERTION":
		return constructBestPosition(p, vehicles, numDepots, identityOrder(len(p.Customers)))
	case "CHRISTOFIDES":
		// A full Christofides first solution needs a minimum-weight
		// perfect matching over odd-degree MST vertices; this solver
		// approximates its effect on tour quality with a greedy
		// nearest-neighbor visiting order fed through cheapest
		// insertion-by-position instead.
		return constructBestPosition(p, vehicles, numDepots, nearestNeighborOrder(p, numDepots))
	default: // GLOBAL_BEST_INSERTION
		return constructAppendOrder(p, vehicles, numDepots, identityOrder(len(p.Customers)))
	}
}

// constructAppendOrder considers customers in the given order and
// inserts each at the end of whichever vehicle's route yields the
// lowest shaped arc cost while respecting all four dimension
// ceilings. A customer with no feasible vehicle is skipped (if
// allowed) or left to feasibility checking before this call.
func constructAppendOrder(p Params, vehicles []*vehicle, numDepots int, order []int) ([]assignment, []int) {
	var assignments []assignment
	var skipped []int

	for _, ci := range order {
		node := numDepots + ci
		cust := p.Customers[ci]
		best := selectVehicle(p, vehicles, node, cust)
		if best == nil {
			skipped = append(skipped, ci)
			continue
		}
		appendStop(p, best, node, cust)
		assignments = append(assignments, assignment{vehicle: best, customerNode: node})
	}

	return assignments, skipped
}

// constructPathCheapestArc fills one vehicle at a time to exhaustion,
// repeatedly appending the nearest remaining feasible customer to
// that vehicle's current end, instead of picking across the whole
// fleet per customer.
func constructPathCheapestArc(p Params, vehicles []*vehicle, numDepots int) ([]assignment, []int) {
	remaining := identityOrder(len(p.Customers))
	var assignments []assignment

	for _, v := range vehicles {
		for len(remaining) > 0 {
			bestPos, bestCost := -1, math.Inf(1)
			for pos, ci := range remaining {
				node := numDepots + ci
				if !feasibleToAppend(p, v, node, p.Customers[ci]) {
					continue
				}
				if cost := shapedArcCost(p, v.cfg.Class, v.lastNode, node); cost < bestCost {
					bestCost, bestPos = cost, pos
				}
			}
			if bestPos < 0 {
				break
			}
			ci := remaining[bestPos]
			node := numDepots + ci
			appendStop(p, v, node, p.Customers[ci])
			assignments = append(assignments, assignment{vehicle: v, customerNode: node})
			remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
		}
	}

	return assignments, remaining
}

// constructGlobalCheapestArc repeatedly inserts the single cheapest
// feasible (vehicle, customer) pair across the whole remaining
// problem, rather than working through customers in a fixed order.
func constructGlobalCheapestArc(p Params, vehicles []*vehicle, numDepots int) ([]assignment, []int) {
	remaining := identityOrder(len(p.Customers))
	var assignments []assignment

	for len(remaining) > 0 {
		bestPos, bestCost := -1, math.Inf(1)
		var bestVehicle *vehicle
		for pos, ci := range remaining {
			node := numDepots + ci
			cust := p.Customers[ci]
			for _, v := range vehicles {
				if !feasibleToAppend(p, v, node, cust) {
					continue
				}
				if cost := shapedArcCost(p, v.cfg.Class, v.lastNode, node); cost < bestCost {
					bestCost, bestPos, bestVehicle = cost, pos, v
				}
			}
		}
		if bestVehicle == nil {
			break
		}
		ci := remaining[bestPos]
		node := numDepots + ci
		appendStop(p, bestVehicle, node, p.Customers[ci])
		assignments = append(assignments, assignment{vehicle: bestVehicle, customerNode: node})
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return assignments, remaining
}

// constructBestPosition processes customers in the given order and,
// for each, inserts at whichever (vehicle, position) pair adds the
// least shaped cost. Unlike constructAppendOrder a stop can land
// anywhere in a route, not only at its end.
func constructBestPosition(p Params, vehicles []*vehicle, numDepots int, order []int) ([]assignment, []int) {
	var assignments []assignment
	var skipped []int

	for _, ci := range order {
		node := numDepots + ci
		cust := p.Customers[ci]

		var bestVehicle *vehicle
		bestPos, bestDelta := -1, math.Inf(1)
		for _, v := range vehicles {
			pos, delta := bestInsertionPosition(p, v, node, cust)
			if pos >= 0 && delta < bestDelta {
				bestVehicle, bestPos, bestDelta = v, pos, delta
			}
		}
		if bestVehicle == nil {
			skipped = append(skipped, ci)
			continue
		}
		applyInsertion(p, bestVehicle, node, bestPos, cust)
		assignments = append(assignments, assignment{vehicle: bestVehicle, customerNode: node})
	}

	return assignments, skipped
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// farthestFirstOrder visits customers farthest from the first depot
// node first, the classic savings-construction bias toward committing
// distant demand to a route before backfilling nearby stops.
func farthestFirstOrder(p Params, numDepots int) []int {
	order := identityOrder(len(p.Customers))
	sort.SliceStable(order, func(i, j int) bool {
		di := p.Matrix.Distances[0][numDepots+order[i]]
		dj := p.Matrix.Distances[0][numDepots+order[j]]
		return di > dj
	})
	return order
}

// nearestNeighborOrder builds a greedy nearest-neighbor visiting order
// across all customers starting from the first depot node.
func nearestNeighborOrder(p Params, numDepots int) []int {
	remaining := identityOrder(len(p.Customers))
	order := make([]int, 0, len(remaining))
	current := 0

	for len(remaining) > 0 {
		bestPos, bestDist := 0, math.Inf(1)
		for pos, ci := range remaining {
			if d := p.Matrix.Distances[current][numDepots+ci]; d < bestDist {
				bestDist, bestPos = d, pos
			}
		}
		next := remaining[bestPos]
		order = append(order, next)
		current = numDepots + next
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return order
}

func selectVehicle(p Params, vehicles []*vehicle, node int, cust model.Customer) *vehicle {
	var best *vehicle
	bestCost := 0.0

	for _, v := range vehicles {
		if !feasibleToAppend(p, v, node, cust) {
			continue
		}
		cost := shapedArcCost(p, v.cfg.Class, v.lastNode, node)
		if best == nil || cost < bestCost {
			best = v
			bestCost = cost
		}
	}

	return best
}

func feasibleToAppend(p Params, v *vehicle, node int, cust model.Customer) bool {
	demand := int(cust.Volume * capacityScale)
	if v.load+demand > v.capacityCeiling() {
		return false
	}
	if len(v.stops)+1 > v.stopsCeiling() {
		return false
	}

	arcDist := p.Matrix.Distances[v.lastNode][node]
	returnDist := p.Matrix.Distances[node][v.depotIdx]
	if v.distanceM+arcDist+returnDist > v.distanceCeilingM() {
		return false
	}

	serviceS := v.cfg.ServiceTimeMinutes * 60
	arcTime := p.Matrix.Durations[v.lastNode][node] + serviceS
	returnTime := p.Matrix.Durations[node][v.depotIdx]
	if v.currentSec+arcTime+returnTime-float64(v.cfg.StartTimeMinutes)*60 > v.timeCeilingS() {
		return false
	}

	return true
}

func appendStop(p Params, v *vehicle, node int, cust model.Customer) {
	arcDist := p.Matrix.Distances[v.lastNode][node]
	serviceS := v.cfg.ServiceTimeMinutes * 60
	arcTime := p.Matrix.Durations[v.lastNode][node] + serviceS

	v.distanceM += arcDist
	v.currentSec += arcTime
	v.timeS += arcTime
	v.load += int(cust.Volume * capacityScale)
	v.stops = append(v.stops, node)
	v.lastNode = node
}

// insertAt returns a copy of stops with node inserted at pos.
func insertAt(stops []int, node, pos int) []int {
	out := make([]int, 0, len(stops)+1)
	out = append(out, stops[:pos]...)
	out = append(out, node)
	out = append(out, stops[pos:]...)
	return out
}

// feasibleInsert checks capacity, stop-count, distance, and time
// ceilings for inserting node into v's stop sequence at pos.
func feasibleInsert(p Params, v *vehicle, node, pos int, cust model.Customer) bool {
	demand := int(cust.Volume * capacityScale)
	if v.load+demand > v.capacityCeiling() {
		return false
	}
	if len(v.stops)+1 > v.stopsCeiling() {
		return false
	}
	return withinCeilings(p, v, insertAt(v.stops, node, pos))
}

// insertionDelta is the added shaped cost of inserting node at pos, or
// +Inf when the insertion violates a ceiling.
func insertionDelta(p Params, v *vehicle, node, pos int, cust model.Customer) float64 {
	if !feasibleInsert(p, v, node, pos, cust) {
		return math.Inf(1)
	}
	prev, next := v.depotIdx, v.depotIdx
	if pos > 0 {
		prev = v.stops[pos-1]
	}
	if pos < len(v.stops) {
		next = v.stops[pos]
	}
	before := shapedArcCost(p, v.cfg.Class, prev, next)
	after := shapedArcCost(p, v.cfg.Class, prev, node) + shapedArcCost(p, v.cfg.Class, node, next)
	return after - before
}

// bestInsertionPosition scans every position in v's route and returns
// the cheapest feasible one, or (-1, +Inf) when none is feasible.
func bestInsertionPosition(p Params, v *vehicle, node int, cust model.Customer) (int, float64) {
	bestPos, bestDelta := -1, math.Inf(1)
	for pos := 0; pos <= len(v.stops); pos++ {
		if d := insertionDelta(p, v, node, pos, cust); d < bestDelta {
			bestDelta, bestPos = d, pos
		}
	}
	return bestPos, bestDelta
}

func applyInsertion(p Params, v *vehicle, node, pos int, cust model.Customer) {
	v.stops = insertAt(v.stops, node, pos)
	v.load += int(cust.Volume * capacityScale)
	recomputeTotals(p, v)
}

// shapedArcCost applies the center-zone discount/penalty from §4.4 to
// the base distance: arrivals at an in-zone customer are discounted
// for the CENTER class and penalized for every other class. When
// SymmetricZonePenalty is set, departures from an in-zone customer
// are shaped identically; by default only arrivals are shaped.
func shapedArcCost(p Params, class model.VehicleClass, from, to int) float64 {
	base := p.Matrix.Distances[from][to]

	numDepots := len(p.Matrix.Locations) - len(p.Customers)
	if numDepots < 1 {
		numDepots = 1
	}

	arrivesInZone := to >= numDepots && inZoneNode(p, to, numDepots)
	leavesInZone := p.SymmetricZonePenalty && from >= numDepots && inZoneNode(p, from, numDepots)

	if !arrivesInZone && !leavesInZone {
		return base
	}

	if class == "CENTER" {
		discount := p.Zone.DiscountForCenter
		if discount <= 0 {
			discount = 0.10
		}
		return base * discount
	}

	penalty := p.Zone.PenaltyForOthers
	if penalty <= 0 {
		penalty = 40000
	}
	return base + penalty
}

func inZoneNode(p Params, node, numDepots int) bool {
	ci := node - numDepots
	if ci < 0 || ci >= len(p.Customers) {
		return false
	}
	radius := p.Zone.RadiusKM
	if radius <= 0 {
		radius = 1.8
	}
	loc := p.Matrix.Locations[node]
	return geo.InZone(loc.Lat, loc.Lon, p.Zone.CenterLat, p.Zone.CenterLon, radius)
}

// improve runs an intra-route local search on each vehicle's stop
// sequence, picking the 2-opt neighborhood's acceptance rule from
// localSearch: GUIDED_LOCAL_SEARCH only ever takes a strictly
// improving swap, while SIMULATED_ANNEALING also accepts worse swaps
// early on to escape the local optima the strict rule gets stuck in.
// Neither changes load, stop count, or the customer set, so only
// distance/time need rechecking.
func improve(p Params, vehicles []*vehicle, localSearch string) {
	for _, v := range vehicles {
		if len(v.stops) < 3 {
			continue
		}
		switch localSearch {
		case "SIMULATED_ANNEALING":
			simulatedAnnealing(p, v)
		default: // GUIDED_LOCAL_SEARCH
			twoOpt(p, v)
		}
	}
}

func twoOpt(p Params, v *vehicle) {
	improved := true
	for improved {
		improved = false
		for i := 0; i < len(v.stops)-1; i++ {
			for j := i + 1; j < len(v.stops); j++ {
				if tryReverse(p, v, i, j) {
					improved = true
				}
			}
		}
	}
}

func tryReverse(p Params, v *vehicle, i, j int) bool {
	before := routeShapedCost(p, v, v.stops)
	candidate := make([]int, len(v.stops))
	copy(candidate, v.stops)
	reverseSegment(candidate, i, j)
	after := routeShapedCost(p, v, candidate)

	if after >= before {
		return false
	}
	if !withinCeilings(p, v, candidate) {
		return false
	}

	v.stops = candidate
	recomputeTotals(p, v)
	return true
}

// simulatedAnnealing runs the same 2-opt segment-reversal neighborhood
// as twoOpt but accepts a worse candidate with probability
// exp(-delta/temperature), cooling geometrically each iteration, so a
// route that twoOpt's strict acceptance leaves stuck in a local
// optimum gets a chance to climb out of it. The RNG is seeded from the
// vehicle's own state so a given Params produces a repeatable result.
func simulatedAnnealing(p Params, v *vehicle) {
	rng := rand.New(rand.NewSource(int64(v.ordinal)*1000003 + int64(len(v.stops))))
	temperature := routeShapedCost(p, v, v.stops) * 0.05
	if temperature <= 0 {
		temperature = 1
	}
	const cooling = 0.9
	const iterations = 200

	best := make([]int, len(v.stops))
	copy(best, v.stops)
	bestCost := routeShapedCost(p, v, best)

	for iter := 0; iter < iterations && temperature > 1e-6; iter++ {
		i := rng.Intn(len(v.stops) - 1)
		j := i + 1 + rng.Intn(len(v.stops)-i-1)

		before := routeShapedCost(p, v, v.stops)
		candidate := make([]int, len(v.stops))
		copy(candidate, v.stops)
		reverseSegment(candidate, i, j)

		if !withinCeilings(p, v, candidate) {
			temperature *= cooling
			continue
		}

		after := routeShapedCost(p, v, candidate)
		delta := after - before
		if delta < 0 || rng.Float64() < math.Exp(-delta/temperature) {
			v.stops = candidate
			if after < bestCost {
				bestCost = after
				copy(best, candidate)
			}
		}
		temperature *= cooling
	}

	v.stops = best
	recomputeTotals(p, v)
}

func reverseSegment(stops []int, i, j int) {
	for i < j {
		stops[i], stops[j] = stops[j], stops[i]
		i++
		j--
	}
}

func routeShapedCost(p Params, v *vehicle, stops []int) float64 {
	cost := 0.0
	prev := v.depotIdx
	for _, node := range stops {
		cost += shapedArcCost(p, v.cfg.Class, prev, node)
		prev = node
	}
	cost += shapedArcCost(p, v.cfg.Class, prev, v.depotIdx)
	return cost
}

func withinCeilings(p Params, v *vehicle, stops []int) bool {
	distM := 0.0
	timeS := float64(v.cfg.StartTimeMinutes) * 60
	prev := v.depotIdx
	serviceS := v.cfg.ServiceTimeMinutes * 60

	for _, node := range stops {
		distM += p.Matrix.Distances[prev][node]
		timeS += p.Matrix.Durations[prev][node] + serviceS
		prev = node
	}
	distM += p.Matrix.Distances[prev][v.depotIdx]
	timeS += p.Matrix.Durations[prev][v.depotIdx]

	if distM > v.distanceCeilingM() {
		return false
	}
	if timeS-float64(v.cfg.StartTimeMinutes)*60 > v.timeCeilingS() {
		return false
	}
	return true
}

func recomputeTotals(p Params, v *vehicle) {
	distM := 0.0
	timeS := 0.0
	prev := v.depotIdx
	serviceS := v.cfg.ServiceTimeMinutes * 60

	for _, node := range v.stops {
		distM += p.Matrix.Distances[prev][node]
		timeS += p.Matrix.Durations[prev][node] + serviceS
		prev = node
	}

	v.distanceM = distM
	v.timeS = timeS
	v.lastNode = prev
}

// extract converts vehicle route state into a Solution, re-summing
// real (unshaped) matrices for reported totals and recording skipped
// customers as DroppedBySolver overflow.
func extract(p Params, vehicles []*vehicle, skipped []int) *model.Solution {
	sol := &model.Solution{Strategy: p.Strategy}

	for _, v := range vehicles {
		if len(v.stops) == 0 {
			continue
		}
		route := model.Route{
			VehicleClass:  v.cfg.Class,
			VehicleOrdnal: v.ordinal,
			LoadUnits:     float64(v.load) / capacityScale,
		}
		distM, durS := 0.0, 0.0
		prev := v.depotIdx
		serviceS := v.cfg.ServiceTimeMinutes * 60
		for _, node := range v.stops {
			distM += p.Matrix.Distances[prev][node]
			durS += p.Matrix.Durations[prev][node] + serviceS
			route.Customers = append(route.Customers, customerForNode(p, node))
			prev = node
		}
		distM += p.Matrix.Distances[prev][v.depotIdx]
		durS += p.Matrix.Durations[prev][v.depotIdx]

		route.DistanceKM = distM / 1000
		route.DurationMin = durS / 60

		sol.Routes = append(sol.Routes, route)
		sol.TotalDistance += distM
		sol.TotalDuration += durS
		sol.VehiclesUsed++
	}

	for _, ci := range skipped {
		sol.Overflow = append(sol.Overflow, model.Overflow{
			Customer: p.Customers[ci],
			Reason:   model.ReasonDroppedBySolver,
		})
	}

	sort.Slice(sol.Routes, func(i, j int) bool {
		if sol.Routes[i].VehicleClass != sol.Routes[j].VehicleClass {
			return sol.Routes[i].VehicleClass < sol.Routes[j].VehicleClass
		}
		return sol.Routes[i].VehicleOrdnal < sol.Routes[j].VehicleOrdnal
	})

	return sol
}

func customerForNode(p Params, node int) model.Customer {
	numDepots := len(p.Matrix.Locations) - len(p.Customers)
	if numDepots < 1 {
		numDepots = 1
	}
	return p.Customers[node-numDepots]
}
