package service

import (
	"encoding/json"

	"logistics/services/routing-svc/internal/model"
	"logistics/services/routing-svc/internal/rpc"
)

// fromWire converts the wire-level SolveRequest into the internal
// model types the pipeline operates on.
func fromWire(req *rpc.SolveRequest) ([]model.Customer, []model.VehicleConfig, model.DepotCoordinates) {
	customers := make([]model.Customer, 0, len(req.Customers))
	for _, c := range req.Customers {
		customers = append(customers, model.Customer{
			ID:             c.ID,
			Name:           c.Name,
			Lat:            c.Lat,
			Lon:            c.Lon,
			HasCoordinates: c.HasCoordinate,
			Volume:         c.Volume,
			RawCoordinate:  c.RawCoordinate,
		})
	}

	fleet := make([]model.VehicleConfig, 0, len(req.Fleet))
	for _, v := range req.Fleet {
		fleet = append(fleet, model.VehicleConfig{
			Class:                model.VehicleClass(v.Class),
			Capacity:             v.Capacity,
			Count:                v.Count,
			MaxDistanceKM:        v.MaxDistanceKM,
			HasMaxDistance:       v.HasMaxDistance,
			MaxTimeHours:         v.MaxTimeHours,
			ServiceTimeMinutes:   v.ServiceTimeMinutes,
			Enabled:              v.Enabled,
			StartLat:             v.StartLat,
			StartLon:             v.StartLon,
			MaxCustomersPerRoute: v.MaxCustomersPerRoute,
			HasMaxCustomers:      v.HasMaxCustomers,
			StartTimeMinutes:     v.StartTimeMinutes,
			TSPDepotLat:          v.TSPDepotLat,
			TSPDepotLon:          v.TSPDepotLon,
			HasTSPDepot:          v.HasTSPDepot,
		})
	}

	depot := model.DepotCoordinates{MainLat: req.MainDepotLat, MainLon: req.MainDepotLon}

	return customers, fleet, depot
}

// toWireResponse converts a solved model.Solution into the wire-level
// SolveResponse, tagging it with the history record id when one was
// persisted.
func toWireResponse(recordID string, sol *model.Solution) *rpc.SolveResponse {
	routes := make([]rpc.RouteOutput, 0, len(sol.Routes))
	for _, r := range sol.Routes {
		ids := make([]string, 0, len(r.Customers))
		for _, c := range r.Customers {
			ids = append(ids, c.ID)
		}
		routes = append(routes, rpc.RouteOutput{
			VehicleClass:  string(r.VehicleClass),
			VehicleOrdnal: r.VehicleOrdnal,
			CustomerIDs:   ids,
			DistanceKM:    r.DistanceKM,
			DurationMin:   r.DurationMin,
			LoadUnits:     r.LoadUnits,
		})
	}

	overflow := make([]rpc.OverflowOutput, 0, len(sol.Overflow))
	for _, o := range sol.Overflow {
		overflow = append(overflow, rpc.OverflowOutput{
			CustomerID: o.Customer.ID,
			Reason:     string(o.Reason),
		})
	}

	return &rpc.SolveResponse{
		RecordID:      recordID,
		Routes:        routes,
		Overflow:      overflow,
		TotalDistance: sol.TotalDistance,
		TotalDuration: sol.TotalDuration,
		VehiclesUsed:  sol.VehiclesUsed,
		Strategy:      sol.Strategy,
		Cached:        sol.Cached,
		SolveTimeMs:   sol.SolveTime.Milliseconds(),
	}
}

func marshalSolution(sol *model.Solution) ([]byte, error) {
	return json.Marshal(sol)
}

func unmarshalSolution(raw []byte, sol *model.Solution) error {
	return json.Unmarshal(raw, sol)
}
