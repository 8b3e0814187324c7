// Package service implements the RoutingService gRPC contract: it wires
// the allocator, distance-matrix service, CVRP racer, TSP reoptimizer,
// solution cache, and solve-history repository into the single
// synchronous Solve pipeline, following the teacher's SolverService
// shape (request tracking, graceful shutdown, telemetry, metrics).
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"logistics/pkg/apperror"
	"logistics/pkg/cache"
	"logistics/pkg/config"
	"logistics/pkg/metrics"
	"logistics/pkg/telemetry"
	"logistics/services/routing-svc/internal/allocator"
	"logistics/services/routing-svc/internal/cvrp"
	"logistics/services/routing-svc/internal/matrix"
	"logistics/services/routing-svc/internal/model"
	"logistics/services/routing-svc/internal/racer"
	"logistics/services/routing-svc/internal/repo"
	"logistics/services/routing-svc/internal/rpc"
	"logistics/services/routing-svc/internal/tsp"
)

// defaultSkipPenalty matches spec §4.3's disjunction default.
const defaultSkipPenalty = 45000.0

// defaultPerCustomerMaxVolume matches spec §4.2's policy default.
const defaultPerCustomerMaxVolume = 120.0

// defaultSolutionCacheTTL is used when SolutionCache.TTL is unset.
const defaultSolutionCacheTTL = 30 * time.Minute

// serviceStats mirrors the teacher's atomic request counters.
type serviceStats struct {
	requestsTotal   atomic.Int64
	requestsActive  atomic.Int64
	requestsSuccess atomic.Int64
	requestsFailed  atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64
}

// Stats is a point-in-time snapshot of serviceStats.
type Stats struct {
	RequestsTotal   int64
	RequestsActive  int64
	RequestsSuccess int64
	RequestsFailed  int64
	CacheHits       int64
	CacheMisses     int64
}

// RoutingService implements rpc.RoutingServiceServer.
type RoutingService struct {
	cfg           *config.RoutingConfig
	metrics       *metrics.Metrics
	matrixSvc     *matrix.Service
	solutionCache cache.Cache
	history       repo.SolveRecordRepository

	stats serviceStats

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New builds a RoutingService. solutionCache and history may both be
// nil — caching and history persistence then silently no-op, matching
// §4.7/§4.8's best-effort posture.
func New(cfg *config.RoutingConfig, m *metrics.Metrics, matrixSvc *matrix.Service, solutionCache cache.Cache, history repo.SolveRecordRepository) *RoutingService {
	return &RoutingService{
		cfg:           cfg,
		metrics:       m,
		matrixSvc:     matrixSvc,
		solutionCache: solutionCache,
		history:       history,
		shutdownCh:    make(chan struct{}),
	}
}

// Stats returns a snapshot of request counters.
func (s *RoutingService) Stats() Stats {
	return Stats{
		RequestsTotal:   s.stats.requestsTotal.Load(),
		RequestsActive:  s.stats.requestsActive.Load(),
		RequestsSuccess: s.stats.requestsSuccess.Load(),
		RequestsFailed:  s.stats.requestsFailed.Load(),
		CacheHits:       s.stats.cacheHits.Load(),
		CacheMisses:     s.stats.cacheMisses.Load(),
	}
}

// Shutdown signals in-flight requests to finish and blocks until they
// do, or the context is cancelled.
func (s *RoutingService) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RoutingService) trackRequest() error {
	select {
	case <-s.shutdownCh:
		return status.Error(codes.Unavailable, "routing service is shutting down")
	default:
	}

	s.wg.Add(1)
	s.stats.requestsTotal.Add(1)
	s.stats.requestsActive.Add(1)
	return nil
}

func (s *RoutingService) untrackRequest() {
	s.stats.requestsActive.Add(-1)
	s.wg.Done()
}

// Solve runs the full allocator -> matrix -> racer -> TSP pipeline, or
// returns a cached Solution when the request fingerprint already has
// one.
func (s *RoutingService) Solve(ctx context.Context, req *rpc.SolveRequest) (*rpc.SolveResponse, error) {
	if err := s.trackRequest(); err != nil {
		return nil, err
	}
	defer s.untrackRequest()

	ctx, span := telemetry.StartSpan(ctx, "RoutingService.Solve",
		telemetry.WithAttributes(telemetry.RequestAttributes(len(req.Customers), len(req.Fleet), "")...),
	)
	defer span.End()

	customers, fleet, depot := fromWire(req)

	fleetHash := model.FleetHash(fleet)
	fingerprint := model.ComputeFingerprint(customers, fleetHash)

	if cached, ok := s.checkSolutionCache(ctx, fingerprint); ok {
		s.stats.cacheHits.Add(1)
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return toWireResponse("", cached), nil
	}
	s.stats.cacheMisses.Add(1)
	span.SetAttributes(attribute.Bool("cache_hit", false))

	if err := validateSolveRequest(customers, fleet); err != nil {
		s.stats.requestsFailed.Add(1)
		telemetry.SetError(ctx, err)
		return nil, err
	}

	start := time.Now()
	solution, err := s.execute(ctx, customers, fleet, depot)
	if err != nil {
		s.stats.requestsFailed.Add(1)
		telemetry.SetError(ctx, err)
		return nil, err
	}
	solution.SolveTime = time.Since(start)

	s.stats.requestsSuccess.Add(1)
	if s.metrics != nil {
		s.metrics.RecordFleetUsage("", solution.VehiclesUsed, "", len(solution.Overflow))
	}

	s.putSolutionCache(ctx, fingerprint, solution)

	recordID := s.saveHistory(ctx, fingerprint, solution)

	return toWireResponse(recordID, solution), nil
}

// execute runs allocator -> matrix -> racer -> TSP for one request,
// assuming the request has already passed validation.
func (s *RoutingService) execute(ctx context.Context, customers []model.Customer, fleet []model.VehicleConfig, depot model.DepotCoordinates) (*model.Solution, error) {
	perCustomerMax := defaultPerCustomerMaxVolume
	zone := model.CenterZone{DiscountForCenter: 0.10, PenaltyForOthers: 40000, RadiusKM: 1.8}
	symmetricZonePenalty := false
	allowSkipping := false
	skipPenalty := defaultSkipPenalty
	enableTSP := true

	if s.cfg != nil {
		if s.cfg.PerCustomerMaxVolume > 0 {
			perCustomerMax = s.cfg.PerCustomerMaxVolume
		}
		zone = model.CenterZone{
			CenterLat:         s.cfg.CenterZone.CenterLat,
			CenterLon:         s.cfg.CenterZone.CenterLon,
			RadiusKM:          orDefault(s.cfg.CenterZone.RadiusKM, 1.8),
			DiscountForCenter: orDefault(s.cfg.CenterZone.DiscountForCenter, 0.10),
			PenaltyForOthers:  orDefault(s.cfg.CenterZone.PenaltyForOthers, 40000),
		}
		symmetricZonePenalty = s.cfg.SymmetricZonePenalty
		allowSkipping = s.cfg.Solver.AllowCustomerSkipping
		if s.cfg.Solver.SkipPenalty > 0 {
			skipPenalty = s.cfg.Solver.SkipPenalty
		}
		enableTSP = s.cfg.Solver.EnableTSPReoptimization
	}

	allocation := allocator.Allocate(customers, fleet, depot, perCustomerMax)

	if len(allocation.Served) == 0 {
		return &model.Solution{Overflow: allocation.Overflow}, nil
	}

	points, depotIndex, served := buildMatrixPoints(depot, fleet, allocation.Served)

	mat, err := s.getMatrix(ctx, points)
	if err != nil {
		return nil, err
	}

	params := cvrp.Params{
		Matrix:               mat,
		Customers:            served,
		Fleet:                fleet,
		DepotIndex:           depotIndex,
		Zone:                 zone,
		SymmetricZonePenalty: symmetricZonePenalty,
		AllowSkipping:        allowSkipping,
		SkipPenalty:          skipPenalty,
	}

	solution, err := racer.Race(ctx, params, s.metrics)
	if err != nil {
		return nil, err
	}

	solution.Overflow = append(solution.Overflow, allocation.Overflow...)

	if enableTSP {
		s.reoptimizeRoutes(solution, fleet, mat, served)
	}

	return solution, nil
}

// getMatrix fetches the distance matrix, mapping a nil matrixSvc
// (misconfiguration) to MatrixUnavailable instead of panicking.
func (s *RoutingService) getMatrix(ctx context.Context, points []model.LatLon) (*model.DistanceMatrix, error) {
	if s.matrixSvc == nil {
		return nil, apperror.New(apperror.CodeMatrixUnavailable, "distance matrix service is not configured")
	}
	return s.matrixSvc.Get(ctx, points)
}

// reoptimizeRoutes runs the single-vehicle TSP pass over every route
// whose class declares a TSP depot distinct from its start location.
func (s *RoutingService) reoptimizeRoutes(solution *model.Solution, fleet []model.VehicleConfig, mat *model.DistanceMatrix, served []model.Customer) {
	cfgByClass := make(map[model.VehicleClass]model.VehicleConfig, len(fleet))
	for _, v := range fleet {
		cfgByClass[v.Class] = v
	}

	nodeByID := make(map[string]int, len(served))
	for i, c := range served {
		nodeByID[c.ID] = i + numDistinctDepots(fleet)
	}
	matrixIndex := func(id string) int { return nodeByID[id] }

	for i := range solution.Routes {
		route := &solution.Routes[i]
		cfg, ok := cfgByClass[route.VehicleClass]
		if !ok || !cfg.UsesDistinctTSPDepot() {
			continue
		}
		depotLat, depotLon := cfg.TSPDepot()
		depotIdx := findLocationIndex(mat, depotLat, depotLon)
		tsp.Reoptimize(route, depotLat, depotLon, depotIdx, matrixIndex, mat, cfg.ServiceTimeMinutes)
	}

	recomputeTotals(solution)
}

func recomputeTotals(solution *model.Solution) {
	var totalDistance, totalDuration float64
	for _, r := range solution.Routes {
		totalDistance += r.DistanceKM * 1000
		totalDuration += r.DurationMin * 60
	}
	solution.TotalDistance = totalDistance
	solution.TotalDuration = totalDuration
	solution.VehiclesUsed = len(solution.Routes)
}

func findLocationIndex(mat *model.DistanceMatrix, lat, lon float64) int {
	for i, loc := range mat.Locations {
		if loc.Lat == lat && loc.Lon == lon {
			return i
		}
	}
	return 0
}

// GetSolveRecord looks up one archived solve by id.
func (s *RoutingService) GetSolveRecord(ctx context.Context, req *rpc.GetSolveRecordRequest) (*rpc.SolveRecordOutput, error) {
	if s.history == nil {
		return nil, apperror.New(apperror.CodeNotFound, "solve history is not enabled")
	}

	rec, err := s.history.Get(ctx, req.ID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeNotFound, "solve record not found")
	}

	return &rpc.SolveRecordOutput{
		ID:              rec.ID,
		Fingerprint:     rec.Fingerprint,
		RequestedAt:     rec.RequestedAt,
		SolvedAt:        rec.SolvedAt,
		WinningStrategy: rec.WinningStrategy,
		TotalDistanceM:  rec.TotalDistanceM,
		TotalDurationS:  rec.TotalDurationS,
		VehiclesUsed:    rec.VehiclesUsed,
		UnservedCount:   rec.UnservedCount,
	}, nil
}

// ListSolveRecords paginates the solve history.
func (s *RoutingService) ListSolveRecords(ctx context.Context, req *rpc.ListSolveRecordsRequest) (*rpc.ListSolveRecordsResponse, error) {
	if s.history == nil {
		return &rpc.ListSolveRecordsResponse{}, nil
	}

	recs, err := s.history.List(ctx, model.ListFilter{Limit: req.Limit, Offset: req.Offset})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to list solve records")
	}

	out := make([]rpc.SolveRecordOutput, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rpc.SolveRecordOutput{
			ID:              rec.ID,
			Fingerprint:     rec.Fingerprint,
			RequestedAt:     rec.RequestedAt,
			SolvedAt:        rec.SolvedAt,
			WinningStrategy: rec.WinningStrategy,
			TotalDistanceM:  rec.TotalDistanceM,
			TotalDurationS:  rec.TotalDurationS,
			VehiclesUsed:    rec.VehiclesUsed,
			UnservedCount:   rec.UnservedCount,
		})
	}

	return &rpc.ListSolveRecordsResponse{Records: out}, nil
}

func (s *RoutingService) checkSolutionCache(ctx context.Context, fingerprint string) (*model.Solution, bool) {
	if s.solutionCache == nil {
		return nil, false
	}
	key := cache.BuildSolutionKey(fingerprint)
	raw, err := s.solutionCache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var sol model.Solution
	if jsonErr := unmarshalSolution(raw, &sol); jsonErr != nil {
		return nil, false
	}
	sol.Cached = true
	return &sol, true
}

func (s *RoutingService) putSolutionCache(ctx context.Context, fingerprint string, sol *model.Solution) {
	if s.solutionCache == nil {
		return
	}
	raw, err := marshalSolution(sol)
	if err != nil {
		return
	}
	ttl := defaultSolutionCacheTTL
	if s.cfg != nil && s.cfg.SolutionCache.TTL > 0 {
		ttl = s.cfg.SolutionCache.TTL
	}
	key := cache.BuildSolutionKey(fingerprint)
	_ = s.solutionCache.Set(ctx, key, raw, ttl)
}

// saveHistory persists a completed solve best-effort: a write failure
// is never surfaced to the caller, per §4.7.
func (s *RoutingService) saveHistory(ctx context.Context, fingerprint string, sol *model.Solution) string {
	if s.history == nil || s.cfg == nil || !s.cfg.History.Enabled {
		return ""
	}

	now := time.Now()
	rec := model.SolveRecord{
		Fingerprint:     fingerprint,
		RequestedAt:     now,
		SolvedAt:        now,
		WinningStrategy: sol.Strategy,
		TotalDistanceM:  sol.TotalDistance,
		TotalDurationS:  sol.TotalDuration,
		VehiclesUsed:    sol.VehiclesUsed,
		UnservedCount:   len(sol.Overflow),
		Solution:        *sol,
	}

	if err := s.history.Save(ctx, &rec); err != nil {
		telemetry.SetError(ctx, fmt.Errorf("failed to persist solve history: %w", err))
		return ""
	}
	return rec.ID
}

func validateSolveRequest(customers []model.Customer, fleet []model.VehicleConfig) error {
	if len(fleet) == 0 {
		return apperror.New(apperror.CodeEmptyFleet, "fleet must contain at least one vehicle class")
	}

	enabledVehicles := 0
	for _, v := range fleet {
		if !v.Enabled {
			continue
		}
		enabledVehicles++
		if v.Capacity <= 0 {
			return apperror.NewWithField(apperror.CodeInvalidInput, "enabled vehicle class must have capacity > 0", "fleet.capacity")
		}
		if v.Count < 1 {
			return apperror.NewWithField(apperror.CodeInvalidInput, "enabled vehicle class must have count >= 1", "fleet.count")
		}
	}
	if enabledVehicles == 0 {
		return apperror.New(apperror.CodeEmptyFleet, "fleet has no enabled vehicle classes")
	}

	seen := make(map[string]bool, len(customers))
	for _, c := range customers {
		if c.ID == "" {
			return apperror.New(apperror.CodeInvalidInput, "customer id must not be empty")
		}
		if seen[c.ID] {
			return apperror.NewWithField(apperror.CodeDuplicateCustomer, "duplicate customer id: "+c.ID, "customers.id")
		}
		seen[c.ID] = true
		if c.Volume < 0 {
			return apperror.NewWithField(apperror.CodeNegativeCapacity, "customer volume must not be negative: "+c.ID, "customers.volume")
		}
	}

	return nil
}

// buildMatrixPoints assembles the depot-then-customers location list
// Solve's matrix fetch and cvrp.Params expect: distinct enabled-fleet
// start coordinates first (deduplicated), in stable class order,
// followed by served customers in allocator order.
func buildMatrixPoints(depot model.DepotCoordinates, fleet []model.VehicleConfig, served []model.Customer) ([]model.LatLon, map[model.VehicleClass]int, []model.Customer) {
	classes := make([]model.VehicleConfig, 0, len(fleet))
	for _, v := range fleet {
		if v.Enabled {
			classes = append(classes, v)
		}
	}
	// The class starting at the main depot coordinate sorts first, so
	// matrix node 0 is the "main depot" node §4.3 describes whenever
	// any enabled class actually starts there; ties (including the
	// no-class-at-the-main-depot case) fall back to class name order.
	// depotIndex below is still resolved per class for each vehicle's
	// start, but cvrp measures its farthest-first and nearest-neighbor
	// visiting orders from node 0, so this ordering also affects
	// construction.
	sort.Slice(classes, func(i, j int) bool {
		iMain := classes[i].StartLat == depot.MainLat && classes[i].StartLon == depot.MainLon
		jMain := classes[j].StartLat == depot.MainLat && classes[j].StartLon == depot.MainLon
		if iMain != jMain {
			return iMain
		}
		return classes[i].Class < classes[j].Class
	})

	points := make([]model.LatLon, 0, len(classes)+len(served))
	depotIndex := make(map[model.VehicleClass]int, len(classes))
	seen := make(map[[2]float64]int)

	for _, v := range classes {
		key := [2]float64{v.StartLat, v.StartLon}
		if idx, ok := seen[key]; ok {
			depotIndex[v.Class] = idx
			continue
		}
		idx := len(points)
		points = append(points, model.LatLon{Lat: v.StartLat, Lon: v.StartLon})
		seen[key] = idx
		depotIndex[v.Class] = idx
	}

	if len(points) == 0 {
		points = append(points, model.LatLon{Lat: depot.MainLat, Lon: depot.MainLon})
	}

	for _, c := range served {
		points = append(points, model.LatLon{Lat: c.Lat, Lon: c.Lon})
	}

	return points, depotIndex, served
}

func numDistinctDepots(fleet []model.VehicleConfig) int {
	seen := make(map[[2]float64]bool)
	for _, v := range fleet {
		if !v.Enabled {
			continue
		}
		seen[[2]float64{v.StartLat, v.StartLon}] = true
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

