// Package matrix builds distance/duration matrices for a set of
// locations, tiered across a local routing endpoint, a public fallback
// endpoint, and a haversine estimate, with a cache.Cache (file, memory
// or Redis) in front of all three.
package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"logistics/pkg/apperror"
	"logistics/pkg/cache"
	"logistics/pkg/config"
	"logistics/pkg/logger"
	"logistics/pkg/metrics"
	"logistics/pkg/telemetry"
	"logistics/services/routing-svc/internal/geo"
	"logistics/services/routing-svc/internal/model"
)

// tileSize is the maximum side of a single table request sent to the
// routing backend. Above this, the matrix is fetched tile-by-tile.
const tileSize = 80

// pairwiseThresholdDefault switches from table requests (single or
// tiled) to a bounded-concurrency pairwise fetch when the point count exceeds
// it and the config does not override it.
const pairwiseThresholdDefault = 500

// Tier identifies which fallback level produced a matrix.
type Tier string

const (
	TierLocal     Tier = "local_osrm"
	TierPublic    Tier = "public_osrm"
	TierHaversine Tier = "haversine"
	// TierMixed is reported when a tiled fetch served some sub-matrices
	// from one tier and others from a different one.
	TierMixed Tier = "mixed"
)

// Service fetches and caches distance matrices.
type Service struct {
	cfg        config.MatrixConfig
	httpClient *http.Client
	cache      cache.Cache
	metrics    *metrics.Metrics
}

// New creates a matrix service backed by the given cache instance.
// cache may be nil, in which case every request is fetched fresh.
func New(cfg config.MatrixConfig, c cache.Cache, m *metrics.Metrics) *Service {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      c,
		metrics:    m,
	}
}

type tableResponse struct {
	Code      string      `json:"code"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// Get returns the distance/duration matrix for the given locations
// (depot(s) first, customers after), trying the cache, then the local
// endpoint, then the public endpoint, then falling back to a haversine
// estimate. Errors are only returned when every tier including the
// haversine fallback fails, which should not happen in practice.
func (s *Service) Get(ctx context.Context, points []model.LatLon) (*model.DistanceMatrix, error) {
	ctx, span := telemetry.StartSpan(ctx, "matrix.Get")
	defer span.End()

	n := len(points)
	if n == 0 {
		return &model.DistanceMatrix{}, nil
	}

	fp := s.fingerprint(points)
	cacheKey := cache.BuildMatrixKey(fp)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
			var mat model.DistanceMatrix
			if jsonErr := json.Unmarshal(raw, &mat); jsonErr == nil {
				s.recordCacheLookup(true)
				telemetry.SetAttributes(ctx, telemetry.MatrixAttributes(string(TierLocal), true)...)
				return &mat, nil
			}
		}
		s.recordCacheLookup(false)
	}

	mat, tier, err := s.fetchTiered(ctx, points)
	if err != nil {
		return nil, err
	}
	mat.Locations = points

	telemetry.SetAttributes(ctx, telemetry.MatrixAttributes(string(tier), false)...)

	if s.cache != nil {
		if raw, jsonErr := json.Marshal(mat); jsonErr == nil {
			ttl := 24 * time.Hour
			_ = s.cache.Set(ctx, cacheKey, raw, ttl)
		}
	}

	return mat, nil
}

func (s *Service) fingerprint(points []model.LatLon) string {
	coords := make([]cache.Coordinate, len(points))
	for i, p := range points {
		coords[i] = cache.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	return cache.MatrixFingerprint(coords, s.cfg.Profile, s.cfg.Version)
}

// fetchTiered attempts the local endpoint, then the public fallback
// endpoint, then haversine. Above tileSize points the matrix is tiled
// and each sub-matrix demotes independently (fetchTiledAcrossTiers),
// so a primary endpoint that serves most tiles but fails on one keeps
// the rest of the matrix on its original tier instead of the whole
// call demoting. At or below tileSize, or above the pairwise
// threshold where per-pair requests replace table requests anyway,
// demotion still applies to the whole call.
func (s *Service) fetchTiered(ctx context.Context, points []model.LatLon) (*model.DistanceMatrix, Tier, error) {
	n := len(points)
	threshold := s.cfg.PairwiseThreshold
	if threshold <= 0 {
		threshold = pairwiseThresholdDefault
	}

	if n > tileSize && n <= threshold {
		return s.fetchTiledAcrossTiers(ctx, points)
	}

	if s.cfg.PrimaryEndpoint != "" {
		mat, err := s.fetchWholeMatrix(ctx, s.cfg.PrimaryEndpoint, points, threshold)
		if err == nil {
			s.recordMatrixRequest(TierLocal, "ok")
			return mat, TierLocal, nil
		}
		s.recordMatrixRequest(TierLocal, "error")
		logger.Warn("distance matrix local tier failed, demoting", "error", err, "points", len(points))
		s.recordTierDemotion(TierLocal, TierPublic)
	}

	if s.cfg.FallbackEndpoint != "" {
		mat, err := s.fetchWholeMatrix(ctx, s.cfg.FallbackEndpoint, points, threshold)
		if err == nil {
			s.recordMatrixRequest(TierPublic, "ok")
			return mat, TierPublic, nil
		}
		s.recordMatrixRequest(TierPublic, "error")
		logger.Warn("distance matrix public tier failed, demoting to haversine", "error", err, "points", len(points))
		s.recordTierDemotion(TierPublic, TierHaversine)
	}

	mat := s.haversineMatrix(points)
	s.recordMatrixRequest(TierHaversine, "ok")
	return mat, TierHaversine, nil
}

// fetchWholeMatrix fetches points from endpoint as a single table, or
// as bounded-concurrency pairwise requests above threshold, for point
// counts where tiling would not help (too small to tile, or too large
// for even a tiled table request to be worthwhile).
func (s *Service) fetchWholeMatrix(ctx context.Context, endpoint string, points []model.LatLon, threshold int) (*model.DistanceMatrix, error) {
	if len(points) > threshold {
		return s.fetchPairwise(ctx, endpoint, points)
	}
	return s.fetchSingleTable(ctx, endpoint, points, points)
}

// fetchTiledAcrossTiers splits points into tileSize-sized chunks and
// fetches each (source tile, destination tile) sub-matrix through
// fetchSubTile, which demotes tiers independently per sub-matrix.
// The returned Tier is the single tier used throughout, or TierMixed
// when sub-matrices landed on more than one.
func (s *Service) fetchTiledAcrossTiers(ctx context.Context, points []model.LatLon) (*model.DistanceMatrix, Tier, error) {
	n := len(points)
	distances := newSquare(n)
	durations := newSquare(n)
	tiles := tileIndices(n)
	used := make(map[Tier]bool)

	for _, srcIdx := range tiles {
		for _, dstIdx := range tiles {
			srcPoints := subset(points, srcIdx)
			dstPoints := subset(points, dstIdx)

			dist, dur, tier := s.fetchSubTile(ctx, srcPoints, dstPoints)
			used[tier] = true

			for si, gi := range srcIdx {
				for di, gj := range dstIdx {
					distances[gi][gj] = dist[si][di]
					durations[gi][gj] = dur[si][di]
				}
			}
		}
	}

	return &model.DistanceMatrix{Distances: distances, Durations: durations}, overallTier(used), nil
}

// fetchSubTile resolves one (source tile, destination tile) pair
// against the primary endpoint, then the public endpoint, then
// haversine, returning as soon as one succeeds. Haversine never
// errors, so this always returns a usable sub-matrix.
func (s *Service) fetchSubTile(ctx context.Context, srcPoints, dstPoints []model.LatLon) ([][]float64, [][]float64, Tier) {
	combined := append(append([]model.LatLon{}, srcPoints...), dstPoints...)
	sources := identitySequence(len(srcPoints))
	destinations := offsetSequence(len(dstPoints), len(srcPoints))

	if s.cfg.PrimaryEndpoint != "" {
		resp, err := s.tableRequest(ctx, s.cfg.PrimaryEndpoint, combined, sources, destinations)
		if err == nil {
			s.recordMatrixRequest(TierLocal, "ok")
			return resp.Distances, resp.Durations, TierLocal
		}
		s.recordMatrixRequest(TierLocal, "error")
		logger.Warn("distance matrix local tier failed for sub-tile, demoting", "error", err, "tile_size", len(srcPoints))
		s.recordTierDemotion(TierLocal, TierPublic)
	}

	if s.cfg.FallbackEndpoint != "" {
		resp, err := s.tableRequest(ctx, s.cfg.FallbackEndpoint, combined, sources, destinations)
		if err == nil {
			s.recordMatrixRequest(TierPublic, "ok")
			return resp.Distances, resp.Durations, TierPublic
		}
		s.recordMatrixRequest(TierPublic, "error")
		logger.Warn("distance matrix public tier failed for sub-tile, demoting to haversine", "error", err, "tile_size", len(srcPoints))
		s.recordTierDemotion(TierPublic, TierHaversine)
	}

	dist, dur := s.haversineSubMatrix(srcPoints, dstPoints)
	s.recordMatrixRequest(TierHaversine, "ok")
	return dist, dur, TierHaversine
}

func overallTier(used map[Tier]bool) Tier {
	if len(used) == 1 {
		for t := range used {
			return t
		}
	}
	return TierMixed
}

// tileIndices splits [0,n) into tileSize-sized chunks of global index.
func tileIndices(n int) [][]int {
	var tiles [][]int
	for i := 0; i < n; i += tileSize {
		end := i + tileSize
		if end > n {
			end = n
		}
		idx := make([]int, end-i)
		for j := i; j < end; j++ {
			idx[j-i] = j
		}
		tiles = append(tiles, idx)
	}
	return tiles
}

func identitySequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func offsetSequence(n, offset int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = offset + i
	}
	return out
}

// fetchPairwise fetches distances pairwise with bounded concurrency,
// used above the pairwise threshold where even tiled table requests
// would be too large or too slow against a public endpoint.
func (s *Service) fetchPairwise(ctx context.Context, endpoint string, points []model.LatLon) (*model.DistanceMatrix, error) {
	n := len(points)
	distances := newSquare(n)
	durations := newSquare(n)

	concurrency := s.cfg.PairwiseConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := 0; i < n; i++ {
		i := i
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			j := j
			g.Go(func() error {
				resp, err := s.tableRequest(gctx, endpoint, []model.LatLon{points[i], points[j]}, []int{0}, []int{1})
				if err != nil {
					return err
				}
				mu.Lock()
				distances[i][j] = resp.Distances[0][0]
				durations[i][j] = resp.Durations[0][0]
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &model.DistanceMatrix{Distances: distances, Durations: durations}, nil
}

func (s *Service) fetchSingleTable(ctx context.Context, endpoint string, points, _ []model.LatLon) (*model.DistanceMatrix, error) {
	resp, err := s.tableRequest(ctx, endpoint, points, nil, nil)
	if err != nil {
		return nil, err
	}
	return &model.DistanceMatrix{Distances: resp.Distances, Durations: resp.Durations}, nil
}

// tableRequest calls a single OSRM-compatible table endpoint. When
// sources/destinations are nil, the full NxN table for points is
// requested.
func (s *Service) tableRequest(ctx context.Context, endpoint string, points []model.LatLon, sources, destinations []int) (*tableResponse, error) {
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
	}

	url := fmt.Sprintf("%s/table/v1/%s/%s?annotations=distance,duration", endpoint, s.profile(), strings.Join(coords, ";"))
	if len(sources) > 0 {
		url += "&sources=" + joinInts(sources)
	}
	if len(destinations) > 0 {
		url += "&destinations=" + joinInts(destinations)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperror.New(apperror.CodeMatrixUnavailable, "failed to build matrix request: "+err.Error())
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperror.New(apperror.CodeMatrixUnavailable, "matrix endpoint unreachable: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, apperror.New(apperror.CodeMatrixUnavailable, fmt.Sprintf("matrix endpoint returned HTTP %d: %s", resp.StatusCode, string(body)))
	}

	var table tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, apperror.New(apperror.CodeMatrixUnavailable, "failed to decode matrix response: "+err.Error())
	}

	if table.Code != "Ok" {
		return nil, apperror.New(apperror.CodeMatrixUnavailable, "matrix endpoint error code: "+table.Code)
	}

	return &table, nil
}

func (s *Service) profile() string {
	if s.cfg.Profile != "" {
		return s.cfg.Profile
	}
	return "driving"
}

// haversineMatrix is the tier-3 fallback: a great-circle estimate
// inflated by a routing factor, computed entirely in-process.
func (s *Service) haversineMatrix(points []model.LatLon) *model.DistanceMatrix {
	distances, durations := s.haversineSubMatrix(points, points)
	return &model.DistanceMatrix{Distances: distances, Durations: durations}
}

// haversineSubMatrix computes a len(src) x len(dst) haversine estimate,
// used both for the whole-matrix tier-3 fallback and for demoting a
// single failing sub-tile inside fetchTiledAcrossTiers.
func (s *Service) haversineSubMatrix(src, dst []model.LatLon) ([][]float64, [][]float64) {
	distances := make([][]float64, len(src))
	durations := make([][]float64, len(src))

	inflation := s.cfg.HaversineInflation
	if inflation <= 0 {
		inflation = 1.3
	}
	speed := s.cfg.HaversineSpeedKMH

	for i := range src {
		distances[i] = make([]float64, len(dst))
		durations[i] = make([]float64, len(dst))
		for j := range dst {
			if src[i] == dst[j] {
				continue
			}
			d, dur := geo.InflatedDrivingEstimate(src[i].Lat, src[i].Lon, dst[j].Lat, dst[j].Lon, inflation, speed)
			distances[i][j] = d
			durations[i][j] = dur
		}
	}

	return distances, durations
}

func (s *Service) recordMatrixRequest(tier Tier, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordMatrixRequest(string(tier), outcome)
	}
}

func (s *Service) recordTierDemotion(from, to Tier) {
	if s.metrics != nil {
		s.metrics.RecordMatrixTierDemotion(string(from), string(to))
	}
}

func (s *Service) recordCacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup("matrix", hit)
	}
}

func newSquare(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func subset(points []model.LatLon, idx []int) []model.LatLon {
	out := make([]model.LatLon, len(idx))
	for i, v := range idx {
		out[i] = points[v]
	}
	return out
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ";")
}
