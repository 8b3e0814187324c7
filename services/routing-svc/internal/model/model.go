// Package model defines the data types shared across the routing engine:
// customers, fleet configuration, the distance matrix, and the solution
// structures produced by the solver.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Customer описывает одного клиента доставки.
//
// Координаты могут быть не заданы (Lat и Lon равны нулю при HasCoordinates
// == false) — такой клиент не попадает к решателю, а уходит в overflow
// ещё на этапе распределения склада.
type Customer struct {
	ID             string
	Name           string
	Lat            float64
	Lon            float64
	HasCoordinates bool
	Volume         float64
	RawCoordinate  string
}

// VehicleClass — метка класса транспортного средства из замкнутого
// набора, объявленного конфигурацией (например INTERNAL, CENTER,
// EXTERNAL, SPECIAL, REGIONAL).
type VehicleClass string

// VehicleConfig задаёт параметры одного класса транспортных средств.
type VehicleConfig struct {
	Class                VehicleClass
	Capacity             int
	Count                int
	MaxDistanceKM        float64
	HasMaxDistance       bool
	MaxTimeHours         float64
	ServiceTimeMinutes   float64
	Enabled              bool
	StartLat             float64
	StartLon             float64
	MaxCustomersPerRoute int
	HasMaxCustomers      bool
	StartTimeMinutes     int
	TSPDepotLat          float64
	TSPDepotLon          float64
	HasTSPDepot          bool
}

// TSPDepot возвращает координаты депо, используемого для пост-оптимизации
// TSP: явно заданное tsp_depot_location либо, при его отсутствии,
// стартовую точку машины.
func (v VehicleConfig) TSPDepot() (lat, lon float64) {
	if v.HasTSPDepot {
		return v.TSPDepotLat, v.TSPDepotLon
	}
	return v.StartLat, v.StartLon
}

// UsesDistinctTSPDepot сообщает, отличается ли депо реоптимизации TSP от
// стартовой точки маршрута — именно от этого зависит, нужно ли вообще
// запускать TSP-реоптимизацию для маршрутов данного класса.
func (v VehicleConfig) UsesDistinctTSPDepot() bool {
	if !v.HasTSPDepot {
		return false
	}
	return v.TSPDepotLat != v.StartLat || v.TSPDepotLon != v.StartLon
}

// DepotCoordinates задаёт координаты главного депо.
type DepotCoordinates struct {
	MainLat float64
	MainLon float64
}

// CenterZone — геозона в центре города плюс коэффициенты стоимости.
type CenterZone struct {
	CenterLat         float64
	CenterLon         float64
	RadiusKM          float64
	DiscountForCenter float64
	PenaltyForOthers  float64
}

// DistanceMatrix — упорядоченный список локаций (депо первыми, затем
// клиенты) плюс квадратные матрицы расстояний (метры) и длительностей
// (секунды). Диагональ нулевая, индексы стабильны на время одного
// решения.
type DistanceMatrix struct {
	Locations []LatLon
	Distances [][]float64
	Durations [][]float64
}

// LatLon — пара географических координат.
type LatLon struct {
	Lat float64
	Lon float64
}

// Size возвращает число локаций в матрице.
func (m *DistanceMatrix) Size() int {
	if m == nil {
		return 0
	}
	return len(m.Locations)
}

// Route — маршрут одного транспортного средства.
type Route struct {
	VehicleClass  VehicleClass
	VehicleOrdnal int
	Customers     []Customer
	DistanceKM    float64
	DurationMin   float64
	LoadUnits     float64
}

// OverflowReason — причина, по которой клиент не попал ни в один
// маршрут.
type OverflowReason string

const (
	ReasonInvalidCoordinates        OverflowReason = "InvalidCoordinates"
	ReasonExceedsFleetCapacity      OverflowReason = "ExceedsFleetCapacity"
	ReasonExceedsPerCustomerPolicy  OverflowReason = "ExceedsPerCustomerPolicy"
	ReasonDroppedBySolver           OverflowReason = "DroppedBySolver"
)

// Overflow — клиент, оставшийся необслуженным, вместе с причиной.
type Overflow struct {
	Customer Customer
	Reason   OverflowReason
}

// Solution — итоговый результат решения: набор маршрутов, overflow и
// агрегированная статистика.
type Solution struct {
	Routes        []Route
	Overflow      []Overflow
	TotalDistance float64
	TotalDuration float64
	VehiclesUsed  int
	SolveTime     time.Duration
	Strategy      string
	Cached        bool
}

// CustomerIDs returns served customer ids across all routes, preserving
// route and in-route order.
func (s *Solution) CustomerIDs() []string {
	ids := make([]string, 0)
	for _, r := range s.Routes {
		for _, c := range r.Customers {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// SolveRequest объединяет список клиентов, снимок конфигурации флота и
// отпечаток запроса, используемый как ключ кэша решений и естественный
// ключ записи истории.
type SolveRequest struct {
	Customers        []Customer
	Fleet            []VehicleConfig
	Depot            DepotCoordinates
	Zone             CenterZone
	Fingerprint      string
}

// ComputeFingerprint вычисляет sha256 по канонизированному списку id и
// объёмов клиентов плюс хэшу конфигурации флота — тем же приёмом,
// которым pkg/cache строит отпечаток матрицы.
func ComputeFingerprint(customers []Customer, fleetHash string) string {
	type entry struct {
		id     string
		volume float64
	}
	entries := make([]entry, 0, len(customers))
	for _, c := range customers {
		entries = append(entries, entry{id: c.ID, volume: c.Volume})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s:%.4f|", e.id, e.volume)
	}
	b.WriteString("fleet:")
	b.WriteString(fleetHash)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// FleetHash вычисляет стабильный хэш конфигурации флота, не зависящий
// от порядка классов в срезе.
func FleetHash(fleet []VehicleConfig) string {
	type entry struct {
		class                VehicleClass
		capacity, count      int
		maxDistance          float64
		maxTimeHours         float64
		serviceTimeMinutes   float64
		enabled              bool
		maxCustomersPerRoute int
	}
	entries := make([]entry, 0, len(fleet))
	for _, v := range fleet {
		entries = append(entries, entry{
			class: v.Class, capacity: v.Capacity, count: v.Count,
			maxDistance: v.MaxDistanceKM, maxTimeHours: v.MaxTimeHours,
			serviceTimeMinutes: v.ServiceTimeMinutes, enabled: v.Enabled,
			maxCustomersPerRoute: v.MaxCustomersPerRoute,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].class < entries[j].class })

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s:%d:%d:%.2f:%.2f:%.2f:%v:%d|",
			e.class, e.capacity, e.count, e.maxDistance, e.maxTimeHours,
			e.serviceTimeMinutes, e.enabled, e.maxCustomersPerRoute)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// SolveRecord — персистентная форма прошлого решения: Solution плюс
// отпечаток исходного SolveRequest, метки времени и выигравшая пара
// стратегий. Адресуется по ID для повтора/аудита.
type SolveRecord struct {
	ID              string
	Fingerprint     string
	RequestedAt     time.Time
	SolvedAt        time.Time
	WinningStrategy string
	TotalDistanceM  float64
	TotalDurationS  float64
	VehiclesUsed    int
	UnservedCount   int
	Solution        Solution
}

// ListFilter ограничивает выборку истории решений.
type ListFilter struct {
	Limit  int
	Offset int
}
