package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Coordinate is the minimal lat/lon pair the fingerprint functions need;
// callers pass their own domain type through this shape to avoid an
// import cycle with internal/model.
type Coordinate struct {
	Lat float64
	Lon float64
}

// MatrixFingerprint вычисляет детерминированный ключ кэша для матрицы
// расстояний: точки сортируются не по их порядку в запросе (который не
// несёт смысла для кэша), а канонически, чтобы одинаковый набор точек
// в другом порядке давал тот же ключ.
func MatrixFingerprint(points []Coordinate, profile, version string) string {
	data := coordsToCanonical(points, profile, version)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func coordsToCanonical(points []Coordinate, profile, version string) []byte {
	sorted := make([]Coordinate, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Lat != sorted[j].Lat {
			return sorted[i].Lat < sorted[j].Lat
		}
		return sorted[i].Lon < sorted[j].Lon
	})

	var result []byte
	result = append(result, []byte(fmt.Sprintf("p:%s;v:%s;", profile, version))...)
	for _, pt := range sorted {
		result = append(result, []byte(fmt.Sprintf("c:%.6f:%.6f;", pt.Lat, pt.Lon))...)
	}
	return result
}

// CustomerDemand is the minimal shape RequestFingerprint needs from a
// customer: its stable identity and the volume it contributes to the
// fingerprint. Kept separate from internal/model.Customer for the same
// reason as Coordinate above.
type CustomerDemand struct {
	ID     string
	Volume float64
}

// RequestFingerprint вычисляет ключ кэша решения (SolveRequest) на основе
// отсортированных ID/объёмов клиентов и хеша конфигурации флота, чтобы
// перестановка клиентов во входном списке не меняла результат.
func RequestFingerprint(customers []CustomerDemand, fleetConfigHash string) string {
	sorted := make([]CustomerDemand, len(customers))
	copy(sorted, customers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	var result []byte
	result = append(result, []byte(fmt.Sprintf("f:%s;", fleetConfigHash))...)
	for _, c := range sorted {
		result = append(result, []byte(fmt.Sprintf("u:%s:%.3f;", c.ID, c.Volume))...)
	}

	hash := sha256.Sum256(result)
	return hex.EncodeToString(hash[:16])
}

// BuildMatrixKey строит ключ кэша матрицы расстояний
func BuildMatrixKey(fingerprint string) string {
	return fmt.Sprintf("matrix:%s", fingerprint)
}

// BuildSolutionKey строит ключ кэша решения
func BuildSolutionKey(fingerprint string) string {
	return fmt.Sprintf("solution:%s", fingerprint)
}

// QuickHash быстрый хеш для произвольных данных
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
