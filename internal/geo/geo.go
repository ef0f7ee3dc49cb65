package geo

import (
	"math"
	"sync"
	"time"

	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// Locations is the minimal interface the directory and handlers need for
// live pro positions.
type Locations interface {
	Nearby(lat, lon float64, radiusMiles float64, limit int) []ProLocation
	Upsert(loc ProLocation)
}

// ProLocation is a pro's last reported position.
type ProLocation struct {
	ProID   string       `json:"pro_id"`
	Coord   models.Coord `json:"coord"`
	Updated time.Time    `json:"updated"`
}

type Index struct {
	mu   sync.RWMutex
	pros map[string]ProLocation
}

func NewIndex() *Index {
	return &Index{pros: make(map[string]ProLocation)}
}

func (g *Index) Upsert(loc ProLocation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	loc.Updated = time.Now()
	g.pros[loc.ProID] = loc
}

// naive scan; in prod use geo-hash or H3
func (g *Index) Nearby(lat, lon float64, radiusMiles float64, limit int) []ProLocation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		loc  ProLocation
		dist float64
	}
	arr := make([]pair, 0, len(g.pros))
	for _, p := range g.pros {
		dist := Miles(lat, lon, p.Coord.Lat, p.Coord.Lon)
		if dist > radiusMiles {
			continue
		}
		arr = append(arr, pair{p, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]ProLocation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].loc)
	}
	return out
}

// Miles is the great-circle distance between two points in statute miles.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusMiles = 3958.8
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

// MilesBetween is Miles over Coord values.
func MilesBetween(a, b models.Coord) float64 {
	return Miles(a.Lat, a.Lon, b.Lat, b.Lon)
}
