package directory

import (
	"context"
	"fmt"

	"github.com/alanoney1-alt/UpTend-sub012/internal/geo"
	"github.com/alanoney1-alt/UpTend-sub012/internal/models"
)

// Availability buckets. Thresholds are coarse on purpose: the heatmap backs
// a UI hint, not a dispatch decision.
const (
	BucketHigh   = "high"
	BucketMedium = "medium"
	BucketLow    = "low"

	highThreshold   = 5
	mediumThreshold = 2

	heatmapRadiusMiles = 25
)

// RegionCell is the availability for one service type within a region.
type RegionCell struct {
	ServiceType models.ServiceType `json:"service_type"`
	Count       int                `json:"count"`
	Bucket      string             `json:"bucket"`
}

// Heatmap is the per-service-type availability around a region center.
type Heatmap struct {
	Region string       `json:"region"`
	Cells  []RegionCell `json:"cells"`
}

// HeatmapService buckets available pros by service type around configured
// region centers.
type HeatmapService struct {
	Directory Directory
	Regions   map[string]models.Coord
}

func (h *HeatmapService) Heatmap(ctx context.Context, region string) (Heatmap, error) {
	center, ok := h.Regions[region]
	if !ok {
		return Heatmap{}, fmt.Errorf("unknown region %q", region)
	}
	pros, err := h.Directory.AvailablePros(ctx)
	if err != nil {
		return Heatmap{}, err
	}
	counts := make(map[models.ServiceType]int)
	for _, p := range pros {
		if p.Location == nil {
			continue
		}
		if geo.MilesBetween(center, *p.Location) > heatmapRadiusMiles {
			continue
		}
		for _, st := range p.Specializations {
			counts[st]++
		}
	}
	hm := Heatmap{Region: region}
	for _, st := range []models.ServiceType{
		models.ServiceHomeCleaning,
		models.ServiceRemovals,
		models.ServiceWasteClearance,
		models.ServiceGardening,
		models.ServiceHandyman,
	} {
		hm.Cells = append(hm.Cells, RegionCell{ServiceType: st, Count: counts[st], Bucket: bucket(counts[st])})
	}
	return hm, nil
}

func bucket(count int) string {
	switch {
	case count >= highThreshold:
		return BucketHigh
	case count >= mediumThreshold:
		return BucketMedium
	default:
		return BucketLow
	}
}
