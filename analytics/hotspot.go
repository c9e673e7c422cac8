package analytics

import (
	"sort"

	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// Hotspot cell levels. Level 13 cells are roughly a kilometre across.
const (
	DefaultHotspotLevel = 13
	MinHotspotLevel     = 1
	MaxHotspotLevel     = 20
)

// Hotspots clusters the geocoded reports into S2 cells at the given level.
// Reports without coordinates are skipped. Busiest cells come first.
func Hotspots(reports []models.Report, level int) []models.Hotspot {
	if level < MinHotspotLevel || level > MaxHotspotLevel {
		level = DefaultHotspotLevel
	}
	cells := map[s2.CellID]*models.Hotspot{}
	for _, r := range reports {
		if r.Coordinates == nil {
			continue
		}
		id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(r.Coordinates.Lat, r.Coordinates.Lng)).Parent(level)
		h, ok := cells[id]
		if !ok {
			ll := id.LatLng()
			h = &models.Hotspot{
				Token: id.ToToken(),
				Level: level,
				Lat:   ll.Lat.Degrees(),
				Lng:   ll.Lng.Degrees(),
			}
			cells[id] = h
		}
		h.Total++
		if !r.Status.Terminal() {
			h.Unresolved++
		}
	}

	out := make([]models.Hotspot, 0, len(cells))
	for _, h := range cells {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// HotspotFeatures renders hotspots as GeoJSON points at their cell centers
func HotspotFeatures(hotspots []models.Hotspot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, h := range hotspots {
		f := geojson.NewPointFeature([]float64{h.Lng, h.Lat})
		f.ID = h.Token
		f.SetProperty("level", h.Level)
		f.SetProperty("total", h.Total)
		f.SetProperty("unresolved", h.Unresolved)
		fc.AddFeature(f)
	}
	return fc
}
