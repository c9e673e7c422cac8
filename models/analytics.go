package models

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/shopspring/decimal"
)

// Counters holds the overall report counts
type Counters struct {
	Total              int            `json:"total"`
	ByStatus           map[Status]int `json:"byStatus"`
	DistinctLocalities int            `json:"distinctLocalities"`
	DistinctCategories int            `json:"distinctCategories"`
}

// ResolutionStats holds whole-day resolution times. Invalid values mean no
// resolved report qualified and render as null.
type ResolutionStats struct {
	Resolved int                 `json:"resolved"`
	AvgDays  decimal.NullDecimal `json:"avgDays"`
	MinDays  decimal.NullDecimal `json:"minDays"`
	MaxDays  decimal.NullDecimal `json:"maxDays"`
}

// GroupStat is one row of a rollup by a single dimension
type GroupStat struct {
	Key            string              `json:"key"`
	Total          int                 `json:"total"`
	Resolved       int                 `json:"resolved"`
	Percentage     decimal.NullDecimal `json:"percentage"`
	ResolutionRate decimal.NullDecimal `json:"resolutionRate"`
	AvgDays        decimal.NullDecimal `json:"avgDays"`
}

// CategoryShare is a category's count and share of the whole collection
type CategoryShare struct {
	Category   string              `json:"category"`
	Count      int                 `json:"count"`
	Percentage decimal.NullDecimal `json:"percentage"`
}

// LocalityStat is a per-barangay rollup row
type LocalityStat struct {
	Locality       string              `json:"locality"`
	Total          int                 `json:"total"`
	Resolved       int                 `json:"resolved"`
	ResolutionRate decimal.NullDecimal `json:"resolutionRate"`
	AvgDays        decimal.NullDecimal `json:"avgDays"`
}

// MonthPoint is one month of the trend series
type MonthPoint struct {
	Year     int `json:"year"`
	Month    int `json:"month"`
	Filed    int `json:"filed"`
	Resolved int `json:"resolved"`
}

// SeverityBand holds the resolution analysis of one severity
type SeverityBand struct {
	Severity Severity            `json:"severity"`
	Resolved int                 `json:"resolved"`
	AvgDays  decimal.NullDecimal `json:"avgDays"`
	MinDays  decimal.NullDecimal `json:"minDays"`
	MaxDays  decimal.NullDecimal `json:"maxDays"`
}

// Dashboard bundles every aggregate the analytics pages render
type Dashboard struct {
	Year       int             `json:"year"`
	Counters   Counters        `json:"counters"`
	Resolution ResolutionStats `json:"resolution"`
	Categories []CategoryShare `json:"categories"`
	Localities []LocalityStat  `json:"localities"`
	Trend      []MonthPoint    `json:"trend"`
	Severities []SeverityBand  `json:"severities"`
}

// Hotspot is a cluster of geocoded reports within one S2 cell
type Hotspot struct {
	Token      string  `json:"token"`
	Level      int     `json:"level"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Total      int     `json:"total"`
	Unresolved int     `json:"unresolved"`
}

// HotspotResponse is returned by the hotspot endpoint
type HotspotResponse struct {
	Hotspots []Hotspot                 `json:"hotspots"`
	Features *geojson.FeatureCollection `json:"features"`
}
