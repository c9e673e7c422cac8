package analytics

import (
	"sort"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// Dimension selects the report attribute a rollup groups by
type Dimension string

// Rollup dimensions
const (
	DimensionCategory Dimension = "category"
	DimensionLocality Dimension = "locality"
	DimensionSeverity Dimension = "severity"
	DimensionStatus   Dimension = "status"
	DimensionKind     Dimension = "kind"
)

// ParseDimension returns false for an unknown dimension
func ParseDimension(s string) (Dimension, bool) {
	switch d := Dimension(s); d {
	case DimensionCategory, DimensionLocality, DimensionSeverity, DimensionStatus, DimensionKind:
		return d, true
	}
	return "", false
}

func (d Dimension) key(r models.Report) string {
	switch d {
	case DimensionCategory:
		return r.Category
	case DimensionLocality:
		return r.Locality
	case DimensionSeverity:
		return string(r.Severity)
	case DimensionStatus:
		return string(r.Status)
	case DimensionKind:
		return string(r.Kind)
	}
	return ""
}

type group struct {
	total    int
	resolved int
	days     dayStats
}

// GroupBy rolls the reports up by one dimension. Percentage is the share of
// the whole collection, rounded half-up per row. Resolution rate and average days are over the group. Rows are ordered by
// total descending, then key.
func GroupBy(reports []models.Report, d Dimension) []models.GroupStat {
	groups := map[string]*group{}
	for _, r := range reports {
		k := d.key(r)
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
		}
		g.total++
		if isResolved(r) {
			g.resolved++
		}
		if days, ok := resolutionDays(r); ok {
			g.days.add(days)
		}
	}

	out := make([]models.GroupStat, 0, len(groups))
	for k, g := range groups {
		out = append(out, models.GroupStat{
			Key:            k,
			Total:          g.total,
			Percentage:     percent(g.total, len(reports)),
			Resolved:       g.resolved,
			ResolutionRate: percent(g.resolved, g.total),
			AvgDays:        g.days.avg(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Key < out[j].Key
	})

	return out
}
