// Package analytics computes the dashboard aggregates over a report
// collection. Every function is pure and safe on an empty collection.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/linesmerrill/traffic-portal-api/models"
)

var hundred = decimal.NewFromInt(100)

// noData is the "undefined" marker for averages and ratios over nothing
var noData = decimal.NullDecimal{}

// DayDelta returns the whole calendar days between the UTC dates of from and
// to, ignoring the time of day.
func DayDelta(from, to time.Time) int {
	f, t := from.UTC(), to.UTC()
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd).Hours() / 24)
}

// percent returns part/whole*100 rounded half-up to two places, or no data
// when whole is zero
func percent(part, whole int) decimal.NullDecimal {
	if whole == 0 {
		return noData
	}
	v := decimal.NewFromInt(int64(part)).Mul(hundred).DivRound(decimal.NewFromInt(int64(whole)), 2)
	return decimal.NewNullDecimal(v)
}

// dayStats accumulates resolution days. Its zero value reports no data.
type dayStats struct {
	n        int
	sum      int
	min, max int
}

func (d *dayStats) add(days int) {
	if d.n == 0 || days < d.min {
		d.min = days
	}
	if d.n == 0 || days > d.max {
		d.max = days
	}
	d.n++
	d.sum += days
}

func (d dayStats) avg() decimal.NullDecimal {
	if d.n == 0 {
		return noData
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(int64(d.sum)).DivRound(decimal.NewFromInt(int64(d.n)), 2))
}

func (d dayStats) minDays() decimal.NullDecimal {
	if d.n == 0 {
		return noData
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(int64(d.min)))
}

func (d dayStats) maxDays() decimal.NullDecimal {
	if d.n == 0 {
		return noData
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(int64(d.max)))
}

// resolutionDays reports the day delta of r when it carries a resolution
// timestamp. Status alone never qualifies a report.
func resolutionDays(r models.Report) (int, bool) {
	if r.ResolvedAt == nil {
		return 0, false
	}
	return DayDelta(r.ReportedAt, *r.ResolvedAt), true
}

func isResolved(r models.Report) bool {
	return r.Status == models.StatusResolved
}

// Counters returns the total, the per-status counts with every status
// present, and the distinct locality and category counts.
func Counters(reports []models.Report) models.Counters {
	c := models.Counters{
		Total:    len(reports),
		ByStatus: make(map[models.Status]int, len(models.Statuses)),
	}
	for _, s := range models.Statuses {
		c.ByStatus[s] = 0
	}
	localities := map[string]struct{}{}
	categories := map[string]struct{}{}
	for _, r := range reports {
		c.ByStatus[r.Status]++
		if r.Locality != "" {
			localities[r.Locality] = struct{}{}
		}
		if r.Category != "" {
			categories[r.Category] = struct{}{}
		}
	}
	c.DistinctLocalities = len(localities)
	c.DistinctCategories = len(categories)
	return c
}

// Resolution returns avg/min/max resolution days over the reports that have
// a resolution timestamp
func Resolution(reports []models.Report) models.ResolutionStats {
	var d dayStats
	for _, r := range reports {
		if days, ok := resolutionDays(r); ok {
			d.add(days)
		}
	}
	return models.ResolutionStats{
		Resolved: d.n,
		AvgDays:  d.avg(),
		MinDays:  d.minDays(),
		MaxDays:  d.maxDays(),
	}
}

// CategoryDistribution returns each category's count and share of the whole
// collection, largest first
func CategoryDistribution(reports []models.Report) []models.CategoryShare {
	groups := GroupBy(reports, DimensionCategory)
	out := make([]models.CategoryShare, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.CategoryShare{Category: g.Key, Count: g.Total, Percentage: g.Percentage})
	}
	return out
}

// LocalityRollup returns per-locality totals sorted by resolution rate
// descending, then average days ascending with no data last, then name.
func LocalityRollup(reports []models.Report) []models.LocalityStat {
	groups := GroupBy(reports, DimensionLocality)
	out := make([]models.LocalityStat, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.LocalityStat{
			Locality:       g.Key,
			Total:          g.Total,
			Resolved:       g.Resolved,
			ResolutionRate: g.ResolutionRate,
			AvgDays:        g.AvgDays,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := compareNull(a.ResolutionRate, b.ResolutionRate); c != 0 {
			return c > 0
		}
		if a.AvgDays.Valid != b.AvgDays.Valid {
			return a.AvgDays.Valid
		}
		if a.AvgDays.Valid {
			if c := a.AvgDays.Decimal.Cmp(b.AvgDays.Decimal); c != 0 {
				return c < 0
			}
		}
		return a.Locality < b.Locality
	})
	return out
}

// compareNull orders no data below every value
func compareNull(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Decimal.Cmp(b.Decimal)
}

// MonthlyTrend returns exactly twelve points for year. Filed counts reports
// whose timestamp falls in the month; Resolved counts those of them that are
// resolved.
func MonthlyTrend(reports []models.Report, year int) []models.MonthPoint {
	points := make([]models.MonthPoint, 12)
	for i := range points {
		points[i] = models.MonthPoint{Year: year, Month: i + 1}
	}
	for _, r := range reports {
		at := r.ReportedAt.UTC()
		if at.Year() != year {
			continue
		}
		p := &points[at.Month()-1]
		p.Filed++
		if isResolved(r) {
			p.Resolved++
		}
	}
	return points
}

// SeverityResolution returns one band per severity, most urgent first, over
// the reports that have a resolution timestamp
func SeverityResolution(reports []models.Report) []models.SeverityBand {
	stats := make(map[models.Severity]*dayStats, len(models.SeveritiesByUrgency))
	for _, s := range models.SeveritiesByUrgency {
		stats[s] = &dayStats{}
	}
	for _, r := range reports {
		days, ok := resolutionDays(r)
		if !ok {
			continue
		}
		if d, known := stats[r.Severity]; known {
			d.add(days)
		}
	}
	bands := make([]models.SeverityBand, 0, len(models.SeveritiesByUrgency))
	for _, s := range models.SeveritiesByUrgency {
		d := stats[s]
		bands = append(bands, models.SeverityBand{
			Severity: s,
			Resolved: d.n,
			AvgDays:  d.avg(),
			MinDays:  d.minDays(),
			MaxDays:  d.maxDays(),
		})
	}
	return bands
}

// EmptyDashboard is the canonical result for an empty collection
func EmptyDashboard(year int) models.Dashboard {
	return Build(nil, year)
}

// Build computes every dashboard aggregate over one loaded collection
func Build(reports []models.Report, year int) models.Dashboard {
	return models.Dashboard{
		Year:       year,
		Counters:   Counters(reports),
		Resolution: Resolution(reports),
		Categories: CategoryDistribution(reports),
		Localities: LocalityRollup(reports),
		Trend:      MonthlyTrend(reports, year),
		Severities: SeverityResolution(reports),
	}
}
