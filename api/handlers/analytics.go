package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/analytics"
	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/config"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// DegradedHeader is set when an aggregate is served empty because the store
// could not be read
const DegradedHeader = "X-Analytics-Degraded"

// Analytics serves the dashboard aggregates
type Analytics struct {
	Engine *analytics.Engine
	Now    func() time.Time
}

// criteria parses the filter params. Malformed values are dropped and the
// request carries on with the rest, so the pages always render.
func (an Analytics) criteria(r *http.Request) filters.Criteria {
	c, err := filters.Parse(r.URL.Query())
	if err != nil {
		zap.S().Warnw("ignoring invalid filter input", "url", r.URL.String(), "error", err)
	}
	return c
}

func (an Analytics) scoped(r *http.Request) filters.Criteria {
	c := an.criteria(r)
	if a, ok := api.ActorFrom(r.Context()); ok && a.Role == models.RoleResident {
		c.ReporterID = a.ID
	}
	return c
}

// DashboardHandler returns every aggregate for one year. The year defaults to
// the current one.
func (an Analytics) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	c := an.scoped(r)
	year := c.Year
	if year == 0 {
		now := time.Now
		if an.Now != nil {
			now = an.Now
		}
		year = now().UTC().Year()
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	d, err := an.Engine.Dashboard(ctx, c, year)
	if err != nil {
		w.Header().Set(DegradedHeader, "true")
	}
	api.WriteJSON(w, http.StatusOK, d)
}

// RollupHandler groups the matching reports by the dimension in "by"
func (an Analytics) RollupHandler(w http.ResponseWriter, r *http.Request) {
	by := r.URL.Query().Get("by")
	if by == "" {
		by = string(analytics.DimensionCategory)
	}
	d, ok := analytics.ParseDimension(by)
	if !ok {
		config.ErrorStatus("invalid rollup dimension", http.StatusBadRequest, w,
			&models.FilterInputError{Field: "by", Value: by})
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	rows, err := an.Engine.Rollup(ctx, an.scoped(r), d)
	if err != nil {
		w.Header().Set(DegradedHeader, "true")
	}
	api.WriteJSON(w, http.StatusOK, rows)
}

// HotspotsHandler clusters geocoded reports into map cells
func (an Analytics) HotspotsHandler(w http.ResponseWriter, r *http.Request) {
	level := analytics.DefaultHotspotLevel
	if v := r.URL.Query().Get("level"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < analytics.MinHotspotLevel || l > analytics.MaxHotspotLevel {
			config.ErrorStatus("invalid hotspot level", http.StatusBadRequest, w,
				fmt.Errorf("level must be between %d and %d", analytics.MinHotspotLevel, analytics.MaxHotspotLevel))
			return
		}
		level = l
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	res, err := an.Engine.Hotspots(ctx, an.scoped(r), level)
	if err != nil {
		w.Header().Set(DegradedHeader, "true")
	}
	api.WriteJSON(w, http.StatusOK, res)
}
