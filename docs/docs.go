// Package docs Traffic Portal API.
//
// Documentation of the municipal Traffic Portal API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://traffic-portal-api.herokuapp.com
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/traffic-portal-api/api/handlers"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/auth/token auth createToken
// Exchanges basic credentials for a bearer token.
// responses:
//   200: tokenResponse

// A signed bearer token and the role it carries
// swagger:response tokenResponse
type tokenResponseWrapper struct {
	// in:body
	Body models.TokenResponse
}

// swagger:route GET /api/v1/reports reports listReports
// Lists one page of reports matching the filter params. Residents only see their own reports.
// responses:
//   200: reportListResponse
//   400: errorResponse

// A page of reports, newest first
// swagger:response reportListResponse
type reportListResponseWrapper struct {
	// in:body
	Body handlers.ReportListResponse
}

// swagger:parameters listReports dashboard rollup hotspots
type reportFilterParams struct {
	// in:query
	Year int `json:"year"`
	// in:query
	Month int `json:"month"`
	// in:query
	Locality string `json:"locality"`
	// in:query
	Status string `json:"status"`
	// in:query
	Category string `json:"category"`
	// in:query
	Severity string `json:"severity"`
	// in:query
	Kind string `json:"kind"`
	// in:query
	Q string `json:"q"`
	// in:query
	From string `json:"from"`
	// in:query
	To string `json:"to"`
}

// swagger:route POST /api/v1/reports reports createReport
// Files a new Pending report.
// responses:
//   201: reportResponse
//   400: errorResponse

// swagger:parameters createReport
type createReportParams struct {
	// in:body
	Body models.NewReport
}

// A single report
// swagger:response reportResponse
type reportResponseWrapper struct {
	// in:body
	Body models.Report
}

// swagger:route GET /api/v1/reports/{report_id} reports reportByID
// Gets a single report with its follow-up entries.
// responses:
//   200: reportDetailResponse
//   403: errorResponse
//   404: errorResponse

// A report and its audit trail
// swagger:response reportDetailResponse
type reportDetailResponseWrapper struct {
	// in:body
	Body handlers.ReportDetailResponse
}

// swagger:route POST /api/v1/reports/{report_id}/verify lifecycle verifyReport
// Verifies a Pending report. Staff only.
// responses:
//   200: reportResponse
//   409: errorResponse

// swagger:route POST /api/v1/reports/{report_id}/assign lifecycle assignReport
// Assigns or reassigns a report. Staff only.
// responses:
//   200: reportResponse
//   409: errorResponse

// swagger:route POST /api/v1/reports/{report_id}/start lifecycle startReport
// Marks assigned work as in progress.
// responses:
//   200: reportResponse
//   409: errorResponse

// swagger:route POST /api/v1/reports/{report_id}/resolve lifecycle resolveReport
// Resolves a report with resolution notes.
// responses:
//   200: reportResponse
//   409: errorResponse

// swagger:route POST /api/v1/reports/{report_id}/reject lifecycle rejectReport
// Rejects a Pending or Verified report with a reason. Staff only.
// responses:
//   200: reportResponse
//   409: errorResponse

// swagger:parameters verifyReport assignReport startReport resolveReport rejectReport
type transitionParams struct {
	// in:path
	ReportID string `json:"report_id"`
	// in:body
	Body handlers.TransitionRequest
}

// swagger:route POST /api/v1/reports/{report_id}/follow-ups lifecycle addFollowUp
// Logs a follow-up action, optionally moving the report's status.
// responses:
//   201: followUpResponse

// A follow-up entry
// swagger:response followUpResponse
type followUpResponseWrapper struct {
	// in:body
	Body models.FollowUpEntry
}

// swagger:route GET /api/v1/analytics/dashboard analytics dashboard
// Computes every dashboard aggregate for one year.
// responses:
//   200: dashboardResponse

// Dashboard aggregates. The X-Analytics-Degraded header is set when the store could not be read.
// swagger:response dashboardResponse
type dashboardResponseWrapper struct {
	// in:body
	Body models.Dashboard
}

// swagger:route GET /api/v1/analytics/rollup analytics rollup
// Groups the matching reports by category, locality, severity, status or kind.
// responses:
//   200: rollupResponse
//   400: errorResponse

// Rollup rows, largest group first
// swagger:response rollupResponse
type rollupResponseWrapper struct {
	// in:body
	Body []models.GroupStat
}

// swagger:route GET /api/v1/analytics/hotspots analytics hotspots
// Clusters geocoded reports into map cells.
// responses:
//   200: hotspotResponse
//   400: errorResponse

// Hotspots with their GeoJSON rendering
// swagger:response hotspotResponse
type hotspotResponseWrapper struct {
	// in:body
	Body models.HotspotResponse
}

// An error message
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
