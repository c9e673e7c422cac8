package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/config"
	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/lifecycle"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// Page size limits of the report list
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Report handles report filing and lifecycle requests
type Report struct {
	Svc *lifecycle.Service
}

// ReportDetailResponse is a report together with its audit trail
type ReportDetailResponse struct {
	Report    *models.Report         `json:"report"`
	FollowUps []models.FollowUpEntry `json:"followUps"`
}

// ReportListResponse is one page of reports
type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Page    int64           `json:"page"`
	Limit   int64           `json:"limit"`
}

// TransitionRequest carries the optional fields of a lifecycle action
type TransitionRequest struct {
	Note            string `json:"note,omitempty"`
	AssigneeID      string `json:"assigneeId,omitempty"`
	ResolutionNotes string `json:"resolutionNotes,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// lifecycleError maps a core error to its HTTP status. Store failures get a
// generic message; their details are only logged.
func lifecycleError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidFilterInput):
		config.ErrorStatus(message, http.StatusBadRequest, w, err)
	case errors.Is(err, models.ErrForbidden):
		config.ErrorStatus(message, http.StatusForbidden, w, err)
	case errors.Is(err, models.ErrNotFound):
		config.ErrorStatus(message, http.StatusNotFound, w, err)
	case errors.Is(err, models.ErrInvalidTransition):
		config.ErrorStatus(message, http.StatusConflict, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}

func actor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	a, ok := api.ActorFrom(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no authenticated caller"))
	}
	return a, ok
}

func paginate(r *http.Request) *databases.Paginate {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	return databases.NewPaginate(limit, page)
}

// ListReportsHandler returns one page of reports matching the filter params
func (re Report) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	c, err := filters.Parse(r.URL.Query())
	if err != nil {
		config.ErrorStatus("invalid filter input", http.StatusBadRequest, w, err)
		return
	}
	page := paginate(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	reports, err := re.Svc.List(ctx, a, c, page)
	if err != nil {
		lifecycleError(w, "failed to list reports", err)
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}
	api.WriteJSON(w, http.StatusOK, ReportListResponse{Reports: reports, Page: page.Page, Limit: page.Limit})
}

// CreateReportHandler files a new report
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in models.NewReport
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := re.Svc.Create(ctx, a, in)
	if err != nil {
		lifecycleError(w, "failed to create report", err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, report)
}

// ReportByIDHandler returns a report and its follow-up entries
func (re Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["report_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, logs, err := re.Svc.Get(ctx, a, id)
	if err != nil {
		lifecycleError(w, "failed to get report", err)
		return
	}
	if logs == nil {
		logs = []models.FollowUpEntry{}
	}
	api.WriteJSON(w, http.StatusOK, ReportDetailResponse{Report: report, FollowUps: logs})
}

// transition decodes the optional body and runs one lifecycle action
func (re Report) transition(w http.ResponseWriter, r *http.Request, message string,
	fn func(ctx context.Context, a models.Actor, id string, in TransitionRequest) (*models.Report, error)) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in TransitionRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	report, err := fn(ctx, a, mux.Vars(r)["report_id"], in)
	if err != nil {
		lifecycleError(w, message, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}

// VerifyHandler moves a Pending report to Verified
func (re Report) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	re.transition(w, r, "failed to verify report", func(ctx context.Context, a models.Actor, id string, in TransitionRequest) (*models.Report, error) {
		return re.Svc.Verify(ctx, a, id, in.Note)
	})
}

// AssignHandler assigns or reassigns a report
func (re Report) AssignHandler(w http.ResponseWriter, r *http.Request) {
	re.transition(w, r, "failed to assign report", func(ctx context.Context, a models.Actor, id string, in TransitionRequest) (*models.Report, error) {
		return re.Svc.Assign(ctx, a, id, in.AssigneeID, in.Note)
	})
}

// StartHandler marks assigned work as in progress
func (re Report) StartHandler(w http.ResponseWriter, r *http.Request) {
	re.transition(w, r, "failed to start report", func(ctx context.Context, a models.Actor, id string, in TransitionRequest) (*models.Report, error) {
		return re.Svc.Start(ctx, a, id, in.Note)
	})
}

// ResolveHandler resolves a report
func (re Report) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	re.transition(w, r, "failed to resolve report", func(ctx context.Context, a models.Actor, id string, in TransitionRequest) (*models.Report, error) {
		return re.Svc.Resolve(ctx, a, id, in.ResolutionNotes)
	})
}

// RejectHandler rejects a report
func (re Report) RejectHandler(w http.ResponseWriter, r *http.Request) {
	re.transition(w, r, "failed to reject report", func(ctx context.Context, a models.Actor, id string, in TransitionRequest) (*models.Report, error) {
		return re.Svc.Reject(ctx, a, id, in.Reason)
	})
}

// FollowUpHandler logs a follow-up action on a report
func (re Report) FollowUpHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in models.FollowUpInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	entry, err := re.Svc.AddFollowUp(ctx, a, mux.Vars(r)["report_id"], in)
	if err != nil {
		lifecycleError(w, "failed to add follow-up", err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, entry)
}
