package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/events"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// Service runs the report lifecycle operations against a store
type Service struct {
	store databases.ReportStore
	pub   events.Publisher
	log   *zap.SugaredLogger
	now   func() time.Time
	newID func() string
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces the id generator
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService returns a lifecycle service. A nil publisher drops events.
func NewService(store databases.ReportStore, pub events.Publisher, log *zap.SugaredLogger, opts ...Option) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	s := &Service{
		store: store,
		pub:   pub,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &models.ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func forbidden(actor models.Actor, op string) error {
	return fmt.Errorf("%s by %s: %w", op, actor.Role, models.ErrForbidden)
}

func validActor(actor models.Actor) error {
	if err := required("actor", actor.ID); err != nil {
		return err
	}
	if _, ok := models.ParseRole(string(actor.Role)); !ok {
		return &models.ValidationError{Field: "role", Reason: "is unknown"}
	}
	return nil
}

// canWork reports whether actor may act on work assigned through r: staff
// always, tanod only on reports assigned to them
func canWork(actor models.Actor, r *models.Report) bool {
	return actor.Staff() || (actor.Role == models.RoleTanod && r.AssigneeID == actor.ID)
}

func validateNew(in models.NewReport) error {
	if _, ok := models.ParseKind(string(in.Kind)); !ok {
		return &models.ValidationError{Field: "kind", Reason: "is unknown"}
	}
	if err := required("category", in.Category); err != nil {
		return err
	}
	if _, ok := models.ParseSeverity(string(in.Severity)); !ok {
		return &models.ValidationError{Field: "severity", Reason: "must be Low, Medium, High or Emergency"}
	}
	if err := required("locality", in.Locality); err != nil {
		return err
	}
	if err := required("location", in.Location); err != nil {
		return err
	}
	if err := required("description", in.Description); err != nil {
		return err
	}
	if in.Coordinates != nil && (in.Coordinates.Lat < -90 || in.Coordinates.Lat > 90 ||
		in.Coordinates.Lng < -180 || in.Coordinates.Lng > 180) {
		return &models.ValidationError{Field: "coordinates", Reason: "are out of range"}
	}
	if in.AfterStatus != "" {
		if _, ok := models.ParseStatus(string(in.AfterStatus)); !ok {
			return &models.ValidationError{Field: "afterStatus", Reason: "is unknown"}
		}
		if in.LinkedReportID == "" {
			return &models.ValidationError{Field: "linkedReportId", Reason: "is required with afterStatus"}
		}
	}
	if in.LinkedReportID != "" && in.Kind != models.KindFollowUp {
		return &models.ValidationError{Field: "linkedReportId", Reason: "is only allowed on follow-up reports"}
	}
	return nil
}

// normalizeNew rewrites the parsed enums of a validated input to their
// canonical spelling
func normalizeNew(in models.NewReport) models.NewReport {
	in.Kind, _ = models.ParseKind(string(in.Kind))
	in.Severity, _ = models.ParseSeverity(string(in.Severity))
	if in.AfterStatus != "" {
		in.AfterStatus, _ = models.ParseStatus(string(in.AfterStatus))
	}
	return in
}

// Create files a new Pending report. A tanod's report is then moved to
// Assigned with the tanod as assignee, together with its assignment entry. A follow-up report carrying an after-status moves the linked report
// in the same transaction, and the whole creation fails if that move fails.
func (s *Service) Create(ctx context.Context, actor models.Actor, in models.NewReport) (*models.Report, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if err := validateNew(in); err != nil {
		return nil, err
	}
	in = normalizeNew(in)
	propagate := in.LinkedReportID != "" && in.AfterStatus != ""
	if propagate && actor.Role == models.RoleResident {
		return nil, forbidden(actor, "follow-up status change")
	}

	now := s.now()
	r := models.Report{
		ID:                  s.newID(),
		Kind:                in.Kind,
		Category:            strings.TrimSpace(in.Category),
		Severity:            in.Severity,
		Urgent:              in.Urgent,
		Priority:            DerivePriority(in.Severity, in.Urgent),
		Locality:            strings.TrimSpace(in.Locality),
		Location:            strings.TrimSpace(in.Location),
		Coordinates:         in.Coordinates,
		Status:              models.StatusPending,
		ReporterID:          actor.ID,
		ReporterRole:        actor.Role,
		LinkedReportID:      in.LinkedReportID,
		Description:         strings.TrimSpace(in.Description),
		Notes:               in.Notes,
		EvidenceRef:         in.EvidenceRef,
		ReportedAt:          now,
		OccurredOn:          in.OccurredOn,
		EstimatedCompletion: in.EstimatedCompletion,
		UpdatedAt:           now,
	}

	var linked *models.Report
	var linkedBefore models.Status
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx databases.ReportStore) error {
		key := fmt.Sprintf("%s-%d", in.Kind.CodePrefix(), now.Year())
		seq, err := tx.NextSequence(ctx, key)
		if err != nil {
			return err
		}
		r.Code = fmt.Sprintf("%s-%04d", key, seq)

		if _, err := tx.Insert(ctx, r); err != nil {
			return err
		}
		if _, err := tx.AppendLog(ctx, models.FollowUpEntry{
			ID: s.newID(), ReportID: r.ID, Type: models.EntryCreated, ActorID: actor.ID,
			Action: "filed", AfterStatus: models.StatusPending, CreatedAt: now,
		}); err != nil {
			return err
		}
		if actor.Role == models.RoleTanod {
			assignee := actor.ID
			u := models.ReportUpdate{Status: models.StatusAssigned, AssigneeID: &assignee, UpdatedAt: now}
			if err := s.apply(ctx, tx, &r, u); err != nil {
				return err
			}
			if _, err := tx.AppendLog(ctx, models.FollowUpEntry{
				ID: s.newID(), ReportID: r.ID, Type: models.EntryAssignment, ActorID: actor.ID,
				AssignerID: actor.ID, AssigneeID: actor.ID, Action: "self-assigned on filing",
				BeforeStatus: models.StatusPending, AfterStatus: models.StatusAssigned, CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if !propagate {
			return nil
		}
		linked, err = tx.FindOne(ctx, in.LinkedReportID)
		if err != nil {
			return err
		}
		linkedBefore = linked.Status
		u, err := s.statusUpdate(actor, linked, in.AfterStatus, in.Notes, now)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, tx, linked, u); err != nil {
			return err
		}
		_, err = tx.AppendLog(ctx, models.FollowUpEntry{
			ID: s.newID(), ReportID: linked.ID, Type: models.EntryFollowUp, ActorID: actor.ID,
			Action: "follow-up " + r.Code, BeforeStatus: linkedBefore, AfterStatus: in.AfterStatus,
			Note: in.Notes, CreatedAt: now,
		})
		return err
	})
	if err != nil {
		s.log.Errorw("failed to create report", "operation", "create", "actor", actor.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, events.ReportCreated, &r, actor, now)
	if linked != nil {
		s.publish(ctx, events.ReportFollowUp, linked, actor, now)
	}
	return &r, nil
}

// statusUpdate checks that actor may move r to status and builds the
// update. note serves as resolution notes or rejection reason where one is needed.
func (s *Service) statusUpdate(actor models.Actor, r *models.Report, to models.Status, note string, now time.Time) (models.ReportUpdate, error) {
	u := models.ReportUpdate{Status: to, UpdatedAt: now}
	staffOnly := to == models.StatusVerified || to == models.StatusRejected
	if (staffOnly && !actor.Staff()) || !canWork(actor, r) {
		return u, forbidden(actor, "status change")
	}
	if !CanTransition(r.Status, to) {
		return u, &models.TransitionError{From: r.Status, To: to}
	}
	switch to {
	case models.StatusVerified:
		u.VerifierID = &actor.ID
	case models.StatusAssigned:
		// assignment needs a target and goes through Assign
		return u, &models.TransitionError{From: r.Status, To: to, Reason: "use assign"}
	case models.StatusResolved:
		if r.AssigneeID == "" {
			return u, &models.TransitionError{From: r.Status, To: to, Reason: "report has no assignee"}
		}
		if err := required("resolutionNotes", note); err != nil {
			return u, err
		}
		u.ResolutionNotes = &note
		u.ResolvedAt = &now
	case models.StatusRejected:
		if err := required("reason", note); err != nil {
			return u, err
		}
		u.RejectionReason = &note
	}
	return u, nil
}

// apply writes u conditionally on r's current status and updates r in place
func (s *Service) apply(ctx context.Context, tx databases.ReportStore, r *models.Report, u models.ReportUpdate) error {
	ok, err := tx.Update(ctx, r.ID, r.Status, u)
	if err != nil {
		return err
	}
	if !ok {
		return &models.TransitionError{From: r.Status, To: u.Status, Reason: "report changed concurrently"}
	}
	u.Apply(r)
	return nil
}

// change loads the report, lets check authorize the move and build the update
// and audit entry, then commits both together.
func (s *Service) change(ctx context.Context, actor models.Actor, id, op string, et events.Type,
	check func(r *models.Report, now time.Time) (models.ReportUpdate, models.FollowUpEntry, error)) (*models.Report, error) {
	r, err := s.store.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u, entry, err := check(r, now)
	if err != nil {
		s.log.Warnw("lifecycle change refused", "operation", op, "report", id, "actor", actor.ID, "error", err)
		return nil, err
	}
	entry.ID = s.newID()
	entry.ReportID = r.ID
	entry.ActorID = actor.ID
	entry.BeforeStatus = r.Status
	entry.AfterStatus = u.Status
	entry.CreatedAt = now

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx databases.ReportStore) error {
		if err := s.apply(ctx, tx, r, u); err != nil {
			return err
		}
		_, err := tx.AppendLog(ctx, entry)
		return err
	})
	if err != nil {
		s.log.Errorw("lifecycle change failed", "operation", op, "report", id, "error", err)
		return nil, err
	}
	s.publish(ctx, et, r, actor, now)
	return r, nil
}

// Verify confirms a Pending report
func (s *Service) Verify(ctx context.Context, actor models.Actor, id, note string) (*models.Report, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if !actor.Staff() {
		return nil, forbidden(actor, "verify")
	}
	return s.change(ctx, actor, id, "verify", events.ReportVerified,
		func(r *models.Report, now time.Time) (models.ReportUpdate, models.FollowUpEntry, error) {
			u, err := s.statusUpdate(actor, r, models.StatusVerified, note, now)
			return u, models.FollowUpEntry{Type: models.EntryVerification, Action: "verified", Note: note}, err
		})
}

// Assign hands a report to assigneeID. Reassigning appends another entry;
// reassigning to the current assignee is a validation error.
func (s *Service) Assign(ctx context.Context, actor models.Actor, id, assigneeID, note string) (*models.Report, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if err := required("assigneeId", assigneeID); err != nil {
		return nil, err
	}
	if !actor.Staff() {
		return nil, forbidden(actor, "assign")
	}
	return s.change(ctx, actor, id, "assign", events.ReportAssigned,
		func(r *models.Report, now time.Time) (models.ReportUpdate, models.FollowUpEntry, error) {
			u := models.ReportUpdate{Status: models.StatusAssigned, AssigneeID: &assigneeID, UpdatedAt: now}
			entry := models.FollowUpEntry{Type: models.EntryAssignment, AssignerID: actor.ID, AssigneeID: assigneeID,
				Action: "assigned", Note: note}
			if !CanTransition(r.Status, models.StatusAssigned) {
				return u, entry, &models.TransitionError{From: r.Status, To: models.StatusAssigned}
			}
			if r.AssigneeID == assigneeID {
				return u, entry, &models.ValidationError{Field: "assigneeId", Reason: "is already the assignee"}
			}
			if r.Status == models.StatusAssigned {
				entry.Action = "reassigned from " + r.AssigneeID
			}
			return u, entry, nil
		})
}

// Start marks assigned work as in progress
func (s *Service) Start(ctx context.Context, actor models.Actor, id, note string) (*models.Report, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	return s.change(ctx, actor, id, "start", events.ReportStarted,
		func(r *models.Report, now time.Time) (models.ReportUpdate, models.FollowUpEntry, error) {
			u, err := s.statusUpdate(actor, r, models.StatusInProgress, note, now)
			return u, models.FollowUpEntry{Type: models.EntryStatus, Action: "work started", Note: note}, err
		})
}

// Resolve closes a report with resolution notes and stamps the resolution
// time. A report without an assignee cannot be resolved.
func (s *Service) Resolve(ctx context.Context, actor models.Actor, id, notes string) (*models.Report, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if err := required("resolutionNotes", notes); err != nil {
		return nil, err
	}
	return s.change(ctx, actor, id, "resolve", events.ReportResolved,
		func(r *models.Report, now time.Time) (models.ReportUpdate, models.FollowUpEntry, error) {
			u, err := s.statusUpdate(actor, r, models.StatusResolved, notes, now)
			return u, models.FollowUpEntry{Type: models.EntryStatus, Action: "resolved", Note: notes}, err
		})
}

// Reject closes a Pending or Verified report with a reason
func (s *Service) Reject(ctx context.Context, actor models.Actor, id, reason string) (*models.Report, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if err := required("reason", reason); err != nil {
		return nil, err
	}
	if !actor.Staff() {
		return nil, forbidden(actor, "reject")
	}
	return s.change(ctx, actor, id, "reject", events.ReportRejected,
		func(r *models.Report, now time.Time) (models.ReportUpdate, models.FollowUpEntry, error) {
			u, err := s.statusUpdate(actor, r, models.StatusRejected, reason, now)
			return u, models.FollowUpEntry{Type: models.EntryStatus, Action: "rejected", Note: reason}, err
		})
}

// AddFollowUp logs an action taken on a report. An after-status different
// from the current one is validated and applied like any other transition,
// in the same transaction as the entry.
func (s *Service) AddFollowUp(ctx context.Context, actor models.Actor, id string, in models.FollowUpInput) (*models.FollowUpEntry, error) {
	if err := validActor(actor); err != nil {
		return nil, err
	}
	if err := required("action", in.Action); err != nil {
		return nil, err
	}
	if in.AfterStatus != "" {
		st, ok := models.ParseStatus(string(in.AfterStatus))
		if !ok {
			return nil, &models.ValidationError{Field: "afterStatus", Reason: "is unknown"}
		}
		in.AfterStatus = st
	}

	r, err := s.store.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canWork(actor, r) {
		return nil, forbidden(actor, "follow-up")
	}

	now := s.now()
	entry := models.FollowUpEntry{
		ID: s.newID(), ReportID: r.ID, Type: models.EntryFollowUp, ActorID: actor.ID,
		Action: strings.TrimSpace(in.Action), BeforeStatus: r.Status, AfterStatus: r.Status,
		NeedsPermanentSolution: in.NeedsPermanentSolution, Note: in.Note, CreatedAt: now,
	}
	move := in.AfterStatus != "" && in.AfterStatus != r.Status
	var u models.ReportUpdate
	if move {
		if u, err = s.statusUpdate(actor, r, in.AfterStatus, in.Note, now); err != nil {
			s.log.Warnw("follow-up status change refused", "operation", "follow-up", "report", id, "error", err)
			return nil, err
		}
		entry.AfterStatus = in.AfterStatus
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx databases.ReportStore) error {
		if move {
			if err := s.apply(ctx, tx, r, u); err != nil {
				return err
			}
		}
		_, err := tx.AppendLog(ctx, entry)
		return err
	})
	if err != nil {
		s.log.Errorw("failed to add follow-up", "operation", "follow-up", "report", id, "error", err)
		return nil, err
	}
	s.publish(ctx, events.ReportFollowUp, r, actor, now)
	return &entry, nil
}

// Get returns a report with its audit trail. Residents may only read their
// own reports.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Report, []models.FollowUpEntry, error) {
	r, err := s.store.FindOne(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == models.RoleResident && r.ReporterID != actor.ID {
		return nil, nil, forbidden(actor, "read")
	}
	logs, err := s.store.Logs(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return r, logs, nil
}

// List returns a page of reports matching c. Residents only see their own.
func (s *Service) List(ctx context.Context, actor models.Actor, c filters.Criteria, page *databases.Paginate) ([]models.Report, error) {
	if actor.Role == models.RoleResident {
		c.ReporterID = actor.ID
	}
	return s.store.Find(ctx, c, page)
}

func (s *Service) publish(ctx context.Context, t events.Type, r *models.Report, actor models.Actor, at time.Time) {
	e := events.Event{Type: t, ReportID: r.ID, Code: r.Code, Status: r.Status, ActorID: actor.ID, At: at}
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Warnw("failed to publish event", "type", t, "report", r.ID, "error", err)
	}
}
