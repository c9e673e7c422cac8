package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/databases/mocks"
	"github.com/linesmerrill/traffic-portal-api/events"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/lifecycle"
	"github.com/linesmerrill/traffic-portal-api/models"
)

var (
	now      = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	resident = models.Actor{ID: "resident-1", Role: models.RoleResident}
	tanod    = models.Actor{ID: "tanod-1", Role: models.RoleTanod}
	tanod2   = models.Actor{ID: "tanod-2", Role: models.RoleTanod}
	employee = models.Actor{ID: "employee-1", Role: models.RoleEmployee}
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

type captured struct {
	events []events.Event
	err    error
}

func (c *captured) Publish(_ context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return c.err
}

func newService(store *memStore, pub events.Publisher) *lifecycle.Service {
	n := 0
	return lifecycle.NewService(store, pub, zap.NewNop().Sugar(),
		lifecycle.WithClock(func() time.Time { return now }),
		lifecycle.WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }))
}

func pothole() models.NewReport {
	return models.NewReport{
		Kind:        models.KindRoadCondition,
		Category:    "Pothole",
		Severity:    models.SeverityHigh,
		Locality:    "Poblacion",
		Location:    "Rizal St corner Mabini",
		Description: "Deep pothole on the northbound lane",
	}
}

func stored(id string, status models.Status, assignee string) models.Report {
	return models.Report{ID: id, Code: "RCR-2025-0001", Kind: models.KindRoadCondition, Status: status,
		AssigneeID: assignee, ReporterID: resident.ID, ReportedAt: now.AddDate(0, 0, -3)}
}

func TestDerivePriority(t *testing.T) {
	for _, sev := range models.SeveritiesByUrgency {
		assert.Equal(t, sev, lifecycle.DerivePriority(sev, false))
		assert.Equal(t, models.SeverityEmergency, lifecycle.DerivePriority(sev, true))
	}
}

func TestCreate_ResidentReport(t *testing.T) {
	store := newMemStore()
	pub := &captured{}
	in := pothole()
	in.Urgent = true

	svc := newService(store, pub)
	r, err := svc.Create(context.Background(), resident, in)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, "RCR-2025-0001", r.Code)
	assert.Equal(t, now, r.ReportedAt)
	assert.Equal(t, resident.ID, r.ReporterID)
	assert.Equal(t, models.SeverityHigh, r.Severity)
	assert.Equal(t, models.SeverityEmergency, r.Priority)
	assert.Empty(t, r.AssigneeID)

	logs := store.entries(r.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, models.EntryCreated, logs[0].Type)

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ReportCreated, pub.events[0].Type)

	second, err := svc.Create(context.Background(), resident, pothole())
	require.NoError(t, err)
	assert.Equal(t, "RCR-2025-0002", second.Code)
}

func TestCreate_TanodSelfAssignmentEntry(t *testing.T) {
	store := newMemStore()
	in := pothole()
	in.Kind = models.KindIncident

	r, err := newService(store, nil).Create(context.Background(), tanod, in)
	require.NoError(t, err)
	assert.Equal(t, "INC-2025-0001", r.Code)

	assert.Equal(t, models.StatusAssigned, r.Status)
	assert.Equal(t, tanod.ID, r.AssigneeID)
	assert.Equal(t, *r, store.reports[r.ID])

	logs := store.entries(r.ID)
	require.Len(t, logs, 2)
	assert.Equal(t, models.StatusPending, logs[0].AfterStatus)
	assert.Equal(t, models.EntryAssignment, logs[1].Type)
	assert.Equal(t, tanod.ID, logs[1].AssignerID)
	assert.Equal(t, tanod.ID, logs[1].AssigneeID)
	assert.Equal(t, models.StatusPending, logs[1].BeforeStatus)
	assert.Equal(t, models.StatusAssigned, logs[1].AfterStatus)

	started, err := newService(store, nil).Start(context.Background(), tanod, r.ID, "on site")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, started.Status)

	_, err = newService(store, nil).Start(context.Background(), tanod2, r.ID, "")
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestCreate_ValidationHappensBeforeStoreAccess(t *testing.T) {
	store := &mocks.ReportStore{}
	svc := lifecycle.NewService(store, nil, zap.NewNop().Sugar())

	cases := map[string]func(*models.NewReport){
		"category":       func(in *models.NewReport) { in.Category = " " },
		"severity":       func(in *models.NewReport) { in.Severity = "Critical" },
		"kind":           func(in *models.NewReport) { in.Kind = "complaint" },
		"locality":       func(in *models.NewReport) { in.Locality = "" },
		"description":    func(in *models.NewReport) { in.Description = "" },
		"coordinates":    func(in *models.NewReport) { in.Coordinates = &models.Coordinates{Lat: 91} },
		"linkedReportId": func(in *models.NewReport) { in.AfterStatus = models.StatusResolved },
	}
	for field, mutate := range cases {
		in := pothole()
		mutate(&in)
		_, err := svc.Create(context.Background(), resident, in)

		var ve *models.ValidationError
		require.True(t, errors.As(err, &ve), field)
		assert.Equal(t, field, ve.Field)
	}
	store.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
}

func TestCreate_FollowUpPropagatesToIncident(t *testing.T) {
	incident := stored("inc-1", models.StatusInProgress, tanod.ID)
	store := newMemStore(incident)
	pub := &captured{}

	in := pothole()
	in.Kind = models.KindFollowUp
	in.LinkedReportID = "inc-1"
	in.AfterStatus = models.StatusResolved
	in.Notes = "Debris cleared"

	r, err := newService(store, pub).Create(context.Background(), tanod, in)
	require.NoError(t, err)
	assert.Equal(t, "FUL-2025-0001", r.Code)

	got := store.reports["inc-1"]
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "Debris cleared", got.ResolutionNotes)
	assert.Equal(t, &now, got.ResolvedAt)

	logs := store.entries("inc-1")
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusInProgress, logs[0].BeforeStatus)
	assert.Equal(t, models.StatusResolved, logs[0].AfterStatus)
	assert.Len(t, pub.events, 2)
}

func TestCreate_FailedPropagationFailsCreation(t *testing.T) {
	incident := stored("inc-1", models.StatusResolved, tanod.ID)
	store := newMemStore(incident)

	in := pothole()
	in.Kind = models.KindFollowUp
	in.LinkedReportID = "inc-1"
	in.AfterStatus = models.StatusInProgress

	_, err := newService(store, nil).Create(context.Background(), tanod, in)
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	assert.Len(t, store.reports, 1)
	assert.Empty(t, store.logs)
}

func TestCreate_ResidentCannotMoveIncident(t *testing.T) {
	store := newMemStore(stored("inc-1", models.StatusInProgress, tanod.ID))
	in := pothole()
	in.Kind = models.KindFollowUp
	in.LinkedReportID = "inc-1"
	in.AfterStatus = models.StatusResolved

	_, err := newService(store, nil).Create(context.Background(), resident, in)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestScenarioC_ResolveWithoutAssignee(t *testing.T) {
	for _, status := range []models.Status{models.StatusPending, models.StatusAssigned} {
		before := stored("r1", status, "")
		store := newMemStore(before)

		_, err := newService(store, nil).Resolve(context.Background(), employee, "r1", "patched")
		assert.True(t, errors.Is(err, models.ErrInvalidTransition), status)
		assert.Equal(t, before, store.reports["r1"])
		assert.Zero(t, store.updates)
		assert.Empty(t, store.logs)
	}
}

func TestResolveUnassignedChecksRoleFirst(t *testing.T) {
	before := stored("r1", models.StatusAssigned, "")
	store := newMemStore(before)

	_, err := newService(store, nil).Resolve(context.Background(), tanod, "r1", "patched")
	assert.True(t, errors.Is(err, models.ErrForbidden))
	assert.False(t, errors.Is(err, models.ErrInvalidTransition))

	_, err = newService(store, nil).Resolve(context.Background(), admin, "r1", "patched")
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	assert.Equal(t, before, store.reports["r1"])
	assert.Empty(t, store.logs)
}

func TestResolve(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusInProgress, tanod.ID))
	pub := &captured{}

	_, err := newService(store, pub).Resolve(context.Background(), tanod2, "r1", "patched")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = newService(store, pub).Resolve(context.Background(), tanod, "r1", "  ")
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "resolutionNotes", ve.Field)

	r, err := newService(store, pub).Resolve(context.Background(), tanod, "r1", "patched")
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, r.Status)
	assert.Equal(t, &now, r.ResolvedAt)
	assert.Equal(t, "patched", store.reports["r1"].ResolutionNotes)

	logs := store.entries("r1")
	require.Len(t, logs, 1)
	assert.Equal(t, models.StatusInProgress, logs[0].BeforeStatus)
	assert.Equal(t, models.StatusResolved, logs[0].AfterStatus)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.ReportResolved, pub.events[0].Type)
}

func TestAssignAndReassign(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusVerified, ""))
	svc := newService(store, nil)

	_, err := svc.Assign(context.Background(), tanod, "r1", tanod.ID, "")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = svc.Assign(context.Background(), employee, "r1", "", "")
	assert.True(t, errors.Is(err, models.ErrValidation))

	r, err := svc.Assign(context.Background(), employee, "r1", tanod.ID, "nearest patrol")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, r.Status)
	assert.Equal(t, tanod.ID, r.AssigneeID)

	_, err = svc.Assign(context.Background(), admin, "r1", tanod.ID, "")
	assert.True(t, errors.Is(err, models.ErrValidation))

	r, err = svc.Assign(context.Background(), admin, "r1", tanod2.ID, "shift change")
	require.NoError(t, err)
	assert.Equal(t, tanod2.ID, r.AssigneeID)

	logs := store.entries("r1")
	require.Len(t, logs, 2)
	assert.Equal(t, tanod.ID, logs[0].AssigneeID)
	assert.Equal(t, employee.ID, logs[0].AssignerID)
	assert.Equal(t, tanod2.ID, logs[1].AssigneeID)
	assert.Equal(t, "reassigned from tanod-1", logs[1].Action)
}

func TestReject(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusPending, ""), stored("r2", models.StatusAssigned, tanod.ID))
	svc := newService(store, nil)

	_, err := svc.Reject(context.Background(), employee, "r1", "")
	assert.True(t, errors.Is(err, models.ErrValidation))

	r, err := svc.Reject(context.Background(), employee, "r1", "duplicate of RCR-2025-0003")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, r.Status)
	assert.Nil(t, r.ResolvedAt)
	assert.Equal(t, "duplicate of RCR-2025-0003", r.RejectionReason)

	_, err = svc.Reject(context.Background(), employee, "r2", "no longer needed")
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
}

func TestVerifyAndStart(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusPending, ""))
	svc := newService(store, nil)

	_, err := svc.Verify(context.Background(), resident, "r1", "")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	r, err := svc.Verify(context.Background(), employee, "r1", "confirmed on site")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, r.Status)
	assert.Equal(t, employee.ID, r.VerifierID)

	_, err = svc.Start(context.Background(), employee, "r1", "")
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	_, err = svc.Assign(context.Background(), employee, "r1", tanod.ID, "")
	require.NoError(t, err)

	r, err = svc.Start(context.Background(), tanod, "r1", "on the way")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, r.Status)
}

func TestAuditFailureRollsBackStatus(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusAssigned, tanod.ID))
	store.failLogs = errDisk
	pub := &captured{}

	_, err := newService(store, pub).Start(context.Background(), tanod, "r1", "")
	assert.True(t, errors.Is(err, models.ErrStoreAccess))
	assert.Equal(t, models.StatusAssigned, store.reports["r1"].Status)
	assert.Empty(t, pub.events)
}

func TestConcurrentChangeSurfacesAsInvalidTransition(t *testing.T) {
	store := &mocks.ReportStore{}
	r := stored("r1", models.StatusAssigned, tanod.ID)
	store.On("FindOne", mock.Anything, "r1").Return(&r, nil)
	store.On("Update", mock.Anything, "r1", models.StatusAssigned, mock.Anything).Return(false, nil)
	store.On("WithTransaction", mock.Anything, mock.Anything).Return(
		func(ctx context.Context, fn func(context.Context, databases.ReportStore) error) error {
			return fn(ctx, store)
		})

	_, err := lifecycle.NewService(store, nil, zap.NewNop().Sugar()).Start(context.Background(), tanod, "r1", "")
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	store.AssertNotCalled(t, "AppendLog", mock.Anything, mock.Anything)
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusPending, ""))
	pub := &captured{err: errors.New("broker down")}

	r, err := newService(store, pub).Verify(context.Background(), admin, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, r.Status)
}

func TestAddFollowUp(t *testing.T) {
	store := newMemStore(stored("r1", models.StatusInProgress, tanod.ID))
	svc := newService(store, nil)

	_, err := svc.AddFollowUp(context.Background(), tanod, "r1", models.FollowUpInput{})
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.AddFollowUp(context.Background(), resident, "r1", models.FollowUpInput{Action: "checked"})
	assert.True(t, errors.Is(err, models.ErrForbidden))

	e, err := svc.AddFollowUp(context.Background(), tanod, "r1", models.FollowUpInput{
		Action: "temporary patch applied", NeedsPermanentSolution: true, Note: "cold mix"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, e.BeforeStatus)
	assert.Equal(t, models.StatusInProgress, e.AfterStatus)
	assert.True(t, e.NeedsPermanentSolution)
	assert.Equal(t, models.StatusInProgress, store.reports["r1"].Status)

	_, err = svc.AddFollowUp(context.Background(), tanod, "r1", models.FollowUpInput{
		Action: "reopened", AfterStatus: models.StatusPending})
	assert.True(t, errors.Is(err, models.ErrInvalidTransition))

	e, err = svc.AddFollowUp(context.Background(), tanod, "r1", models.FollowUpInput{
		Action: "asphalt laid", AfterStatus: models.StatusResolved, Note: "permanent fix"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, e.AfterStatus)
	assert.Equal(t, models.StatusResolved, store.reports["r1"].Status)
	assert.Len(t, store.entries("r1"), 2)
}

func TestGetAndListScopeResidents(t *testing.T) {
	mine := stored("r1", models.StatusPending, "")
	theirs := stored("r2", models.StatusPending, "")
	theirs.ReporterID = "resident-2"
	store := newMemStore(mine, theirs)
	svc := newService(store, nil)

	_, _, err := svc.Get(context.Background(), resident, "r2")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	r, _, err := svc.Get(context.Background(), resident, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", r.ID)

	_, _, err = svc.Get(context.Background(), employee, "missing")
	assert.Equal(t, models.ErrNotFound, err)

	list, err := svc.List(context.Background(), resident, filters.Criteria{}, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)

	list, err = svc.List(context.Background(), employee, filters.Criteria{}, nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
