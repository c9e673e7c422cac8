package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/api"
	"github.com/linesmerrill/traffic-portal-api/databases"
	"github.com/linesmerrill/traffic-portal-api/events"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// sweepTimeout bounds one run of the overdue sweep
const sweepTimeout = 2 * time.Minute

// Scheduler runs the periodic report jobs
type Scheduler struct {
	cron       *cron.Cron
	Store      databases.ReportStore
	Pub        events.Publisher
	Spec       string
	instanceID string
	now        func() time.Time
}

// NewScheduler creates a scheduler that sweeps for overdue work on the given cron schedule
func NewScheduler(store databases.ReportStore, pub events.Publisher, spec string) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Store:      store,
		Pub:        pub,
		Spec:       spec,
		instanceID: instanceID,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the jobs and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.Spec, s.runSweep)
	if err != nil {
		return fmt.Errorf("failed to register overdue sweep %q: %w", s.Spec, err)
	}
	s.cron.Start()
	zap.S().Infow("report scheduler started", "schedule", s.Spec, "instance", s.instanceID)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("report scheduler stopped")
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.SweepOverdue(ctx); err != nil {
		zap.S().Errorw("overdue sweep failed", "instance", s.instanceID, "error", err)
	}
}

// SweepOverdue finds open, assigned work whose estimated completion has
// passed and raises a report.overdue event for each report
func (s *Scheduler) SweepOverdue(ctx context.Context) ([]models.Report, error) {
	now := s.now()
	var overdue []models.Report
	for _, status := range []models.Status{models.StatusAssigned, models.StatusInProgress} {
		reports, err := s.Store.Find(ctx, filters.Criteria{Status: status}, nil)
		if err != nil {
			return overdue, err
		}
		for _, r := range reports {
			if r.EstimatedCompletion != nil && r.EstimatedCompletion.Before(now) {
				overdue = append(overdue, r)
			}
		}
	}

	for _, r := range overdue {
		zap.S().Warnw("report overdue",
			"report", r.Code,
			"status", r.Status,
			"assignee", r.AssigneeID,
			"estimatedCompletion", r.EstimatedCompletion,
		)
		err := s.Pub.Publish(ctx, events.Event{
			Type:     events.ReportOverdue,
			ReportID: r.ID,
			Code:     r.Code,
			Status:   r.Status,
			At:       now,
		})
		if err != nil {
			zap.S().Warnw("failed to publish overdue event", "report", r.Code, "error", err)
		}
	}
	api.OverdueReports.Set(float64(len(overdue)))
	zap.S().Infow("overdue sweep finished", "overdue", len(overdue))
	return overdue, nil
}
