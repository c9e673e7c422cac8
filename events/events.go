// Package events fans lifecycle changes out to the message broker and to
// live dashboard clients.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/linesmerrill/traffic-portal-api/models"
)

// Type names a lifecycle change
type Type string

// Lifecycle event types. They double as AMQP routing keys.
const (
	ReportCreated  Type = "report.created"
	ReportVerified Type = "report.verified"
	ReportAssigned Type = "report.assigned"
	ReportStarted  Type = "report.started"
	ReportResolved Type = "report.resolved"
	ReportRejected Type = "report.rejected"
	ReportFollowUp Type = "report.follow_up"
	// ReportOverdue is raised by the overdue sweep, not by a transition
	ReportOverdue Type = "report.overdue"
)

// Event is published after a lifecycle change commits
type Event struct {
	Type     Type          `json:"type"`
	ReportID string        `json:"reportId"`
	Code     string        `json:"code"`
	Status   models.Status `json:"status"`
	ActorID  string        `json:"actorId"`
	At       time.Time     `json:"at"`
}

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

// Publish delivers e to each publisher in turn
func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, Event) error { return nil }
