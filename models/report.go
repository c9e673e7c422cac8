package models

import (
	"strings"
	"time"
)

// Kind distinguishes the portal pages a report was filed from. All kinds
// share the same structure.
type Kind string

// Report kinds
const (
	KindRoadCondition Kind = "road_condition"
	KindIncident      Kind = "incident"
	KindFollowUp      Kind = "follow_up"
	KindFeedback      Kind = "feedback"
)

// Kinds lists every report kind
var Kinds = []Kind{KindRoadCondition, KindIncident, KindFollowUp, KindFeedback}

// CodePrefix returns the prefix used in the human-readable report code
func (k Kind) CodePrefix() string {
	switch k {
	case KindIncident:
		return "INC"
	case KindFollowUp:
		return "FUL"
	case KindFeedback:
		return "FBK"
	default:
		return "RCR"
	}
}

// ParseKind parses a kind, ignoring case
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Severity is the reporter-assigned urgency classification
type Severity string

// Severities, lowest first
const (
	SeverityLow       Severity = "Low"
	SeverityMedium    Severity = "Medium"
	SeverityHigh      Severity = "High"
	SeverityEmergency Severity = "Emergency"
)

// SeveritiesByUrgency is the presentation order, most urgent first
var SeveritiesByUrgency = []Severity{SeverityEmergency, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities Low < Medium < High < Emergency. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityEmergency:
		return 4
	}
	return 0
}

// ParseSeverity parses a severity, ignoring case
func ParseSeverity(s string) (Severity, bool) {
	s = strings.TrimSpace(s)
	for _, sev := range SeveritiesByUrgency {
		if strings.EqualFold(string(sev), s) {
			return sev, true
		}
	}
	return "", false
}

// Status is a report's position in its lifecycle
type Status string

// Lifecycle statuses
const (
	StatusPending    Status = "Pending"
	StatusVerified   Status = "Verified"
	StatusAssigned   Status = "Assigned"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{StatusPending, StatusVerified, StatusAssigned, StatusInProgress, StatusResolved, StatusRejected}

// Terminal reports whether no transition leaves s
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// ParseStatus parses a status. Matching ignores case and accepts "_" or "-"
// in place of spaces, so "in_progress" is In Progress.
func ParseStatus(s string) (Status, bool) {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))
	for _, st := range Statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// Coordinates is an optional geolocation of a report
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Report is a road condition report, incident, follow-up log or feedback entry
type Report struct {
	ID             string       `json:"id" bson:"_id"`
	Code           string       `json:"code" bson:"code"`
	Kind           Kind         `json:"kind" bson:"kind"`
	Category       string       `json:"category" bson:"category"`
	Severity       Severity     `json:"severity" bson:"severity"`
	Urgent         bool         `json:"urgent" bson:"urgent"`
	Priority       Severity     `json:"priority" bson:"priority"`
	Locality       string       `json:"locality" bson:"locality"`
	Location       string       `json:"location" bson:"location"`
	Coordinates    *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Status         Status       `json:"status" bson:"status"`
	ReporterID     string       `json:"reporterId" bson:"reporterId"`
	ReporterRole   Role         `json:"reporterRole" bson:"reporterRole"`
	AssigneeID     string       `json:"assigneeId,omitempty" bson:"assigneeId,omitempty"`
	VerifierID     string       `json:"verifierId,omitempty" bson:"verifierId,omitempty"`
	LinkedReportID string       `json:"linkedReportId,omitempty" bson:"linkedReportId,omitempty"`

	Description     string `json:"description" bson:"description"`
	Notes           string `json:"notes,omitempty" bson:"notes,omitempty"`
	ResolutionNotes string `json:"resolutionNotes,omitempty" bson:"resolutionNotes,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	EvidenceRef     string `json:"evidenceRef,omitempty" bson:"evidenceRef,omitempty"`

	ReportedAt          time.Time  `json:"reportedAt" bson:"reportedAt"`
	OccurredOn          *time.Time `json:"occurredOn,omitempty" bson:"occurredOn,omitempty"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty" bson:"estimatedCompletion,omitempty"`
	UpdatedAt           time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// ReportUpdate holds the fields a lifecycle transition writes. Nil pointers
// are left untouched by the store.
type ReportUpdate struct {
	Status          Status
	AssigneeID      *string
	VerifierID      *string
	ResolutionNotes *string
	RejectionReason *string
	ResolvedAt      *time.Time
	UpdatedAt       time.Time
}

// Apply copies the update onto r
func (u ReportUpdate) Apply(r *Report) {
	r.Status = u.Status
	if u.AssigneeID != nil {
		r.AssigneeID = *u.AssigneeID
	}
	if u.VerifierID != nil {
		r.VerifierID = *u.VerifierID
	}
	if u.ResolutionNotes != nil {
		r.ResolutionNotes = *u.ResolutionNotes
	}
	if u.RejectionReason != nil {
		r.RejectionReason = *u.RejectionReason
	}
	if u.ResolvedAt != nil {
		r.ResolvedAt = u.ResolvedAt
	}
	r.UpdatedAt = u.UpdatedAt
}

// NewReport is the input for filing a report
type NewReport struct {
	Kind                Kind         `json:"kind"`
	Category            string       `json:"category"`
	Severity            Severity     `json:"severity"`
	Urgent              bool         `json:"urgent"`
	Locality            string       `json:"locality"`
	Location            string       `json:"location"`
	Coordinates         *Coordinates `json:"coordinates,omitempty"`
	Description         string       `json:"description"`
	Notes               string       `json:"notes,omitempty"`
	EvidenceRef         string       `json:"evidenceRef,omitempty"`
	OccurredOn          *time.Time   `json:"occurredOn,omitempty"`
	EstimatedCompletion *time.Time   `json:"estimatedCompletion,omitempty"`
	// LinkedReportID and AfterStatus are used by follow-up reports to move
	// the incident they follow.
	LinkedReportID string `json:"linkedReportId,omitempty"`
	AfterStatus    Status `json:"afterStatus,omitempty"`
}
