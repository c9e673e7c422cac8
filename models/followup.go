package models

import "time"

// EntryType classifies a follow-up entry
type EntryType string

// Follow-up entry types
const (
	EntryCreated      EntryType = "created"
	EntryAssignment   EntryType = "assignment"
	EntryVerification EntryType = "verification"
	EntryStatus       EntryType = "status"
	EntryFollowUp     EntryType = "follow_up"
)

// FollowUpEntry is an append-only audit record of an action taken on a
// report. Assignment log rows are entries with Type EntryAssignment.
type FollowUpEntry struct {
	ID                     string    `json:"id" bson:"_id"`
	ReportID               string    `json:"reportId" bson:"reportId"`
	Type                   EntryType `json:"type" bson:"type"`
	ActorID                string    `json:"actorId" bson:"actorId"`
	AssignerID             string    `json:"assignerId,omitempty" bson:"assignerId,omitempty"`
	AssigneeID             string    `json:"assigneeId,omitempty" bson:"assigneeId,omitempty"`
	Action                 string    `json:"action" bson:"action"`
	BeforeStatus           Status    `json:"beforeStatus,omitempty" bson:"beforeStatus,omitempty"`
	AfterStatus            Status    `json:"afterStatus,omitempty" bson:"afterStatus,omitempty"`
	NeedsPermanentSolution bool      `json:"needsPermanentSolution" bson:"needsPermanentSolution"`
	Note                   string    `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt              time.Time `json:"createdAt" bson:"createdAt"`
}

// FollowUpInput is what an operator submits when logging a follow-up action
type FollowUpInput struct {
	Action                 string `json:"action"`
	AfterStatus            Status `json:"afterStatus,omitempty"`
	NeedsPermanentSolution bool   `json:"needsPermanentSolution"`
	Note                   string `json:"note,omitempty"`
}
