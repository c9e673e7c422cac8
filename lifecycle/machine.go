// Package lifecycle moves reports through their statuses. Every change is
// validated, authorized and checked against the transition table before the
// store is written, and the status update commits together with its audit
// entry.
package lifecycle

import "github.com/linesmerrill/traffic-portal-api/models"

// transitions lists the statuses reachable from each status. Terminal
// statuses have no entry.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:    {models.StatusVerified, models.StatusAssigned, models.StatusRejected},
	models.StatusVerified:   {models.StatusAssigned, models.StatusRejected},
	models.StatusAssigned:   {models.StatusAssigned, models.StatusInProgress, models.StatusResolved},
	models.StatusInProgress: {models.StatusResolved},
}

// CanTransition reports whether a report may move from one status to another
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the statuses reachable from s
func Next(s models.Status) []models.Status {
	return append([]models.Status(nil), transitions[s]...)
}

// DerivePriority returns the dispatch priority of a report. The urgent flag
// forces Emergency; otherwise priority mirrors severity.
func DerivePriority(severity models.Severity, urgent bool) models.Severity {
	if urgent {
		return models.SeverityEmergency
	}
	return severity
}
