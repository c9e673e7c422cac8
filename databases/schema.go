package databases

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

var schema = []struct {
	table string
	ddl   string
}{
	{"reports", `
	CREATE TABLE IF NOT EXISTS reports(
		id CHAR(36) NOT NULL,
		code VARCHAR(32) NOT NULL,
		kind ENUM('road_condition', 'incident', 'follow_up', 'feedback') NOT NULL,
		category VARCHAR(128) NOT NULL,
		severity ENUM('Low', 'Medium', 'High', 'Emergency') NOT NULL,
		urgent BOOL NOT NULL DEFAULT false,
		priority ENUM('Low', 'Medium', 'High', 'Emergency') NOT NULL,
		locality VARCHAR(128) NOT NULL,
		location VARCHAR(255) NOT NULL,
		lat DOUBLE,
		lng DOUBLE,
		status ENUM('Pending', 'Verified', 'Assigned', 'In Progress', 'Resolved', 'Rejected') NOT NULL,
		reporter_id CHAR(36) NOT NULL,
		reporter_role VARCHAR(16) NOT NULL,
		assignee_id CHAR(36),
		verifier_id CHAR(36),
		linked_report_id CHAR(36),
		description TEXT NOT NULL,
		notes TEXT,
		resolution_notes TEXT,
		rejection_reason TEXT,
		evidence_ref VARCHAR(512),
		reported_at DATETIME NOT NULL,
		occurred_on DATETIME,
		resolved_at DATETIME,
		estimated_completion DATETIME,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		UNIQUE INDEX code_index (code),
		INDEX reported_at_index (reported_at),
		INDEX locality_index (locality),
		INDEX status_index (status)
	)`},
	{"report_logs", `
	CREATE TABLE IF NOT EXISTS report_logs(
		id CHAR(36) NOT NULL,
		report_id CHAR(36) NOT NULL,
		type VARCHAR(16) NOT NULL,
		actor_id CHAR(36) NOT NULL,
		assigner_id CHAR(36),
		assignee_id CHAR(36),
		action VARCHAR(255) NOT NULL,
		before_status VARCHAR(16),
		after_status VARCHAR(16),
		needs_permanent_solution BOOL NOT NULL DEFAULT false,
		note TEXT,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (id),
		INDEX report_id_index (report_id)
	)`},
	{"sequences", `
	CREATE TABLE IF NOT EXISTS sequences(
		name VARCHAR(32) NOT NULL,
		seq BIGINT NOT NULL,
		PRIMARY KEY (name)
	)`},
	{"users", `
	CREATE TABLE IF NOT EXISTS users(
		id CHAR(36) NOT NULL,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('resident', 'tanod', 'employee', 'admin') NOT NULL,
		active BOOL NOT NULL DEFAULT true,
		PRIMARY KEY (id),
		UNIQUE INDEX email_index (email)
	)`},
}

// InitSchema creates the portal tables if they don't exist
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.table, err)
		}
		zap.S().Debugw("table created/verified", "table", t.table)
	}
	return nil
}
