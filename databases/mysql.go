package databases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/config"
	"github.com/linesmerrill/traffic-portal-api/filters"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// pingMaxWait bounds how long Connect waits for the server to come up
const pingMaxWait = 60 * time.Second

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Connect opens the MySQL pool described by MYSQL_DSN and waits for it to
// answer a ping, backing off exponentially.
func Connect(conf *config.Config) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(conf.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// rows affected must count matched rows for conditional updates
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	if conf.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(conf.DBMaxOpenConns)
	}
	if conf.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(conf.DBMaxIdleConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	deadline := time.Now().Add(pingMaxWait)
	wait := time.Second
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr := db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		if time.Now().After(deadline) {
			db.Close()
			return nil, fmt.Errorf("database ping timeout after %s: %w", pingMaxWait, pingErr)
		}
		zap.S().Warnw("database not ready, retrying", "wait", wait, "error", pingErr)
		time.Sleep(wait)
		if wait < 8*time.Second {
			wait *= 2
		}
	}
	return db, nil
}

type sqlReportStore struct {
	db *sql.DB
	q  querier
}

// NewSQLReportStore returns a ReportStore over the reports, report_logs and
// sequences tables
func NewSQLReportStore(db *sql.DB) ReportStore {
	return &sqlReportStore{db: db, q: db}
}

const reportColumns = "id, code, kind, category, severity, urgent, priority, locality, location, lat, lng, " +
	"status, reporter_id, reporter_role, assignee_id, verifier_id, linked_report_id, description, notes, " +
	"resolution_notes, rejection_reason, evidence_ref, reported_at, occurred_on, resolved_at, " +
	"estimated_completion, updated_at"

const logColumns = "id, report_id, type, actor_id, assigner_id, assignee_id, action, before_status, " +
	"after_status, needs_permanent_solution, note, created_at"

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(s scanner) (models.Report, error) {
	var r models.Report
	var lat, lng sql.NullFloat64
	var assignee, verifier, linked, notes, resolution, rejection, evidence sql.NullString
	var occurred, resolved, estimated sql.NullTime
	err := s.Scan(&r.ID, &r.Code, &r.Kind, &r.Category, &r.Severity, &r.Urgent, &r.Priority,
		&r.Locality, &r.Location, &lat, &lng, &r.Status, &r.ReporterID, &r.ReporterRole,
		&assignee, &verifier, &linked, &r.Description, &notes, &resolution, &rejection, &evidence,
		&r.ReportedAt, &occurred, &resolved, &estimated, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if lat.Valid && lng.Valid {
		r.Coordinates = &models.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	r.AssigneeID = assignee.String
	r.VerifierID = verifier.String
	r.LinkedReportID = linked.String
	r.Notes = notes.String
	r.ResolutionNotes = resolution.String
	r.RejectionReason = rejection.String
	r.EvidenceRef = evidence.String
	r.OccurredOn = timePtr(occurred)
	r.ResolvedAt = timePtr(resolved)
	r.EstimatedCompletion = timePtr(estimated)
	return r, nil
}

func (s *sqlReportStore) Find(ctx context.Context, c filters.Criteria, page *Paginate) ([]models.Report, error) {
	p := c.Predicate()
	query := "SELECT " + reportColumns + " FROM reports"
	if !p.Empty() {
		query += " WHERE " + p.Where()
	}
	query += " ORDER BY reported_at DESC, id ASC"
	args := p.Args
	if page != nil {
		query += " LIMIT ? OFFSET ?"
		args = append(append([]interface{}{}, args...), page.Limit, page.Skip())
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("find reports", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, storeErr("scan report", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("find reports", err)
	}
	return reports, nil
}

func (s *sqlReportStore) FindOne(ctx context.Context, id string) (*models.Report, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find report", err)
	}
	return &r, nil
}

func (s *sqlReportStore) Insert(ctx context.Context, r models.Report) (string, error) {
	var lat, lng interface{}
	if r.Coordinates != nil {
		lat, lng = r.Coordinates.Lat, r.Coordinates.Lng
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO reports ("+reportColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.Code, string(r.Kind), r.Category, string(r.Severity), r.Urgent, string(r.Priority),
		r.Locality, r.Location, lat, lng, string(r.Status), r.ReporterID, string(r.ReporterRole),
		nullString(r.AssigneeID), nullString(r.VerifierID), nullString(r.LinkedReportID), r.Description,
		nullString(r.Notes), nullString(r.ResolutionNotes), nullString(r.RejectionReason), nullString(r.EvidenceRef),
		r.ReportedAt, r.OccurredOn, r.ResolvedAt, r.EstimatedCompletion, r.UpdatedAt)
	if err != nil {
		return "", storeErr("insert report", err)
	}
	return r.ID, nil
}

func (s *sqlReportStore) Update(ctx context.Context, id string, expected models.Status, u models.ReportUpdate) (bool, error) {
	sets := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{string(u.Status), u.UpdatedAt}
	if u.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, *u.AssigneeID)
	}
	if u.VerifierID != nil {
		sets = append(sets, "verifier_id = ?")
		args = append(args, *u.VerifierID)
	}
	if u.ResolutionNotes != nil {
		sets = append(sets, "resolution_notes = ?")
		args = append(args, *u.ResolutionNotes)
	}
	if u.RejectionReason != nil {
		sets = append(sets, "rejection_reason = ?")
		args = append(args, *u.RejectionReason)
	}
	if u.ResolvedAt != nil {
		sets = append(sets, "resolved_at = ?")
		args = append(args, *u.ResolvedAt)
	}
	args = append(args, id, string(expected))

	res, err := s.q.ExecContext(ctx, "UPDATE reports SET "+strings.Join(sets, ", ")+" WHERE id = ? AND status = ?", args...)
	if err != nil {
		return false, storeErr("update report", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("update report", err)
	}
	return n > 0, nil
}

func (s *sqlReportStore) AppendLog(ctx context.Context, e models.FollowUpEntry) (string, error) {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO report_logs ("+logColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.ReportID, string(e.Type), e.ActorID, nullString(e.AssignerID), nullString(e.AssigneeID),
		e.Action, nullString(string(e.BeforeStatus)), nullString(string(e.AfterStatus)),
		e.NeedsPermanentSolution, nullString(e.Note), e.CreatedAt)
	if err != nil {
		return "", storeErr("append log", err)
	}
	return e.ID, nil
}

func (s *sqlReportStore) Logs(ctx context.Context, reportID string) ([]models.FollowUpEntry, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+logColumns+" FROM report_logs WHERE report_id = ? ORDER BY created_at ASC, id ASC", reportID)
	if err != nil {
		return nil, storeErr("find logs", err)
	}
	defer rows.Close()

	entries := []models.FollowUpEntry{}
	for rows.Next() {
		var e models.FollowUpEntry
		var assigner, assignee, before, after, note sql.NullString
		if err := rows.Scan(&e.ID, &e.ReportID, &e.Type, &e.ActorID, &assigner, &assignee, &e.Action,
			&before, &after, &e.NeedsPermanentSolution, &note, &e.CreatedAt); err != nil {
			return nil, storeErr("scan log", err)
		}
		e.AssignerID = assigner.String
		e.AssigneeID = assignee.String
		e.BeforeStatus = models.Status(before.String)
		e.AfterStatus = models.Status(after.String)
		e.Note = note.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("find logs", err)
	}
	return entries, nil
}

// NextSequence bumps the named counter. LAST_INSERT_ID(expr) makes the new
// value visible to this connection without a second read.
func (s *sqlReportStore) NextSequence(ctx context.Context, key string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		"INSERT INTO sequences (name, seq) VALUES (?, LAST_INSERT_ID(1)) ON DUPLICATE KEY UPDATE seq = LAST_INSERT_ID(seq + 1)", key)
	if err != nil {
		return 0, storeErr("next sequence", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("next sequence", err)
	}
	return seq, nil
}

func (s *sqlReportStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ReportStore) error) error {
	if s.db == nil {
		// already bound to a transaction
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	if err := fn(ctx, &sqlReportStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.S().Errorw("failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
