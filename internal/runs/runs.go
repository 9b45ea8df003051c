// Package runs persists workflow run history: one row per run, one row per
// stage attempt. The store is optional; a nil *Store disables persistence.
package runs

import (
	"context"
	"time"

	"github.com/example/passport-scheduler/internal/db"
)

type Run struct {
	ID            string
	LocationID    int
	TargetDate    time.Time
	Status        string
	AppointmentID *int64
	RequestNumber *string
	LastStage     *string
	LastError     *string
	StartedAt     time.Time
	FinishedAt    *time.Time
}

type StageAttempt struct {
	RunID     string
	Stage     string
	Success   bool
	Detail    string
	CreatedAt time.Time
}

type Store struct{ db *db.DB }

func NewStore(d *db.DB) *Store { return &Store{db: d} }

// Begin records a freshly started run.
func (s *Store) Begin(ctx context.Context, id string, locationID int, targetDate time.Time) error {
	if s == nil {
		return nil
	}
	return s.db.Exec(ctx, `
INSERT INTO runs(id, location_id, target_date, status)
VALUES ($1, $2, $3, 'running')`, id, locationID, targetDate)
}

// RecordStage appends one stage attempt to the run's history.
func (s *Store) RecordStage(ctx context.Context, runID, stage string, success bool, detail string) error {
	if s == nil {
		return nil
	}
	if err := s.db.Exec(ctx, `
INSERT INTO run_stages(run_id, stage, success, detail)
VALUES ($1, $2, $3, $4)`, runID, stage, success, detail); err != nil {
		return err
	}
	return s.db.Exec(ctx, `UPDATE runs SET last_stage=$2 WHERE id=$1`, runID, stage)
}

// Complete marks the run finished and stores the identifiers the applicant
// needs for manual follow-up.
func (s *Store) Complete(ctx context.Context, runID string, appointmentID int64, requestNumber string) error {
	if s == nil {
		return nil
	}
	return s.db.Exec(ctx, `
UPDATE runs
SET status='completed', appointment_id=$2, request_number=$3, last_error=NULL, finished_at=now()
WHERE id=$1`, runID, appointmentID, requestNumber)
}

// Fail marks the run failed at a stage. Identifiers produced by earlier
// stages are kept: partial progress is surfaced, not rolled back.
func (s *Store) Fail(ctx context.Context, runID, stage, cause string, appointmentID int64, requestNumber string) error {
	if s == nil {
		return nil
	}
	var apptID *int64
	if appointmentID != 0 {
		apptID = &appointmentID
	}
	var reqNum *string
	if requestNumber != "" {
		reqNum = &requestNumber
	}
	return s.db.Exec(ctx, `
UPDATE runs
SET status='failed', last_stage=$2, last_error=$3, appointment_id=COALESCE($4, appointment_id),
    request_number=COALESCE($5, request_number), finished_at=now()
WHERE id=$1`, runID, stage, cause, apptID, reqNum)
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, location_id, target_date, status, appointment_id, request_number, last_stage, last_error, started_at, finished_at
FROM runs
ORDER BY started_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.LocationID, &r.TargetDate, &r.Status,
			&r.AppointmentID, &r.RequestNumber, &r.LastStage, &r.LastError,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRow(ctx, `
SELECT id, location_id, target_date, status, appointment_id, request_number, last_stage, last_error, started_at, finished_at
FROM runs
WHERE id=$1`, id).Scan(&r.ID, &r.LocationID, &r.TargetDate, &r.Status,
		&r.AppointmentID, &r.RequestNumber, &r.LastStage, &r.LastError,
		&r.StartedAt, &r.FinishedAt)
	if err != nil {
		return Run{}, db.WrapNotFound(err)
	}
	return r, nil
}

// Stages returns a run's stage attempts in order.
func (s *Store) Stages(ctx context.Context, runID string) ([]StageAttempt, error) {
	rows, err := s.db.Query(ctx, `
SELECT run_id, stage, success, detail, created_at
FROM run_stages
WHERE run_id=$1
ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StageAttempt
	for rows.Next() {
		var a StageAttempt
		if err := rows.Scan(&a.RunID, &a.Stage, &a.Success, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
