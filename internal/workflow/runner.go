// Package workflow sequences the stages of one automation run: book an
// appointment, upload documents, submit the form, register the follow-up.
// Each stage's output is threaded verbatim into the next; the runner
// transforms nothing and recovers nothing.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/passport-scheduler/internal/booking"
	"github.com/example/passport-scheduler/internal/forms"
	"github.com/example/passport-scheduler/internal/profile"
	"github.com/example/passport-scheduler/internal/runs"
	"github.com/example/passport-scheduler/internal/telemetry"
)

// Outcome is what a run produced, possibly partially: on a stage failure the
// identifiers of the stages that did succeed are still populated so a human
// can intervene on the partial state.
type Outcome struct {
	RunID         string
	TargetDate    time.Time
	AppointmentID int64
	RequestNumber string
	BirthDate     string
}

// Runner owns one workflow run end to end.
type Runner struct {
	Booker    *booking.Booker
	Uploader  *forms.Uploader
	Submitter *forms.Submitter
	Followup  *forms.Followup
	Profile   *profile.Profile

	// Runs may be nil; then no history is kept.
	Runs *runs.Store
	Log  *slog.Logger

	// test seam
	now func() time.Time
}

// Run executes the full pipeline against tomorrow's date. Any stage failure
// ends the run; nothing already done is rolled back.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	now := r.now
	if now == nil {
		now = time.Now
	}
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	out := Outcome{RunID: uuid.NewString()}
	log = telemetry.WithRunID(log, out.RunID)

	// fixed one-day-ahead policy
	today := now()
	out.TargetDate = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()).AddDate(0, 0, 1)
	log.Info("starting run", "target_date", out.TargetDate.Format("2006-01-02"), "location_id", r.Booker.LocationID)

	if err := r.Runs.Begin(ctx, out.RunID, r.Booker.LocationID, out.TargetDate); err != nil {
		log.Warn("run history unavailable", "err", err)
	}

	appt, err := r.Booker.Book(ctx, out.TargetDate)
	if err != nil {
		return r.fail(ctx, log, out, "booking", err)
	}
	out.AppointmentID = appt.ID
	r.recordStage(ctx, log, out.RunID, "booking", true, fmt.Sprintf("appointment %d at %s", appt.ID, appt.TimeSlot))

	pieces, err := r.Uploader.UploadAll(ctx, r.Profile.Documents)
	if err != nil {
		return r.fail(ctx, log, out, "upload", err)
	}
	r.recordStage(ctx, log, out.RunID, "upload", true, fmt.Sprintf("%d document(s)", len(pieces)))

	sub, err := r.Submitter.Submit(ctx, r.Profile, pieces, appt)
	if err != nil {
		return r.fail(ctx, log, out, "submission", err)
	}
	if sub.RequestNumber == "" {
		return r.fail(ctx, log, out, "submission",
			&forms.MissingDependencyError{Stage: "followup", Field: "requestNumber"})
	}
	out.RequestNumber = sub.RequestNumber
	r.recordStage(ctx, log, out.RunID, "submission", true, "request "+sub.RequestNumber)

	fu, err := r.Followup.Create(ctx, sub.RequestNumber, r.Profile.BirthDate())
	if err != nil {
		return r.fail(ctx, log, out, "followup", err)
	}
	out.BirthDate = fu.BirthDate
	r.recordStage(ctx, log, out.RunID, "followup", true, "registered")

	if err := r.Runs.Complete(ctx, out.RunID, out.AppointmentID, out.RequestNumber); err != nil {
		log.Warn("could not record run completion", "err", err)
	}
	log.Info("run completed",
		"appointment_id", out.AppointmentID,
		"request_number", out.RequestNumber,
		"birth_date", out.BirthDate)
	return out, nil
}

func (r *Runner) recordStage(ctx context.Context, log *slog.Logger, runID, stage string, success bool, detail string) {
	if err := r.Runs.RecordStage(ctx, runID, stage, success, detail); err != nil {
		log.Warn("could not record stage attempt", "stage", stage, "err", err)
	}
}

func (r *Runner) fail(ctx context.Context, log *slog.Logger, out Outcome, stage string, cause error) (Outcome, error) {
	r.recordStage(ctx, log, out.RunID, stage, false, cause.Error())
	if err := r.Runs.Fail(ctx, out.RunID, stage, cause.Error(), out.AppointmentID, out.RequestNumber); err != nil {
		log.Warn("could not record run failure", "err", err)
	}
	log.Error("run failed", "stage", stage, "err", cause,
		"appointment_id", out.AppointmentID, "request_number", out.RequestNumber)
	return out, fmt.Errorf("%s stage: %w", stage, cause)
}
