package forms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/passport-scheduler/internal/captcha"
	"github.com/example/passport-scheduler/internal/domain/appointment"
	"github.com/example/passport-scheduler/internal/passport"
	"github.com/example/passport-scheduler/internal/profile"
)

// MissingDependencyError means a stage was invoked without an identifier a
// previous stage should have produced. The workflow never substitutes a
// default for it.
type MissingDependencyError struct {
	Stage string
	Field string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s stage is missing required input %q", e.Stage, e.Field)
}

// SubmissionResult is what the submit endpoint answered. RequestNumber is
// the identifier the follow-up stage needs; Raw keeps the full snapshot for
// the run record.
type SubmissionResult struct {
	RequestNumber string
	Raw           map[string]any
}

// Submitter posts the application form referencing a booked appointment.
type Submitter struct {
	Client  *passport.Client
	Captcha *captcha.Coordinator

	LocationToken        string
	EnrollmentCenterCode string

	Log *slog.Logger
}

// Submit assembles the form payload (profile fields, uploaded piece
// references, enrollment center, booked appointment) and posts it through
// the captcha coordinator.
func (s *Submitter) Submit(ctx context.Context, prof *profile.Profile, pieces []Piece, appt appointment.Result) (SubmissionResult, error) {
	if appt.ID == 0 {
		return SubmissionResult{}, &MissingDependencyError{Stage: "submission", Field: "appointment.id"}
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	payload := make(map[string]any, len(prof.FormData)+3)
	for k, v := range prof.FormData {
		payload[k] = v
	}
	payload["pieces"] = pieces
	// sic: the service's own field name
	payload["enrollementCenterCode"] = s.EnrollmentCenterCode
	payload["appointment"] = appt

	var raw map[string]any
	err := s.Captcha.Do(ctx, func(ctx context.Context, sol captcha.Solution) error {
		r, err := s.Client.SubmitForm(ctx, payload, s.LocationToken, sol)
		if err != nil {
			return err
		}
		raw = r
		return nil
	})
	if err != nil {
		return SubmissionResult{}, err
	}

	number, _ := raw["requestNumber"].(string)
	log.Info("form submitted", "request_number", number)
	return SubmissionResult{RequestNumber: number, Raw: raw}, nil
}
