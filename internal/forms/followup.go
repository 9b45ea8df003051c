package forms

import (
	"context"
	"log/slog"

	"github.com/example/passport-scheduler/internal/passport"
)

// FollowupResult carries the pair the applicant must keep to print the form
// later, plus whatever the endpoint answered.
type FollowupResult struct {
	RequestNumber string
	BirthDate     string
	Raw           any
}

// Followup registers the follow-up record for a submitted form.
type Followup struct {
	Client *passport.Client
	Log    *slog.Logger
}

// Create registers the follow-up. Both inputs are required; an absent one
// fails fast before any request is issued.
func (f *Followup) Create(ctx context.Context, requestNumber, birthDate string) (FollowupResult, error) {
	if requestNumber == "" {
		return FollowupResult{}, &MissingDependencyError{Stage: "followup", Field: "requestNumber"}
	}
	if birthDate == "" {
		return FollowupResult{}, &MissingDependencyError{Stage: "followup", Field: "birthDate"}
	}
	log := f.Log
	if log == nil {
		log = slog.Default()
	}

	raw, err := f.Client.CreateFollowup(ctx, requestNumber, birthDate)
	if err != nil {
		return FollowupResult{}, err
	}
	log.Info("follow-up registered", "request_number", requestNumber)
	return FollowupResult{
		RequestNumber: requestNumber,
		BirthDate:     birthDate,
		Raw:           raw,
	}, nil
}
