package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/passport-scheduler/internal/booking"
	"github.com/example/passport-scheduler/internal/config"
	"github.com/example/passport-scheduler/internal/db"
	"github.com/example/passport-scheduler/internal/domain/appointment"
	"github.com/example/passport-scheduler/internal/forms"
	"github.com/example/passport-scheduler/internal/migrate"
	"github.com/example/passport-scheduler/internal/profile"
	"github.com/example/passport-scheduler/internal/runs"
	"github.com/example/passport-scheduler/internal/telemetry"
	"github.com/example/passport-scheduler/internal/workflow"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full workflow: book, upload documents, submit the form, register follow-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := telemetry.SetupLogger()

			prof, err := profile.Load(cfg.ProfilePath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client := newPassportClient(cfg, log)
			coord := newCoordinator(client, cfg, log)

			runner := &workflow.Runner{
				Booker: &booking.Booker{
					Client:       client,
					Captcha:      coord,
					LocationID:   cfg.LocationID,
					Window:       appointment.Window{FromHour: cfg.WindowFromHour, ToHour: cfg.WindowToHour},
					PollInterval: cfg.PollInterval,
					MaxDuration:  cfg.MaxPollDuration,
					Log:          log,
				},
				Uploader: &forms.Uploader{Client: client, Log: log},
				Submitter: &forms.Submitter{
					Client:               client,
					Captcha:              coord,
					LocationToken:        cfg.LocationToken,
					EnrollmentCenterCode: cfg.EnrollmentCenterCode,
					Log:                  log,
				},
				Followup: &forms.Followup{Client: client, Log: log},
				Profile:  prof,
				Log:      log,
			}

			if cfg.DatabaseURL != "" {
				d, err := db.Open(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer d.Close()
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
				runner.Runs = runs.NewStore(d)
			}

			out, err := runner.Run(ctx)
			printOutcome(out)
			return err
		},
	}
}

// printOutcome reports whatever identifiers the run produced, complete or
// not. On a partial failure these are what a human needs to pick up the
// application by hand.
func printOutcome(out workflow.Outcome) {
	fmt.Fprintf(os.Stdout, "run:            %s\n", out.RunID)
	fmt.Fprintf(os.Stdout, "target date:    %s\n", out.TargetDate.Format("2006-01-02"))
	if out.AppointmentID != 0 {
		fmt.Fprintf(os.Stdout, "appointment id: %d\n", out.AppointmentID)
	}
	if out.RequestNumber != "" {
		fmt.Fprintf(os.Stdout, "request number: %s\n", out.RequestNumber)
	}
	if out.BirthDate != "" {
		fmt.Fprintf(os.Stdout, "birth date:     %s\n", out.BirthDate)
	}
}
