package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/passport-scheduler/internal/config"
	"github.com/example/passport-scheduler/internal/forms"
	"github.com/example/passport-scheduler/internal/profile"
	"github.com/example/passport-scheduler/internal/telemetry"
)

func newFollowupCmd() *cobra.Command {
	var requestNumber, birthDate string

	c := &cobra.Command{
		Use:   "followup",
		Short: "Register the follow-up record for a submitted application",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := telemetry.SetupLogger()

			// birth date falls back to the profile so the common case needs
			// only the request number
			if birthDate == "" {
				prof, err := profile.Load(cfg.ProfilePath)
				if err != nil {
					return err
				}
				birthDate = prof.BirthDate()
			}

			client := newPassportClient(cfg, log)
			fu := &forms.Followup{Client: client, Log: log}

			res, err := fu.Create(context.Background(), requestNumber, birthDate)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "follow-up registered: request=%s birth_date=%s\n",
				res.RequestNumber, res.BirthDate)
			return nil
		},
	}

	c.Flags().StringVar(&requestNumber, "request-number", "", "request number from the submitted form")
	c.Flags().StringVar(&birthDate, "birth-date", "", "applicant birth date (default: from profile)")
	_ = c.MarkFlagRequired("request-number")
	return c
}
