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

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload",
		Short: "Upload the profile's documents and print their references",
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
			if len(prof.Documents) == 0 {
				return fmt.Errorf("profile lists no documents")
			}

			client := newPassportClient(cfg, log)
			uploader := &forms.Uploader{Client: client, Log: log}

			pieces, err := uploader.UploadAll(context.Background(), prof.Documents)
			if err != nil {
				return err
			}
			for _, p := range pieces {
				fmt.Fprintf(os.Stdout, "%-20s %s\n", p.Name, p.Value)
			}
			return nil
		},
	}
}
