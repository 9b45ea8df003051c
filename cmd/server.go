package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/passport-scheduler/internal/auth"
	"github.com/example/passport-scheduler/internal/config"
	"github.com/example/passport-scheduler/internal/db"
	"github.com/example/passport-scheduler/internal/migrate"
	"github.com/example/passport-scheduler/internal/runs"
	"github.com/example/passport-scheduler/internal/telemetry"
	"github.com/example/passport-scheduler/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the run-history status UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.WebFromEnv()
			if err != nil {
				return err
			}
			log := telemetry.SetupLogger()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			ws := &web.Server{
				Auth: auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey),
				Runs: runs.NewStore(d),
				Log:  log,
			}
			log.Info("serving status UI", "addr", cfg.ListenAddr)
			return web.Start(ctx, cfg.ListenAddr, ws.Routes())
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
