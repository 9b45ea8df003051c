package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/passport-scheduler/internal/config"
	"github.com/example/passport-scheduler/internal/domain/appointment"
	"github.com/example/passport-scheduler/internal/telemetry"
)

func newSlotsCmd() *cobra.Command {
	var date string

	c := &cobra.Command{
		Use:   "slots",
		Short: "Query available time slots for a date (default: tomorrow)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := telemetry.SetupLogger()

			target := time.Now().AddDate(0, 0, 1)
			if date != "" {
				if target, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
				}
			}

			ctx := context.Background()
			client := newPassportClient(cfg, log)

			if cal, err := client.Calendar(ctx, cfg.LocationID); err != nil {
				log.Warn("calendar query failed", "err", err)
			} else if excluded, reason := cal.Excludes(target); excluded {
				fmt.Fprintf(os.Stdout, "calendar excludes %s: %s\n", target.Format("2006-01-02"), reason)
			}

			slots, err := client.TimeSlots(ctx, cfg.LocationID, target)
			if err != nil {
				return err
			}

			window := appointment.Window{FromHour: cfg.WindowFromHour, ToHour: cfg.WindowToHour}
			open := 0
			for _, s := range slots {
				mark := "  "
				hour, _, ok := appointment.ParseSlotTime(s.Name)
				if s.Status && ok && window.Contains(hour) {
					mark = "* "
					open++
				}
				fmt.Fprintf(os.Stdout, "%s%-8s available=%-5t capacity=%d\n", mark, s.Name, s.Status, s.Capacity)
			}
			fmt.Fprintf(os.Stdout, "%d slot(s), %d bookable in window %d-%d\n",
				len(slots), open, window.FromHour, window.ToHour)
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "date to query YYYY-MM-DD")
	return c
}
