// Package booking polls a location for open slots and reserves the first
// one inside the target window, bounded by a wall-clock budget.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/passport-scheduler/internal/captcha"
	"github.com/example/passport-scheduler/internal/domain/appointment"
	"github.com/example/passport-scheduler/internal/passport"
)

// ErrTimedOut is returned when the polling budget ran out with no
// reservation made.
var ErrTimedOut = errors.New("booking timed out")

// Booker drives the poll-filter-reserve loop. Fields are set by the caller,
// zero clock hooks default to the real clock.
type Booker struct {
	Client  *passport.Client
	Captcha *captcha.Coordinator

	LocationID   int
	Window       appointment.Window
	PollInterval time.Duration
	MaxDuration  time.Duration

	Log *slog.Logger

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

// Book polls until a slot on targetDate is reserved or MaxDuration elapses.
// A failed reservation attempt on one slot never aborts the loop: the next
// poll may surface a different slot.
func (b *Booker) Book(ctx context.Context, targetDate time.Time) (appointment.Result, error) {
	now := b.now
	if now == nil {
		now = time.Now
	}
	sleep := b.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	log := b.Log
	if log == nil {
		log = slog.Default()
	}

	b.precheckCalendar(ctx, log, targetDate)

	log.Info("polling for open slots",
		"location_id", b.LocationID,
		"date", targetDate.Format("2006-01-02"),
		"window", fmt.Sprintf("%d-%d", b.Window.FromHour, b.Window.ToHour),
		"poll_interval", b.PollInterval,
		"max_duration", b.MaxDuration)

	start := now()
	for attempt := 1; now().Sub(start) < b.MaxDuration; attempt++ {
		if err := ctx.Err(); err != nil {
			return appointment.Result{}, err
		}

		slots, err := b.Client.TimeSlots(ctx, b.LocationID, targetDate)
		if err != nil {
			log.Debug("slot query failed", "attempt", attempt, "err", err)
		} else if open := appointment.FilterAvailable(slots, b.Window); len(open) > 0 {
			slot := open[0]
			log.Info("open slot found",
				"attempt", attempt, "open_slots", len(open),
				"slot", slot.Name, "capacity", slot.Capacity)

			res, err := b.reserve(ctx, targetDate, slot)
			if err == nil {
				log.Info("appointment booked", "appointment_id", res.ID, "slot", res.TimeSlot)
				return res, nil
			}
			log.Warn("reservation failed, continuing to poll", "slot", slot.Name, "err", err)
		}

		sleep(b.PollInterval)
		if attempt%100 == 0 {
			log.Info("still polling", "attempt", attempt, "elapsed", now().Sub(start).Round(time.Second))
		}
	}
	return appointment.Result{}, fmt.Errorf("%w after %s", ErrTimedOut, b.MaxDuration)
}

// precheckCalendar sanity-checks the target date against the published
// calendar. The per-slot query is authoritative, so a mismatch or a failure
// here only warns.
func (b *Booker) precheckCalendar(ctx context.Context, log *slog.Logger, targetDate time.Time) {
	cal, err := b.Client.Calendar(ctx, b.LocationID)
	if err != nil {
		log.Warn("calendar pre-check failed, polling anyway", "err", err)
		return
	}
	if excluded, reason := cal.Excludes(targetDate); excluded {
		log.Warn("calendar excludes target date, polling anyway",
			"date", targetDate.Format("2006-01-02"), "reason", reason)
		return
	}
	log.Info("target date inside published calendar", "date", targetDate.Format("2006-01-02"))
}

func (b *Booker) reserve(ctx context.Context, targetDate time.Time, slot appointment.Slot) (appointment.Result, error) {
	req := appointment.NewRequest(targetDate, slot, b.LocationID)
	var res appointment.Result
	err := b.Captcha.Do(ctx, func(ctx context.Context, sol captcha.Solution) error {
		r, err := b.Client.CreateAppointment(ctx, req, sol)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return appointment.Result{}, err
	}
	return res, nil
}
