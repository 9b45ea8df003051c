package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/passport-scheduler/internal/captcha"
	"github.com/example/passport-scheduler/internal/domain/appointment"
	"github.com/example/passport-scheduler/internal/passport"
)

// autoSolver answers without a human in the loop.
type autoSolver struct{}

func (autoSolver) Solve(_ context.Context, ch captcha.Challenge) (captcha.Solution, error) {
	return captcha.Solution{ID: ch.ID, Text: "abc12"}, nil
}

// bookingService scripts the remote side: empty slot lists for the first
// emptyPolls queries, then one open slot, then a successful reservation.
type bookingService struct {
	emptyPolls int32
	polls      int32
	booked     int32
	rejections int32 // captcha rejections to serve before accepting
}

func (s *bookingService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendars/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"minDate":"2000-01-01","maxDate":"2099-12-31","offDates":[]}`))
	})
	mux.HandleFunc("/captcha", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"captchaId":"ch-1","captchaImage":""}`))
	})
	mux.HandleFunc("/timeslots/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&s.polls, 1)
		if n <= s.emptyPolls {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_ = json.NewEncoder(w).Encode([]appointment.Slot{
			{Name: "08:00", Status: true, Capacity: 1},
			{Name: "11:00", Status: true, Capacity: 3},
		})
	})
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&s.rejections, -1) >= 0 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorCode":"CAPTCHA_INVALID"}`))
			return
		}
		atomic.AddInt32(&s.booked, 1)
		_, _ = w.Write([]byte(`811353`))
	})
	return mux
}

func newTestBooker(t *testing.T, svc *bookingService) (*Booker, *int) {
	t.Helper()
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	client := passport.NewClient(passport.ClientOptions{BaseURL: srv.URL, BaseDelay: time.Millisecond})
	sleeps := 0
	b := &Booker{
		Client: client,
		Captcha: &captcha.Coordinator{
			Fetch:       client.CaptchaChallenge,
			Solver:      autoSolver{},
			MaxAttempts: 3,
		},
		LocationID:   79,
		Window:       appointment.Window{FromHour: 9, ToHour: 18},
		PollInterval: time.Second,
		MaxDuration:  time.Hour,
		sleep:        func(time.Duration) { sleeps++ },
	}
	return b, &sleeps
}

func TestBookReservesFirstOpenSlotInWindow(t *testing.T) {
	svc := &bookingService{emptyPolls: 2}
	b, sleeps := newTestBooker(t, svc)

	res, err := b.Book(context.Background(), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.EqualValues(t, 811353, res.ID)
	// the 08:00 slot is open but outside the window
	require.Equal(t, "11:00", res.TimeSlot)
	require.EqualValues(t, 3, svc.polls)
	require.EqualValues(t, 1, svc.booked)
	require.Equal(t, 2, *sleeps)
}

func TestBookRetriesCaptchaRejection(t *testing.T) {
	svc := &bookingService{rejections: 2}
	b, _ := newTestBooker(t, svc)

	res, err := b.Book(context.Background(), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.EqualValues(t, 811353, res.ID)
	require.EqualValues(t, 1, svc.booked)
}

func TestBookKeepsPollingAfterFailedReservation(t *testing.T) {
	// every challenge rejected: reservation attempt 1 exhausts the captcha
	// budget, the loop polls again and the script then accepts
	svc := &bookingService{rejections: 3}
	b, _ := newTestBooker(t, svc)

	res, err := b.Book(context.Background(), time.Now().AddDate(0, 0, 1))
	require.NoError(t, err)
	require.EqualValues(t, 811353, res.ID)
	require.GreaterOrEqual(t, svc.polls, int32(2))
}

func TestBookTimesOut(t *testing.T) {
	svc := &bookingService{emptyPolls: 1 << 30}
	b, _ := newTestBooker(t, svc)

	// fake clock: each poll iteration costs one PollInterval
	clock := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	b.MaxDuration = 5 * time.Second
	b.now = func() time.Time { return clock }
	b.sleep = func(d time.Duration) { clock = clock.Add(d) }

	_, err := b.Book(context.Background(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrTimedOut)
	require.EqualValues(t, 0, svc.booked)
	require.EqualValues(t, 5, svc.polls)
}

func TestBookHonoursContextCancel(t *testing.T) {
	svc := &bookingService{emptyPolls: 1 << 30}
	b, _ := newTestBooker(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	polls := 0
	b.sleep = func(time.Duration) {
		polls++
		if polls == 3 {
			cancel()
		}
	}

	_, err := b.Book(ctx, time.Now().AddDate(0, 0, 1))
	require.ErrorIs(t, err, context.Canceled)
}
