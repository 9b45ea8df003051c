// Package captcha implements the challenge-and-retry sub-protocol guarding
// the service's write operations. Solving itself is delegated to a human.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Challenge is one server-issued puzzle. It lives for a single
// challenge-solve-consume cycle and is discarded afterwards whether or not
// the solution was accepted.
type Challenge struct {
	ID    string
	Image []byte
}

// Solution pairs the challenge id with the text a human typed for it.
// Consumed exactly once by the next request attempt.
type Solution struct {
	ID   string
	Text string
}

// Solver presents a challenge to a human and blocks until they answer.
// No timeout: the operation is human-paced.
type Solver interface {
	Solve(ctx context.Context, ch Challenge) (Solution, error)
}

// RejectedError is returned by the request layer when the service turned an
// operation down for a wrong or missing captcha. Only the Coordinator
// retries it.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("captcha rejected (HTTP %d): %s", e.StatusCode, e.Body)
}

// IsRejected reports whether err is a captcha rejection.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// ErrExhausted is returned after the configured number of challenges were
// all rejected.
var ErrExhausted = errors.New("captcha attempts exhausted")

// Coordinator wraps any operation that may be rejected for a wrong captcha.
// Booking and form submission share it so the challenge state machine is not
// duplicated per operation.
type Coordinator struct {
	// Fetch obtains a fresh challenge. A rejected challenge is never reused.
	Fetch func(ctx context.Context) (Challenge, error)

	Solver      Solver
	MaxAttempts int

	Log *slog.Logger
}

// Do runs op with a solved captcha attached, fetching a fresh challenge and
// retrying while the service rejects the solution, up to MaxAttempts. Every
// non-captcha failure propagates unchanged.
func (c *Coordinator) Do(ctx context.Context, op func(ctx context.Context, sol Solution) error) error {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 3
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		ch, err := c.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetch captcha challenge: %w", err)
		}
		sol, err := c.Solver.Solve(ctx, ch)
		if err != nil {
			return fmt.Errorf("solve captcha: %w", err)
		}

		err = op(ctx, sol)
		if err == nil {
			return nil
		}
		if !IsRejected(err) {
			return err
		}
		log.Warn("captcha rejected, fetching a new challenge",
			"attempt", attempt, "max_attempts", attempts, "challenge_id", ch.ID)
	}
	return ErrExhausted
}
