package cmd

import (
	"log/slog"

	"github.com/example/passport-scheduler/internal/captcha"
	"github.com/example/passport-scheduler/internal/config"
	"github.com/example/passport-scheduler/internal/passport"
)

func newPassportClient(cfg config.Config, log *slog.Logger) *passport.Client {
	return passport.NewClient(passport.ClientOptions{
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		Logger:     log,
	})
}

func newCoordinator(client *passport.Client, cfg config.Config, log *slog.Logger) *captcha.Coordinator {
	return &captcha.Coordinator{
		Fetch:       client.CaptchaChallenge,
		Solver:      &captcha.StdinSolver{},
		MaxAttempts: cfg.MaxCaptchaAttempts,
		Log:         log,
	}
}
