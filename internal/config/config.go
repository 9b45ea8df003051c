package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the workflow consumes from the environment.
// The applicant profile (form fields, document paths) lives in its own JSON
// file, see internal/profile.
type Config struct {
	// remote service
	BaseURL              string
	LocationID           int
	EnrollmentCenterCode string
	LocationToken        string

	// booking loop
	WindowFromHour  int
	WindowToHour    int
	PollInterval    time.Duration
	MaxPollDuration time.Duration

	// request executor
	MaxRetries int
	BaseDelay  time.Duration

	// captcha coordinator
	MaxCaptchaAttempts int

	// applicant profile
	ProfilePath string

	// optional run history store
	DatabaseURL string
}

// WebConfig extends Config with what the status UI needs.
type WebConfig struct {
	Config

	ListenAddr     string
	BaseURL        string
	CookieHashKey  []byte
	CookieBlockKey []byte
}

func FromEnv() (Config, error) {
	cfg := Config{
		BaseURL:              getenv("PASSPORT_BASE_URL", "https://emrtds.nepalpassport.gov.np/iups-api"),
		EnrollmentCenterCode: getenv("ENROLLMENT_CENTER_CODE", "DOP"),
		LocationToken:        strings.TrimSpace(os.Getenv("LOCATION_TOKEN")),
		ProfilePath:          getenv("PROFILE_PATH", "profile.json"),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}

	var err error
	if cfg.LocationID, err = intEnv("PASSPORT_LOCATION_ID", 79); err != nil {
		return Config{}, err
	}
	if cfg.WindowFromHour, err = intEnv("TARGET_WINDOW_FROM", 9); err != nil {
		return Config{}, err
	}
	if cfg.WindowToHour, err = intEnv("TARGET_WINDOW_TO", 18); err != nil {
		return Config{}, err
	}
	if cfg.WindowFromHour < 0 || cfg.WindowToHour > 23 || cfg.WindowFromHour > cfg.WindowToHour {
		return Config{}, fmt.Errorf("invalid target window %d-%d", cfg.WindowFromHour, cfg.WindowToHour)
	}

	pollSec, err := intEnv("POLL_INTERVAL_SECONDS", 1)
	if err != nil {
		return Config{}, err
	}
	if pollSec < 1 {
		return Config{}, fmt.Errorf("POLL_INTERVAL_SECONDS must be >= 1")
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second

	maxPollSec, err := intEnv("MAX_POLL_SECONDS", 3600)
	if err != nil {
		return Config{}, err
	}
	if maxPollSec < 1 {
		return Config{}, fmt.Errorf("MAX_POLL_SECONDS must be >= 1")
	}
	cfg.MaxPollDuration = time.Duration(maxPollSec) * time.Second

	if cfg.MaxRetries, err = intEnv("HTTP_MAX_RETRIES", 10); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("HTTP_MAX_RETRIES must be >= 0")
	}
	baseDelayMS, err := intEnv("HTTP_BASE_DELAY_MS", 100)
	if err != nil {
		return Config{}, err
	}
	cfg.BaseDelay = time.Duration(baseDelayMS) * time.Millisecond

	if cfg.MaxCaptchaAttempts, err = intEnv("MAX_CAPTCHA_ATTEMPTS", 3); err != nil {
		return Config{}, err
	}
	if cfg.MaxCaptchaAttempts < 1 {
		return Config{}, fmt.Errorf("MAX_CAPTCHA_ATTEMPTS must be >= 1")
	}

	return cfg, nil
}

// WebFromEnv loads the core config plus the status-UI settings. The cookie
// keys are required here rather than in FromEnv so the workflow commands run
// without them.
func WebFromEnv() (WebConfig, error) {
	core, err := FromEnv()
	if err != nil {
		return WebConfig{}, err
	}
	cfg := WebConfig{
		Config:     core,
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		BaseURL:    getenv("BASE_URL", "http://localhost:8080"),
	}
	if cfg.DatabaseURL == "" {
		return WebConfig{}, fmt.Errorf("DATABASE_URL is required for the status UI")
	}
	if cfg.CookieHashKey, err = mustB64("COOKIE_HASH_KEY"); err != nil {
		return WebConfig{}, err
	}
	if cfg.CookieBlockKey, err = mustB64("COOKIE_BLOCK_KEY"); err != nil {
		return WebConfig{}, err
	}
	return cfg, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func intEnv(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func mustB64(k string) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil, fmt.Errorf("%s is required (base64)", k)
	}
	if b, err := base64.StdEncoding.DecodeString(v); err == nil {
		return b, nil
	}
	b, err := base64.RawStdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}
