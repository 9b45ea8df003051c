package passport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/example/passport-scheduler/internal/captcha"
)

// RequestSpec is one logical call, fully assembled up front so every attempt
// sends identical bytes.
type RequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string

	// Body is the JSON payload, nil for body-less requests.
	Body []byte

	// Multipart pieces for the scan upload; when Files is non-empty the
	// request is sent as multipart/form-data and Body is ignored.
	Files  []FilePart
	Fields map[string]string
}

// FilePart is one file attachment of a multipart request.
type FilePart struct {
	Param       string
	FileName    string
	ContentType string
	Content     []byte
}

// Response is what a successful execution yields.
type Response struct {
	StatusCode int
	Body       []byte
}

// ExecutorConfig bounds one logical call: MaxRetries retries after the
// initial attempt, exponential backoff starting at BaseDelay.
type ExecutorConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Executor issues one logical HTTP call with classification-aware retry.
//
// Transient connection failures and HTTP 429 are retried with exponential
// backoff (BaseDelay * 2^attempt). A 400 carrying a captcha signal surfaces
// immediately as *captcha.RejectedError so the coordinator can own that
// retry. Every other 4xx/5xx surfaces immediately as *RequestError.
type Executor struct {
	cfg ExecutorConfig
	log *slog.Logger

	// newClient is called once per attempt: no connection state survives a
	// retry, which rules out stale sessions as a retry cause.
	newClient func() *resty.Client
	sleep     func(time.Duration)
}

func NewExecutor(cfg ExecutorConfig, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		cfg:       cfg,
		log:       log,
		newClient: newBrowserClient,
		sleep:     time.Sleep,
	}
}

// newBrowserClient builds the per-attempt transport. Keep-alives are off:
// each attempt negotiates a fresh connection.
func newBrowserClient() *resty.Client {
	transport := &http.Transport{DisableKeepAlives: true}
	c := resty.New()
	c.SetTimeout(30 * time.Second)
	c.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(transport)
	return c
}

// Do executes the spec, retrying only the failure classes the executor is
// responsible for. It fails with ErrRetryExhausted once the attempt budget
// is spent.
func (e *Executor) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := e.attempt(ctx, spec)
		if err != nil {
			// transport-level: timeouts, resets, TLS failures
			lastErr = err
			if attempt < e.cfg.MaxRetries {
				e.backoff(attempt, "connection error", err)
			}
			continue
		}

		switch {
		case resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &RequestError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
			if attempt < e.cfg.MaxRetries {
				e.backoff(attempt, "rate limited", nil)
			}
			continue
		case resp.StatusCode == http.StatusBadRequest && looksLikeCaptchaRejection(resp.Body):
			return nil, &captcha.RejectedError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
		default:
			return nil, &RequestError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
		}
	}
	return nil, fmt.Errorf("%w: %s %s: %v", ErrRetryExhausted, spec.Method, spec.URL, lastErr)
}

func (e *Executor) attempt(ctx context.Context, spec RequestSpec) (*Response, error) {
	client := e.newClient()
	req := client.R().SetContext(ctx)

	for k, v := range spec.Headers {
		req.SetHeader(k, v)
	}

	switch {
	case len(spec.Files) > 0:
		for _, f := range spec.Files {
			req.SetMultipartField(f.Param, f.FileName, f.ContentType, bytes.NewReader(f.Content))
		}
		if spec.Fields != nil {
			req.SetMultipartFormData(spec.Fields)
		}
	case spec.Body != nil:
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(spec.Body)
	}

	resp, err := req.Execute(spec.Method, spec.URL)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode(), Body: resp.Body()}, nil
}

func (e *Executor) backoff(attempt int, reason string, err error) {
	delay := e.cfg.BaseDelay << uint(attempt)
	e.log.Warn("retrying request",
		"reason", reason, "attempt", attempt+1, "max_retries", e.cfg.MaxRetries,
		"delay", delay, "err", err)
	e.sleep(delay)
}
