// Package passport is the client for the passport appointment service:
// endpoint wrappers on top of a retrying request executor.
package passport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/passport-scheduler/internal/captcha"
	"github.com/example/passport-scheduler/internal/domain/appointment"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Client struct {
	exec    *Executor
	baseURL string
	headers map[string]string
}

type ClientOptions struct {
	BaseURL    string
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *slog.Logger
}

func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		exec:    NewExecutor(ExecutorConfig{MaxRetries: opts.MaxRetries, BaseDelay: opts.BaseDelay}, opts.Logger),
		baseURL: base,
		headers: browserHeaders(base),
	}
}

// browserHeaders is the fixed profile sent with every request. The service
// rejects clients that do not look like its own web UI.
func browserHeaders(base string) map[string]string {
	origin := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         origin + "/",
		"Origin":          origin,
	}
}

// Calendar fetches the published availability summary for a location.
func (c *Client) Calendar(ctx context.Context, locationID int) (appointment.Calendar, error) {
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s/calendars/%d/false", c.baseURL, locationID),
		Headers: c.headers,
	})
	if err != nil {
		return appointment.Calendar{}, err
	}
	var cal appointment.Calendar
	if err := json.Unmarshal(resp.Body, &cal); err != nil {
		return appointment.Calendar{}, fmt.Errorf("decode calendar: %w", err)
	}
	return cal, nil
}

// TimeSlots fetches the slots for a location and date.
func (c *Client) TimeSlots(ctx context.Context, locationID int, date time.Time) ([]appointment.Slot, error) {
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s/timeslots/%d/%s/false", c.baseURL, locationID, date.Format("2006-01-02")),
		Headers: c.headers,
	})
	if err != nil {
		return nil, err
	}
	var slots []appointment.Slot
	if err := json.Unmarshal(resp.Body, &slots); err != nil {
		return nil, fmt.Errorf("decode timeslots: %w", err)
	}
	return slots, nil
}

// CaptchaChallenge fetches a fresh challenge.
func (c *Client) CaptchaChallenge(ctx context.Context) (captcha.Challenge, error) {
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodGet,
		URL:     c.baseURL + "/captcha",
		Headers: c.headers,
	})
	if err != nil {
		return captcha.Challenge{}, err
	}

	var payload struct {
		CaptchaID    string `json:"captchaId"`
		CaptchaImage string `json:"captchaImage"`
		Image        string `json:"image"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return captcha.Challenge{}, fmt.Errorf("decode captcha challenge: %w", err)
	}
	raw := payload.CaptchaImage
	if raw == "" {
		raw = payload.Image
	}
	return captcha.Challenge{ID: payload.CaptchaID, Image: decodeImagePayload(raw)}, nil
}

// decodeImagePayload turns the image field into raw bytes. The service has
// been seen returning both data URIs and bare base64; anything that does not
// decode is passed through as-is.
func decodeImagePayload(raw string) []byte {
	if raw == "" {
		return nil
	}
	if i := strings.Index(raw, ";base64,"); i >= 0 && strings.HasPrefix(raw, "data:image/") {
		raw = raw[i+len(";base64,"):]
	}
	compact := strings.Join(strings.Fields(raw), "")
	if b, err := base64.StdEncoding.DecodeString(compact); err == nil {
		return b
	}
	return []byte(raw)
}

// CreateAppointment reserves a slot. The service answers a bare JSON number,
// the id of the new appointment.
func (c *Client) CreateAppointment(ctx context.Context, req appointment.Request, sol captcha.Solution) (appointment.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return appointment.Result{}, err
	}
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/appointments",
		Headers: c.withCaptcha(sol),
		Body:    body,
	})
	if err != nil {
		return appointment.Result{}, err
	}
	var id int64
	if err := json.Unmarshal(resp.Body, &id); err != nil {
		return appointment.Result{}, fmt.Errorf("decode appointment id: %w", err)
	}
	return appointment.Result{
		ID:              id,
		AppointmentDate: req.AppointmentDate,
		TimeSlot:        req.TimeSlot,
		LocationID:      req.LocationID,
		IsVip:           req.IsVip,
	}, nil
}

// SubmitForm posts the application form. locationToken goes into the
// session header the service expects; the captcha solution rides in headers,
// not body fields.
func (c *Client) SubmitForm(ctx context.Context, form map[string]any, locationToken string, sol captcha.Solution) (map[string]any, error) {
	body, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}
	headers := c.withCaptcha(sol)
	if locationToken != "" {
		headers["Location"] = locationToken
	}
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/eservices/perform/",
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	var result map[string]any
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode submission result: %w", err)
	}
	return result, nil
}

// CreateFollowup registers the follow-up record for a submitted form.
func (c *Client) CreateFollowup(ctx context.Context, requestNumber, birthDate string) (any, error) {
	body, err := json.Marshal(map[string]string{
		"requestNumber": requestNumber,
		"birthDate":     birthDate,
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/eservices/followup/",
		Headers: c.headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("decode followup result: %w", err)
	}
	return result, nil
}

// UploadScan uploads one document image with its metadata and returns the
// reference the form submission cites in its pieces array.
func (c *Client) UploadScan(ctx context.Context, fileName, contentType string, content []byte, metadata any) (string, error) {
	doc, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	resp, err := c.exec.Do(ctx, RequestSpec{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/scan",
		Headers: c.headers,
		Files: []FilePart{{
			Param:       "file",
			FileName:    fileName,
			ContentType: contentType,
			Content:     content,
		}},
		Fields: map[string]string{"document": string(doc)},
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err == nil && parsed.Reference != "" {
		return parsed.Reference, nil
	}
	// some deployments answer with the bare reference string
	ref := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(resp.Body)), `"`))
	if ref == "" {
		return "", fmt.Errorf("upload response carried no reference: %q", resp.Body)
	}
	return ref, nil
}

// withCaptcha copies the browser profile and attaches the captcha solution
// headers when a solution is present.
func (c *Client) withCaptcha(sol captcha.Solution) map[string]string {
	headers := make(map[string]string, len(c.headers)+2)
	for k, v := range c.headers {
		headers[k] = v
	}
	if sol.ID != "" || sol.Text != "" {
		headers["Captchaid"] = sol.ID
		headers["Captchatext"] = sol.Text
	}
	return headers
}
