package passport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRetryExhausted is returned after the executor's attempt budget is spent
// on transient or rate-limit failures.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RequestError is a non-captcha 4xx/5xx. Retrying cannot fix it, so the
// executor surfaces it immediately.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// looksLikeCaptchaRejection classifies a 400 body as a captcha failure.
// A structured errorCode is checked first; the substring heuristic the
// service's UI relies on is kept as a fallback.
func looksLikeCaptchaRejection(body []byte) bool {
	s := string(body)
	if strings.Contains(s, `"errorCode":"CAPTCHA_INVALID"`) {
		return true
	}
	return strings.Contains(strings.ToLower(s), "captcha")
}
