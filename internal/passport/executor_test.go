package passport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/passport-scheduler/internal/captcha"
)

func testExecutor(t *testing.T, maxRetries int) (*Executor, *[]time.Duration) {
	t.Helper()
	exec := NewExecutor(ExecutorConfig{MaxRetries: maxRetries, BaseDelay: 10 * time.Millisecond}, nil)
	var delays []time.Duration
	exec.sleep = func(d time.Duration) { delays = append(delays, d) }
	return exec, &delays
}

func TestDoSuccessFirstAttempt(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	exec, delays := testExecutor(t, 3)
	resp, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte(`"ok"`), resp.Body)
	require.EqualValues(t, 1, hits)
	require.Empty(t, *delays)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	// fail the TCP connection twice, then serve normally
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n <= 2 {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				_ = conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec, delays := testExecutor(t, 3)
	resp, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, hits)
	require.Len(t, *delays, 2)
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	exec, delays := testExecutor(t, 2)
	_, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: srv.URL})
	require.ErrorIs(t, err, ErrRetryExhausted)
	// initial attempt + MaxRetries retries
	require.EqualValues(t, 3, hits)
	// no sleep after the final attempt
	require.Len(t, *delays, 2)
}

func TestDoBackoffDoubles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	exec, delays := testExecutor(t, 3)
	_, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: srv.URL})
	require.ErrorIs(t, err, ErrRetryExhausted)
	require.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
	}, *delays)
}

func TestDoCaptchaRejectionNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorCode":"CAPTCHA_INVALID","message":"wrong code"}`))
	}))
	defer srv.Close()

	exec, delays := testExecutor(t, 5)
	_, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodPost, URL: srv.URL, Body: []byte(`{}`)})

	var rejected *captcha.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	require.EqualValues(t, 1, hits)
	require.Empty(t, *delays)
}

func TestDoClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such location"))
	}))
	defer srv.Close()

	exec, delays := testExecutor(t, 5)
	_, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodGet, URL: srv.URL})

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	require.Equal(t, "no such location", reqErr.Body)
	require.EqualValues(t, 1, hits)
	require.Empty(t, *delays)
}

func TestDoRetriesSendIdenticalBytes(t *testing.T) {
	var bodies [][]byte
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, body)
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := []byte(`{"id":"null","timeSlot":"11:00"}`)
	exec, _ := testExecutor(t, 5)
	_, err := exec.Do(context.Background(), RequestSpec{Method: http.MethodPost, URL: srv.URL, Body: payload})
	require.NoError(t, err)
	require.Len(t, bodies, 3)
	for _, b := range bodies {
		require.Equal(t, payload, b)
	}
}

func TestDoContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec, _ := testExecutor(t, 3)
	_, err := exec.Do(ctx, RequestSpec{Method: http.MethodGet, URL: "http://127.0.0.1:1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLooksLikeCaptchaRejection(t *testing.T) {
	require.True(t, looksLikeCaptchaRejection([]byte(`{"errorCode":"CAPTCHA_INVALID"}`)))
	require.True(t, looksLikeCaptchaRejection([]byte(`{"message":"Captcha verification failed"}`)))
	require.False(t, looksLikeCaptchaRejection([]byte(`{"message":"invalid date"}`)))
	require.False(t, looksLikeCaptchaRejection(nil))
}

func TestRequestErrorMessage(t *testing.T) {
	err := &RequestError{StatusCode: 500, Body: "boom"}
	require.Equal(t, "HTTP 500: boom", err.Error())
	require.False(t, errors.Is(err, ErrRetryExhausted))
}
