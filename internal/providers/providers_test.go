package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newsgenius/backend/internal/retry"
)

func TestFetchBodyRetriesPerConfig(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	cfg := retry.Config{Attempts: 2, Delay: time.Millisecond}
	body, err := fetchBody(context.Background(), srv.Client(), srv.URL, cfg)
	if err != nil {
		t.Fatalf("expected the second attempt to succeed: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("unexpected body %q", body)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", calls.Load())
	}
}

func TestFetchBodyHonorsSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := retry.Config{Attempts: 1, Delay: time.Millisecond}
	if _, err := fetchBody(context.Background(), srv.Client(), srv.URL, cfg); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Errorf("a single-attempt config must not retry, got %d requests", calls.Load())
	}
}

func TestNormalizeRetryDefaults(t *testing.T) {
	rc := normalizeRetry(retry.Config{})
	if rc.Attempts != 2 || rc.Delay != 2*time.Second || !rc.Backoff {
		t.Errorf("unexpected defaults: %+v", rc)
	}

	rc = normalizeRetry(retry.Config{Attempts: 3, Delay: time.Second})
	if rc.Attempts != 3 || rc.Delay != time.Second {
		t.Errorf("explicit values must be kept: %+v", rc)
	}
}
