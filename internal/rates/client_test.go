package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/ledger/internal/core"
)

func TestClient_Rate(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"USD": 83.25, "date": "2025-01-10"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	rate, err := c.Rate(context.Background(), date, "UsD")
	if err != nil {
		t.Fatalf("Rate error: %v", err)
	}
	if !rate.Equal(decimal.RequireFromString("83.25")) {
		t.Errorf("rate = %s, want 83.25", rate)
	}
	if gotPath != "/2025-01-10/usd" {
		t.Errorf("path = %q, want /2025-01-10/usd", gotPath)
	}
}

func TestClient_RateCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"EUR": 90.1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	date := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	for range 3 {
		if _, err := c.Rate(context.Background(), date, "eur"); err != nil {
			t.Fatalf("Rate error: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}

	// A different day is a different key.
	if _, err := c.Rate(context.Background(), date.AddDate(0, 0, 1), "eur"); err != nil {
		t.Fatalf("Rate error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestClient_RateFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		currency string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, currency: "usd"},
		{name: "missing field", status: http.StatusOK, body: `{"EUR": 1.1}`, currency: "usd"},
		{name: "not json", status: http.StatusOK, body: `<html>`, currency: "usd"},
		{name: "non numeric", status: http.StatusOK, body: `{"USD": "abc"}`, currency: "usd"},
		{name: "zero rate", status: http.StatusOK, body: `{"USD": 0}`, currency: "usd"},
		{name: "empty currency", status: http.StatusOK, body: `{}`, currency: " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, time.Second)
			_, err := c.Rate(context.Background(), time.Now(), tt.currency)
			if !errors.Is(err, core.ErrRateUnavailable) {
				t.Errorf("error = %v, want ErrRateUnavailable", err)
			}
		})
	}
}

func TestClient_FailureNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"GBP": 105}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := c.Rate(context.Background(), date, "gbp"); err == nil {
		t.Fatal("expected first lookup to fail")
	}
	fail.Store(false)
	rate, err := c.Rate(context.Background(), date, "gbp")
	if err != nil {
		t.Fatalf("second lookup error: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(105)) {
		t.Errorf("rate = %s, want 105", rate)
	}
}

func TestClient_SharedFetchSurvivesCancel(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write([]byte(`{"CHF": 1.05}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Rate(ctxA, date, "chf")
		errA <- err
	}()
	<-started

	type result struct {
		rate decimal.Decimal
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		rate, err := c.Rate(context.Background(), date, "chf")
		resB <- result{rate, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, core.ErrRateUnavailable) {
		t.Errorf("cancelled caller error = %v, want ErrRateUnavailable", err)
	}

	close(release)
	got := <-resB
	if got.err != nil {
		t.Fatalf("waiting caller error = %v", got.err)
	}
	if !got.rate.Equal(decimal.RequireFromString("1.05")) {
		t.Errorf("rate = %s, want 1.05", got.rate)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}
