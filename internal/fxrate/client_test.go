package fxrate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"procure/internal/config"
	"procure/internal/storage"
	"procure/internal/tracker"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	return config.Config{
		USDINRRate:     84,
		USDINRRateMin:  50,
		USDINRRateMax:  200,
		FXAPIURL:       "https://fx.test/v6/latest/USD",
		FXAPIToken:     "secret",
		FXTimeoutMs:    1000,
		FXRateLimitRPS: 1000,
	}
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestFetchUSDINRWithRetry(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v6/latest/USD" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer secret" {
				t.Fatalf("authorization=%q", got)
			}
			attempt++
			if attempt == 1 {
				return respond(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
			}
			return respond(http.StatusOK, `{"result":"success","base_code":"USD","rates":{"USD":1,"INR":83.4521}}`), nil
		}),
	}

	rate, err := client.FetchUSDINR(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
	if rate != 83.4521 {
		t.Fatalf("rate=%v", rate)
	}
}

func TestFetchUSDINRStopsOnClientError(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return respond(http.StatusUnauthorized, `{"error":"bad token"}`), nil
		}),
	}
	if _, err := client.FetchUSDINR(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if attempt != 1 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestFetchUSDINRMissingRate(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return respond(http.StatusOK, `{"result":"success","rates":{"EUR":0.92}}`), nil
		}),
	}
	if _, err := client.FetchUSDINR(context.Background()); !errors.Is(err, ErrNoRate) {
		t.Fatalf("err=%v", err)
	}
}

func TestSyncStoresRate(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "fx.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := testConfig()
	if got := DefaultRate(db, cfg); got != 84 {
		t.Fatalf("default before sync=%v", got)
	}

	body := `{"result":"success","rates":{"INR":85.25}}`
	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return respond(http.StatusOK, body), nil
		}),
	}

	rate, err := Sync(context.Background(), db, client)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 85.25 {
		t.Fatalf("rate=%v", rate)
	}
	if got := DefaultRate(db, cfg); got != 85.25 {
		t.Fatalf("default after sync=%v", got)
	}

	body = `{"result":"success","rates":{"INR":12}}`
	if _, err := Sync(context.Background(), db, client); !errors.Is(err, tracker.ErrRateOutOfRange) {
		t.Fatalf("err=%v", err)
	}
	if got := DefaultRate(db, cfg); got != 85.25 {
		t.Fatalf("out of range rate overwrote stored one: %v", got)
	}
}
