package fetch

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/janekbaraniewski/routerspend/internal/cache"
	"github.com/janekbaraniewski/routerspend/internal/config"
	"github.com/janekbaraniewski/routerspend/internal/core"
)

type staticCookies struct {
	cookies []*http.Cookie
	err     error
}

func (s staticCookies) Cookies(_ context.Context, _ string) ([]*http.Cookie, error) {
	return s.cookies, s.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(t *testing.T, serverURL string, cookies staticCookies) (*Client, *cache.Store) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	cfg.Endpoint.BaseURL = serverURL
	cfg.Endpoint.CookieDomain = "openrouter.ai"

	log := testLogger()
	store := cache.NewStore(db, cfg, log)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	return New(cfg, store, cookies, log), store
}

func monthRange(y int, m time.Month) core.DateRange {
	from := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return core.DateRange{From: from, To: from.AddDate(0, 1, -1)}
}

func TestFetch_SendsWindowAndCookies(t *testing.T) {
	var gotWindow, gotCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWindow = r.URL.Query().Get("window")
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, staticCookies{
		cookies: []*http.Cookie{{Name: "session", Value: "tok123"}},
	})

	payload, err := client.Fetch(context.Background(), monthRange(2024, time.March))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload != `{"data":[]}` {
		t.Errorf("payload = %q", payload)
	}
	if gotWindow != "1mo" {
		t.Errorf("window = %q, want 1mo", gotWindow)
	}
	if gotCookie != "tok123" {
		t.Errorf("session cookie = %q, want tok123", gotCookie)
	}
}

func TestFetch_WindowCappedAtTwelveMonths(t *testing.T) {
	var gotWindow string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWindow = r.URL.Query().Get("window")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, staticCookies{})

	wide := core.DateRange{
		From: time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	if _, err := client.Fetch(context.Background(), wide); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotWindow != "12mo" {
		t.Errorf("window = %q, want 12mo", gotWindow)
	}
}

func TestFetch_SecondCallServedFromCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"data":[{"model":"gpt-4"}]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, staticCookies{})
	r := monthRange(2024, time.March)

	if _, err := client.Fetch(context.Background(), r); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if _, err := client.Fetch(context.Background(), r); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (second call cached)", requests)
	}

	// Narrower request inside the cached month also avoids the network.
	narrow := core.DateRange{
		From: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC),
	}
	if _, err := client.Fetch(context.Background(), narrow); err != nil {
		t.Fatalf("narrow Fetch: %v", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (covering cache hit)", requests)
	}
}

func TestFetch_CorruptCacheEntryRefetched(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, store := newTestClient(t, server.URL, staticCookies{})
	r := monthRange(2024, time.March)

	store.Set(context.Background(), r, `{not json`)

	payload, err := client.Fetch(context.Background(), r)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload != `{"data":[]}` {
		t.Errorf("payload = %q", payload)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (corrupt entry discarded, refetched)", requests)
	}
}

func TestFetch_StatusErrors(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "authentication required"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not found"},
		{http.StatusTooManyRequests, "rate limited"},
		{http.StatusBadGateway, "server error"},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		client, _ := newTestClient(t, server.URL, staticCookies{})
		_, err := client.Fetch(context.Background(), monthRange(2024, time.March))
		server.Close()

		if err == nil {
			t.Errorf("status %d: expected error", tc.status)
			continue
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Errorf("status %d: error type %T, want *StatusError", tc.status, err)
			continue
		}
		if statusErr.StatusCode != tc.status {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tc.status)
		}
		if got := statusErr.Error(); !strings.Contains(got, tc.want) {
			t.Errorf("status %d message = %q, want substring %q", tc.status, got, tc.want)
		}
	}
}

func TestFetch_NoRetryOnFailure(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, staticCookies{})
	if _, err := client.Fetch(context.Background(), monthRange(2024, time.March)); err == nil {
		t.Fatal("expected error")
	}
	if requests != 1 {
		t.Errorf("requests = %d, want exactly 1 (no automatic retries)", requests)
	}
}

func TestRefresh_BypassesCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, staticCookies{})
	r := monthRange(2024, time.March)

	if _, err := client.Fetch(context.Background(), r); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, err := client.Refresh(context.Background(), r); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (refresh refetches)", requests)
	}
}
