package session

import (
	"net/http"
	"testing"
	"time"
)

func TestDedupe_KeepsFreshestPerName(t *testing.T) {
	older := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 6, 0)

	cookies := []*http.Cookie{
		{Name: "session", Value: "stale", Expires: older},
		{Name: "csrf", Value: "abc", Expires: newer},
		{Name: "session", Value: "fresh", Expires: newer},
	}

	out := Dedupe(cookies)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].Name != "session" || out[0].Value != "fresh" {
		t.Errorf("out[0] = %s=%s, want freshest session cookie", out[0].Name, out[0].Value)
	}
	if out[1].Name != "csrf" {
		t.Errorf("out[1] = %s, want csrf", out[1].Name)
	}
}

func TestDedupe_Empty(t *testing.T) {
	if out := Dedupe(nil); len(out) != 0 {
		t.Errorf("Dedupe(nil) = %v", out)
	}
}
