package auth

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func signedRequest(secret, body string, at time.Time) *http.Request {
	req := httptest.NewRequest("POST", "/ingest/readings", strings.NewReader(body))
	timestamp := fmt.Sprintf("%d", at.Unix())
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", computeIngestSignature([]byte(secret), timestamp, []byte(body)))
	return req
}

func TestIngestAuthAcceptsValidSignature(t *testing.T) {
	mw := NewIngestAuthMiddleware([]byte("collector-secret"), 5*time.Minute)

	var seen string
	wrapped := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = string(body)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, signedRequest("collector-secret", `{"device_id":"dev-1"}`, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen != `{"device_id":"dev-1"}` {
		t.Fatalf("handler saw body %q", seen)
	}
}

func TestIngestAuthRejectsBadRequests(t *testing.T) {
	mw := NewIngestAuthMiddleware([]byte("collector-secret"), 5*time.Minute)
	wrapped := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	missing := httptest.NewRequest("POST", "/ingest/readings", strings.NewReader("{}"))

	wrongSecret := signedRequest("other-secret", "{}", time.Now())

	tampered := signedRequest("collector-secret", "{}", time.Now())
	tampered.Body = io.NopCloser(strings.NewReader(`{"device_id":"dev-9"}`))

	stale := signedRequest("collector-secret", "{}", time.Now().Add(-time.Hour))

	badTimestamp := signedRequest("collector-secret", "{}", time.Now())
	badTimestamp.Header.Set("X-Ingest-Timestamp", "not-a-number")

	for name, req := range map[string]*http.Request{
		"missing headers": missing,
		"wrong secret":    wrongSecret,
		"tampered body":   tampered,
		"expired":         stale,
		"bad timestamp":   badTimestamp,
	} {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}

func TestIngestAuthRequiresConfiguredSecret(t *testing.T) {
	mw := NewIngestAuthMiddleware(nil, 5*time.Minute)
	wrapped := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, signedRequest("collector-secret", "{}", time.Now()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
