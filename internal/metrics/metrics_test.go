package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	t.Parallel()

	r := New()
	r.ConflictsDetected("faculty", 2)
	r.ConflictsDetected("room", 1)
	r.ConflictsDetected("room", 0)
	r.InvitationResponded("accept")
	r.EmailDispatched("invite", "sent")
	r.EmailDispatched("invite", "sent")

	if got := testutil.ToFloat64(r.conflicts.WithLabelValues("faculty")); got != 2 {
		t.Fatalf("expected 2 faculty conflicts, got %v", got)
	}
	if got := testutil.ToFloat64(r.conflicts.WithLabelValues("room")); got != 1 {
		t.Fatalf("expected 1 room conflict, got %v", got)
	}
	if got := testutil.ToFloat64(r.responses.WithLabelValues("accept")); got != 1 {
		t.Fatalf("expected 1 accept response, got %v", got)
	}
	if got := testutil.ToFloat64(r.emails.WithLabelValues("invite", "sent")); got != 2 {
		t.Fatalf("expected 2 sent invites, got %v", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveRequest(http.MethodGet, "/sessions", http.StatusOK, 15*time.Millisecond)
	r.EmailDispatched("update", "failed")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`conference_http_request_duration_seconds_count{method="GET",route="/sessions",status="200"} 1`,
		`conference_emails_total{status="failed",template="update"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected exposition to contain %q", want)
		}
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.ConflictsDetected("faculty", 1)
	r.InvitationResponded("accept")
	r.EmailDispatched("invite", "sent")
	r.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected nil recorder to serve 404, got %d", rec.Code)
	}
}
