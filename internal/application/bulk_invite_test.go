package application

import (
	"context"
	"errors"
	"testing"
)

func TestGroupByRecipient(t *testing.T) {
	t.Parallel()

	sessions := []EnrichedSession{
		{Session: Session{ID: "1", FacultyEmail: "a@example.com"}},
		{Session: Session{ID: "2", FacultyEmail: "b@example.com"}, FacultyName: "Bea"},
		{Session: Session{ID: "3", FacultyEmail: " A@Example.com "}, FacultyName: "Ann"},
		{Session: Session{ID: "4"}},
	}

	groups := groupByRecipient(sessions, "")
	if len(groups) != 2 {
		t.Fatalf("expected two groups, got %d", len(groups))
	}
	if groups[0].Email != "a@example.com" || len(groups[0].Sessions) != 2 {
		t.Fatalf("expected first seen address to lead, got %+v", groups[0])
	}
	if groups[0].FacultyName() != "Ann" {
		t.Fatalf("expected first non-empty faculty name, got %q", groups[0].FacultyName())
	}

	groups = groupByRecipient(sessions, "fallback@example.com")
	if len(groups) != 3 || groups[2].Email != "fallback@example.com" {
		t.Fatalf("expected fallback group for sessions without address, got %+v", groups)
	}
}

func TestSessionService_BulkInvite_StoredSessions(t *testing.T) {
	t.Parallel()

	first := sessionAt("s-1", "fac-1", "hall-a", 9, 0, 60)
	second := sessionAt("s-2", "fac-1", "hall-b", 11, 0, 60)
	third := sessionAt("s-3", "fac-1", "hall-a", 14, 0, 60)
	h := newServiceHarness(SessionServiceConfig{}, first, second, third)

	result, err := h.svc.BulkInvite(context.Background(), BulkInviteParams{
		Principal: organizer,
		FacultyID: "fac-1",
		Sessions:  []BulkInviteSession{{ID: "s-3"}, {ID: "s-1"}, {ID: "s-2"}, {ID: "unknown"}},
	})
	if err != nil {
		t.Fatalf("expected bulk invite to succeed, got %v", err)
	}
	if result.UsedFallback {
		t.Fatalf("expected stored sessions to be used")
	}
	if !result.AllDelivered() || len(result.Emails) != 1 {
		t.Fatalf("expected one delivered invitation, got %+v", result.Emails)
	}
	sent := h.mailer.sent[0]
	if len(sent.sessions) != 3 {
		t.Fatalf("expected three rows, got %d", len(sent.sessions))
	}
	if sent.sessions[0].ID != "s-3" || sent.sessions[2].ID != "s-2" {
		t.Fatalf("expected request order to be preserved, got %s..%s", sent.sessions[0].ID, sent.sessions[2].ID)
	}
	if sent.sessions[1].RoomName != "Main Hall" {
		t.Fatalf("expected room names to be resolved, got %q", sent.sessions[1].RoomName)
	}
}

func TestSessionService_BulkInvite_FallsBackToPayload(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(SessionServiceConfig{})
	result, err := h.svc.BulkInvite(context.Background(), BulkInviteParams{
		Principal: organizer,
		FacultyID: "fac-2",
		Email:     "alan@example.com",
		Sessions: []BulkInviteSession{{
			ID:        "draft-1",
			Title:     "Machines",
			Place:     "Annex",
			RoomName:  "Library",
			StartTime: "2025-06-03T10:00:00Z",
			EndTime:   "2025-06-03T11:00:00Z",
		}},
	})
	if err != nil {
		t.Fatalf("expected fallback invite to succeed, got %v", err)
	}
	if !result.UsedFallback {
		t.Fatalf("expected fallback to be reported")
	}
	sent := h.mailer.sent[0]
	if sent.email != "alan@example.com" || sent.facultyName != "Dr. Alan Turing" {
		t.Fatalf("expected invitation to alan, got %+v", sent)
	}
	if sent.sessions[0].RoomName != "Library" {
		t.Fatalf("expected supplied room name, got %q", sent.sessions[0].RoomName)
	}
}

func TestSessionService_BulkInvite_Validation(t *testing.T) {
	t.Parallel()

	h := newServiceHarness(SessionServiceConfig{})
	var vErr *ValidationError

	_, err := h.svc.BulkInvite(context.Background(), BulkInviteParams{Principal: organizer})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError without sessions, got %v", err)
	}

	_, err = h.svc.BulkInvite(context.Background(), BulkInviteParams{
		Principal: organizer,
		Sessions:  []BulkInviteSession{{Title: "Orphan", StartTime: "2025-06-03T10:00:00Z", EndTime: "2025-06-03T11:00:00Z"}},
	})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError without any recipient, got %v", err)
	}
	if _, ok := vErr.FieldErrors["email"]; !ok {
		t.Fatalf("expected email field error, got %v", vErr.FieldErrors)
	}

	_, err = h.svc.BulkInvite(context.Background(), BulkInviteParams{
		Principal: Principal{},
		Sessions:  []BulkInviteSession{{ID: "s-1"}},
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionService_BulkInvite_PartialDelivery(t *testing.T) {
	t.Parallel()

	ada := sessionAt("s-1", "fac-1", "hall-a", 9, 0, 60)
	alan := sessionAt("s-2", "fac-2", "hall-b", 9, 0, 60)
	h := newServiceHarness(SessionServiceConfig{}, ada, alan)
	h.mailer.fail = map[string]bool{"fac-2@example.com": true}

	result, err := h.svc.BulkInvite(context.Background(), BulkInviteParams{
		Principal: organizer,
		Sessions:  []BulkInviteSession{{ID: "s-1"}, {ID: "s-2"}},
	})
	if err != nil {
		t.Fatalf("expected bulk invite to return outcomes, got %v", err)
	}
	if len(result.Emails) != 2 {
		t.Fatalf("expected one outcome per recipient, got %d", len(result.Emails))
	}
	if result.AllDelivered() {
		t.Fatalf("expected partial delivery to be reported")
	}
}
