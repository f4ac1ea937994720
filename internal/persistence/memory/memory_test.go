package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

func sampleSession(id string) persistence.Session {
	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	return persistence.Session{
		ID:           id,
		EventID:      "event-1",
		Title:        "Keynote",
		FacultyID:    "fac-1",
		FacultyEmail: "ada@example.com",
		HallID:       "hall-1",
		Start:        start,
		End:          start.Add(time.Hour),
		Status:       "Draft",
		InviteStatus: "Pending",
		CreatedAt:    start.Add(-time.Hour),
		UpdatedAt:    start.Add(-time.Hour),
	}
}

func TestStorage_SessionLifecycle(t *testing.T) {
	t.Parallel()

	store := Open()
	ctx := context.Background()

	if err := store.CreateSession(ctx, sampleSession("s-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateSession(ctx, sampleSession("s-1")); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	updated := sampleSession("s-1")
	updated.Title = "Keynote (revised)"
	updated.CreatedAt = time.Time{}
	reason := "TimeConflict"
	updated.RejectionReason = &reason
	if err := store.UpdateSession(ctx, updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	reason = "mutated"
	got, err := store.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Keynote (revised)" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "TimeConflict" {
		t.Fatalf("expected stored copy of rejection reason, got %v", got.RejectionReason)
	}

	if err := store.DeleteSession(ctx, "s-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetSession(ctx, "s-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.UpdateSession(ctx, updated); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestStorage_RejectsInvertedWindow(t *testing.T) {
	t.Parallel()

	session := sampleSession("s-1")
	session.End = session.Start
	if err := Open().CreateSession(context.Background(), session); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestStorage_ListSessionsFilters(t *testing.T) {
	t.Parallel()

	store := Open()
	ctx := context.Background()
	other := sampleSession("s-2")
	other.FacultyEmail = "alan@example.com"
	other.HallID = "hall-2"
	for _, s := range []persistence.Session{sampleSession("s-1"), other} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter persistence.SessionFilter
		want   int
	}{
		{name: "all", want: 2},
		{name: "by id", filter: persistence.SessionFilter{IDs: []string{"s-2", "missing"}}, want: 1},
		{name: "email ignores case", filter: persistence.SessionFilter{FacultyEmail: " ADA@example.com"}, want: 1},
		{name: "hall", filter: persistence.SessionFilter{HallID: "hall-2"}, want: 1},
		{name: "event", filter: persistence.SessionFilter{EventID: "event-2"}, want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListSessions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d sessions, got %d", tt.want, len(got))
			}
		})
	}
}

func TestStorage_WithinTransactionRestoresOnError(t *testing.T) {
	t.Parallel()

	store := Open()
	ctx := context.Background()
	if err := store.CreateSession(ctx, sampleSession("s-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	err := store.WithinTransaction(ctx, func(ctx context.Context, tx persistence.Store) error {
		if err := tx.DeleteSession(ctx, "s-1"); err != nil {
			return err
		}
		if err := tx.CreateSession(ctx, sampleSession("s-2")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.GetSession(ctx, "s-1"); err != nil {
		t.Fatalf("expected s-1 restored, got %v", err)
	}
	if _, err := store.GetSession(ctx, "s-2"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected s-2 discarded, got %v", err)
	}
}

func TestStorage_RollbackKeepsConcurrentWrites(t *testing.T) {
	t.Parallel()

	store := Open()
	ctx := context.Background()
	for _, id := range []string{"keep", "edit"} {
		if err := store.CreateSession(ctx, sampleSession(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	conflict := errors.New("conflict")
	err := store.WithinTransaction(ctx, func(ctx context.Context, tx persistence.Store) error {
		edited := sampleSession("edit")
		edited.Title = "Changed inside tx"
		if err := tx.UpdateSession(ctx, edited); err != nil {
			return err
		}
		if err := tx.CreateSession(ctx, sampleSession("s-new")); err != nil {
			return err
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.DeleteSession(ctx, "keep"); err != nil {
				t.Errorf("delete outside tx: %v", err)
			}
			if err := store.UpsertHall(ctx, persistence.Hall{ID: "hall-9", Name: "Annex"}); err != nil {
				t.Errorf("upsert outside tx: %v", err)
			}
		}()
		wg.Wait()
		return conflict
	})
	if !errors.Is(err, conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if _, err := store.GetSession(ctx, "keep"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected delete made outside the transaction to survive, got %v", err)
	}
	if _, err := store.GetHall(ctx, "hall-9"); err != nil {
		t.Fatalf("expected hall written outside the transaction to survive, got %v", err)
	}
	if _, err := store.GetSession(ctx, "s-new"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected session created in the transaction to be reverted, got %v", err)
	}
	got, err := store.GetSession(ctx, "edit")
	if err != nil || got.Title != "Keynote" {
		t.Fatalf("expected update to be reverted, got %q (%v)", got.Title, err)
	}
}

func TestStorage_FacultyEmailUnique(t *testing.T) {
	t.Parallel()

	store := Open()
	ctx := context.Background()
	if err := store.UpsertFaculty(ctx, persistence.Faculty{ID: "fac-1", Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	err := store.UpsertFaculty(ctx, persistence.Faculty{ID: "fac-2", Name: "Other Ada", Email: "ADA@example.com"})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if err := store.UpsertHall(ctx, persistence.Hall{ID: "hall-1", Capacity: -1}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected negative capacity to be rejected, got %v", err)
	}
}
