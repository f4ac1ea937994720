package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/invitation"
	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/storage"
	"github.com/example/conference-scheduler/internal/testfixtures"
)

func TestSessionStore_RoundTripsInvitationState(t *testing.T) {
	t.Parallel()

	for _, backend := range testfixtures.Backends {
		backend := backend
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			db := testfixtures.OpenStore(t, backend)
			testfixtures.Seed(t, db, testfixtures.NewSession("s-1"))
			sessions := storage.NewSessionStore(db)
			ctx := context.Background()

			session, err := sessions.GetSession(ctx, "s-1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if session.Status != application.SessionStatusDraft || session.Invitation.Status != invitation.StatusPending {
				t.Fatalf("unexpected defaults %+v", session)
			}

			topic := "Compilers for everyone"
			query := "Can the slot move?"
			session.Invitation = invitation.State{
				Status:          invitation.StatusDeclined,
				RejectionReason: invitation.ReasonSuggestedTopic,
				SuggestedTopic:  &topic,
				OptionalQuery:   &query,
			}
			if _, err := sessions.UpdateSession(ctx, session); err != nil {
				t.Fatalf("update: %v", err)
			}

			got, err := sessions.GetSession(ctx, "s-1")
			if err != nil {
				t.Fatalf("get after update: %v", err)
			}
			if got.Invitation.RejectionReason != invitation.ReasonSuggestedTopic {
				t.Fatalf("expected SuggestedTopic, got %q", got.Invitation.RejectionReason)
			}
			if got.Invitation.SuggestedTopic == nil || *got.Invitation.SuggestedTopic != topic {
				t.Fatalf("expected suggested topic to persist, got %v", got.Invitation.SuggestedTopic)
			}
			if got.Invitation.SuggestedTimeStart != nil || got.Invitation.SuggestedTimeEnd != nil {
				t.Fatalf("expected no suggested times")
			}
			if !got.Start.Equal(testfixtures.At(10, 0)) || got.Start.Location() != testfixtures.ConferenceDay.Location() {
				t.Fatalf("expected UTC start, got %v", got.Start)
			}

			session.Invitation = invitation.Pending()
			if _, err := sessions.UpdateSession(ctx, session); err != nil {
				t.Fatalf("reset: %v", err)
			}
			raw, err := db.GetSession(ctx, "s-1")
			if err != nil {
				t.Fatalf("raw get: %v", err)
			}
			if raw.RejectionReason != nil || raw.SuggestedTopic != nil {
				t.Fatalf("expected cleared columns, got %+v", raw)
			}
		})
	}
}

func TestSessionStore_WithinTransactionRollsBack(t *testing.T) {
	t.Parallel()

	for _, backend := range testfixtures.Backends {
		backend := backend
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			db := testfixtures.OpenStore(t, backend)
			testfixtures.Seed(t, db)
			sessions := storage.NewSessionStore(db)
			ctx := context.Background()
			boom := errors.New("boom")

			err := sessions.WithinTransaction(ctx, func(ctx context.Context, repo application.SessionRepository) error {
				session := application.Session{
					ID:           "s-tx",
					EventID:      "event-1",
					Title:        "Rolled back",
					FacultyID:    testfixtures.Ada.ID,
					FacultyEmail: testfixtures.Ada.Email,
					Place:        testfixtures.MainHall.Location,
					HallID:       testfixtures.MainHall.ID,
					Start:        testfixtures.At(9, 0),
					End:          testfixtures.At(10, 0),
					Status:       application.SessionStatusDraft,
					Invitation:   invitation.Pending(),
				}
				if _, err := repo.CreateSession(ctx, session); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}

			if _, err := sessions.GetSession(ctx, "s-tx"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected rollback, got %v", err)
			}
		})
	}
}

func TestSessionStore_ListByIDs(t *testing.T) {
	t.Parallel()

	db := testfixtures.OpenStore(t, testfixtures.BackendMemory)
	testfixtures.Seed(t, db,
		testfixtures.NewSession("s-1"),
		testfixtures.NewSession("s-2", testfixtures.WithFaculty(testfixtures.Alan)),
		testfixtures.NewSession("s-3", testfixtures.WithHall(testfixtures.RoomB)),
	)
	sessions := storage.NewSessionStore(db)

	got, err := sessions.ListSessions(context.Background(), application.SessionFilter{IDs: []string{"s-2", "s-3"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two sessions, got %d", len(got))
	}

	none, err := sessions.ListSessions(context.Background(), application.SessionFilter{FacultyEmail: "nobody@example.com"})
	if err != nil || none != nil {
		t.Fatalf("expected nil slice, got %v (%v)", none, err)
	}
}
