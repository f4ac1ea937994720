package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// Directory entries shared by fixtures.
var (
	Ada  = persistence.Faculty{ID: "fac-ada", Name: "Dr. Ada Lovelace", Email: "ada@example.com"}
	Alan = persistence.Faculty{ID: "fac-alan", Name: "Dr. Alan Turing", Email: "alan@example.com"}

	MainHall = persistence.Hall{ID: "hall-main", Name: "Main Hall", Location: "Building A", Capacity: 400}
	RoomB    = persistence.Hall{ID: "hall-b", Name: "Room B", Location: "Building B", Capacity: 60}
)

// SessionOption customizes a session record.
type SessionOption func(*persistence.Session)

// NewSession returns a Pending Draft session for Ada in the main hall from
// 10:00 to 11:00 on ConferenceDay.
func NewSession(id string, opts ...SessionOption) persistence.Session {
	start := At(10, 0)
	session := persistence.Session{
		ID:           id,
		EventID:      "event-1",
		Title:        "Session " + id,
		Description:  "About " + id,
		FacultyID:    Ada.ID,
		FacultyEmail: Ada.Email,
		Place:        MainHall.Location,
		HallID:       MainHall.ID,
		Start:        start,
		End:          start.Add(time.Hour),
		Status:       "Draft",
		InviteStatus: "Pending",
		CreatedAt:    ConferenceDay.Add(-24 * time.Hour),
		UpdatedAt:    ConferenceDay.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithWindow sets the session to start at hour:minute for the given length.
func WithWindow(hour, minute int, length time.Duration) SessionOption {
	return func(s *persistence.Session) {
		s.Start = At(hour, minute)
		s.End = s.Start.Add(length)
	}
}

// WithFaculty assigns the session to faculty.
func WithFaculty(faculty persistence.Faculty) SessionOption {
	return func(s *persistence.Session) {
		s.FacultyID = faculty.ID
		s.FacultyEmail = faculty.Email
	}
}

// WithHall books the session into hall.
func WithHall(hall persistence.Hall) SessionOption {
	return func(s *persistence.Session) {
		s.HallID = hall.ID
		s.Place = hall.Location
	}
}

// Seed writes the shared directory entries and the given sessions.
func Seed(tb testing.TB, store persistence.Store, sessions ...persistence.Session) {
	tb.Helper()
	ctx := context.Background()
	stamp := ConferenceDay.Add(-48 * time.Hour)

	for _, f := range []persistence.Faculty{Ada, Alan} {
		f.CreatedAt, f.UpdatedAt = stamp, stamp
		if err := store.UpsertFaculty(ctx, f); err != nil {
			tb.Fatalf("seed faculty %s: %v", f.ID, err)
		}
	}
	for _, h := range []persistence.Hall{MainHall, RoomB} {
		h.CreatedAt, h.UpdatedAt = stamp, stamp
		if err := store.UpsertHall(ctx, h); err != nil {
			tb.Fatalf("seed hall %s: %v", h.ID, err)
		}
	}
	for _, s := range sessions {
		if err := store.CreateSession(ctx, s); err != nil {
			tb.Fatalf("seed session %s: %v", s.ID, err)
		}
	}
}
