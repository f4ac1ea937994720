package scheduler

import (
	"fmt"
	"time"
)

// Session is the scheduling view of a stored conference session.
type Session struct {
	ID        string
	Title     string
	FacultyID string
	HallID    string
	Start     time.Time
	End       time.Time
}

// Candidate is a proposed booking checked against existing sessions. ID is
// empty for sessions that have not been persisted yet.
type Candidate struct {
	ID        string
	FacultyID string
	HallID    string
	Start     time.Time
	End       time.Time
}

// ConflictType describes which resource is double-booked.
type ConflictType string

const (
	// ConflictTypeFaculty indicates the faculty member is already speaking elsewhere.
	ConflictTypeFaculty ConflictType = "faculty"
	// ConflictTypeRoom indicates the hall is already occupied.
	ConflictTypeRoom ConflictType = "room"
)

// Conflict details an overlapping booking that callers can present to organizers.
type Conflict struct {
	SessionID            string
	ConflictingSessionID string
	Type                 ConflictType
	Message              string
}

const messageTimeLayout = "2006-01-02 15:04"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DetectConflicts scans existing sessions and reports every faculty and room
// collision with the candidate. A single existing session yields one entry per
// colliding resource. The session identified by excludeID is skipped so that
// updates are not reported as conflicting with themselves.
func DetectConflicts(existing []Session, candidate Candidate, excludeID string) []Conflict {
	if candidate.Start.IsZero() || candidate.End.IsZero() {
		return nil
	}

	var conflicts []Conflict
	for _, session := range existing {
		if excludeID != "" && session.ID == excludeID {
			continue
		}
		if !Overlaps(candidate.Start, candidate.End, session.Start, session.End) {
			continue
		}

		if candidate.FacultyID != "" && session.FacultyID == candidate.FacultyID {
			conflicts = append(conflicts, Conflict{
				SessionID:            candidate.ID,
				ConflictingSessionID: session.ID,
				Type:                 ConflictTypeFaculty,
				Message:              fmt.Sprintf("faculty is already scheduled for %q (%s)", session.Title, formatWindow(session)),
			})
		}
		if candidate.HallID != "" && session.HallID == candidate.HallID {
			conflicts = append(conflicts, Conflict{
				SessionID:            candidate.ID,
				ConflictingSessionID: session.ID,
				Type:                 ConflictTypeRoom,
				Message:              fmt.Sprintf("room is already booked for %q (%s)", session.Title, formatWindow(session)),
			})
		}
	}

	return conflicts
}

func formatWindow(session Session) string {
	return session.Start.Format(messageTimeLayout) + " - " + session.End.Format(messageTimeLayout)
}
