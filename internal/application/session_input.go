package application

import (
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/invitation"
)

// instantLayouts are accepted for start and end times. Layouts without a zone
// are interpreted in the configured location.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

const dateLayout = "2006-01-02"

// SessionServiceConfig tunes session creation and update rules.
type SessionServiceConfig struct {
	DefaultEventID string
	Location       *time.Location
	// DayStart and DayEnd bound the window synthesized for date-based
	// sessions, as offsets from local midnight.
	DayStart    time.Duration
	DayEnd      time.Duration
	MinDuration time.Duration

	CheckDateBasedConflicts bool
	ResetInviteOnReschedule bool
	NotifyOnDelete          bool
}

func (c SessionServiceConfig) withDefaults() SessionServiceConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.DayStart == 0 && c.DayEnd == 0 {
		c.DayStart, c.DayEnd = 9*time.Hour, 17*time.Hour
	}
	if c.MinDuration == 0 {
		c.MinDuration = 15 * time.Minute
	}
	return c
}

// ParseInstant parses a caller supplied time in one of the accepted layouts.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range instantLayouts {
		var (
			ts  time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			ts, err = time.Parse(layout, value)
		} else {
			ts, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// sessionWindow is the resolved schedule of a session input.
type sessionWindow struct {
	Start     time.Time
	End       time.Time
	DateBased bool
}

func (s *SessionService) resolveWindow(input SessionInput, vErr *ValidationError) sessionWindow {
	startValue := strings.TrimSpace(input.StartTime)
	endValue := strings.TrimSpace(input.EndTime)

	if startValue == "" && endValue == "" {
		day := s.now().In(s.cfg.Location)
		if dateValue := strings.TrimSpace(input.Date); dateValue != "" {
			parsed, err := time.ParseInLocation(dateLayout, dateValue, s.cfg.Location)
			if err != nil {
				vErr.add("date", "date must be formatted as YYYY-MM-DD")
				return sessionWindow{}
			}
			day = parsed
		}
		midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.cfg.Location)
		return sessionWindow{
			Start:     midnight.Add(s.cfg.DayStart),
			End:       midnight.Add(s.cfg.DayEnd),
			DateBased: true,
		}
	}

	if startValue == "" {
		vErr.add("startTime", "startTime is required when endTime is set")
		return sessionWindow{}
	}
	if endValue == "" {
		vErr.add("endTime", "endTime is required when startTime is set")
		return sessionWindow{}
	}

	start, err := ParseInstant(startValue, s.cfg.Location)
	if err != nil {
		vErr.add("startTime", "startTime is not a valid time")
	}
	end, endErr := ParseInstant(endValue, s.cfg.Location)
	if endErr != nil {
		vErr.add("endTime", "endTime is not a valid time")
	}
	if err != nil || endErr != nil {
		return sessionWindow{}
	}

	if !end.After(start) {
		vErr.add("endTime", "endTime must be after startTime")
		return sessionWindow{}
	}
	if end.Sub(start) < s.cfg.MinDuration {
		vErr.add("endTime", fmt.Sprintf("session must last at least %d minutes", int(s.cfg.MinDuration/time.Minute)))
		return sessionWindow{}
	}
	return sessionWindow{Start: start.UTC(), End: end.UTC()}
}

func validateRequiredFields(input SessionInput, vErr *ValidationError) {
	required := []struct {
		field string
		value string
	}{
		{"title", input.Title},
		{"facultyId", input.FacultyID},
		{"email", input.Email},
		{"place", input.Place},
		{"roomId", input.RoomID},
		{"description", input.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			vErr.add(r.field, r.field+" is required")
		}
	}
	if email := strings.TrimSpace(input.Email); email != "" && !validEmail(email) {
		vErr.add("email", "email is not a valid address")
	}
}

func validEmail(value string) bool {
	addr, err := netmail.ParseAddress(value)
	return err == nil && addr.Address == value
}

// buildSession validates input and produces the session to persist. The
// returned flag reports whether conflicts must be checked.
func (s *SessionService) buildSession(input SessionInput) (Session, bool, *ValidationError) {
	vErr := &ValidationError{}
	validateRequiredFields(input, vErr)
	window := s.resolveWindow(input, vErr)

	status := SessionStatusDraft
	if value := strings.TrimSpace(input.Status); value != "" {
		parsed, ok := ParseSessionStatus(value)
		if !ok {
			vErr.add("status", "status must be Draft or Confirmed")
		}
		status = parsed
	}

	state := invitation.Pending()
	if value := strings.TrimSpace(input.InviteStatus); value != "" {
		parsed, ok := invitation.ParseStatus(value)
		if !ok {
			vErr.add("inviteStatus", "inviteStatus must be Pending, Accepted or Declined")
		}
		state = invitation.State{Status: parsed}
	}

	if vErr.HasErrors() {
		return Session{}, false, vErr
	}

	eventID := strings.TrimSpace(input.EventID)
	if eventID == "" {
		eventID = s.cfg.DefaultEventID
	}

	createdAt := s.now().UTC()
	session := Session{
		ID:            s.idGenerator(),
		EventID:       eventID,
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		FacultyID:     strings.TrimSpace(input.FacultyID),
		FacultyEmail:  strings.TrimSpace(input.Email),
		Place:         strings.TrimSpace(input.Place),
		HallID:        strings.TrimSpace(input.RoomID),
		Start:         window.Start,
		End:           window.End,
		DateBased:     window.DateBased,
		Status:        status,
		Invitation:    state,
		Travel:        input.Travel,
		Accommodation: input.Accommodation,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}

	checkConflicts := !window.DateBased || s.cfg.CheckDateBasedConflicts
	return session, checkConflicts, nil
}

// applyPatch returns existing with patch applied. existing is not modified.
func (s *SessionService) applyPatch(existing Session, patch SessionPatch) (Session, *ValidationError) {
	vErr := &ValidationError{}
	next := existing

	setRequired := func(field string, value *string, target *string) {
		if value == nil {
			return
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			vErr.add(field, field+" cannot be empty")
			return
		}
		*target = trimmed
	}

	setRequired("eventId", patch.EventID, &next.EventID)
	setRequired("title", patch.Title, &next.Title)
	setRequired("description", patch.Description, &next.Description)
	setRequired("facultyId", patch.FacultyID, &next.FacultyID)
	setRequired("email", patch.Email, &next.FacultyEmail)
	setRequired("place", patch.Place, &next.Place)
	setRequired("roomId", patch.RoomID, &next.HallID)

	if patch.Email != nil && next.FacultyEmail != existing.FacultyEmail && !validEmail(next.FacultyEmail) {
		vErr.add("email", "email is not a valid address")
	}

	if patch.StartTime != nil {
		start, err := ParseInstant(*patch.StartTime, s.cfg.Location)
		if err != nil {
			vErr.add("startTime", "startTime is not a valid time")
		} else {
			next.Start = start.UTC()
			next.DateBased = false
		}
	}
	if patch.EndTime != nil {
		end, err := ParseInstant(*patch.EndTime, s.cfg.Location)
		if err != nil {
			vErr.add("endTime", "endTime is not a valid time")
		} else {
			next.End = end.UTC()
			next.DateBased = false
		}
	}
	if !next.End.After(next.Start) {
		vErr.add("endTime", "endTime must be after startTime")
	}

	if patch.Status != nil {
		status, ok := ParseSessionStatus(*patch.Status)
		if !ok {
			vErr.add("status", "status must be Draft or Confirmed")
		} else {
			next.Status = status
		}
	}

	if patch.InviteStatus != nil {
		status, ok := invitation.ParseStatus(*patch.InviteStatus)
		if !ok {
			vErr.add("inviteStatus", "inviteStatus must be Pending, Accepted or Declined")
		} else if status != existing.Invitation.Status {
			next.Invitation = invitation.State{Status: status}
		}
	}

	if patch.Travel != nil {
		next.Travel = *patch.Travel
	}
	if patch.Accommodation != nil {
		next.Accommodation = *patch.Accommodation
	}

	if vErr.HasErrors() {
		return Session{}, vErr
	}
	return next, nil
}
