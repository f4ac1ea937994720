package http

import (
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/scheduler"
)

type sessionDTO struct {
	ID                 string  `json:"id"`
	EventID            string  `json:"eventId"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	FacultyID          string  `json:"facultyId"`
	FacultyEmail       string  `json:"facultyEmail"`
	Place              string  `json:"place"`
	RoomID             string  `json:"roomId"`
	StartTime          string  `json:"startTime"`
	EndTime            string  `json:"endTime"`
	DateBased          bool    `json:"dateBased"`
	Status             string  `json:"status"`
	InviteStatus       string  `json:"inviteStatus"`
	RejectionReason    string  `json:"rejectionReason,omitempty"`
	SuggestedTopic     *string `json:"suggestedTopic,omitempty"`
	SuggestedTimeStart *string `json:"suggestedTimeStart,omitempty"`
	SuggestedTimeEnd   *string `json:"suggestedTimeEnd,omitempty"`
	OptionalQuery      *string `json:"optionalQuery,omitempty"`
	Travel             bool    `json:"travel"`
	Accommodation      bool    `json:"accommodation"`
	CreatedAt          string  `json:"createdAt,omitempty"`
	UpdatedAt          string  `json:"updatedAt,omitempty"`

	FacultyName      string `json:"facultyName"`
	RoomName         string `json:"roomName"`
	Duration         string `json:"duration"`
	InvitationStatus string `json:"invitationStatus"`
	CanTrack         bool   `json:"canTrack"`
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func formatTimePtr(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	formatted := formatTime(*ts)
	return &formatted
}

func toSessionDTO(session application.EnrichedSession) sessionDTO {
	inv := session.Invitation
	return sessionDTO{
		ID:                 session.ID,
		EventID:            session.EventID,
		Title:              session.Title,
		Description:        session.Description,
		FacultyID:          session.FacultyID,
		FacultyEmail:       session.FacultyEmail,
		Place:              session.Place,
		RoomID:             session.HallID,
		StartTime:          formatTime(session.Start),
		EndTime:            formatTime(session.End),
		DateBased:          session.DateBased,
		Status:             string(session.Status),
		InviteStatus:       string(inv.Status),
		RejectionReason:    string(inv.RejectionReason),
		SuggestedTopic:     inv.SuggestedTopic,
		SuggestedTimeStart: formatTimePtr(inv.SuggestedTimeStart),
		SuggestedTimeEnd:   formatTimePtr(inv.SuggestedTimeEnd),
		OptionalQuery:      inv.OptionalQuery,
		Travel:             session.Travel,
		Accommodation:      session.Accommodation,
		CreatedAt:          formatTime(session.CreatedAt),
		UpdatedAt:          formatTime(session.UpdatedAt),
		FacultyName:        session.FacultyName,
		RoomName:           session.RoomName,
		Duration:           session.DurationLabel,
		InvitationStatus:   session.InvitationStatus,
		CanTrack:           session.CanTrack,
	}
}

func toSessionDTOs(sessions []application.EnrichedSession) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

type conflictDTO struct {
	SessionID            string `json:"sessionId,omitempty"`
	ConflictingSessionID string `json:"conflictingSessionId"`
	Type                 string `json:"type"`
	Message              string `json:"message"`
}

func toConflictDTOs(conflicts []scheduler.Conflict) []conflictDTO {
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			SessionID:            c.SessionID,
			ConflictingSessionID: c.ConflictingSessionID,
			Type:                 string(c.Type),
			Message:              c.Message,
		})
	}
	return out
}

type emailDTO struct {
	Recipient  string   `json:"recipient"`
	SessionIDs []string `json:"sessionIds"`
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
}

func toEmailDTOs(outcomes []application.EmailOutcome) []emailDTO {
	out := make([]emailDTO, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, emailDTO{Recipient: o.Recipient, SessionIDs: o.SessionIDs, Status: string(o.Status), Message: o.Message})
	}
	return out
}

type facultyDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type hallDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Capacity int    `json:"capacity"`
}

func toFacultyDTO(f application.Faculty) facultyDTO {
	return facultyDTO{ID: f.ID, Name: f.Name, Email: f.Email}
}

func toHallDTO(h application.Hall) hallDTO {
	return hallDTO{ID: h.ID, Name: h.Name, Location: h.Location, Capacity: h.Capacity}
}

type sessionData struct {
	Session sessionDTO `json:"session"`
}

type sessionsData struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionResponse struct {
	Success      bool        `json:"success"`
	Data         sessionData `json:"data"`
	EmailStatus  string      `json:"emailStatus,omitempty"`
	EmailMessage string      `json:"emailMessage,omitempty"`
	ResponseURL  string      `json:"responseUrl,omitempty"`
	Warning      string      `json:"warning,omitempty"`
}

type listSessionsResponse struct {
	Success bool         `json:"success"`
	Data    sessionsData `json:"data"`
	Count   int          `json:"count"`
}

type batchItemError struct {
	Index     int               `json:"index"`
	Error     string            `json:"error"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type batchData struct {
	Sessions []sessionDTO    `json:"sessions"`
	Errors   []batchItemError `json:"errors,omitempty"`
}

type batchResponse struct {
	Success bool       `json:"success"`
	Data    batchData  `json:"data"`
	Count   int        `json:"count"`
	Emails  []emailDTO `json:"emails"`
	Warning string     `json:"warning,omitempty"`
}

type conflictsData struct {
	Conflicts []conflictDTO `json:"conflicts"`
}

type conflictsResponse struct {
	Success bool          `json:"success"`
	Data    conflictsData `json:"data"`
	Count   int           `json:"count"`
}

type bulkInviteResponse struct {
	Success      bool       `json:"success"`
	Emails       []emailDTO `json:"emails"`
	UsedFallback bool       `json:"usedFallback"`
	Warning      string     `json:"warning,omitempty"`
}

type deleteData struct {
	ID string `json:"id"`
}

type deleteResponse struct {
	Success      bool       `json:"success"`
	Data         deleteData `json:"data"`
	EmailStatus  string     `json:"emailStatus,omitempty"`
	EmailMessage string     `json:"emailMessage,omitempty"`
}

type facultyListResponse struct {
	Success bool         `json:"success"`
	Data    []facultyDTO `json:"data"`
	Count   int          `json:"count"`
}

type hallListResponse struct {
	Success bool      `json:"success"`
	Data    []hallDTO `json:"data"`
	Count   int       `json:"count"`
}

type facultyResponse struct {
	Success bool       `json:"success"`
	Data    facultyDTO `json:"data"`
}

type hallResponse struct {
	Success bool    `json:"success"`
	Data    hallDTO `json:"data"`
}
