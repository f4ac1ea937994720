package application

import (
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/invitation"
)

// Roles permitted to manage sessions and the directory.
const (
	RoleOrganizer    = "organizer"
	RoleEventManager = "event_manager"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Roles  []string
}

// SystemPrincipal acts for callers when authentication is disabled.
var SystemPrincipal = Principal{UserID: "system", Roles: []string{RoleOrganizer}}

// CanOrganize reports whether the principal may change sessions.
func (p Principal) CanOrganize() bool {
	for _, role := range p.Roles {
		switch strings.ToLower(role) {
		case RoleOrganizer, RoleEventManager:
			return true
		}
	}
	return false
}

// SessionStatus is the organizer controlled publication state.
type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "Draft"
	SessionStatusConfirmed SessionStatus = "Confirmed"
)

// ParseSessionStatus accepts Draft or Confirmed in any case.
func ParseSessionStatus(value string) (SessionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "draft":
		return SessionStatusDraft, true
	case "confirmed":
		return SessionStatusConfirmed, true
	}
	return "", false
}

// Session represents a persisted speaking slot.
type Session struct {
	ID            string
	EventID       string
	Title         string
	Description   string
	FacultyID     string
	FacultyEmail  string
	Place         string
	HallID        string
	Start         time.Time
	End           time.Time
	DateBased     bool
	Status        SessionStatus
	Invitation    invitation.State
	Travel        bool
	Accommodation bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Duration is the scheduled length of the session.
func (s Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// EnrichedSession adds directory names and derived display fields.
type EnrichedSession struct {
	Session
	FacultyName      string
	RoomName         string
	DurationLabel    string
	InvitationStatus string
	CanTrack         bool
}

// Faculty is a directory entry for an invited speaker.
type Faculty struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Hall is a directory entry for a room that sessions are booked into.
type Hall struct {
	ID        string
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionFilter narrows queries issued to the session repository.
type SessionFilter struct {
	IDs          []string
	EventID      string
	FacultyID    string
	FacultyEmail string
	HallID       string
}

// SessionInput captures caller provided session fields. Times are raw strings
// so parse failures surface as field errors.
type SessionInput struct {
	EventID       string
	Title         string
	Description   string
	FacultyID     string
	Email         string
	Place         string
	RoomID        string
	StartTime     string
	EndTime       string
	Date          string
	Status        string
	InviteStatus  string
	Travel        bool
	Accommodation bool
}

// SessionPatch carries a partial update. Nil fields are left unchanged.
type SessionPatch struct {
	EventID       *string
	Title         *string
	Description   *string
	FacultyID     *string
	Email         *string
	Place         *string
	RoomID        *string
	StartTime     *string
	EndTime       *string
	Status        *string
	InviteStatus  *string
	Travel        *bool
	Accommodation *bool
}

// touchesNotifiedFields reports whether the patch changes what the update
// e-mail describes.
func (p SessionPatch) touchesNotifiedFields() bool {
	return p.StartTime != nil || p.EndTime != nil || p.Place != nil || p.RoomID != nil
}

// touchesScheduling reports whether conflicts must be re-checked.
func (p SessionPatch) touchesScheduling() bool {
	return p.StartTime != nil || p.EndTime != nil || p.RoomID != nil || p.FacultyID != nil
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// CreateBatchParams wraps the data required to create several sessions at once.
type CreateBatchParams struct {
	Principal Principal
	Inputs    []SessionInput
}

// UpdateSessionParams wraps the data required to update an existing session.
type UpdateSessionParams struct {
	Principal Principal
	SessionID string
	Patch     SessionPatch
}

// ListSessionsParams filters session listings.
type ListSessionsParams struct {
	EventID   string
	FacultyID string
	Email     string
}

// ConflictCheckParams describes a dry-run conflict check.
type ConflictCheckParams struct {
	FacultyID        string
	RoomID           string
	StartTime        string
	EndTime          string
	ExcludeSessionID string
}

// EmailStatus summarizes a best-effort e-mail attempt.
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
	EmailStatusError  EmailStatus = "error"
)

// EmailOutcome reports a dispatch to one recipient.
type EmailOutcome struct {
	Recipient  string
	SessionIDs []string
	Status     EmailStatus
	Message    string
}

// Delivered reports whether the e-mail went out.
func (o EmailOutcome) Delivered() bool {
	return o.Status == EmailStatusSent
}

// CreateSessionResult is returned by SessionService.CreateSession.
type CreateSessionResult struct {
	Session     EnrichedSession
	Email       EmailOutcome
	ResponseURL string
}

// BatchItem reports the outcome of one entry of a batch create.
type BatchItem struct {
	Index   int
	Session *EnrichedSession
	Err     error
}

// CreateBatchResult is returned by SessionService.CreateBatch.
type CreateBatchResult struct {
	Items  []BatchItem
	Emails []EmailOutcome
}

// Created returns the sessions persisted by the batch.
func (r CreateBatchResult) Created() []EnrichedSession {
	out := make([]EnrichedSession, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Session != nil {
			out = append(out, *item.Session)
		}
	}
	return out
}

// UpdateSessionResult is returned by SessionService.UpdateSession. Email is
// nil when the patch did not touch notified fields.
type UpdateSessionResult struct {
	Session EnrichedSession
	Email   *EmailOutcome
}

// DeleteSessionResult is returned by SessionService.DeleteSession. Email is
// nil unless cancellation notices are enabled.
type DeleteSessionResult struct {
	SessionID string
	Email     *EmailOutcome
}

// BulkInviteSession is a client supplied session reference. Fields other than
// ID are used only when no stored session matches.
type BulkInviteSession struct {
	ID          string
	Title       string
	Description string
	Place       string
	RoomID      string
	RoomName    string
	StartTime   string
	EndTime     string
}

// BulkInviteParams wraps the data required to send a bulk invitation.
type BulkInviteParams struct {
	Principal Principal
	FacultyID string
	Email     string
	Sessions  []BulkInviteSession
}

// BulkInviteResult reports one outcome per recipient.
type BulkInviteResult struct {
	Emails       []EmailOutcome
	UsedFallback bool
}

// AllDelivered reports whether every recipient was reached.
func (r BulkInviteResult) AllDelivered() bool {
	if len(r.Emails) == 0 {
		return false
	}
	for _, outcome := range r.Emails {
		if !outcome.Delivered() {
			return false
		}
	}
	return true
}

// RespondParams wraps a faculty response to an invitation.
type RespondParams struct {
	SessionID string
	Action    string
	Payload   invitation.Payload
	// Email, when set, must match the session's faculty e-mail.
	Email string
}

// FacultyInput captures caller provided faculty fields.
type FacultyInput struct {
	ID    string
	Name  string
	Email string
}

// HallInput captures caller provided hall fields.
type HallInput struct {
	ID       string
	Name     string
	Location string
	Capacity int
}
