// Package invitation models the faculty response lifecycle of a session
// invitation as an explicit sum type of responses applied to a state.
package invitation

import (
	"strings"
	"time"
)

// Status is the faculty controlled response state of an invitation.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusDeclined Status = "Declined"
)

// RejectionReason classifies a declined invitation. The zero value means no
// reason was recorded.
type RejectionReason string

const (
	ReasonNone           RejectionReason = ""
	ReasonNotInterested  RejectionReason = "NotInterested"
	ReasonSuggestedTopic RejectionReason = "SuggestedTopic"
	ReasonTimeConflict   RejectionReason = "TimeConflict"
)

// State holds the invitation fields stored on a session. Fields belonging to
// an inactive rejection branch are always nil.
type State struct {
	Status             Status
	RejectionReason    RejectionReason
	SuggestedTopic     *string
	SuggestedTimeStart *time.Time
	SuggestedTimeEnd   *time.Time
	OptionalQuery      *string
}

// Pending returns the initial state assigned to new sessions.
func Pending() State {
	return State{Status: StatusPending}
}

// ParseStatus resolves a status from user input, accepting any letter case.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending":
		return StatusPending, true
	case "accepted":
		return StatusAccepted, true
	case "declined":
		return StatusDeclined, true
	}
	return "", false
}

// ParseRejectionReason resolves a stored rejection reason.
func ParseRejectionReason(value string) (RejectionReason, bool) {
	switch RejectionReason(strings.TrimSpace(value)) {
	case ReasonNone:
		return ReasonNone, true
	case ReasonNotInterested:
		return ReasonNotInterested, true
	case ReasonSuggestedTopic:
		return ReasonSuggestedTopic, true
	case ReasonTimeConflict:
		return ReasonTimeConflict, true
	}
	return ReasonNone, false
}

// Consistent reports whether exactly one rejection branch is populated.
func (s State) Consistent() bool {
	hasTopic := s.SuggestedTopic != nil
	hasTimes := s.SuggestedTimeStart != nil || s.SuggestedTimeEnd != nil

	switch s.RejectionReason {
	case ReasonNone, ReasonNotInterested:
		return !hasTopic && !hasTimes && s.OptionalQuery == nil
	case ReasonSuggestedTopic:
		return s.Status == StatusDeclined && hasTopic && !hasTimes
	case ReasonTimeConflict:
		return s.Status == StatusDeclined && !hasTopic && s.SuggestedTimeStart != nil && s.SuggestedTimeEnd != nil
	}
	return false
}
