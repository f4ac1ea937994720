package invitation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidAction is returned for action values outside the supported set.
	ErrInvalidAction = errors.New("invitation: invalid action")
	// ErrInvalidPayload is wrapped by FieldError when a response is incomplete.
	ErrInvalidPayload = errors.New("invitation: invalid payload")
)

// FieldError identifies the payload field that made a response unusable.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invitation: %s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidPayload
}

// Action is the wire name of a faculty response.
type Action string

const (
	ActionAccept       Action = "accept"
	ActionDecline      Action = "decline"
	ActionSuggestTopic Action = "suggest_topic"
	ActionSuggestTime  Action = "suggest_time"
)

// DeclineNotInterested is the only decline reason with a dedicated branch.
const DeclineNotInterested = "not_interested"

// Response is a faculty answer to an invitation. The set of implementations
// is closed: Accept, Decline, SuggestTopic and SuggestTime.
type Response interface {
	Action() Action
	validate() error
}

// Accept confirms the invited slot.
type Accept struct{}

// Decline rejects the slot, optionally recording why.
type Decline struct {
	Reason string
}

// SuggestTopic rejects the slot and proposes a different topic.
type SuggestTopic struct {
	Topic string
	Note  *string
}

// SuggestTime rejects the slot and proposes a different time window.
type SuggestTime struct {
	Start time.Time
	End   time.Time
	Note  *string
}

func (Accept) Action() Action       { return ActionAccept }
func (Decline) Action() Action      { return ActionDecline }
func (SuggestTopic) Action() Action { return ActionSuggestTopic }
func (SuggestTime) Action() Action  { return ActionSuggestTime }

func (Accept) validate() error  { return nil }
func (Decline) validate() error { return nil }

func (r SuggestTopic) validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return &FieldError{Field: "suggestedTopic", Message: "suggested topic is required"}
	}
	return nil
}

func (r SuggestTime) validate() error {
	if r.Start.IsZero() {
		return &FieldError{Field: "suggestedTimeStart", Message: "suggested start is required"}
	}
	if r.End.IsZero() {
		return &FieldError{Field: "suggestedTimeEnd", Message: "suggested end is required"}
	}
	if !r.Start.Before(r.End) {
		return &FieldError{Field: "suggestedTimeEnd", Message: "suggested end must be after start"}
	}
	return nil
}

// Payload carries the loosely typed request fields of a response.
type Payload struct {
	Reason             string
	SuggestedTopic     string
	SuggestedTimeStart *time.Time
	SuggestedTimeEnd   *time.Time
	OptionalQuery      *string
}

// ParseResponse converts an action name and its payload into a Response.
func ParseResponse(action string, payload Payload) (Response, error) {
	var resp Response
	switch Action(strings.ToLower(strings.TrimSpace(action))) {
	case ActionAccept:
		resp = Accept{}
	case ActionDecline:
		resp = Decline{Reason: strings.TrimSpace(payload.Reason)}
	case ActionSuggestTopic:
		resp = SuggestTopic{Topic: strings.TrimSpace(payload.SuggestedTopic), Note: normalizeNote(payload.OptionalQuery)}
	case ActionSuggestTime:
		st := SuggestTime{Note: normalizeNote(payload.OptionalQuery)}
		if payload.SuggestedTimeStart != nil {
			st.Start = *payload.SuggestedTimeStart
		}
		if payload.SuggestedTimeEnd != nil {
			st.End = *payload.SuggestedTimeEnd
		}
		resp = st
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if err := resp.validate(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Apply transitions state according to resp. Fields of the branch that is no
// longer active are cleared. The input state is never modified.
func Apply(state State, resp Response) (State, error) {
	if resp == nil {
		return state, ErrInvalidAction
	}
	if err := resp.validate(); err != nil {
		return state, err
	}

	switch r := resp.(type) {
	case Accept:
		return State{Status: StatusAccepted}, nil
	case Decline:
		next := State{Status: StatusDeclined}
		if r.Reason == DeclineNotInterested {
			next.RejectionReason = ReasonNotInterested
		}
		return next, nil
	case SuggestTopic:
		topic := strings.TrimSpace(r.Topic)
		return State{
			Status:          StatusDeclined,
			RejectionReason: ReasonSuggestedTopic,
			SuggestedTopic:  &topic,
			OptionalQuery:   cloneString(r.Note),
		}, nil
	case SuggestTime:
		start, end := r.Start, r.End
		return State{
			Status:             StatusDeclined,
			RejectionReason:    ReasonTimeConflict,
			SuggestedTimeStart: &start,
			SuggestedTimeEnd:   &end,
			OptionalQuery:      cloneString(r.Note),
		}, nil
	}

	return state, fmt.Errorf("%w: %T", ErrInvalidAction, resp)
}

func normalizeNote(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
