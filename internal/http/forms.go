package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/invitation"
)

const (
	maxBodyBytes      = 1 << 20
	maxMultipartBytes = 8 << 20
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors converts validator output into the field map rendered by the
// responder. Nested fields keep their namespace without the root struct.
func fieldErrors(err error) *application.ValidationError {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return &application.ValidationError{FieldErrors: map[string]string{"body": err.Error()}}
	}
	out := &application.ValidationError{FieldErrors: make(map[string]string, len(vErrs))}
	for _, fe := range vErrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		if _, exists := out.FieldErrors[field]; exists {
			continue
		}
		out.FieldErrors[field] = describeTag(fe)
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " is not a valid address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

// flexBool accepts JSON booleans as well as the strings forms send.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = flexBool(v)
	case string:
		*b = flexBool(parseBool(v))
	case float64:
		*b = v != 0
	case nil:
		*b = false
	default:
		return fmt.Errorf("cannot use %s as boolean", string(data))
	}
	return nil
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "on":
		return true
	}
	return false
}

// sessionRequest is the body of a single session for both the form and the
// JSON batch endpoints.
type sessionRequest struct {
	EventID       string   `json:"eventId"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	FacultyID     string   `json:"facultyId"`
	Email         string   `json:"email"`
	Place         string   `json:"place"`
	RoomID        string   `json:"roomId"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Date          string   `json:"date"`
	Status        string   `json:"status"`
	InviteStatus  string   `json:"inviteStatus"`
	Travel        flexBool `json:"travel"`
	Accommodation flexBool `json:"accommodation"`
}

func (r sessionRequest) toInput() application.SessionInput {
	return application.SessionInput{
		EventID:       strings.TrimSpace(r.EventID),
		Title:         r.Title,
		Description:   r.Description,
		FacultyID:     strings.TrimSpace(r.FacultyID),
		Email:         strings.TrimSpace(r.Email),
		Place:         r.Place,
		RoomID:        strings.TrimSpace(r.RoomID),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Date:          r.Date,
		Status:        r.Status,
		InviteStatus:  r.InviteStatus,
		Travel:        bool(r.Travel),
		Accommodation: bool(r.Accommodation),
	}
}

// formValue returns the first non-empty value among the given keys.
func formValue(values map[string][]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := values[key]; ok && len(v) > 0 && strings.TrimSpace(v[0]) != "" {
			return v[0]
		}
	}
	return ""
}

// parseSessionForm reads a single session from a multipart, urlencoded or
// JSON body.
func parseSessionForm(r *http.Request) (application.SessionInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req sessionRequest
		if err := decodeJSON(r, &req); err != nil {
			return application.SessionInput{}, err
		}
		return req.toInput(), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
			return application.SessionInput{}, fmt.Errorf("%w: %v", errBadRequestBody, err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return application.SessionInput{}, fmt.Errorf("%w: %v", errBadRequestBody, err)
		}
	}

	values := r.PostForm
	if r.MultipartForm != nil {
		values = r.MultipartForm.Value
	}
	req := sessionRequest{
		EventID:       formValue(values, "eventId", "event_id"),
		Title:         formValue(values, "title"),
		Description:   formValue(values, "description"),
		FacultyID:     formValue(values, "facultyId", "faculty_id"),
		Email:         formValue(values, "email"),
		Place:         formValue(values, "place"),
		RoomID:        formValue(values, "roomId", "room_id"),
		StartTime:     formValue(values, "startTime", "suggested_time_start", "start_time"),
		EndTime:       formValue(values, "endTime", "suggested_time_end", "end_time"),
		Date:          formValue(values, "date"),
		Status:        formValue(values, "status"),
		InviteStatus:  formValue(values, "inviteStatus", "invite_status"),
		Travel:        flexBool(parseBool(formValue(values, "travel", "travelStatus"))),
		Accommodation: flexBool(parseBool(formValue(values, "accommodation"))),
	}
	return req.toInput(), nil
}

type batchRequest struct {
	Sessions []sessionRequest `json:"sessions" validate:"required,min=1,max=200"`
}

// patchRequest carries optional fields; absent keys stay nil.
type patchRequest struct {
	EventID       *string   `json:"eventId"`
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	FacultyID     *string   `json:"facultyId"`
	Email         *string   `json:"email"`
	Place         *string   `json:"place"`
	RoomID        *string   `json:"roomId"`
	StartTime     *string   `json:"startTime"`
	EndTime       *string   `json:"endTime"`
	Status        *string   `json:"status"`
	InviteStatus  *string   `json:"inviteStatus"`
	Travel        *flexBool `json:"travel"`
	Accommodation *flexBool `json:"accommodation"`
}

func (p patchRequest) toPatch() application.SessionPatch {
	patch := application.SessionPatch{
		EventID:      p.EventID,
		Title:        p.Title,
		Description:  p.Description,
		FacultyID:    p.FacultyID,
		Email:        p.Email,
		Place:        p.Place,
		RoomID:       p.RoomID,
		StartTime:    p.StartTime,
		EndTime:      p.EndTime,
		Status:       p.Status,
		InviteStatus: p.InviteStatus,
	}
	if p.Travel != nil {
		v := bool(*p.Travel)
		patch.Travel = &v
	}
	if p.Accommodation != nil {
		v := bool(*p.Accommodation)
		patch.Accommodation = &v
	}
	return patch
}

type conflictRequest struct {
	FacultyID        string `json:"facultyId"`
	RoomID           string `json:"roomId"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	ExcludeSessionID string `json:"excludeSessionId"`
}

func (r conflictRequest) toParams() application.ConflictCheckParams {
	return application.ConflictCheckParams{
		FacultyID:        strings.TrimSpace(r.FacultyID),
		RoomID:           strings.TrimSpace(r.RoomID),
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		ExcludeSessionID: strings.TrimSpace(r.ExcludeSessionID),
	}
}

type bulkInviteSessionRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Place       string `json:"place"`
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

type bulkInviteRequest struct {
	FacultyID string                     `json:"facultyId"`
	Email     string                     `json:"email" validate:"omitempty,email"`
	Sessions  []bulkInviteSessionRequest `json:"sessions" validate:"required,min=1,dive"`
}

func (r bulkInviteRequest) toParams(principal application.Principal) application.BulkInviteParams {
	sessions := make([]application.BulkInviteSession, 0, len(r.Sessions))
	for _, s := range r.Sessions {
		sessions = append(sessions, application.BulkInviteSession{
			ID:          strings.TrimSpace(s.ID),
			Title:       s.Title,
			Description: s.Description,
			Place:       s.Place,
			RoomID:      strings.TrimSpace(s.RoomID),
			RoomName:    s.RoomName,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		})
	}
	return application.BulkInviteParams{
		Principal: principal,
		FacultyID: strings.TrimSpace(r.FacultyID),
		Email:     strings.TrimSpace(r.Email),
		Sessions:  sessions,
	}
}

type respondRequest struct {
	Action             string  `json:"action"`
	Email              string  `json:"email"`
	Reason             string  `json:"reason"`
	RejectionReason    string  `json:"rejectionReason"`
	SuggestedTopic     string  `json:"suggestedTopic"`
	SuggestedTimeStart string  `json:"suggestedTimeStart"`
	SuggestedTimeEnd   string  `json:"suggestedTimeEnd"`
	OptionalQuery      *string `json:"optionalQuery"`
}

// toParams parses the suggested window in loc. Unparseable times are
// reported as field errors before the state machine sees them. The recipient
// address is required so the service can match it against the session.
func (r respondRequest) toParams(sessionID string, loc *time.Location) (application.RespondParams, error) {
	vErr := &application.ValidationError{}
	if strings.TrimSpace(r.Email) == "" {
		vErr.FieldErrors = map[string]string{"email": "email is required"}
	}
	start := parseOptionalInstant(r.SuggestedTimeStart, loc, "suggestedTimeStart", vErr)
	end := parseOptionalInstant(r.SuggestedTimeEnd, loc, "suggestedTimeEnd", vErr)
	if vErr.HasErrors() {
		return application.RespondParams{}, vErr
	}

	reason := strings.TrimSpace(r.Reason)
	if reason == "" {
		reason = strings.TrimSpace(r.RejectionReason)
	}
	return application.RespondParams{
		SessionID: sessionID,
		Action:    r.Action,
		Email:     strings.TrimSpace(r.Email),
		Payload: invitation.Payload{
			Reason:             reason,
			SuggestedTopic:     r.SuggestedTopic,
			SuggestedTimeStart: start,
			SuggestedTimeEnd:   end,
			OptionalQuery:      r.OptionalQuery,
		},
	}, nil
}

func parseOptionalInstant(value string, loc *time.Location, field string, vErr *application.ValidationError) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	ts, err := application.ParseInstant(value, loc)
	if err != nil {
		if vErr.FieldErrors == nil {
			vErr.FieldErrors = map[string]string{}
		}
		vErr.FieldErrors[field] = field + " is not a valid time"
		return nil
	}
	ts = ts.UTC()
	return &ts
}

type facultyRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type hallRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
	Capacity int    `json:"capacity" validate:"min=0"`
}
