package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/conference-scheduler/internal/mail"
	"github.com/example/conference-scheduler/internal/scheduler"
)

var tracer = otel.Tracer("github.com/example/conference-scheduler/internal/application")

// Event kinds published on session lifecycle changes.
const (
	EventKindCreated   = "created"
	EventKindUpdated   = "updated"
	EventKindDeleted   = "deleted"
	EventKindResponded = "responded"
)

// SessionEvent is the payload published for lifecycle changes.
type SessionEvent struct {
	Kind         string    `json:"kind"`
	SessionID    string    `json:"sessionId"`
	EventID      string    `json:"eventId"`
	FacultyID    string    `json:"facultyId"`
	RoomID       string    `json:"roomId"`
	Status       string    `json:"status"`
	InviteStatus string    `json:"inviteStatus"`
	Action       string    `json:"action,omitempty"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
	}
	span.End()
}

func publishEvent(ctx context.Context, publisher EventPublisher, logger *slog.Logger, kind string, session Session, action string, now time.Time) {
	if publisher == nil {
		return
	}
	event := SessionEvent{
		Kind:         kind,
		SessionID:    session.ID,
		EventID:      session.EventID,
		FacultyID:    session.FacultyID,
		RoomID:       session.HallID,
		Status:       string(session.Status),
		InviteStatus: string(session.Invitation.Status),
		Action:       action,
		StartTime:    session.Start,
		EndTime:      session.End,
		OccurredAt:   now,
	}
	if err := publisher.Publish(ctx, kind, event); err != nil {
		logger.WarnContext(ctx, "failed to publish session event", "event_kind", kind, "session_id", session.ID, "error", err)
	}
}

func (s *SessionService) recordConflicts(conflicts []scheduler.Conflict) {
	if s.metrics == nil {
		return
	}
	counts := make(map[string]int, 2)
	for _, c := range conflicts {
		counts[string(c.Type)]++
	}
	for kind, n := range counts {
		s.metrics.ConflictsDetected(kind, n)
	}
}

func (s *SessionService) enrich(ctx context.Context, session Session) EnrichedSession {
	enriched := EnrichedSession{
		Session:          session,
		FacultyName:      s.facultyName(ctx, session.FacultyID),
		RoomName:         s.hallName(ctx, session.HallID),
		DurationLabel:    mail.FormatDuration(session.Duration()),
		InvitationStatus: string(session.Invitation.Status),
	}
	enriched.CanTrack = strings.TrimSpace(session.FacultyEmail) != "" && enriched.InvitationStatus != ""
	return enriched
}

func (s *SessionService) enrichAll(ctx context.Context, sessions []Session) []EnrichedSession {
	out := make([]EnrichedSession, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, s.enrich(ctx, session))
	}
	return out
}

func (s *SessionService) facultyName(ctx context.Context, id string) string {
	if id == "" || s.directory == nil {
		return ""
	}
	key := facultyCacheKey(id)
	if name, ok := s.names.Get(key); ok {
		return name
	}
	faculty, err := s.directory.GetFaculty(ctx, id)
	if err != nil {
		if !isNotFound(err) {
			s.logger.WarnContext(ctx, "faculty lookup failed", "faculty_id", id, "error", err)
			return ""
		}
		faculty = Faculty{}
	}
	s.names.Store(key, faculty.Name)
	return faculty.Name
}

func (s *SessionService) hallName(ctx context.Context, id string) string {
	if id == "" || s.directory == nil {
		return ""
	}
	key := hallCacheKey(id)
	if name, ok := s.names.Get(key); ok {
		return name
	}
	hall, err := s.directory.GetHall(ctx, id)
	if err != nil {
		if !isNotFound(err) {
			s.logger.WarnContext(ctx, "hall lookup failed", "hall_id", id, "error", err)
			return ""
		}
		hall = Hall{}
	}
	s.names.Store(key, hall.Name)
	return hall.Name
}

func toMailSession(session EnrichedSession) mail.Session {
	return mail.Session{
		ID:           session.ID,
		Title:        session.Title,
		Description:  session.Description,
		FacultyEmail: session.FacultyEmail,
		Place:        session.Place,
		RoomName:     session.RoomName,
		Start:        session.Start,
		End:          session.End,
	}
}

func newEmailOutcome(recipient string, ids []string, result mail.Result, err error) EmailOutcome {
	outcome := EmailOutcome{Recipient: recipient, SessionIDs: ids}
	switch {
	case err != nil:
		outcome.Status = EmailStatusError
		outcome.Message = err.Error()
	case !result.OK:
		outcome.Status = EmailStatusFailed
		outcome.Message = result.Message
	default:
		outcome.Status = EmailStatusSent
		outcome.Message = result.Message
	}
	return outcome
}

var errMailerMissing = errors.New("mailer not configured")

func (s *SessionService) sendInvites(ctx context.Context, logger *slog.Logger, sessions []EnrichedSession, facultyName, email string) EmailOutcome {
	ids := make([]string, 0, len(sessions))
	views := make([]mail.Session, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
		views = append(views, toMailSession(session))
	}

	var (
		result mail.Result
		err    = errMailerMissing
	)
	if s.mailer != nil {
		result, err = s.mailer.SendBulkInvite(ctx, views, facultyName, email)
	}
	return s.finishEmail(ctx, logger, mail.TemplateInvite, newEmailOutcome(email, ids, result, err))
}

func (s *SessionService) sendSingle(ctx context.Context, logger *slog.Logger, template string, session EnrichedSession) EmailOutcome {
	var (
		result mail.Result
		err    = errMailerMissing
	)
	if s.mailer != nil {
		view := toMailSession(session)
		if template == mail.TemplateCancellation {
			result, err = s.mailer.SendCancellation(ctx, view, session.FacultyName, session.RoomName)
		} else {
			result, err = s.mailer.SendUpdate(ctx, view, session.FacultyName, session.RoomName)
		}
	}
	return s.finishEmail(ctx, logger, template, newEmailOutcome(session.FacultyEmail, []string{session.ID}, result, err))
}

func (s *SessionService) finishEmail(ctx context.Context, logger *slog.Logger, template string, outcome EmailOutcome) EmailOutcome {
	if s.metrics != nil {
		s.metrics.EmailDispatched(template, string(outcome.Status))
	}
	if !outcome.Delivered() {
		logger.WarnContext(ctx, "email not delivered",
			"template", template,
			"recipient", outcome.Recipient,
			"email_status", string(outcome.Status),
			"detail", outcome.Message,
		)
	}
	return outcome
}

func (s *SessionService) responseURL(email string) string {
	if s.mailer == nil || strings.TrimSpace(email) == "" {
		return ""
	}
	return s.mailer.LoginURL(email)
}
