package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/invitation"
)

// InvitationService records faculty responses to session invitations.
type InvitationService struct {
	sessions SessionStore
	metrics  MetricsRecorder
	events   EventPublisher
	now      func() time.Time
	logger   *slog.Logger
}

// NewInvitationService wires dependencies for invitation responses.
func NewInvitationService(sessions SessionStore, metrics MetricsRecorder, events EventPublisher, now func() time.Time, logger *slog.Logger) *InvitationService {
	if now == nil {
		now = time.Now
	}
	return &InvitationService{
		sessions: sessions,
		metrics:  metrics,
		events:   events,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// Respond applies a faculty response to the session's invitation state. An
// invalid action or payload leaves the stored state untouched.
func (s *InvitationService) Respond(ctx context.Context, params RespondParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("InvitationService is nil")
		return
	}

	ctx, span := tracer.Start(ctx, "InvitationService.Respond")
	defer func() { endSpan(span, err) }()

	sessionID := strings.TrimSpace(params.SessionID)
	action := strings.TrimSpace(params.Action)
	logger := serviceLogger(ctx, s.logger, "InvitationService", "Respond",
		"session_id", sessionID,
		"action", action,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record invitation response", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("invite_status", string(session.Invitation.Status)).InfoContext(ctx, "invitation response recorded")
	}()

	if sessionID == "" {
		vErr := &ValidationError{}
		vErr.add("sessionId", "sessionId is required")
		err = vErr
		return
	}

	resp, parseErr := invitation.ParseResponse(action, params.Payload)
	if parseErr != nil {
		err = mapInvitationError(action, parseErr)
		return
	}

	err = s.sessions.WithinTransaction(ctx, func(ctx context.Context, repo SessionRepository) error {
		existing, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			return mapSessionRepoError(err)
		}
		if email := strings.TrimSpace(params.Email); email != "" && !strings.EqualFold(email, existing.FacultyEmail) {
			return ErrUnauthorized
		}

		next, err := invitation.Apply(existing.Invitation, resp)
		if err != nil {
			return mapInvitationError(action, err)
		}
		existing.Invitation = next
		existing.UpdatedAt = s.now().UTC()

		stored, err := repo.UpdateSession(ctx, existing)
		if err != nil {
			return mapSessionRepoError(err)
		}
		session = stored
		return nil
	})
	if err != nil {
		return
	}

	if s.metrics != nil {
		s.metrics.InvitationResponded(string(resp.Action()))
	}
	publishEvent(ctx, s.events, logger, EventKindResponded, session, string(resp.Action()), s.now())
	return
}

func mapInvitationError(action string, err error) error {
	if errors.Is(err, invitation.ErrInvalidAction) {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	var fieldErr *invitation.FieldError
	if errors.As(err, &fieldErr) {
		vErr := &ValidationError{}
		vErr.add(fieldErr.Field, fieldErr.Message)
		return vErr
	}
	return err
}
