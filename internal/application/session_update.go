package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/conference-scheduler/internal/invitation"
	"github.com/example/conference-scheduler/internal/mail"
)

// UpdateSession applies a partial update. When scheduling fields change the
// conflict check runs again, excluding the session itself. An update e-mail
// goes out only when start, end, place or room were part of the patch.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (result UpdateSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	ctx, span := tracer.Start(ctx, "SessionService.UpdateSession")
	defer func() { endSpan(span, err) }()

	sessionID := strings.TrimSpace(params.SessionID)
	logger := s.loggerWith(ctx, "UpdateSession",
		"principal_id", params.Principal.UserID,
		"session_id", sessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		attrs := []any{}
		if result.Email != nil {
			attrs = append(attrs, "email_status", string(result.Email.Status))
		}
		logger.With(attrs...).InfoContext(ctx, "session updated")
	}()

	if !params.Principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}
	if sessionID == "" {
		vErr := &ValidationError{}
		vErr.add("id", "id is required")
		err = vErr
		return
	}

	var current Session
	current, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	var updated Session
	for attempt := 1; ; attempt++ {
		keys := updateLockKeys(current, params.Patch)
		release := s.locks.Lock(keys...)
		updated, current, err = s.updateLocked(ctx, sessionID, params.Patch, keys)
		release()
		if !errors.Is(err, errLocksStale) {
			break
		}
		if attempt == maxUpdateLockAttempts {
			err = fmt.Errorf("application: session %s reassigned during update: %w", sessionID, err)
			return
		}
		logger.DebugContext(ctx, "session moved before locks were held; retrying", "attempt", attempt)
	}
	if err != nil {
		return
	}

	publishEvent(ctx, s.events, logger, EventKindUpdated, updated, "", s.now())
	result.Session = s.enrich(ctx, updated)

	if params.Patch.touchesNotifiedFields() {
		outcome := s.sendSingle(ctx, logger, mail.TemplateUpdate, result.Session)
		result.Email = &outcome
	}
	return
}

// errLocksStale reports that the stored session names a faculty member or hall
// the caller did not lock.
var errLocksStale = errors.New("application: resource locks are stale")

const maxUpdateLockAttempts = 3

func updateLockKeys(current Session, patch SessionPatch) []string {
	facultyIDs := []string{current.FacultyID}
	hallIDs := []string{current.HallID}
	if patch.FacultyID != nil {
		facultyIDs = append(facultyIDs, strings.TrimSpace(*patch.FacultyID))
	}
	if patch.RoomID != nil {
		hallIDs = append(hallIDs, strings.TrimSpace(*patch.RoomID))
	}
	return sessionLockKeys(facultyIDs, hallIDs)
}

// updateLocked runs the patch inside a transaction while keys are held. When
// the session read under the locks is not covered by keys it returns
// errLocksStale together with that session so the caller can relock.
func (s *SessionService) updateLocked(ctx context.Context, sessionID string, patch SessionPatch, keys []string) (updated, seen Session, err error) {
	held := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		held[key] = struct{}{}
	}

	err = s.sessions.WithinTransaction(ctx, func(ctx context.Context, repo SessionRepository) error {
		existing, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			return mapSessionRepoError(err)
		}
		seen = existing
		for _, key := range sessionLockKeys([]string{existing.FacultyID}, []string{existing.HallID}) {
			if _, ok := held[key]; !ok {
				return errLocksStale
			}
		}

		next, vErr := s.applyPatch(existing, patch)
		if vErr.HasErrors() {
			return vErr
		}

		if patch.touchesScheduling() && (!next.DateBased || s.cfg.CheckDateBasedConflicts) {
			conflicts, err := s.findConflicts(ctx, repo, candidateFor(next), next.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				s.recordConflicts(conflicts)
				return &ConflictError{Conflicts: conflicts}
			}
		}

		if s.cfg.ResetInviteOnReschedule && patch.InviteStatus == nil && rescheduled(existing, next) {
			next.Invitation = invitation.Pending()
		}

		next.UpdatedAt = s.now().UTC()
		stored, err := repo.UpdateSession(ctx, next)
		if err != nil {
			return mapSessionRepoError(err)
		}
		updated = stored
		return nil
	})
	return updated, seen, err
}

// DeleteSession removes a session. A cancellation notice is sent when
// configured.
func (s *SessionService) DeleteSession(ctx context.Context, principal Principal, id string) (result DeleteSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	ctx, span := tracer.Start(ctx, "SessionService.DeleteSession")
	defer func() { endSpan(span, err) }()

	sessionID := strings.TrimSpace(id)
	logger := s.loggerWith(ctx, "DeleteSession",
		"principal_id", principal.UserID,
		"session_id", sessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session deleted")
	}()

	if !principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}

	var existing Session
	existing, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}
	if err = s.sessions.DeleteSession(ctx, sessionID); err != nil {
		err = mapSessionRepoError(err)
		return
	}

	result.SessionID = sessionID
	publishEvent(ctx, s.events, logger, EventKindDeleted, existing, "", s.now())

	if s.cfg.NotifyOnDelete && strings.TrimSpace(existing.FacultyEmail) != "" {
		outcome := s.sendSingle(ctx, logger, mail.TemplateCancellation, s.enrich(ctx, existing))
		result.Email = &outcome
	}
	return
}

func rescheduled(before, after Session) bool {
	return !before.Start.Equal(after.Start) || !before.End.Equal(after.End) || before.HallID != after.HallID
}
