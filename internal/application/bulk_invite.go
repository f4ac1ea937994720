package application

import (
	"context"
	"fmt"
	"strings"
)

// recipientGroup collects the sessions addressed to one e-mail address.
type recipientGroup struct {
	Email    string
	Sessions []EnrichedSession
}

// FacultyName is the first non-empty faculty name among the group's sessions.
func (g recipientGroup) FacultyName() string {
	for _, session := range g.Sessions {
		if session.FacultyName != "" {
			return session.FacultyName
		}
	}
	return ""
}

// groupByRecipient groups sessions by case-insensitive faculty e-mail,
// preserving first-seen order. Sessions without an address use fallback;
// those still without one are dropped.
func groupByRecipient(sessions []EnrichedSession, fallback string) []recipientGroup {
	fallback = strings.TrimSpace(fallback)
	index := make(map[string]int)
	var groups []recipientGroup
	for _, session := range sessions {
		email := strings.TrimSpace(session.FacultyEmail)
		if email == "" {
			email = fallback
		}
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, recipientGroup{Email: email})
		}
		groups[i].Sessions = append(groups[i].Sessions, session)
	}
	return groups
}

// BulkInvite sends one invitation per recipient covering the referenced
// sessions. Stored sessions are preferred; when none of the ids resolve the
// client supplied details are used instead.
func (s *SessionService) BulkInvite(ctx context.Context, params BulkInviteParams) (result BulkInviteResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	ctx, span := tracer.Start(ctx, "SessionService.BulkInvite")
	defer func() { endSpan(span, err) }()

	logger := s.loggerWith(ctx, "BulkInvite",
		"principal_id", params.Principal.UserID,
		"faculty_id", params.FacultyID,
		"session_count", len(params.Sessions),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send bulk invitation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("email_count", len(result.Emails), "used_fallback", result.UsedFallback).InfoContext(ctx, "bulk invitation processed")
	}()

	if !params.Principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	if len(params.Sessions) == 0 {
		vErr.add("sessions", "at least one session is required")
	}
	email := strings.TrimSpace(params.Email)
	if email != "" && !validEmail(email) {
		vErr.add("email", "email is not a valid address")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var sessions []EnrichedSession
	sessions, err = s.resolveInviteSessions(ctx, params)
	if err != nil {
		return
	}
	if len(sessions) == 0 {
		result.UsedFallback = true
		sessions, err = s.fallbackInviteSessions(ctx, params)
		if err != nil {
			return
		}
	}

	groups := groupByRecipient(sessions, email)
	if len(groups) == 0 {
		vErr.add("email", "email is required")
		err = vErr
		return
	}

	for _, group := range groups {
		name := group.FacultyName()
		if name == "" {
			name = s.facultyName(ctx, strings.TrimSpace(params.FacultyID))
		}
		result.Emails = append(result.Emails, s.sendInvites(ctx, logger, group.Sessions, name, group.Email))
	}
	return
}

// resolveInviteSessions loads stored sessions in request order.
func (s *SessionService) resolveInviteSessions(ctx context.Context, params BulkInviteParams) ([]EnrichedSession, error) {
	ids := make([]string, 0, len(params.Sessions))
	for _, ref := range params.Sessions {
		if id := strings.TrimSpace(ref.ID); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || s.sessions == nil {
		return nil, nil
	}

	stored, err := s.sessions.ListSessions(ctx, SessionFilter{IDs: ids})
	if err != nil {
		return nil, mapSessionRepoError(err)
	}
	byID := make(map[string]Session, len(stored))
	for _, session := range stored {
		byID[session.ID] = session
	}

	out := make([]EnrichedSession, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		session, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, s.enrich(ctx, session))
	}
	return out, nil
}

func (s *SessionService) fallbackInviteSessions(ctx context.Context, params BulkInviteParams) ([]EnrichedSession, error) {
	vErr := &ValidationError{}
	out := make([]EnrichedSession, 0, len(params.Sessions))
	for i, ref := range params.Sessions {
		prefix := fmt.Sprintf("sessions[%d].", i)
		title := strings.TrimSpace(ref.Title)
		if title == "" {
			vErr.add(prefix+"title", "title is required")
		}
		start, err := ParseInstant(ref.StartTime, s.cfg.Location)
		if err != nil {
			vErr.add(prefix+"startTime", "startTime is not a valid time")
		}
		end, endErr := ParseInstant(ref.EndTime, s.cfg.Location)
		if endErr != nil {
			vErr.add(prefix+"endTime", "endTime is not a valid time")
		}
		if err != nil || endErr != nil || title == "" {
			continue
		}

		session := Session{
			ID:           strings.TrimSpace(ref.ID),
			Title:        title,
			Description:  strings.TrimSpace(ref.Description),
			FacultyID:    strings.TrimSpace(params.FacultyID),
			FacultyEmail: strings.TrimSpace(params.Email),
			Place:        strings.TrimSpace(ref.Place),
			HallID:       strings.TrimSpace(ref.RoomID),
			Start:        start.UTC(),
			End:          end.UTC(),
		}
		enriched := s.enrich(ctx, session)
		if name := strings.TrimSpace(ref.RoomName); name != "" {
			enriched.RoomName = name
		}
		out = append(out, enriched)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}
	return out, nil
}
