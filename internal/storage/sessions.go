// Package storage adapts a persistence.Store to the repository ports of the
// application layer.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/invitation"
	"github.com/example/conference-scheduler/internal/persistence"
)

// SessionStore implements application.SessionStore.
type SessionStore struct {
	store persistence.Store
}

var _ application.SessionStore = (*SessionStore)(nil)

func NewSessionStore(store persistence.Store) *SessionStore {
	return &SessionStore{store: store}
}

func (s *SessionStore) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := s.store.CreateSession(ctx, toRecord(session)); err != nil {
		return application.Session{}, err
	}
	return session, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (application.Session, error) {
	record, err := s.store.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return fromRecord(record), nil
}

func (s *SessionStore) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := s.store.UpdateSession(ctx, toRecord(session)); err != nil {
		return application.Session{}, err
	}
	return session, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	return s.store.DeleteSession(ctx, id)
}

func (s *SessionStore) ListSessions(ctx context.Context, filter application.SessionFilter) ([]application.Session, error) {
	records, err := s.store.ListSessions(ctx, persistence.SessionFilter{
		IDs:          append([]string(nil), filter.IDs...),
		EventID:      filter.EventID,
		FacultyID:    filter.FacultyID,
		FacultyEmail: filter.FacultyEmail,
		HallID:       filter.HallID,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	sessions := make([]application.Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, fromRecord(record))
	}
	return sessions, nil
}

// WithinTransaction hands fn a repository bound to one store transaction.
func (s *SessionStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo application.SessionRepository) error) error {
	return s.store.WithinTransaction(ctx, func(ctx context.Context, tx persistence.Store) error {
		return fn(ctx, &SessionStore{store: tx})
	})
}

func toRecord(session application.Session) persistence.Session {
	inv := session.Invitation
	record := persistence.Session{
		ID:                 session.ID,
		EventID:            session.EventID,
		Title:              session.Title,
		Description:        session.Description,
		FacultyID:          session.FacultyID,
		FacultyEmail:       session.FacultyEmail,
		Place:              session.Place,
		HallID:             session.HallID,
		Start:              session.Start,
		End:                session.End,
		DateBased:          session.DateBased,
		Status:             string(session.Status),
		InviteStatus:       string(inv.Status),
		SuggestedTopic:     cloneString(inv.SuggestedTopic),
		SuggestedTimeStart: cloneTime(inv.SuggestedTimeStart),
		SuggestedTimeEnd:   cloneTime(inv.SuggestedTimeEnd),
		OptionalQuery:      cloneString(inv.OptionalQuery),
		Travel:             session.Travel,
		Accommodation:      session.Accommodation,
		CreatedAt:          session.CreatedAt,
		UpdatedAt:          session.UpdatedAt,
	}
	if inv.RejectionReason != invitation.ReasonNone {
		reason := string(inv.RejectionReason)
		record.RejectionReason = &reason
	}
	return record
}

func fromRecord(record persistence.Session) application.Session {
	status, ok := application.ParseSessionStatus(record.Status)
	if !ok {
		status = application.SessionStatusDraft
	}
	inviteStatus, ok := invitation.ParseStatus(record.InviteStatus)
	if !ok {
		inviteStatus = invitation.StatusPending
	}
	state := invitation.State{
		Status:             inviteStatus,
		SuggestedTopic:     cloneString(record.SuggestedTopic),
		SuggestedTimeStart: cloneTime(record.SuggestedTimeStart),
		SuggestedTimeEnd:   cloneTime(record.SuggestedTimeEnd),
		OptionalQuery:      cloneString(record.OptionalQuery),
	}
	if record.RejectionReason != nil {
		if reason, ok := invitation.ParseRejectionReason(strings.TrimSpace(*record.RejectionReason)); ok {
			state.RejectionReason = reason
		}
	}

	return application.Session{
		ID:            record.ID,
		EventID:       record.EventID,
		Title:         record.Title,
		Description:   record.Description,
		FacultyID:     record.FacultyID,
		FacultyEmail:  record.FacultyEmail,
		Place:         record.Place,
		HallID:        record.HallID,
		Start:         record.Start.UTC(),
		End:           record.End.UTC(),
		DateBased:     record.DateBased,
		Status:        status,
		Invitation:    state,
		Travel:        record.Travel,
		Accommodation: record.Accommodation,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}
