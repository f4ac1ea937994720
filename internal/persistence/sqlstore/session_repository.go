package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/conference-scheduler/internal/persistence"
)

const sessionColumns = `id, event_id, title, description, faculty_id, faculty_email, place, hall_id,
	start_time, end_time, date_based, status, invite_status, rejection_reason, suggested_topic,
	suggested_time_start, suggested_time_end, optional_query, travel, accommodation, created_at, updated_at`

type sessionRow struct {
	ID                 string         `db:"id"`
	EventID            string         `db:"event_id"`
	Title              string         `db:"title"`
	Description        string         `db:"description"`
	FacultyID          string         `db:"faculty_id"`
	FacultyEmail       string         `db:"faculty_email"`
	Place              string         `db:"place"`
	HallID             string         `db:"hall_id"`
	StartTime          string         `db:"start_time"`
	EndTime            string         `db:"end_time"`
	DateBased          bool           `db:"date_based"`
	Status             string         `db:"status"`
	InviteStatus       string         `db:"invite_status"`
	RejectionReason    sql.NullString `db:"rejection_reason"`
	SuggestedTopic     sql.NullString `db:"suggested_topic"`
	SuggestedTimeStart sql.NullString `db:"suggested_time_start"`
	SuggestedTimeEnd   sql.NullString `db:"suggested_time_end"`
	OptionalQuery      sql.NullString `db:"optional_query"`
	Travel             bool           `db:"travel"`
	Accommodation      bool           `db:"accommodation"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
}

func toSessionRow(session persistence.Session) sessionRow {
	return sessionRow{
		ID:                 session.ID,
		EventID:            session.EventID,
		Title:              session.Title,
		Description:        session.Description,
		FacultyID:          session.FacultyID,
		FacultyEmail:       session.FacultyEmail,
		Place:              session.Place,
		HallID:             session.HallID,
		StartTime:          formatTime(session.Start),
		EndTime:            formatTime(session.End),
		DateBased:          session.DateBased,
		Status:             session.Status,
		InviteStatus:       session.InviteStatus,
		RejectionReason:    nullString(session.RejectionReason),
		SuggestedTopic:     nullString(session.SuggestedTopic),
		SuggestedTimeStart: nullTime(session.SuggestedTimeStart),
		SuggestedTimeEnd:   nullTime(session.SuggestedTimeEnd),
		OptionalQuery:      nullString(session.OptionalQuery),
		Travel:             session.Travel,
		Accommodation:      session.Accommodation,
		CreatedAt:          formatTime(session.CreatedAt),
		UpdatedAt:          formatTime(session.UpdatedAt),
	}
}

func (r sessionRow) toModel() (persistence.Session, error) {
	session := persistence.Session{
		ID:              r.ID,
		EventID:         r.EventID,
		Title:           r.Title,
		Description:     r.Description,
		FacultyID:       r.FacultyID,
		FacultyEmail:    r.FacultyEmail,
		Place:           r.Place,
		HallID:          r.HallID,
		DateBased:       r.DateBased,
		Status:          r.Status,
		InviteStatus:    r.InviteStatus,
		RejectionReason: stringPtr(r.RejectionReason),
		SuggestedTopic:  stringPtr(r.SuggestedTopic),
		OptionalQuery:   stringPtr(r.OptionalQuery),
		Travel:          r.Travel,
		Accommodation:   r.Accommodation,
	}

	var err error
	if session.Start, err = parseTime(r.StartTime); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlstore: session %s start_time: %w", r.ID, err)
	}
	if session.End, err = parseTime(r.EndTime); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlstore: session %s end_time: %w", r.ID, err)
	}
	if session.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlstore: session %s created_at: %w", r.ID, err)
	}
	if session.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlstore: session %s updated_at: %w", r.ID, err)
	}
	if session.SuggestedTimeStart, err = timePtr(r.SuggestedTimeStart); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlstore: session %s suggested_time_start: %w", r.ID, err)
	}
	if session.SuggestedTimeEnd, err = timePtr(r.SuggestedTimeEnd); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlstore: session %s suggested_time_end: %w", r.ID, err)
	}
	return session, nil
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) error {
	if strings.TrimSpace(session.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (
		:id, :event_id, :title, :description, :faculty_id, :faculty_email, :place, :hall_id,
		:start_time, :end_time, :date_based, :status, :invite_status, :rejection_reason, :suggested_topic,
		:suggested_time_start, :suggested_time_end, :optional_query, :travel, :accommodation, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, toSessionRow(session)); err != nil {
		return s.mapper.MapError(err)
	}
	return nil
}

// UpdateSession overwrites every mutable column of an existing session.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) error {
	query := `UPDATE sessions SET
		event_id = :event_id, title = :title, description = :description, faculty_id = :faculty_id,
		faculty_email = :faculty_email, place = :place, hall_id = :hall_id, start_time = :start_time,
		end_time = :end_time, date_based = :date_based, status = :status, invite_status = :invite_status,
		rejection_reason = :rejection_reason, suggested_topic = :suggested_topic,
		suggested_time_start = :suggested_time_start, suggested_time_end = :suggested_time_end,
		optional_query = :optional_query, travel = :travel, accommodation = :accommodation,
		updated_at = :updated_at
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, s.ext, query, toSessionRow(session))
	if err != nil {
		return s.mapper.MapError(err)
	}
	return requireAffected(result)
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	var row sessionRow
	query := s.ext.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.ext, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, s.mapper.MapError(err)
	}
	return row.toModel()
}

// ListSessions returns sessions matching filter ordered by start time.
func (s *Store) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}

	var rows []sessionRow
	if err := sqlx.SelectContext(ctx, s.ext, &rows, s.ext.Rebind(query), args...); err != nil {
		return nil, s.mapper.MapError(err)
	}

	sessions := make([]persistence.Session, 0, len(rows))
	for _, row := range rows {
		session, err := row.toModel()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.ext.ExecContext(ctx, s.ext.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return s.mapper.MapError(err)
	}
	return requireAffected(result)
}

func buildListQuery(filter persistence.SessionFilter) (string, []any, error) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.IDs) > 0 {
		clause, inArgs, err := sqlx.In(`id IN (?)`, filter.IDs)
		if err != nil {
			return "", nil, err
		}
		conditions = append(conditions, clause)
		args = append(args, inArgs...)
	}
	if filter.EventID != "" {
		conditions = append(conditions, "event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, "faculty_id = ?")
		args = append(args, filter.FacultyID)
	}
	if email := strings.TrimSpace(filter.FacultyEmail); email != "" {
		conditions = append(conditions, "lower(faculty_email) = ?")
		args = append(args, strings.ToLower(email))
	}
	if filter.HallID != "" {
		conditions = append(conditions, "hall_id = ?")
		args = append(args, filter.HallID)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time, id"
	return query, args, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
