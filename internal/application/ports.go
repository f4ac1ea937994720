package application

import (
	"context"

	"github.com/example/conference-scheduler/internal/mail"
)

// SessionRepository captures the persistence operations needed by the services.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
}

// SessionStore is a SessionRepository that can run a unit of work atomically.
type SessionStore interface {
	SessionRepository
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo SessionRepository) error) error
}

// Directory resolves faculty and hall names for enrichment.
type Directory interface {
	GetFaculty(ctx context.Context, id string) (Faculty, error)
	GetHall(ctx context.Context, id string) (Hall, error)
}

// DirectoryRepository captures the directory persistence operations.
type DirectoryRepository interface {
	Directory
	UpsertFaculty(ctx context.Context, faculty Faculty) (Faculty, error)
	ListFaculty(ctx context.Context) ([]Faculty, error)
	UpsertHall(ctx context.Context, hall Hall) (Hall, error)
	ListHalls(ctx context.Context) ([]Hall, error)
}

// Mailer delivers session e-mails on a best-effort basis.
type Mailer interface {
	SendBulkInvite(ctx context.Context, sessions []mail.Session, facultyName, email string) (mail.Result, error)
	SendUpdate(ctx context.Context, session mail.Session, facultyName, roomName string) (mail.Result, error)
	SendCancellation(ctx context.Context, session mail.Session, facultyName, roomName string) (mail.Result, error)
	LoginURL(email string) string
}

// MetricsRecorder receives domain counters.
type MetricsRecorder interface {
	ConflictsDetected(conflictType string, count int)
	InvitationResponded(action string)
	EmailDispatched(template, status string)
}

// EventPublisher announces session lifecycle changes. kind is one of the
// EventKind constants.
type EventPublisher interface {
	Publish(ctx context.Context, kind string, payload any) error
}
