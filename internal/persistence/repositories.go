package persistence

import "context"

// SessionFilter narrows session queries. Empty fields are ignored; FacultyEmail
// is compared case-insensitively.
type SessionFilter struct {
	IDs          []string
	EventID      string
	FacultyID    string
	FacultyEmail string
	HallID       string
}

// SessionRepository stores conference sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// FacultyRepository stores faculty directory entries.
type FacultyRepository interface {
	UpsertFaculty(ctx context.Context, faculty Faculty) error
	GetFaculty(ctx context.Context, id string) (Faculty, error)
	ListFaculty(ctx context.Context) ([]Faculty, error)
}

// HallRepository stores hall directory entries.
type HallRepository interface {
	UpsertHall(ctx context.Context, hall Hall) error
	GetHall(ctx context.Context, id string) (Hall, error)
	ListHalls(ctx context.Context) ([]Hall, error)
}

// Store bundles every repository served by one backend.
type Store interface {
	SessionRepository
	FacultyRepository
	HallRepository

	// WithinTransaction runs fn against a Store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close() error
}
