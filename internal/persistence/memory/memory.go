// Package memory provides a process local persistence.Store used for
// development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// Storage keeps sessions and directory entries in maps guarded by a mutex.
type Storage struct {
	mu       sync.RWMutex
	txMu     sync.Mutex
	sessions map[string]persistence.Session
	faculty  map[string]persistence.Faculty
	halls    map[string]persistence.Hall
}

var _ persistence.Store = (*Storage)(nil)

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		sessions: make(map[string]persistence.Session),
		faculty:  make(map[string]persistence.Faculty),
		halls:    make(map[string]persistence.Hall),
	}
}

// Close is a no-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// WithinTransaction serializes fn against other transactions. When fn fails
// only the writes made through tx are reverted.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx persistence.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txStore{Storage: s, journal: &journal{}}
	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		tx.journal.rollbackLocked(s)
		s.mu.Unlock()
		return err
	}
	return nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session.
func (s *Storage) CreateSession(ctx context.Context, session persistence.Session) error {
	return s.createSession(session, nil)
}

func (s *Storage) createSession(session persistence.Session, j *journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("memory: session %s: %w", session.ID, persistence.ErrDuplicate)
	}
	if err := checkSession(session); err != nil {
		return err
	}

	j.session(session.ID, persistence.Session{}, false)
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// UpdateSession replaces an existing session, keeping its creation time.
func (s *Storage) UpdateSession(ctx context.Context, session persistence.Session) error {
	return s.updateSession(session, nil)
}

func (s *Storage) updateSession(session persistence.Session, j *journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[session.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := checkSession(session); err != nil {
		return err
	}

	j.session(session.ID, existing, true)
	session.CreatedAt = existing.CreatedAt
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetSession retrieves a session by ID.
func (s *Storage) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// ListSessions returns sessions matching filter ordered by start time.
func (s *Storage) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]persistence.Session, 0)
	for _, session := range s.sessions {
		if !matchesSessionFilter(session, filter) {
			continue
		}
		sessions = append(sessions, cloneSession(session))
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Start.Equal(sessions[j].Start) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Start.Before(sessions[j].Start)
	})

	return sessions, nil
}

// DeleteSession removes a session.
func (s *Storage) DeleteSession(ctx context.Context, id string) error {
	return s.deleteSession(id, nil)
}

func (s *Storage) deleteSession(id string, j *journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	j.session(id, existing, true)
	delete(s.sessions, id)
	return nil
}

// --- Directory implementation ---

// UpsertFaculty creates or replaces a faculty entry.
func (s *Storage) UpsertFaculty(ctx context.Context, faculty persistence.Faculty) error {
	return s.upsertFaculty(faculty, nil)
}

func (s *Storage) upsertFaculty(faculty persistence.Faculty, j *journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(faculty.ID) == "" {
		return persistence.ErrConstraintViolation
	}
	for id, other := range s.faculty {
		if id != faculty.ID && other.Email != "" && strings.EqualFold(other.Email, faculty.Email) {
			return fmt.Errorf("memory: faculty email %s: %w", faculty.Email, persistence.ErrDuplicate)
		}
	}
	existing, ok := s.faculty[faculty.ID]
	if ok {
		faculty.CreatedAt = existing.CreatedAt
	}
	j.faculty(faculty.ID, existing, ok)
	s.faculty[faculty.ID] = faculty
	return nil
}

// GetFaculty retrieves a faculty entry by ID.
func (s *Storage) GetFaculty(ctx context.Context, id string) (persistence.Faculty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	faculty, ok := s.faculty[id]
	if !ok {
		return persistence.Faculty{}, persistence.ErrNotFound
	}
	return faculty, nil
}

// ListFaculty returns faculty entries ordered by name.
func (s *Storage) ListFaculty(ctx context.Context) ([]persistence.Faculty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	faculty := make([]persistence.Faculty, 0, len(s.faculty))
	for _, f := range s.faculty {
		faculty = append(faculty, f)
	}
	sort.Slice(faculty, func(i, j int) bool {
		if faculty[i].Name == faculty[j].Name {
			return faculty[i].ID < faculty[j].ID
		}
		return faculty[i].Name < faculty[j].Name
	})
	return faculty, nil
}

// UpsertHall creates or replaces a hall entry.
func (s *Storage) UpsertHall(ctx context.Context, hall persistence.Hall) error {
	return s.upsertHall(hall, nil)
}

func (s *Storage) upsertHall(hall persistence.Hall, j *journal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(hall.ID) == "" || hall.Capacity < 0 {
		return persistence.ErrConstraintViolation
	}
	existing, ok := s.halls[hall.ID]
	if ok {
		hall.CreatedAt = existing.CreatedAt
	}
	j.hall(hall.ID, existing, ok)
	s.halls[hall.ID] = hall
	return nil
}

// GetHall retrieves a hall entry by ID.
func (s *Storage) GetHall(ctx context.Context, id string) (persistence.Hall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hall, ok := s.halls[id]
	if !ok {
		return persistence.Hall{}, persistence.ErrNotFound
	}
	return hall, nil
}

// ListHalls returns hall entries ordered by name.
func (s *Storage) ListHalls(ctx context.Context) ([]persistence.Hall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	halls := make([]persistence.Hall, 0, len(s.halls))
	for _, h := range s.halls {
		halls = append(halls, h)
	}
	sort.Slice(halls, func(i, j int) bool {
		if halls[i].Name == halls[j].Name {
			return halls[i].ID < halls[j].ID
		}
		return halls[i].Name < halls[j].Name
	})
	return halls, nil
}

func checkSession(session persistence.Session) error {
	if strings.TrimSpace(session.ID) == "" || strings.TrimSpace(session.EventID) == "" {
		return persistence.ErrConstraintViolation
	}
	if !session.End.After(session.Start) {
		return fmt.Errorf("memory: session %s ends before it starts: %w", session.ID, persistence.ErrConstraintViolation)
	}
	return nil
}

func matchesSessionFilter(session persistence.Session, filter persistence.SessionFilter) bool {
	if len(filter.IDs) > 0 {
		found := false
		for _, id := range filter.IDs {
			if id == session.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.EventID != "" && session.EventID != filter.EventID {
		return false
	}
	if filter.FacultyID != "" && session.FacultyID != filter.FacultyID {
		return false
	}
	if filter.FacultyEmail != "" && !strings.EqualFold(strings.TrimSpace(session.FacultyEmail), strings.TrimSpace(filter.FacultyEmail)) {
		return false
	}
	if filter.HallID != "" && session.HallID != filter.HallID {
		return false
	}
	return true
}

func cloneSession(session persistence.Session) persistence.Session {
	clone := session
	clone.RejectionReason = cloneString(session.RejectionReason)
	clone.SuggestedTopic = cloneString(session.SuggestedTopic)
	clone.OptionalQuery = cloneString(session.OptionalQuery)
	clone.SuggestedTimeStart = cloneTime(session.SuggestedTimeStart)
	clone.SuggestedTimeEnd = cloneTime(session.SuggestedTimeEnd)
	return clone
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
	clone := *value
	return &clone
}
