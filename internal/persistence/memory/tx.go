package memory

import (
	"context"

	"github.com/example/conference-scheduler/internal/persistence"
)

// txStore routes writes through a journal so a failed transaction reverts
// only its own changes. Reads go straight to the shared maps.
type txStore struct {
	*Storage
	journal *journal
}

func (t *txStore) CreateSession(ctx context.Context, session persistence.Session) error {
	return t.createSession(session, t.journal)
}

func (t *txStore) UpdateSession(ctx context.Context, session persistence.Session) error {
	return t.updateSession(session, t.journal)
}

func (t *txStore) DeleteSession(ctx context.Context, id string) error {
	return t.deleteSession(id, t.journal)
}

func (t *txStore) UpsertFaculty(ctx context.Context, faculty persistence.Faculty) error {
	return t.upsertFaculty(faculty, t.journal)
}

func (t *txStore) UpsertHall(ctx context.Context, hall persistence.Hall) error {
	return t.upsertHall(hall, t.journal)
}

// WithinTransaction joins the enclosing transaction.
func (t *txStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx persistence.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, t)
}

// Close is a no-op; the owning Storage is closed by its opener.
func (t *txStore) Close() error {
	return nil
}

// journal records the value each key held before the transaction first
// touched it. A nil journal records nothing.
type journal struct {
	entries []undoEntry
	seen    map[journalKey]struct{}
}

type journalKey struct {
	kind undoKind
	id   string
}

type undoKind int

const (
	undoSession undoKind = iota
	undoFaculty
	undoHall
)

type undoEntry struct {
	kind    undoKind
	id      string
	existed bool
	session persistence.Session
	faculty persistence.Faculty
	hall    persistence.Hall
}

// first reports whether this is the transaction's first write to key.
func (j *journal) first(kind undoKind, id string) bool {
	if j.seen == nil {
		j.seen = make(map[journalKey]struct{})
	}
	key := journalKey{kind: kind, id: id}
	if _, ok := j.seen[key]; ok {
		return false
	}
	j.seen[key] = struct{}{}
	return true
}

func (j *journal) session(id string, prev persistence.Session, existed bool) {
	if j == nil || !j.first(undoSession, id) {
		return
	}
	j.entries = append(j.entries, undoEntry{kind: undoSession, id: id, existed: existed, session: cloneSession(prev)})
}

func (j *journal) faculty(id string, prev persistence.Faculty, existed bool) {
	if j == nil || !j.first(undoFaculty, id) {
		return
	}
	j.entries = append(j.entries, undoEntry{kind: undoFaculty, id: id, existed: existed, faculty: prev})
}

func (j *journal) hall(id string, prev persistence.Hall, existed bool) {
	if j == nil || !j.first(undoHall, id) {
		return
	}
	j.entries = append(j.entries, undoEntry{kind: undoHall, id: id, existed: existed, hall: prev})
}

// rollbackLocked restores the recorded keys in reverse order. The caller
// holds s.mu.
func (j *journal) rollbackLocked(s *Storage) {
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		switch e.kind {
		case undoSession:
			if e.existed {
				s.sessions[e.id] = e.session
			} else {
				delete(s.sessions, e.id)
			}
		case undoFaculty:
			if e.existed {
				s.faculty[e.id] = e.faculty
			} else {
				delete(s.faculty, e.id)
			}
		case undoHall:
			if e.existed {
				s.halls[e.id] = e.hall
			} else {
				delete(s.halls, e.id)
			}
		}
	}
	j.entries = nil
}
