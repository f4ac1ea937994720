package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/conference-scheduler/internal/mail"
)

type sessionStoreStub struct {
	mu       sync.Mutex
	sessions map[string]Session
	creates  int
	updates  int
	listErr  error
	txCalls  int
	// onGet rewrites what GetSession returns.
	onGet func(Session) Session
}

func newSessionStoreStub(sessions ...Session) *sessionStoreStub {
	store := &sessionStoreStub{sessions: make(map[string]Session)}
	for _, s := range sessions {
		store.sessions[s.ID] = s
	}
	return store
}

func (s *sessionStoreStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return Session{}, ErrAlreadyExists
	}
	s.sessions[session.ID] = session
	s.creates++
	return session, nil
}

func (s *sessionStoreStub) GetSession(ctx context.Context, id string) (Session, error) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	hook := s.onGet
	s.mu.Unlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	if hook != nil {
		session = hook(session)
	}
	return session, nil
}

func (s *sessionStoreStub) UpdateSession(ctx context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return Session{}, ErrNotFound
	}
	s.sessions[session.ID] = session
	s.updates++
	return session, nil
}

func (s *sessionStoreStub) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *sessionStoreStub) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}
	var out []Session
	for _, session := range s.sessions {
		if len(ids) > 0 {
			if _, ok := ids[session.ID]; !ok {
				continue
			}
		}
		if filter.EventID != "" && session.EventID != filter.EventID {
			continue
		}
		if filter.FacultyID != "" && session.FacultyID != filter.FacultyID {
			continue
		}
		if filter.FacultyEmail != "" && !strings.EqualFold(session.FacultyEmail, filter.FacultyEmail) {
			continue
		}
		if filter.HallID != "" && session.HallID != filter.HallID {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WithinTransaction snapshots the map and restores it when fn fails.
func (s *sessionStoreStub) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repo SessionRepository) error) error {
	s.mu.Lock()
	s.txCalls++
	snapshot := make(map[string]Session, len(s.sessions))
	for id, session := range s.sessions {
		snapshot[id] = session
	}
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.sessions = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *sessionStoreStub) get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

type directoryStub struct {
	faculty     map[string]Faculty
	halls       map[string]Hall
	facultyHits int
	err         error
}

func newDirectoryStub() *directoryStub {
	return &directoryStub{
		faculty: map[string]Faculty{
			"fac-1": {ID: "fac-1", Name: "Dr. Ada Lovelace", Email: "ada@example.com"},
			"fac-2": {ID: "fac-2", Name: "Dr. Alan Turing", Email: "alan@example.com"},
		},
		halls: map[string]Hall{
			"hall-a": {ID: "hall-a", Name: "Main Hall", Capacity: 300},
			"hall-b": {ID: "hall-b", Name: "Room B", Capacity: 40},
		},
	}
}

func (d *directoryStub) GetFaculty(ctx context.Context, id string) (Faculty, error) {
	d.facultyHits++
	if d.err != nil {
		return Faculty{}, d.err
	}
	f, ok := d.faculty[id]
	if !ok {
		return Faculty{}, ErrNotFound
	}
	return f, nil
}

func (d *directoryStub) GetHall(ctx context.Context, id string) (Hall, error) {
	if d.err != nil {
		return Hall{}, d.err
	}
	h, ok := d.halls[id]
	if !ok {
		return Hall{}, ErrNotFound
	}
	return h, nil
}

func (d *directoryStub) UpsertFaculty(ctx context.Context, faculty Faculty) (Faculty, error) {
	if d.err != nil {
		return Faculty{}, d.err
	}
	d.faculty[faculty.ID] = faculty
	return faculty, nil
}

func (d *directoryStub) ListFaculty(ctx context.Context) ([]Faculty, error) {
	out := make([]Faculty, 0, len(d.faculty))
	for _, f := range d.faculty {
		out = append(out, f)
	}
	return out, nil
}

func (d *directoryStub) UpsertHall(ctx context.Context, hall Hall) (Hall, error) {
	if d.err != nil {
		return Hall{}, d.err
	}
	d.halls[hall.ID] = hall
	return hall, nil
}

func (d *directoryStub) ListHalls(ctx context.Context) ([]Hall, error) {
	out := make([]Hall, 0, len(d.halls))
	for _, h := range d.halls {
		out = append(out, h)
	}
	return out, nil
}

type sentMail struct {
	template    string
	email       string
	facultyName string
	sessions    []mail.Session
}

type mailerStub struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]bool
	err  error
}

func (m *mailerStub) record(template, email, facultyName string, sessions []mail.Session) (mail.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return mail.Result{}, m.err
	}
	m.sent = append(m.sent, sentMail{template: template, email: email, facultyName: facultyName, sessions: sessions})
	if m.fail[strings.ToLower(email)] {
		return mail.Result{OK: false, Message: "smtp unavailable"}, nil
	}
	return mail.Result{OK: true, Message: fmt.Sprintf("sent to %s", email)}, nil
}

func (m *mailerStub) SendBulkInvite(ctx context.Context, sessions []mail.Session, facultyName, email string) (mail.Result, error) {
	return m.record(mail.TemplateInvite, email, facultyName, sessions)
}

func (m *mailerStub) SendUpdate(ctx context.Context, session mail.Session, facultyName, roomName string) (mail.Result, error) {
	return m.record(mail.TemplateUpdate, session.FacultyEmail, facultyName, []mail.Session{session})
}

func (m *mailerStub) SendCancellation(ctx context.Context, session mail.Session, facultyName, roomName string) (mail.Result, error) {
	return m.record(mail.TemplateCancellation, session.FacultyEmail, facultyName, []mail.Session{session})
}

func (m *mailerStub) LoginURL(email string) string {
	return "http://localhost:3000/faculty-login?email=" + email
}

type metricsStub struct {
	mu        sync.Mutex
	conflicts map[string]int
	responses []string
	emails    []string
}

func (m *metricsStub) ConflictsDetected(conflictType string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts == nil {
		m.conflicts = make(map[string]int)
	}
	m.conflicts[conflictType] += count
}

func (m *metricsStub) InvitationResponded(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, action)
}

func (m *metricsStub) EmailDispatched(template, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, template+":"+status)
}

type publisherStub struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (p *publisherStub) Publish(ctx context.Context, kind string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
	return p.err
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var fixedNow = time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var organizer = Principal{UserID: "organizer-1", Roles: []string{RoleOrganizer}}

func sessionAt(id, facultyID, hallID string, startHour, startMinute, minutes int) Session {
	start := time.Date(2025, time.June, 2, startHour, startMinute, 0, 0, time.UTC)
	return Session{
		ID:           id,
		EventID:      "event-1",
		Title:        "Session " + id,
		Description:  "About " + id,
		FacultyID:    facultyID,
		FacultyEmail: facultyID + "@example.com",
		Place:        "Building 1",
		HallID:       hallID,
		Start:        start,
		End:          start.Add(time.Duration(minutes) * time.Minute),
		Status:       SessionStatusDraft,
	}
}

func validInput() SessionInput {
	return SessionInput{
		EventID:     "event-1",
		Title:       "Keynote",
		Description: "Opening keynote",
		FacultyID:   "fac-1",
		Email:       "ada@example.com",
		Place:       "Building 1",
		RoomID:      "hall-a",
		StartTime:   "2025-06-02T10:00:00Z",
		EndTime:     "2025-06-02T11:00:00Z",
	}
}

type serviceHarness struct {
	store     *sessionStoreStub
	directory *directoryStub
	mailer    *mailerStub
	metrics   *metricsStub
	events    *publisherStub
	svc       *SessionService
}

func newServiceHarness(cfg SessionServiceConfig, existing ...Session) *serviceHarness {
	h := &serviceHarness{
		store:     newSessionStoreStub(existing...),
		directory: newDirectoryStub(),
		mailer:    &mailerStub{},
		metrics:   &metricsStub{},
		events:    &publisherStub{},
	}
	h.svc = NewSessionService(SessionServiceDeps{
		Sessions:    h.store,
		Directory:   h.directory,
		Mailer:      h.mailer,
		Metrics:     h.metrics,
		Events:      h.events,
		IDGenerator: sequentialIDs("session"),
		Now:         fixedClock,
	}, cfg)
	return h
}
