package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/scheduler"
)

// SessionServiceDeps lists the collaborators of SessionService. Only Sessions
// is required.
type SessionServiceDeps struct {
	Sessions    SessionStore
	Directory   Directory
	Names       *LookupCache
	Mailer      Mailer
	Metrics     MetricsRecorder
	Events      EventPublisher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// SessionService orchestrates validation, conflict detection, persistence and
// notification for sessions.
type SessionService struct {
	sessions    SessionStore
	directory   Directory
	names       *LookupCache
	mailer      Mailer
	metrics     MetricsRecorder
	events      EventPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	cfg         SessionServiceConfig
	locks       *resourceLocker
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(deps SessionServiceDeps, cfg SessionServiceConfig) *SessionService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Names == nil {
		deps.Names = NewLookupCache(0, 0, deps.Now)
	}
	return &SessionService{
		sessions:    deps.Sessions,
		directory:   deps.Directory,
		names:       deps.Names,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
		events:      deps.Events,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
		cfg:         cfg.withDefaults(),
		locks:       newResourceLocker(),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates input, rejects double bookings, persists the
// session and sends the invitation. E-mail failures are reported in the
// result and never fail the call.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (result CreateSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	ctx, span := tracer.Start(ctx, "SessionService.CreateSession")
	defer func() { endSpan(span, err) }()

	logger := s.loggerWith(ctx, "CreateSession",
		"principal_id", params.Principal.UserID,
		"faculty_id", params.Input.FacultyID,
		"room_id", params.Input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", result.Session.ID, "email_status", string(result.Email.Status)).InfoContext(ctx, "session created")
	}()

	if !params.Principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}

	var created Session
	created, err = s.createOne(ctx, params.Input)
	if err != nil {
		return
	}

	publishEvent(ctx, s.events, logger, EventKindCreated, created, "", s.now())

	result.Session = s.enrich(ctx, created)
	result.ResponseURL = s.responseURL(created.FacultyEmail)
	result.Email = s.sendInvites(ctx, logger, []EnrichedSession{result.Session}, result.Session.FacultyName, created.FacultyEmail)
	return
}

// CreateBatch creates every input independently and then sends one invitation
// per distinct recipient listing all of that recipient's new sessions.
func (s *SessionService) CreateBatch(ctx context.Context, params CreateBatchParams) (result CreateBatchResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	ctx, span := tracer.Start(ctx, "SessionService.CreateBatch")
	defer func() { endSpan(span, err) }()

	logger := s.loggerWith(ctx, "CreateBatch",
		"principal_id", params.Principal.UserID,
		"batch_size", len(params.Inputs),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session batch", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("created_count", len(result.Created()), "email_count", len(result.Emails)).InfoContext(ctx, "session batch created")
	}()

	if !params.Principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}
	if len(params.Inputs) == 0 {
		vErr := &ValidationError{}
		vErr.add("sessions", "at least one session is required")
		err = vErr
		return
	}

	created := make([]EnrichedSession, 0, len(params.Inputs))
	for i, input := range params.Inputs {
		session, cErr := s.createOne(ctx, input)
		if cErr != nil {
			logger.WarnContext(ctx, "batch entry rejected", "index", i, "error", cErr, "error_kind", ErrorKind(cErr))
			result.Items = append(result.Items, BatchItem{Index: i, Err: cErr})
			continue
		}
		publishEvent(ctx, s.events, logger, EventKindCreated, session, "", s.now())
		enriched := s.enrich(ctx, session)
		created = append(created, enriched)
		result.Items = append(result.Items, BatchItem{Index: i, Session: &enriched})
	}

	if len(created) == 0 {
		err = batchError(result.Items)
		return
	}

	for _, group := range groupByRecipient(created, "") {
		result.Emails = append(result.Emails, s.sendInvites(ctx, logger, group.Sessions, group.FacultyName(), group.Email))
	}
	return
}

// batchError summarizes a batch in which every entry failed. Validation
// failures are combined with indexed field names; any other failure wins.
func batchError(items []BatchItem) error {
	combined := &ValidationError{}
	for _, item := range items {
		var vErr *ValidationError
		if !errors.As(item.Err, &vErr) {
			return item.Err
		}
		combined.merge(fmt.Sprintf("sessions[%d].", item.Index), vErr)
	}
	return combined
}

// GetSession returns a single enriched session.
func (s *SessionService) GetSession(ctx context.Context, id string) (EnrichedSession, error) {
	if s == nil {
		return EnrichedSession{}, fmt.Errorf("SessionService is nil")
	}
	session, err := s.sessions.GetSession(ctx, strings.TrimSpace(id))
	if err != nil {
		return EnrichedSession{}, mapSessionRepoError(err)
	}
	return s.enrich(ctx, session), nil
}

// ListSessions returns enriched sessions ordered by start time.
func (s *SessionService) ListSessions(ctx context.Context, params ListSessionsParams) (sessions []EnrichedSession, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListSessions",
		"event_id", params.EventID,
		"faculty_id", params.FacultyID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(sessions)).DebugContext(ctx, "sessions listed")
	}()

	var raw []Session
	raw, err = s.sessions.ListSessions(ctx, SessionFilter{
		EventID:      strings.TrimSpace(params.EventID),
		FacultyID:    strings.TrimSpace(params.FacultyID),
		FacultyEmail: strings.TrimSpace(params.Email),
	})
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	sortSessions(raw)
	sessions = s.enrichAll(ctx, raw)
	return
}

// DetectConflicts runs the conflict check for a proposed slot without
// persisting anything.
func (s *SessionService) DetectConflicts(ctx context.Context, params ConflictCheckParams) ([]scheduler.Conflict, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}

	vErr := &ValidationError{}
	facultyID := strings.TrimSpace(params.FacultyID)
	roomID := strings.TrimSpace(params.RoomID)
	if facultyID == "" && roomID == "" {
		vErr.add("facultyId", "facultyId or roomId is required")
	}
	window := s.resolveWindow(SessionInput{StartTime: params.StartTime, EndTime: params.EndTime}, vErr)
	if strings.TrimSpace(params.StartTime) == "" && strings.TrimSpace(params.EndTime) == "" {
		vErr.add("startTime", "startTime is required")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	candidate := scheduler.Candidate{
		ID:        strings.TrimSpace(params.ExcludeSessionID),
		FacultyID: facultyID,
		HallID:    roomID,
		Start:     window.Start,
		End:       window.End,
	}
	return s.findConflicts(ctx, s.sessions, candidate, candidate.ID)
}

func (s *SessionService) createOne(ctx context.Context, input SessionInput) (Session, error) {
	session, checkConflicts, vErr := s.buildSession(input)
	if vErr.HasErrors() {
		return Session{}, vErr
	}
	if s.sessions == nil {
		return session, nil
	}

	release := s.locks.Lock(sessionLockKeys([]string{session.FacultyID}, []string{session.HallID})...)
	defer release()

	var persisted Session
	err := s.sessions.WithinTransaction(ctx, func(ctx context.Context, repo SessionRepository) error {
		if checkConflicts {
			conflicts, err := s.findConflicts(ctx, repo, candidateFor(session), "")
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				s.recordConflicts(conflicts)
				return &ConflictError{Conflicts: conflicts}
			}
		}
		stored, err := repo.CreateSession(ctx, session)
		if err != nil {
			return mapSessionRepoError(err)
		}
		persisted = stored
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return persisted, nil
}

// findConflicts loads the sessions sharing the candidate's faculty member or
// hall and runs the detector over them.
func (s *SessionService) findConflicts(ctx context.Context, repo SessionRepository, candidate scheduler.Candidate, excludeID string) ([]scheduler.Conflict, error) {
	byID := make(map[string]Session)
	load := func(filter SessionFilter) error {
		sessions, err := repo.ListSessions(ctx, filter)
		if err != nil {
			return mapSessionRepoError(err)
		}
		for _, session := range sessions {
			byID[session.ID] = session
		}
		return nil
	}

	if candidate.FacultyID != "" {
		if err := load(SessionFilter{FacultyID: candidate.FacultyID}); err != nil {
			return nil, err
		}
	}
	if candidate.HallID != "" {
		if err := load(SessionFilter{HallID: candidate.HallID}); err != nil {
			return nil, err
		}
	}

	existing := make([]Session, 0, len(byID))
	for _, session := range byID {
		existing = append(existing, session)
	}
	sortSessions(existing)

	views := make([]scheduler.Session, 0, len(existing))
	for _, session := range existing {
		views = append(views, scheduler.Session{
			ID:        session.ID,
			Title:     session.Title,
			FacultyID: session.FacultyID,
			HallID:    session.HallID,
			Start:     session.Start,
			End:       session.End,
		})
	}
	return scheduler.DetectConflicts(views, candidate, excludeID), nil
}

func candidateFor(session Session) scheduler.Candidate {
	return scheduler.Candidate{
		ID:        session.ID,
		FacultyID: session.FacultyID,
		HallID:    session.HallID,
		Start:     session.Start,
		End:       session.End,
	}
}

func sortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Start.Equal(sessions[j].Start) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Start.Before(sessions[j].Start)
	})
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	var cErr *ConflictError
	switch {
	case errors.As(err, &vErr), errors.As(err, &cErr):
		return err
	case isNotFound(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		constraint := &ValidationError{}
		constraint.add("session", "session violates a storage constraint")
		return constraint
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
