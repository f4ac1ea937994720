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
)

// DirectoryService maintains the faculty and hall directory used to enrich
// sessions.
type DirectoryService struct {
	directory   DirectoryRepository
	names       *LookupCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDirectoryService constructs a directory service. names may be shared
// with a SessionService so writes invalidate cached names.
func NewDirectoryService(directory DirectoryRepository, names *LookupCache, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		directory:   directory,
		names:       names,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// ListFaculty returns every faculty member ordered by name.
func (s *DirectoryService) ListFaculty(ctx context.Context) ([]Faculty, error) {
	if s == nil || s.directory == nil {
		return nil, fmt.Errorf("directory repository not configured")
	}
	faculty, err := s.directory.ListFaculty(ctx)
	if err != nil {
		return nil, mapDirectoryRepoError(err)
	}
	sort.SliceStable(faculty, func(i, j int) bool {
		return strings.ToLower(faculty[i].Name) < strings.ToLower(faculty[j].Name)
	})
	return faculty, nil
}

// ListHalls returns every hall ordered by name.
func (s *DirectoryService) ListHalls(ctx context.Context) ([]Hall, error) {
	if s == nil || s.directory == nil {
		return nil, fmt.Errorf("directory repository not configured")
	}
	halls, err := s.directory.ListHalls(ctx)
	if err != nil {
		return nil, mapDirectoryRepoError(err)
	}
	sort.SliceStable(halls, func(i, j int) bool {
		return strings.ToLower(halls[i].Name) < strings.ToLower(halls[j].Name)
	})
	return halls, nil
}

// UpsertFaculty creates or replaces a faculty member.
func (s *DirectoryService) UpsertFaculty(ctx context.Context, principal Principal, input FacultyInput) (faculty Faculty, err error) {
	if s == nil {
		err = fmt.Errorf("DirectoryService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpsertFaculty",
		"principal_id", principal.UserID,
		"faculty_id", input.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save faculty", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("faculty_id", faculty.ID).InfoContext(ctx, "faculty saved")
	}()

	if !principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		vErr.add("name", "name is required")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if !validEmail(email) {
		vErr.add("email", "email is not a valid address")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.directory == nil {
		err = fmt.Errorf("directory repository not configured")
		return
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = s.idGenerator()
	}
	now := s.now().UTC()
	faculty, err = s.directory.UpsertFaculty(ctx, Faculty{ID: id, Name: name, Email: email, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		err = mapDirectoryRepoError(err)
		return
	}
	s.names.Invalidate()
	return
}

// UpsertHall creates or replaces a hall.
func (s *DirectoryService) UpsertHall(ctx context.Context, principal Principal, input HallInput) (hall Hall, err error) {
	if s == nil {
		err = fmt.Errorf("DirectoryService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpsertHall",
		"principal_id", principal.UserID,
		"hall_id", input.ID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("hall_id", hall.ID).InfoContext(ctx, "hall saved")
	}()

	if !principal.CanOrganize() {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity < 0 {
		vErr.add("capacity", "capacity cannot be negative")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if s.directory == nil {
		err = fmt.Errorf("directory repository not configured")
		return
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = s.idGenerator()
	}
	now := s.now().UTC()
	hall, err = s.directory.UpsertHall(ctx, Hall{
		ID:        id,
		Name:      name,
		Location:  strings.TrimSpace(input.Location),
		Capacity:  input.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = mapDirectoryRepoError(err)
		return
	}
	s.names.Invalidate()
	return
}

func mapDirectoryRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("directory", "entry violates a storage constraint")
		return vErr
	}
	return err
}
