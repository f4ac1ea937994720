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

type facultyRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type hallRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Location  string `db:"location"`
	Capacity  int    `db:"capacity"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// UpsertFaculty inserts a faculty entry or updates it in place, keeping the
// original creation time.
func (s *Store) UpsertFaculty(ctx context.Context, faculty persistence.Faculty) error {
	if strings.TrimSpace(faculty.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO faculty (id, name, email, created_at, updated_at)
		VALUES (:id, :name, :email, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email, updated_at = excluded.updated_at`

	row := facultyRow{
		ID:        faculty.ID,
		Name:      faculty.Name,
		Email:     faculty.Email,
		CreatedAt: formatTime(faculty.CreatedAt),
		UpdatedAt: formatTime(faculty.UpdatedAt),
	}
	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, row); err != nil {
		return s.mapper.MapError(err)
	}
	return nil
}

// GetFaculty retrieves a faculty entry by ID.
func (s *Store) GetFaculty(ctx context.Context, id string) (persistence.Faculty, error) {
	var row facultyRow
	query := s.ext.Rebind(`SELECT id, name, email, created_at, updated_at FROM faculty WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.ext, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Faculty{}, persistence.ErrNotFound
		}
		return persistence.Faculty{}, s.mapper.MapError(err)
	}
	return row.toModel()
}

// ListFaculty returns faculty entries ordered by name.
func (s *Store) ListFaculty(ctx context.Context) ([]persistence.Faculty, error) {
	var rows []facultyRow
	if err := sqlx.SelectContext(ctx, s.ext, &rows, `SELECT id, name, email, created_at, updated_at FROM faculty ORDER BY name, id`); err != nil {
		return nil, s.mapper.MapError(err)
	}
	faculty := make([]persistence.Faculty, 0, len(rows))
	for _, row := range rows {
		f, err := row.toModel()
		if err != nil {
			return nil, err
		}
		faculty = append(faculty, f)
	}
	return faculty, nil
}

// UpsertHall inserts a hall entry or updates it in place.
func (s *Store) UpsertHall(ctx context.Context, hall persistence.Hall) error {
	if strings.TrimSpace(hall.ID) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO halls (id, name, location, capacity, created_at, updated_at)
		VALUES (:id, :name, :location, :capacity, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, location = excluded.location,
			capacity = excluded.capacity, updated_at = excluded.updated_at`

	row := hallRow{
		ID:        hall.ID,
		Name:      hall.Name,
		Location:  hall.Location,
		Capacity:  hall.Capacity,
		CreatedAt: formatTime(hall.CreatedAt),
		UpdatedAt: formatTime(hall.UpdatedAt),
	}
	if _, err := sqlx.NamedExecContext(ctx, s.ext, query, row); err != nil {
		return s.mapper.MapError(err)
	}
	return nil
}

// GetHall retrieves a hall entry by ID.
func (s *Store) GetHall(ctx context.Context, id string) (persistence.Hall, error) {
	var row hallRow
	query := s.ext.Rebind(`SELECT id, name, location, capacity, created_at, updated_at FROM halls WHERE id = ?`)
	if err := sqlx.GetContext(ctx, s.ext, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Hall{}, persistence.ErrNotFound
		}
		return persistence.Hall{}, s.mapper.MapError(err)
	}
	return row.toModel()
}

// ListHalls returns hall entries ordered by name.
func (s *Store) ListHalls(ctx context.Context) ([]persistence.Hall, error) {
	var rows []hallRow
	if err := sqlx.SelectContext(ctx, s.ext, &rows, `SELECT id, name, location, capacity, created_at, updated_at FROM halls ORDER BY name, id`); err != nil {
		return nil, s.mapper.MapError(err)
	}
	halls := make([]persistence.Hall, 0, len(rows))
	for _, row := range rows {
		h, err := row.toModel()
		if err != nil {
			return nil, err
		}
		halls = append(halls, h)
	}
	return halls, nil
}

func (r facultyRow) toModel() (persistence.Faculty, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.Faculty{}, fmt.Errorf("sqlstore: faculty %s created_at: %w", r.ID, err)
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return persistence.Faculty{}, fmt.Errorf("sqlstore: faculty %s updated_at: %w", r.ID, err)
	}
	return persistence.Faculty{ID: r.ID, Name: r.Name, Email: r.Email, CreatedAt: created, UpdatedAt: updated}, nil
}

func (r hallRow) toModel() (persistence.Hall, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return persistence.Hall{}, fmt.Errorf("sqlstore: hall %s created_at: %w", r.ID, err)
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return persistence.Hall{}, fmt.Errorf("sqlstore: hall %s updated_at: %w", r.ID, err)
	}
	return persistence.Hall{
		ID:        r.ID,
		Name:      r.Name,
		Location:  r.Location,
		Capacity:  r.Capacity,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}
