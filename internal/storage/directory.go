package storage

import (
	"context"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/persistence"
)

// Directory implements application.DirectoryRepository.
type Directory struct {
	store persistence.Store
}

var _ application.DirectoryRepository = (*Directory)(nil)

func NewDirectory(store persistence.Store) *Directory {
	return &Directory{store: store}
}

func (d *Directory) GetFaculty(ctx context.Context, id string) (application.Faculty, error) {
	record, err := d.store.GetFaculty(ctx, id)
	if err != nil {
		return application.Faculty{}, err
	}
	return application.Faculty(record), nil
}

func (d *Directory) UpsertFaculty(ctx context.Context, faculty application.Faculty) (application.Faculty, error) {
	if err := d.store.UpsertFaculty(ctx, persistence.Faculty(faculty)); err != nil {
		return application.Faculty{}, err
	}
	return d.GetFaculty(ctx, faculty.ID)
}

func (d *Directory) ListFaculty(ctx context.Context) ([]application.Faculty, error) {
	records, err := d.store.ListFaculty(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.Faculty, 0, len(records))
	for _, record := range records {
		out = append(out, application.Faculty(record))
	}
	return out, nil
}

func (d *Directory) GetHall(ctx context.Context, id string) (application.Hall, error) {
	record, err := d.store.GetHall(ctx, id)
	if err != nil {
		return application.Hall{}, err
	}
	return application.Hall(record), nil
}

func (d *Directory) UpsertHall(ctx context.Context, hall application.Hall) (application.Hall, error) {
	if err := d.store.UpsertHall(ctx, persistence.Hall(hall)); err != nil {
		return application.Hall{}, err
	}
	return d.GetHall(ctx, hall.ID)
}

func (d *Directory) ListHalls(ctx context.Context) ([]application.Hall, error) {
	records, err := d.store.ListHalls(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.Hall, 0, len(records))
	for _, record := range records {
		out = append(out, application.Hall(record))
	}
	return out, nil
}
