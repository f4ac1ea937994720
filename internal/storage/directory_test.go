package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/storage"
	"github.com/example/conference-scheduler/internal/testfixtures"
)

func TestDirectory_UpsertAndList(t *testing.T) {
	t.Parallel()

	for _, backend := range testfixtures.Backends {
		backend := backend
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			db := testfixtures.OpenStore(t, backend)
			testfixtures.Seed(t, db)
			directory := storage.NewDirectory(db)
			ctx := context.Background()
			stamp := testfixtures.At(8, 0)

			faculty, err := directory.UpsertFaculty(ctx, application.Faculty{ID: "fac-grace", Name: "Dr. Grace Hopper", Email: "grace@example.com", CreatedAt: stamp, UpdatedAt: stamp})
			if err != nil {
				t.Fatalf("upsert faculty: %v", err)
			}
			if faculty.Name != "Dr. Grace Hopper" {
				t.Fatalf("expected stored faculty, got %+v", faculty)
			}

			all, err := directory.ListFaculty(ctx)
			if err != nil || len(all) != 3 {
				t.Fatalf("expected three faculty, got %d (%v)", len(all), err)
			}

			hall, err := directory.UpsertHall(ctx, application.Hall{ID: testfixtures.RoomB.ID, Name: "Room B (renovated)", Location: "Building B", Capacity: 80, CreatedAt: stamp, UpdatedAt: stamp})
			if err != nil {
				t.Fatalf("upsert hall: %v", err)
			}
			if hall.Capacity != 80 {
				t.Fatalf("expected capacity 80, got %d", hall.Capacity)
			}
			halls, err := directory.ListHalls(ctx)
			if err != nil || len(halls) != 2 {
				t.Fatalf("expected two halls, got %d (%v)", len(halls), err)
			}

			if _, err := directory.GetHall(ctx, "hall-missing"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}
