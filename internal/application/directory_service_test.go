package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/conference-scheduler/internal/persistence"
)

func TestDirectoryService_UpsertFaculty(t *testing.T) {
	t.Parallel()

	dir := newDirectoryStub()
	names := NewLookupCache(0, 0, fixedClock)
	names.Store(facultyCacheKey("fac-1"), "Stale Name")
	svc := NewDirectoryService(dir, names, sequentialIDs("faculty"), fixedClock, nil)

	faculty, err := svc.UpsertFaculty(context.Background(), organizer, FacultyInput{ID: "fac-1", Name: " Ada King ", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("expected upsert to succeed, got %v", err)
	}
	if faculty.Name != "Ada King" {
		t.Fatalf("expected trimmed name, got %q", faculty.Name)
	}
	if _, ok := names.Get(facultyCacheKey("fac-1")); ok {
		t.Fatalf("expected cached names to be invalidated")
	}

	created, err := svc.UpsertFaculty(context.Background(), organizer, FacultyInput{Name: "Grace Hopper", Email: "grace@example.com"})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}
	if created.ID != "faculty-1" {
		t.Fatalf("expected generated id, got %q", created.ID)
	}
}

func TestDirectoryService_UpsertFaculty_Validation(t *testing.T) {
	t.Parallel()

	svc := NewDirectoryService(newDirectoryStub(), nil, nil, fixedClock, nil)

	_, err := svc.UpsertFaculty(context.Background(), organizer, FacultyInput{Email: "bad"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["name"]; !ok {
		t.Fatalf("expected name error, got %v", vErr.FieldErrors)
	}
	if _, ok := vErr.FieldErrors["email"]; !ok {
		t.Fatalf("expected email error, got %v", vErr.FieldErrors)
	}

	if _, err := svc.UpsertFaculty(context.Background(), Principal{}, FacultyInput{Name: "x", Email: "x@example.com"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDirectoryService_UpsertHall(t *testing.T) {
	t.Parallel()

	dir := newDirectoryStub()
	svc := NewDirectoryService(dir, nil, sequentialIDs("hall"), fixedClock, nil)

	if _, err := svc.UpsertHall(context.Background(), organizer, HallInput{Name: "Annex", Capacity: -1}); err == nil {
		t.Fatalf("expected negative capacity to be rejected")
	}

	hall, err := svc.UpsertHall(context.Background(), organizer, HallInput{Name: "Annex", Location: "East wing", Capacity: 80})
	if err != nil {
		t.Fatalf("expected upsert to succeed, got %v", err)
	}
	if hall.ID != "hall-1" || dir.halls["hall-1"].Location != "East wing" {
		t.Fatalf("expected hall to be stored, got %+v", hall)
	}

	dir.err = persistence.ErrDuplicate
	if _, err := svc.UpsertHall(context.Background(), organizer, HallInput{Name: "Annex"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDirectoryService_ListSorted(t *testing.T) {
	t.Parallel()

	svc := NewDirectoryService(newDirectoryStub(), nil, nil, fixedClock, nil)

	faculty, err := svc.ListFaculty(context.Background())
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(faculty) != 2 || faculty[0].ID != "fac-1" {
		t.Fatalf("expected name order, got %+v", faculty)
	}

	halls, err := svc.ListHalls(context.Background())
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(halls) != 2 || halls[0].Name != "Main Hall" {
		t.Fatalf("expected name order, got %+v", halls)
	}

	if _, err := NewDirectoryService(nil, nil, nil, nil, nil).ListHalls(context.Background()); err == nil {
		t.Fatalf("expected error without repository")
	}
}
