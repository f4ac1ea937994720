package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/i18n"
)

type directoryService interface {
	ListFaculty(ctx context.Context) ([]application.Faculty, error)
	ListHalls(ctx context.Context) ([]application.Hall, error)
	UpsertFaculty(ctx context.Context, principal application.Principal, input application.FacultyInput) (application.Faculty, error)
	UpsertHall(ctx context.Context, principal application.Principal, input application.HallInput) (application.Hall, error)
}

// DirectoryHandler serves the faculty and hall catalogs.
type DirectoryHandler struct {
	service   directoryService
	responder responder
}

// NewDirectoryHandler builds a DirectoryHandler over service.
func NewDirectoryHandler(service directoryService, translator *i18n.Translator, devMode bool, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{service: service, responder: newResponder(logger, translator, devMode)}
}

// ListFaculty returns the faculty catalog.
func (h *DirectoryHandler) ListFaculty(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	faculty, err := h.service.ListFaculty(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]facultyDTO, 0, len(faculty))
	for _, f := range faculty {
		out = append(out, toFacultyDTO(f))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, facultyListResponse{Success: true, Data: out, Count: len(out)})
}

// ListHalls returns the hall catalog.
func (h *DirectoryHandler) ListHalls(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	halls, err := h.service.ListHalls(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]hallDTO, 0, len(halls))
	for _, hall := range halls {
		out = append(out, toHallDTO(hall))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, hallListResponse{Success: true, Data: out, Count: len(out)})
}

// UpsertFaculty creates or replaces a faculty member.
func (h *DirectoryHandler) UpsertFaculty(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req facultyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, fieldErrors(err))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	faculty, err := h.service.UpsertFaculty(r.Context(), principal, application.FacultyInput{
		ID:    strings.TrimSpace(req.ID),
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, facultyResponse{Success: true, Data: toFacultyDTO(faculty)})
}

// UpsertHall creates or replaces a hall.
func (h *DirectoryHandler) UpsertHall(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req hallRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, fieldErrors(err))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	hall, err := h.service.UpsertHall(r.Context(), principal, application.HallInput{
		ID:       strings.TrimSpace(req.ID),
		Name:     req.Name,
		Location: req.Location,
		Capacity: req.Capacity,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, hallResponse{Success: true, Data: toHallDTO(hall)})
}
