package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/i18n"
)

type invitationService interface {
	Respond(ctx context.Context, params application.RespondParams) (application.Session, error)
}

type sessionReader interface {
	GetSession(ctx context.Context, id string) (application.EnrichedSession, error)
	ListSessions(ctx context.Context, params application.ListSessionsParams) ([]application.EnrichedSession, error)
}

// InvitationHandler serves the faculty facing endpoints reached from the
// invitation e-mail.
type InvitationHandler struct {
	service   invitationService
	sessions  sessionReader
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewInvitationHandler builds an InvitationHandler. Suggested times are parsed in location, UTC when nil.
func NewInvitationHandler(service invitationService, sessions sessionReader, location *time.Location, translator *i18n.Translator, devMode bool, logger *slog.Logger) *InvitationHandler {
	if location == nil {
		location = time.UTC
	}
	logger = defaultLogger(logger)
	return &InvitationHandler{
		service:   service,
		sessions:  sessions,
		location:  location,
		responder: newResponder(logger, translator, devMode),
		logger:    logger,
	}
}

// ListOwn returns the sessions addressed to ?email=.
func (h *InvitationHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"email": "email is required"},
		})
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), application.ListSessionsParams{Email: email})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{
		Success: true,
		Data:    sessionsData{Sessions: toSessionDTOs(sessions)},
		Count:   len(sessions),
	})
}

// Respond applies a faculty answer to the session named by {id}.
func (h *InvitationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, i18n.MsgValidation, errMissingID)
		return
	}

	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	params, err := req.toParams(id, h.location)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	session, err := h.service.Respond(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{
		Success: true,
		Data:    sessionData{Session: toSessionDTO(h.enrich(r.Context(), session))},
	})
}

func (h *InvitationHandler) enrich(ctx context.Context, session application.Session) application.EnrichedSession {
	if h.sessions != nil {
		enriched, err := h.sessions.GetSession(ctx, session.ID)
		if err == nil {
			return enriched
		}
		handlerLogger(ctx, h.logger, "InvitationHandler", "Respond", "session_id", session.ID).
			WarnContext(ctx, "failed to enrich responded session", "error", err)
	}
	return application.EnrichedSession{Session: session, InvitationStatus: string(session.Invitation.Status)}
}
