package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/i18n"
	"github.com/example/conference-scheduler/internal/scheduler"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.CreateSessionResult, error)
	CreateBatch(ctx context.Context, params application.CreateBatchParams) (application.CreateBatchResult, error)
	GetSession(ctx context.Context, id string) (application.EnrichedSession, error)
	ListSessions(ctx context.Context, params application.ListSessionsParams) ([]application.EnrichedSession, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (application.UpdateSessionResult, error)
	DeleteSession(ctx context.Context, principal application.Principal, id string) (application.DeleteSessionResult, error)
	DetectConflicts(ctx context.Context, params application.ConflictCheckParams) ([]scheduler.Conflict, error)
	BulkInvite(ctx context.Context, params application.BulkInviteParams) (application.BulkInviteResult, error)
}

// SessionHandler serves the organizer facing session endpoints.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler builds a SessionHandler over service.
func NewSessionHandler(service sessionService, translator *i18n.Translator, devMode bool, logger *slog.Logger) *SessionHandler {
	logger = defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(logger, translator, devMode), logger: logger}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

// List returns enriched sessions matching the query filters.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	sessions, err := h.service.ListSessions(r.Context(), application.ListSessionsParams{
		EventID:   strings.TrimSpace(query.Get("eventId")),
		FacultyID: strings.TrimSpace(query.Get("facultyId")),
		Email:     strings.TrimSpace(query.Get("email")),
	})
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

// Create accepts a single session as a multipart or urlencoded form.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	input, err := parseSessionForm(r)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := sessionResponse{
		Success:      true,
		Data:         sessionData{Session: toSessionDTO(result.Session)},
		EmailStatus:  string(result.Email.Status),
		EmailMessage: result.Email.Message,
		ResponseURL:  result.ResponseURL,
	}
	if !result.Email.Delivered() {
		payload.Warning = h.responder.t(r.Context(), i18n.MsgEmailFailed, map[string]any{"Email": result.Email.Recipient})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, payload)
}

// CreateBatch accepts {sessions:[...]} and reports per entry outcomes.
func (h *SessionHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, fieldErrors(err))
		return
	}

	inputs := make([]application.SessionInput, 0, len(req.Sessions))
	for _, s := range req.Sessions {
		inputs = append(inputs, s.toInput())
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.CreateBatch(r.Context(), application.CreateBatchParams{
		Principal: principal,
		Inputs:    inputs,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	created := result.Created()
	payload := batchResponse{
		Success: true,
		Data:    batchData{Sessions: toSessionDTOs(created)},
		Count:   len(created),
		Emails:  toEmailDTOs(result.Emails),
	}
	for _, item := range result.Items {
		if item.Err == nil {
			continue
		}
		_, body, known := h.responder.describe(r.Context(), item.Err)
		if !known {
			h.log(r.Context(), "CreateBatch", "index", item.Index).ErrorContext(r.Context(), "batch entry failed", "error", item.Err)
		}
		payload.Data.Errors = append(payload.Data.Errors, batchItemError{
			Index:     item.Index,
			Error:     body.Error,
			Errors:    body.Errors,
			Conflicts: body.Conflicts,
		})
	}
	payload.Warning = h.undeliveredWarning(r.Context(), result.Emails)

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, payload)
}

// Get returns the session named by {id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, i18n.MsgValidation, errMissingID)
		return
	}

	session, err := h.service.GetSession(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{
		Success: true,
		Data:    sessionData{Session: toSessionDTO(session)},
	})
}

// Update applies a partial JSON patch to the session named by {id}.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, i18n.MsgValidation, errMissingID)
		return
	}

	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.UpdateSession(r.Context(), application.UpdateSessionParams{
		Principal: principal,
		SessionID: id,
		Patch:     req.toPatch(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := sessionResponse{
		Success: true,
		Data:    sessionData{Session: toSessionDTO(result.Session)},
	}
	if result.Email != nil {
		payload.EmailStatus = string(result.Email.Status)
		payload.EmailMessage = result.Email.Message
		if !result.Email.Delivered() {
			payload.Warning = h.responder.t(r.Context(), i18n.MsgEmailFailed, map[string]any{"Email": result.Email.Recipient})
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Delete removes the session named by {id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, i18n.MsgValidation, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.DeleteSession(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := deleteResponse{Success: true, Data: deleteData{ID: result.SessionID}}
	if result.Email != nil {
		payload.EmailStatus = string(result.Email.Status)
		payload.EmailMessage = result.Email.Message
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// DetectConflicts is a dry run; nothing is persisted.
func (h *SessionHandler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req conflictRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	conflicts, err := h.service.DetectConflicts(r.Context(), req.toParams())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictsResponse{
		Success: true,
		Data:    conflictsData{Conflicts: toConflictDTOs(conflicts)},
		Count:   len(conflicts),
	})
}

// BulkInvite sends one invitation listing the posted sessions.
func (h *SessionHandler) BulkInvite(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bulkInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.responder.handleServiceError(r.Context(), w, fieldErrors(err))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.service.BulkInvite(r.Context(), req.toParams(principal))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bulkInviteResponse{
		Success:      result.AllDelivered(),
		Emails:       toEmailDTOs(result.Emails),
		UsedFallback: result.UsedFallback,
		Warning:      h.undeliveredWarning(r.Context(), result.Emails),
	})
}

func (h *SessionHandler) undeliveredWarning(ctx context.Context, outcomes []application.EmailOutcome) string {
	var failed []application.EmailOutcome
	for _, o := range outcomes {
		if !o.Delivered() {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return ""
	}
	return h.responder.plural(ctx, i18n.MsgInvitesPartial, len(failed), map[string]any{"Email": failed[0].Recipient})
}

func pathID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	return id, id != ""
}
