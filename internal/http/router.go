package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/conference-scheduler/internal/i18n"
)

// RouterConfig wires handlers and cross-cutting middleware into the router.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Sessions    *SessionHandler
	Invitations *InvitationHandler
	Directory   *DirectoryHandler

	Metrics  http.Handler
	Observer RequestObserver
	Health   func(ctx context.Context) error

	// Organizer guards session mutations, bulk invites and directory writes.
	Organizer Middleware
	// Middleware wraps the whole router, outermost first.
	Middleware []Middleware

	Translator *i18n.Translator
	Logger     *slog.Logger
}

// NewRouter registers every configured route and wraps the result in cfg.Middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	resp := newResponder(cfg.Logger, cfg.Translator, false)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Error: resp.t(r.Context(), i18n.MsgResourceNotFound, nil)})
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp.writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Error: resp.t(r.Context(), i18n.MsgMethodNotAllowed, nil)})
	})

	if cfg.Observer != nil {
		router.Use(Instrument(cfg.Observer))
	}

	organizer := cfg.Organizer
	if organizer == nil {
		organizer = func(next http.Handler) http.Handler { return next }
	}
	guard := func(fn http.HandlerFunc) http.Handler { return organizer(fn) }

	router.HandleFunc("/healthz", healthHandler(cfg.Health, resp)).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	if h := cfg.Sessions; h != nil {
		// Fixed paths are registered before /sessions/{id}.
		router.Handle("/sessions/create", guard(h.CreateBatch)).Methods(http.MethodPost)
		router.Handle("/sessions/conflicts", guard(h.DetectConflicts)).Methods(http.MethodPost)
		router.Handle("/sessions/bulk-invite", guard(h.BulkInvite)).Methods(http.MethodPost)
		router.Handle("/sessions", guard(h.List)).Methods(http.MethodGet)
		router.Handle("/sessions", guard(h.Create)).Methods(http.MethodPost)
		router.Handle("/sessions/{id}", guard(h.Get)).Methods(http.MethodGet)
		router.Handle("/sessions/{id}", guard(h.Update)).Methods(http.MethodPatch, http.MethodPut)
		router.Handle("/sessions/{id}", guard(h.Delete)).Methods(http.MethodDelete)
	}

	if h := cfg.Invitations; h != nil {
		router.HandleFunc("/faculty/sessions", h.ListOwn).Methods(http.MethodGet)
		router.HandleFunc("/faculty/sessions/{id}/respond", h.Respond).Methods(http.MethodPost)
	}

	if h := cfg.Directory; h != nil {
		router.Handle("/faculty", guard(h.ListFaculty)).Methods(http.MethodGet)
		router.Handle("/faculty", guard(h.UpsertFaculty)).Methods(http.MethodPost)
		router.Handle("/halls", guard(h.ListHalls)).Methods(http.MethodGet)
		router.Handle("/halls", guard(h.UpsertHall)).Methods(http.MethodPost)
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(check func(ctx context.Context) error, resp responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			resp.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			resp.loggerFor(ctx).WarnContext(ctx, "health check failed", "error", err)
			resp.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
		resp.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
