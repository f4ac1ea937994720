package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/i18n"
)

var (
	errBadRequestBody = errors.New("invalid request body")
	errMissingID      = errors.New("missing path id")
)

type responder struct {
	logger     *slog.Logger
	translator *i18n.Translator
	devMode    bool
}

func newResponder(logger *slog.Logger, translator *i18n.Translator, devMode bool) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger, translator: translator, devMode: devMode}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError renders a localized error body. err is logged and, in dev mode,
// echoed as detail.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, key string, err error) {
	body := errorResponse{Error: r.t(ctx, key, nil)}
	if err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
		if r.devMode {
			body.Detail = err.Error()
		}
	}
	r.writeJSON(ctx, w, status, body)
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, i18n.MsgInternal, errors.New("unknown error"))
		return
	}
	status, body, known := r.describe(ctx, err)
	if !known {
		r.writeError(ctx, w, status, i18n.MsgInternal, err)
		return
	}
	r.writeJSON(ctx, w, status, body)
}

// describe maps a service error to its status and body. known is false for
// errors that render as a generic 500.
func (r responder) describe(ctx context.Context, err error) (int, errorResponse, bool) {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{Error: r.t(ctx, i18n.MsgForbidden, nil)}, true
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: r.t(ctx, i18n.MsgNotFound, nil)}, true
	case errors.Is(err, application.ErrInvalidAction):
		return http.StatusBadRequest, r.withDetail(errorResponse{Error: r.t(ctx, i18n.MsgInvalidAction, nil)}, err), true
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{Error: r.t(ctx, i18n.MsgAlreadyExists, nil)}, true
	case errors.Is(err, errBadRequestBody):
		return http.StatusBadRequest, r.withDetail(errorResponse{Error: r.t(ctx, i18n.MsgInvalidBody, nil)}, err), true
	}

	var cErr *application.ConflictError
	if errors.As(err, &cErr) {
		return http.StatusConflict, errorResponse{
			Error:     r.plural(ctx, i18n.MsgConflict, len(cErr.Conflicts), nil),
			Conflicts: toConflictDTOs(cErr.Conflicts),
		}, true
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorResponse{
			Error:  r.t(ctx, i18n.MsgValidation, nil),
			Errors: vErr.FieldErrors,
		}, true
	}

	return http.StatusInternalServerError, r.withDetail(errorResponse{Error: r.t(ctx, i18n.MsgInternal, nil)}, err), false
}

func (r responder) withDetail(body errorResponse, err error) errorResponse {
	if r.devMode && err != nil {
		body.Detail = err.Error()
	}
	return body
}

func (r responder) t(ctx context.Context, key string, data map[string]any) string {
	return r.translator.T(LocaleFromContext(ctx), key, data)
}

func (r responder) plural(ctx context.Context, key string, count int, data map[string]any) string {
	return r.translator.Plural(LocaleFromContext(ctx), key, count, data)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
	Detail    string            `json:"detail,omitempty"`
}
