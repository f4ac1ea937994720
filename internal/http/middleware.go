package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/i18n"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

const requestIDHeader = "X-Request-ID"

// RequestLogger attaches a request scoped logger and the caller's locale to
// the request context.
func RequestLogger(base *slog.Logger) Middleware {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if id == "" {
				id = strconv.FormatUint(counter.Add(1), 10)
			}
			w.Header().Set(requestIDHeader, id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ctx = ContextWithLocale(ctx, r.Header.Get("Accept-Language"))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

// Recover converts panics into a localized 500 response.
func Recover(logger *slog.Logger, translator *i18n.Translator, devMode bool) Middleware {
	resp := newResponder(logger, translator, devMode)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					resp.loggerFor(r.Context()).ErrorContext(r.Context(), "panic recovered", "panic", rec, "stack", string(debug.Stack()))
					resp.writeError(r.Context(), w, http.StatusInternalServerError, i18n.MsgInternal, fmt.Errorf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

type principalClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// RequireOrganizer admits requests carrying an HMAC signed bearer token with
// an organizer role. With an empty secret every request acts as the system
// principal.
func RequireOrganizer(secret string, logger *slog.Logger, translator *i18n.Translator) Middleware {
	resp := newResponder(logger, translator, false)
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if len(key) == 0 {
				next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, application.SystemPrincipal)))
				return
			}

			principal, err := parsePrincipal(bearerToken(r), key)
			if err != nil {
				resp.loggerFor(ctx).WarnContext(ctx, "authentication failed", "error", err)
				resp.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: resp.t(ctx, i18n.MsgUnauthorized, nil)})
				return
			}
			if !principal.CanOrganize() {
				resp.writeJSON(ctx, w, http.StatusForbidden, errorResponse{Error: resp.t(ctx, i18n.MsgForbidden, nil)})
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func parsePrincipal(raw string, key []byte) (application.Principal, error) {
	if raw == "" {
		return application.Principal{}, errMissingToken
	}
	claims := &principalClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return application.Principal{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid {
		return application.Principal{}, errInvalidToken
	}
	return application.Principal{UserID: claims.Subject, Roles: claims.Roles}, nil
}

// RequestObserver receives one observation per completed request.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Instrument records request latency labelled by the matched route template.
func Instrument(observer RequestObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			observer.ObserveRequest(r.Method, route, rec.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
