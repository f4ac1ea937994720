package http

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/example/conference-scheduler/internal/application"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, roles []string, expiresIn time.Duration) string {
	t.Helper()
	claims := principalClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRequireOrganizer(t *testing.T) {
	t.Parallel()

	translator := newTestTranslator(t)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
		expectedUser   string
	}{
		{name: "missing credentials", expectedStatus: http.StatusUnauthorized},
		{name: "malformed token", authorization: "Bearer nonsense", expectedStatus: http.StatusUnauthorized},
		{name: "wrong secret", authorization: "Bearer " + signToken(t, "other", []string{"organizer"}, time.Hour), expectedStatus: http.StatusUnauthorized},
		{name: "expired token", authorization: "Bearer " + signToken(t, testSecret, []string{"organizer"}, -time.Hour), expectedStatus: http.StatusUnauthorized},
		{name: "missing role", authorization: "Bearer " + signToken(t, testSecret, []string{"faculty"}, time.Hour), expectedStatus: http.StatusForbidden},
		{name: "organizer", authorization: "Bearer " + signToken(t, testSecret, []string{"organizer"}, time.Hour), expectedStatus: http.StatusNoContent, expectedUser: "user-1"},
		{name: "event manager lower case scheme", authorization: "bearer " + signToken(t, testSecret, []string{"event_manager"}, time.Hour), expectedStatus: http.StatusNoContent, expectedUser: "user-1"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, _ := PrincipalFromContext(r.Context())
				gotUser = principal.UserID
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tc.authorization != "" {
				req.Header.Set("Authorization", tc.authorization)
			}
			rec := httptest.NewRecorder()
			RequireOrganizer(testSecret, nil, translator)(next).ServeHTTP(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tc.expectedStatus, rec.Code, rec.Body.String())
			}
			if gotUser != tc.expectedUser {
				t.Fatalf("expected principal %q, got %q", tc.expectedUser, gotUser)
			}
		})
	}
}

func TestRequireOrganizer_EmptySecretUsesSystemPrincipal(t *testing.T) {
	t.Parallel()

	var got application.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	RequireOrganizer("", nil, nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got.UserID != application.SystemPrincipal.UserID || !got.CanOrganize() {
		t.Fatalf("expected system principal, got %+v", got)
	}
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	t.Parallel()

	var locale string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Errorf("expected request logger in context")
		}
		locale = LocaleFromContext(r.Context())
	})
	handler := RequestLogger(nil)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	req.Header.Set("Accept-Language", "ja")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) != "abc-123" {
		t.Fatalf("expected inbound request id to be echoed, got %q", rec.Header().Get(requestIDHeader))
	}
	if locale != "ja" {
		t.Fatalf("expected locale ja, got %q", locale)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestRecover_RendersInternalError(t *testing.T) {
	t.Parallel()

	translator := newTestTranslator(t)
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	Recover(nil, translator, true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Internal server error" || body["detail"] != "panic: kaboom" {
		t.Fatalf("unexpected body %v", body)
	}
}

type observerStub struct {
	mu     sync.Mutex
	routes []string
	status []int
}

func (o *observerStub) ObserveRequest(_ string, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
	o.status = append(o.status, status)
}

func TestInstrument_UsesRouteTemplate(t *testing.T) {
	t.Parallel()

	observer := &observerStub{}
	router := mux.NewRouter()
	router.Use(Instrument(observer))
	router.HandleFunc("/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/sess-42", nil))

	if len(observer.routes) != 1 || observer.routes[0] != "/sessions/{id}" {
		t.Fatalf("expected templated route, got %v", observer.routes)
	}
	if observer.status[0] != http.StatusAccepted {
		t.Fatalf("expected recorded status 202, got %d", observer.status[0])
	}
}
