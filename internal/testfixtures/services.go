package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/i18n"
	"github.com/example/conference-scheduler/internal/mail"
	"github.com/example/conference-scheduler/internal/metrics"
	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/storage"
)

// Outbox is a mail.Transport that keeps every message. Addresses listed in
// Reject fail delivery.
type Outbox struct {
	mu       sync.Mutex
	messages []mail.Message
	reject   map[string]error
}

func NewOutbox() *Outbox {
	return &Outbox{reject: make(map[string]error)}
}

func (o *Outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.reject[strings.ToLower(msg.To)]; ok {
		return err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// Reject makes deliveries to address fail with err.
func (o *Outbox) Reject(address string, err error) {
	o.mu.Lock()
	o.reject[strings.ToLower(address)] = err
	o.mu.Unlock()
}

// Messages returns a copy of the delivered messages.
func (o *Outbox) Messages() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.messages...)
}

// Events records published lifecycle events.
type Events struct {
	mu    sync.Mutex
	kinds []string
}

func (e *Events) Publish(_ context.Context, kind string, _ any) error {
	e.mu.Lock()
	e.kinds = append(e.kinds, kind)
	e.mu.Unlock()
	return nil
}

func (e *Events) Kinds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.kinds...)
}

// Services bundles application services wired to a real store, the mail
// dispatcher and a private metrics registry.
type Services struct {
	Store       persistence.Store
	Sessions    *application.SessionService
	Invitations *application.InvitationService
	Directory   *application.DirectoryService
	Outbox      *Outbox
	Events      *Events
	Metrics     *metrics.Recorder
	Clock       *Clock
	Translator  *i18n.Translator
}

// ServiceOption adjusts the session service configuration.
type ServiceOption func(*application.SessionServiceConfig)

// NewServices wires services over store. Retries are disabled so delivery
// failures surface immediately.
func NewServices(tb testing.TB, store persistence.Store, opts ...ServiceOption) *Services {
	tb.Helper()

	translator, err := i18n.NewTranslator("en")
	if err != nil {
		tb.Fatalf("translator: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := NewClock(time.Time{})
	outbox := NewOutbox()
	events := &Events{}
	recorder := metrics.New()

	dispatcher := mail.NewDispatcher(outbox, translator, mail.Config{
		BaseURL:    "https://conference.example.com",
		Location:   time.UTC,
		Timeout:    time.Second,
		RetryDelay: time.Millisecond,
	}, logger)

	cfg := application.SessionServiceConfig{DefaultEventID: "event-1", Location: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}

	sessions := storage.NewSessionStore(store)
	directory := storage.NewDirectory(store)
	names := application.NewLookupCache(time.Minute, 128, clock.Now)

	return &Services{
		Store: store,
		Sessions: application.NewSessionService(application.SessionServiceDeps{
			Sessions:    sessions,
			Directory:   directory,
			Names:       names,
			Mailer:      dispatcher,
			Metrics:     recorder,
			Events:      events,
			IDGenerator: NewSequence("sess").Next,
			Now:         clock.Now,
			Logger:      logger,
		}, cfg),
		Invitations: application.NewInvitationService(sessions, recorder, events, clock.Now, logger),
		Directory:   application.NewDirectoryService(directory, names, NewSequence("dir").Next, clock.Now, logger),
		Outbox:      outbox,
		Events:      events,
		Metrics:     recorder,
		Clock:       clock,
		Translator:  translator,
	}
}
