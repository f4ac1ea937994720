package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/config"
	"github.com/example/conference-scheduler/internal/events"
	httptransport "github.com/example/conference-scheduler/internal/http"
	"github.com/example/conference-scheduler/internal/i18n"
	"github.com/example/conference-scheduler/internal/mail"
	"github.com/example/conference-scheduler/internal/metrics"
	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/persistence/memory"
	"github.com/example/conference-scheduler/internal/persistence/sqlstore"
	"github.com/example/conference-scheduler/internal/storage"
	"github.com/example/conference-scheduler/internal/tracing"
)

type services struct {
	Sessions    *application.SessionService
	Invitations *application.InvitationService
	Directory   *application.DirectoryService
}

type publisher interface {
	application.EventPublisher
	Close() error
}

// app owns every long lived dependency of the process.
type app struct {
	store    persistence.Store
	events   publisher
	shutdown tracing.ShutdownFunc
	services services
	handler  http.Handler
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.Background())
			a = nil
		}
	}()

	a.shutdown, err = tracing.Setup(ctx, appName, Version, cfg.OTLPEndpoint, logger)
	if err != nil {
		return a, err
	}

	a.store, err = openStore(ctx, cfg, logger)
	if err != nil {
		return a, err
	}

	a.events, err = openEvents(cfg, logger)
	if err != nil {
		return a, err
	}

	translator, err := i18n.NewTranslator(cfg.DefaultLocale)
	if err != nil {
		return a, fmt.Errorf("load translations: %w", err)
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return a, err
	}
	dispatcher := mail.NewDispatcher(transport, translator, mail.Config{
		BaseURL:    cfg.BaseURL,
		Location:   cfg.Location,
		Locale:     cfg.DefaultLocale,
		Timeout:    cfg.MailTimeout,
		Retries:    cfg.MailRetries,
		RetryDelay: time.Second,
	}, logger)

	recorder := metrics.New()
	now := time.Now
	idGenerator := uuid.NewString

	sessionStore := storage.NewSessionStore(a.store)
	directory := storage.NewDirectory(a.store)
	names := application.NewLookupCache(5*time.Minute, 1024, now)

	a.services = services{
		Sessions: application.NewSessionService(application.SessionServiceDeps{
			Sessions:    sessionStore,
			Directory:   directory,
			Names:       names,
			Mailer:      dispatcher,
			Metrics:     recorder,
			Events:      a.events,
			IDGenerator: idGenerator,
			Now:         now,
			Logger:      logger,
		}, application.SessionServiceConfig{
			DefaultEventID:          cfg.DefaultEventID,
			Location:                cfg.Location,
			DayStart:                cfg.DefaultDayWindow.Start,
			DayEnd:                  cfg.DefaultDayWindow.End,
			MinDuration:             cfg.MinSessionDuration,
			CheckDateBasedConflicts: cfg.CheckDateBasedConflicts,
			ResetInviteOnReschedule: cfg.ResetInviteOnReschedule,
			NotifyOnDelete:          cfg.NotifyOnDelete,
		}),
		Invitations: application.NewInvitationService(sessionStore, recorder, a.events, now, logger),
		Directory:   application.NewDirectoryService(directory, names, idGenerator, now, logger),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Warn("CONFERENCE_JWT_SECRET is empty; organizer routes are unauthenticated")
	}

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:    httptransport.NewSessionHandler(a.services.Sessions, translator, cfg.DevMode, logger),
		Invitations: httptransport.NewInvitationHandler(a.services.Invitations, a.services.Sessions, cfg.Location, translator, cfg.DevMode, logger),
		Directory:   httptransport.NewDirectoryHandler(a.services.Directory, translator, cfg.DevMode, logger),
		Metrics:     recorder.Handler(),
		Observer:    recorder,
		Health:      healthCheck(a.store),
		Organizer:   httptransport.RequireOrganizer(cfg.JWTSecret, logger, translator),
		Middleware: []httptransport.Middleware{
			httptransport.RequestLogger(logger),
			httptransport.Recover(logger, translator, cfg.DevMode),
		},
		Translator: translator,
		Logger:     logger,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.logger.Error("failed to close event publisher", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close storage", "error", err)
		}
	}
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil {
			a.logger.Error("failed to flush traces", "error", err)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on exit")
		return memory.Open(), nil
	}

	store, err := openSQLStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	status, err := store.Migrate(ctx, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("storage ready", "db_driver", cfg.DBDriver, "schema_version", status.Version)
	return store, nil
}

func openSQLStore(ctx context.Context, cfg config.Config) (*sqlstore.Store, error) {
	dialect := sqlstore.DialectSQLite
	if cfg.DBDriver == config.DriverPostgres {
		dialect = sqlstore.DialectPostgres
	}
	store, err := sqlstore.Open(ctx, dialect, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	return store, nil
}

func openEvents(cfg config.Config, logger *slog.Logger) (publisher, error) {
	if strings.TrimSpace(cfg.NATSURL) == "" {
		return events.Noop{}, nil
	}
	nats, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		return nil, err
	}
	return nats, nil
}

func newTransport(cfg config.Config, logger *slog.Logger) (mail.Transport, error) {
	if strings.TrimSpace(cfg.SMTP.Host) == "" {
		logger.Info("SMTP host not configured; e-mails are logged only")
		return mail.NewLogTransport(logger), nil
	}
	return mail.NewSMTPTransport(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  cfg.MailTimeout,
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthCheck(store persistence.Store) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if p, ok := store.(pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}
}
